package handler

import (
	"time"

	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// Ping implements spec §4.14: refresh the Heartbeat Cache entry for
// this connection and reply PINGRESP.
func (h *Handler) Ping(connectID uint64, _ *mqtt.PingReq) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	h.Heartbeats.ReportHeartbeat(connectID, broker.HeartbeatRecord{
		ConnectID:          connectID,
		ProtocolVersion:    conn.ProtocolVersion,
		KeepAliveSeconds:   conn.KeepAliveSeconds,
		LastHeartbeatEpoch: time.Now().Unix(),
	})
	return []mqtt.Packet{h.Acks.PingResp()}
}

// Disconnect implements spec §4.15: tear down the Connection and its
// subscriptions and heartbeat entry. A client that disconnects without
// ever completing CONNECT gets no reply, matching the source's
// "absent connection, no reply" behavior for this one operation (every
// other operation replies DISCONNECT on a lookup miss).
func (h *Handler) Disconnect(connectID uint64, _ *mqtt.Disconnect) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return nil
	}

	h.Metadata.RemoveConnection(connectID)
	h.Subscriptions.RemoveClient(conn.ClientID)
	h.Metadata.RemoveClientSubscriptions(conn.ClientID)
	h.Heartbeats.RemoveConnection(connectID)

	if session, ok := h.Metadata.GetSession(conn.ClientID); ok {
		session.ConnectID = 0
	}

	if h.Log != nil {
		h.Log.LogClientConnection(conn.ClientID, conn.PeerAddr, "disconnected")
	}

	return nil
}
