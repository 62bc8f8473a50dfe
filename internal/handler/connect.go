package handler

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// Connect implements spec §4.8: authenticate, resolve the client_id,
// reuse or create the session, evict any prior connection for this
// client, install the new Connection and report its first heartbeat.
func (h *Handler) Connect(connectID uint64, pkt *mqtt.Connect, addr net.Addr) []mqtt.Packet {
	ok, err := h.Authenticator.Authenticate(pkt.Login, pkt.Properties, addr)
	if err != nil {
		return []mqtt.Packet{h.Acks.ConnectFail(mqtt.ConnectServerUnavailable, err.Error())}
	}
	if !ok {
		return []mqtt.Packet{h.Acks.ConnectFail(mqtt.ConnectNotAuthorized, "")}
	}

	clientID := pkt.ClientID
	assignedClientID := ""
	if clientID == "" {
		clientID = uuid.NewString()
		assignedClientID = clientID
	}

	cluster := h.Metadata.GetClusterInfo()

	existing, hasSession := h.Metadata.GetSession(clientID)
	sessionPresent := hasSession && !pkt.CleanStart
	var session *broker.Session
	if sessionPresent {
		session = existing
	} else {
		session = &broker.Session{ClientID: clientID, CreatedAtUnix: time.Now().Unix()}
	}

	sessionExpiry := cluster.DefaultSessionExpiry
	if pkt.Properties != nil && pkt.Properties.SessionExpiryInterval != nil {
		sessionExpiry = *pkt.Properties.SessionExpiryInterval
	}
	session.SessionExpirySeconds = sessionExpiry
	session.ConnectID = connectID

	if pkt.LastWill != nil {
		session.LastWill = &broker.LastWill{
			Topic:      pkt.LastWill.Topic,
			Message:    pkt.LastWill.Message,
			QoS:        pkt.LastWill.QoS,
			Retain:     pkt.LastWill.Retain,
			Properties: pkt.LastWillProperties,
		}
	} else if !sessionPresent {
		session.LastWill = nil
	}

	// A client_id may carry at most one live connection; supersede
	// whichever one currently holds it (spec §4.8 step 4).
	if prior, found := h.Metadata.FindConnectionByClientID(clientID); found {
		h.Metadata.RemoveConnection(prior.ConnectID)
		h.Heartbeats.RemoveConnection(prior.ConnectID)
	}

	h.Metadata.AddSession(session)

	maxPacketSize := cluster.MaxPacketSize
	if maxPacketSize == 0 {
		maxPacketSize = defaultMaxPacketSize
	}
	if pkt.Properties != nil && pkt.Properties.MaximumPacketSize != nil {
		maxPacketSize = *pkt.Properties.MaximumPacketSize
	}

	peerAddr := ""
	if addr != nil {
		peerAddr = addr.String()
	}

	conn := &broker.Connection{
		ConnectID:            connectID,
		ClientID:             clientID,
		KeepAliveSeconds:     pkt.KeepAlive,
		MaxPacketSize:        maxPacketSize,
		NegotiatedProperties: pkt.Properties,
		ProtocolVersion:      pkt.ProtocolVersion,
		PeerAddr:             peerAddr,
	}
	h.Metadata.AddConnection(conn)

	h.Heartbeats.ReportHeartbeat(connectID, broker.HeartbeatRecord{
		ConnectID:          connectID,
		ProtocolVersion:    pkt.ProtocolVersion,
		KeepAliveSeconds:   pkt.KeepAlive,
		LastHeartbeatEpoch: time.Now().Unix(),
	})

	if h.Log != nil {
		h.Log.LogClientConnection(clientID, peerAddr, "connected")
	}

	return []mqtt.Packet{h.Acks.ConnectSuccess(sessionPresent, assignedClientID, sessionExpiry)}
}
