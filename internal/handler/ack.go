package handler

import (
	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// PubAck handles an inbound PUBACK: it always closes out a QoS 1
// delivery the broker made, so it only ever fulfils an Ack Waiter slot
// (spec §4.10 step 1).
func (h *Handler) PubAck(connectID uint64, pkt *mqtt.PubAck) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	h.AckWaiters.Complete(conn.ClientID, pkt.PacketID, broker.AckPackageData{
		AckType:    broker.AckTypePubAck,
		PacketID:   pkt.PacketID,
		ReasonCode: byte(pkt.ReasonCode),
	})
	return nil
}

// PubRec handles an inbound PUBREC (the broker was the QoS 2
// publisher). If no waiter is registered for this packet identifier,
// reply PUBREL(Success) to progress the peer's own state machine
// rather than waking a waiter that does not exist (spec §4.11 step 2).
func (h *Handler) PubRec(connectID uint64, pkt *mqtt.PubRec) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	if _, exists := h.AckWaiters.Get(conn.ClientID, pkt.PacketID); !exists {
		return []mqtt.Packet{h.Acks.PubRel(pkt.PacketID, mqtt.PubRelSuccess)}
	}
	h.AckWaiters.Complete(conn.ClientID, pkt.PacketID, broker.AckPackageData{
		AckType:    broker.AckTypePubRec,
		PacketID:   pkt.PacketID,
		ReasonCode: byte(pkt.ReasonCode),
	})
	return nil
}

// PubComp handles an inbound PUBCOMP, completing a QoS 2 handshake the
// broker originated as publisher (spec §4.10 step 3).
func (h *Handler) PubComp(connectID uint64, pkt *mqtt.PubComp) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	h.AckWaiters.Complete(conn.ClientID, pkt.PacketID, broker.AckPackageData{
		AckType:    broker.AckTypePubComp,
		PacketID:   pkt.PacketID,
		ReasonCode: byte(pkt.ReasonCode),
	})
	return nil
}
