package handler

import "github.com/robustmq-go/mqttd/internal/mqtt"

// Unsubscribe implements spec §4.13. Reason codes are reported one per
// requested filter (Success if the client actually held it,
// NoSubscriptionExisted otherwise) rather than the empty list the
// source implementation always returned.
func (h *Handler) Unsubscribe(connectID uint64, pkt *mqtt.Unsubscribe) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	clientID := conn.ClientID

	existing := make(map[string]bool, len(pkt.Filters))
	for _, path := range h.Metadata.ClientFilters(clientID) {
		existing[path] = true
	}

	reasonCodes := make([]mqtt.UnsubscribeReasonCode, len(pkt.Filters))
	for i, path := range pkt.Filters {
		if existing[path] {
			reasonCodes[i] = mqtt.UnsubAckSuccess
		} else {
			reasonCodes[i] = mqtt.UnsubAckNoSubscriptionExisted
		}
	}

	h.Idempotency.DeleteSubPkidData(clientID, pkt.PacketID)
	h.Metadata.RemoveFilterByPkid(clientID, pkt.Filters)
	h.Subscriptions.RemoveSubscribe(clientID, pkt.Filters)

	if h.Log != nil {
		for _, path := range pkt.Filters {
			h.Log.LogSubscription(clientID, path, 0, "unsubscribed")
		}
	}

	return []mqtt.Packet{h.Acks.UnsubAck(pkt.PacketID, reasonCodes)}
}
