package handler

import (
	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// Subscribe implements spec §4.12: validate every filter independently
// (so one bad filter does not fail the whole SUBSCRIBE), cap the
// granted QoS against the cluster maximum, install accepted filters
// into both the Metadata Cache and Subscribe Cache, and replay
// matching retained messages ahead of the SUBACK.
func (h *Handler) Subscribe(connectID uint64, pkt *mqtt.Subscribe) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	clientID := conn.ClientID

	if h.Idempotency.GetSubPkidData(clientID, pkt.PacketID) {
		reasonCodes := make([]mqtt.SubscribeReasonCode, len(pkt.Filters))
		for i := range reasonCodes {
			reasonCodes[i] = mqtt.SubAckPacketIDInUse
		}
		return []mqtt.Packet{h.Acks.SubAck(pkt.PacketID, reasonCodes)}
	}

	cluster := h.Metadata.GetClusterInfo()
	reasonCodes := make([]mqtt.SubscribeReasonCode, len(pkt.Filters))
	var installed []broker.SubscriptionFilter

	for i, f := range pkt.Filters {
		if err := broker.ValidateFilterPath(f.Path); err != nil {
			reasonCodes[i] = mqtt.SubAckTopicFilterInvalid
			continue
		}

		granted := mqtt.MinQoS(f.QoS, cluster.MaxQoS)
		reasonCodes[i] = subAckReasonFor(granted)

		var subID *int
		if pkt.Properties != nil {
			subID = pkt.Properties.SubscriptionIdentifier
		}
		installed = append(installed, broker.SubscriptionFilter{
			ClientID:          clientID,
			FilterPath:        f.Path,
			GrantedQoS:        granted,
			NoLocal:           f.NoLocal,
			RetainAsPublished: f.RetainAsPublished,
			RetainHandling:    f.RetainHandling,
			SubscriptionID:    subID,
		})
	}

	// Every filter invalid (spec §4.12 step 3): a single-element
	// TopicFilterInvalid reason-code list, not one per requested
	// filter — matching the source's `subscribe()` for this case.
	if len(installed) == 0 {
		return []mqtt.Packet{h.Acks.SubAck(pkt.PacketID, []mqtt.SubscribeReasonCode{mqtt.SubAckTopicFilterInvalid})}
	}

	h.Idempotency.SaveSubPkidData(clientID, pkt.PacketID)

	var replay []mqtt.Packet
	for _, filter := range installed {
		h.Metadata.AddClientSubscribe(clientID, filter)
		if err := h.Subscriptions.AddSubscribe(filter); err != nil {
			return []mqtt.Packet{h.Acks.Disconnect(mqtt.DisconnectUnspecifiedError, err.Error())}
		}

		if filter.RetainHandling == mqtt.RetainHandlingDoNotSend {
			continue
		}
		pkts, err := h.replayRetained(filter)
		if err != nil {
			return []mqtt.Packet{h.Acks.Disconnect(mqtt.DisconnectUnspecifiedError, err.Error())}
		}
		replay = append(replay, pkts...)

		if h.Log != nil {
			h.Log.LogSubscription(clientID, filter.FilterPath, int(filter.GrantedQoS), "subscribed")
		}
	}

	return append(replay, h.Acks.SubAck(pkt.PacketID, reasonCodes))
}

func subAckReasonFor(q mqtt.QoS) mqtt.SubscribeReasonCode {
	switch q {
	case mqtt.QoS0:
		return mqtt.SubAckQoS0
	case mqtt.QoS1:
		return mqtt.SubAckQoS1
	default:
		return mqtt.SubAckQoS2
	}
}

// replayRetained finds every known topic matching filter and, for
// each one holding a retained message, returns a PUBLISH carrying it
// (spec §4.12 step 6). QoS >= 1 replies are assigned a server-side
// packet identifier and registered in the Ack Waiter Registry like any
// other broker-originated QoS >= 1 delivery.
func (h *Handler) replayRetained(filter broker.SubscriptionFilter) ([]mqtt.Packet, error) {
	var out []mqtt.Packet
	for _, topic := range h.Metadata.ListTopics() {
		if !broker.MatchesFilter(filter.FilterPath, topic.TopicName) {
			continue
		}
		payload, propsBytes, ok, err := h.Retained.Get(topic.TopicID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		props, err := mqtt.DecodePropertiesBytes(propsBytes)
		if err != nil {
			return nil, err
		}

		pub := &mqtt.Publish{
			QoS:        filter.GrantedQoS,
			Retain:     true,
			Topic:      topic.TopicName,
			Properties: props,
			Payload:    payload,
		}
		if pub.QoS != mqtt.QoS0 {
			pub.PacketID = h.nextPkid()
			h.AckWaiters.Register(filter.ClientID, pub.PacketID)
		}
		out = append(out, pub)
	}
	return out, nil
}
