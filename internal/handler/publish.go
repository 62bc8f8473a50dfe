package handler

import (
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// Publish implements spec §4.9: resolve the topic (direct or via
// alias), validate the payload, de-duplicate QoS 2 deliveries, persist
// the retained copy and the log record, then reply per QoS.
func (h *Handler) Publish(connectID uint64, pkt *mqtt.Publish) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	clientID := conn.ClientID

	topicName := pkt.Topic
	if alias := pkt.TopicAlias(); alias != 0 {
		if topicName != "" {
			conn.SetTopicAlias(alias, topicName)
		} else {
			topicName = conn.ResolveTopicAlias(alias)
			if topicName == "" {
				return h.publishFailure(pkt, mqtt.PubAckUnspecifiedError, "unknown topic alias")
			}
		}
	}
	if topicName == "" {
		return h.publishFailure(pkt, mqtt.PubAckUnspecifiedError, "no topic name or alias")
	}

	// Payload policy (spec §4.9 step 4): non-empty and within the
	// connection's negotiated max packet size, except an empty payload
	// on a retained PUBLISH is the documented delete trigger (step 6)
	// rather than a validation failure.
	maxSize := conn.MaxPacketSize
	if maxSize == 0 {
		maxSize = defaultMaxPacketSize
	}
	emptyRetainDelete := pkt.Retain && len(pkt.Payload) == 0
	if !emptyRetainDelete && (len(pkt.Payload) == 0 || uint32(len(pkt.Payload)) > maxSize) {
		return h.publishFailure(pkt, mqtt.PubAckPayloadFormatInvalid, "")
	}

	if pkt.QoS == mqtt.QoS2 && h.Idempotency.GetQoSPkidData(clientID, pkt.PacketID) {
		return h.publishFailure(pkt, mqtt.PubAckPacketIdentifierInUse, "")
	}

	topic := h.Metadata.AddTopic(topicName)

	if pkt.Retain {
		if len(pkt.Payload) == 0 {
			if err := h.Retained.Delete(topic.TopicID); err != nil {
				return h.storageFailure(err)
			}
		} else {
			propsBytes := mqtt.EncodePropertiesBytes(pkt.Properties)
			if err := h.Retained.Save(topic.TopicID, pkt.Payload, propsBytes); err != nil {
				return h.storageFailure(err)
			}
		}
		if h.Log != nil {
			h.Log.LogRetainedMessage(topicName, "updated", len(pkt.Payload))
		}
	}

	offset := ""
	if len(pkt.Payload) > 0 {
		propsBytes := mqtt.EncodePropertiesBytes(pkt.Properties)
		off, err := h.MessageLog.Append(topic.TopicID, pkt.Payload, propsBytes)
		if err != nil {
			return h.storageFailure(err)
		}
		offset = off
	}

	if h.Log != nil {
		h.Log.LogPublish(clientID, topicName, int(pkt.QoS), pkt.Retain, len(pkt.Payload))
	}

	switch pkt.QoS {
	case mqtt.QoS0:
		return nil
	case mqtt.QoS1:
		return []mqtt.Packet{h.Acks.PubAck(pkt.PacketID, mqtt.PubAckSuccess, offsetUserProperties(offset))}
	default: // QoS2
		h.Idempotency.SaveQoSPkidData(clientID, pkt.PacketID)
		return []mqtt.Packet{h.Acks.PubRec(pkt.PacketID, offsetUserProperties(offset))}
	}
}

// publishFailure always replies with the PUBACK-family failure packet
// (spec §4.9 steps 1/4/5, §8 scenario 3), regardless of the inbound
// QoS — matching the source's unconditional `pub_ack_fail` call on
// every one of these branches.
func (h *Handler) publishFailure(pkt *mqtt.Publish, reason mqtt.PubAckReasonCode, message string) []mqtt.Packet {
	return []mqtt.Packet{h.Acks.PubAckFail(pkt.PacketID, reason, message)}
}

// PubRel implements spec §4.11: finish the QoS 2 handshake if the
// idempotency entry PUBLISH installed is still present, otherwise
// report the packet identifier as unknown.
func (h *Handler) PubRel(connectID uint64, pkt *mqtt.PubRel) []mqtt.Packet {
	conn, ok := h.Metadata.GetConnection(connectID)
	if !ok {
		return h.connectionNotFound()
	}
	if !h.Idempotency.GetQoSPkidData(conn.ClientID, pkt.PacketID) {
		return []mqtt.Packet{h.Acks.PubCompFail(pkt.PacketID)}
	}
	h.Idempotency.DeleteQoSPkidData(conn.ClientID, pkt.PacketID)
	return []mqtt.Packet{h.Acks.PubCompSuccess(pkt.PacketID)}
}
