package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// MaxVarIntPayload is the largest remaining length representable by a
// 4-byte MQTT variable byte integer.
const MaxVarIntPayload = 268435455

// Publish is a decoded PUBLISH packet, inbound or outbound.
type Publish struct {
	DUP      bool
	QoS      QoS
	Retain   bool
	Topic    string
	PacketID uint16 // zero for QoS 0

	Properties *Properties
	Payload    []byte
}

// TopicAlias returns the alias carried in Properties, or 0 if absent.
func (p *Publish) TopicAlias() uint16 {
	if p.Properties == nil || p.Properties.TopicAlias == nil {
		return 0
	}
	return *p.Properties.TopicAlias
}

// DecodePublish parses a full PUBLISH packet (including fixed header).
func DecodePublish(raw []byte) (*Publish, error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != PUBLISH {
		return nil, &er.Err{Context: "Publish", Message: er.ErrInvalidPublishPacket}
	}

	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return nil, &er.Err{Context: "Publish", Message: er.ErrInvalidPacketLength}
	}

	fixed := raw[0]
	p := &Publish{
		DUP:    fixed&0x08 != 0,
		QoS:    QoS((fixed & 0x06) >> 1),
		Retain: fixed&0x01 != 0,
	}
	if p.QoS > QoS2 {
		return nil, &er.Err{Context: "Publish, QoS", Message: er.ErrInvalidQoSLevel}
	}
	if p.DUP && p.QoS == QoS0 {
		return nil, &er.Err{Context: "Publish, DUP", Message: er.ErrInvalidDUPFlag}
	}

	topic, consumed, err := decodeString(body)
	if err != nil {
		return nil, &er.Err{Context: "Publish, Topic", Message: err}
	}
	body = body[consumed:]
	p.Topic = topic

	if p.QoS != QoS0 {
		if len(body) < 2 {
			return nil, &er.Err{Context: "Publish, PacketID", Message: er.ErrMissingPacketID}
		}
		pid, _ := decodeUint16(body)
		if pid == 0 {
			return nil, &er.Err{Context: "Publish, PacketID", Message: er.ErrInvalidPacketID}
		}
		p.PacketID = pid
		body = body[2:]
	}

	props, consumed, err := decodeProperties(body)
	if err != nil {
		return nil, &er.Err{Context: "Publish, Properties", Message: err}
	}
	body = body[consumed:]
	p.Properties = props

	if topic == "" && (props == nil || props.TopicAlias == nil) {
		return nil, &er.Err{Context: "Publish, Topic", Message: er.ErrTopicOrAliasRequired}
	}

	p.Payload = append([]byte{}, body...)
	return p, nil
}

func (p *Publish) Encode() []byte {
	var fixed byte = byte(PUBLISH)
	if p.DUP {
		fixed |= 0x08
	}
	fixed |= byte(p.QoS) << 1
	if p.Retain {
		fixed |= 0x01
	}

	var body []byte
	body = append(body, encodeString(p.Topic)...)
	if p.QoS != QoS0 {
		body = append(body, encodeUint16(p.PacketID)...)
	}
	body = append(body, encodeProperties(p.Properties)...)
	body = append(body, p.Payload...)

	out := []byte{fixed}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}
