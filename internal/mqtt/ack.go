package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// PubAck acknowledges a QoS 1 PUBLISH; PubRec starts the QoS 2 handshake.
// Both share the same wire shape, so one decoder/encoder pair serves both.
type PubAck struct {
	PacketID   uint16
	ReasonCode PubAckReasonCode
	Properties *Properties
}

type PubRec struct {
	PacketID   uint16
	ReasonCode PubAckReasonCode
	Properties *Properties
}

// PubRel continues the QoS 2 handshake; PubComp finishes it. Both
// share the same wire shape as PubAck/PubRec but a different reason
// code table.
type PubRel struct {
	PacketID   uint16
	ReasonCode PubRelReasonCode
	Properties *Properties
}

type PubComp struct {
	PacketID   uint16
	ReasonCode PubRelReasonCode
	Properties *Properties
}

func decodeAckShape(raw []byte, wantType PacketType) (pkid uint16, reason byte, props *Properties, err error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != wantType {
		return 0, 0, nil, &er.Err{Context: "Ack", Message: er.ErrInvalidPacketType}
	}
	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return 0, 0, nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return 0, 0, nil, &er.Err{Context: "Ack", Message: er.ErrInvalidPacketLength}
	}
	if len(body) < 2 {
		return 0, 0, nil, &er.Err{Context: "Ack", Message: er.ErrShortBuffer}
	}
	pid, _ := decodeUint16(body)
	body = body[2:]

	if len(body) == 0 {
		return pid, 0, nil, nil // reason code defaults to Success
	}
	reason = body[0]
	body = body[1:]

	if len(body) == 0 {
		return pid, reason, nil, nil
	}
	props, _, err = decodeProperties(body)
	if err != nil {
		return 0, 0, nil, err
	}
	return pid, reason, props, nil
}

func encodeAckShape(packetType PacketType, pkid uint16, reason byte, props *Properties) []byte {
	body := encodeUint16(pkid)

	// MQTT v5: reason code and properties may be omitted entirely when
	// reason is Success (0x00) and there are no properties.
	if reason == 0 && props == nil {
		out := []byte{byte(packetType)}
		out = append(out, EncodeVarInt(len(body))...)
		out = append(out, body...)
		return out
	}

	body = append(body, reason)
	body = append(body, encodeProperties(props)...)

	out := []byte{byte(packetType)}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}

func DecodePubAck(raw []byte) (*PubAck, error) {
	pid, reason, props, err := decodeAckShape(raw, PUBACK)
	if err != nil {
		return nil, err
	}
	return &PubAck{PacketID: pid, ReasonCode: PubAckReasonCode(reason), Properties: props}, nil
}

func (p *PubAck) Encode() []byte {
	return encodeAckShape(PUBACK, p.PacketID, byte(p.ReasonCode), p.Properties)
}

func DecodePubRec(raw []byte) (*PubRec, error) {
	pid, reason, props, err := decodeAckShape(raw, PUBREC)
	if err != nil {
		return nil, err
	}
	return &PubRec{PacketID: pid, ReasonCode: PubAckReasonCode(reason), Properties: props}, nil
}

func (p *PubRec) Encode() []byte {
	return encodeAckShape(PUBREC, p.PacketID, byte(p.ReasonCode), p.Properties)
}

func DecodePubRel(raw []byte) (*PubRel, error) {
	pid, reason, props, err := decodeAckShape(raw, PUBREL)
	if err != nil {
		return nil, err
	}
	return &PubRel{PacketID: pid, ReasonCode: PubRelReasonCode(reason), Properties: props}, nil
}

func (p *PubRel) Encode() []byte {
	out := encodeAckShape(PUBREL, p.PacketID, byte(p.ReasonCode), p.Properties)
	out[0] |= 0x02 // PUBREL reserved flags must be 0010
	return out
}

func DecodePubComp(raw []byte) (*PubComp, error) {
	pid, reason, props, err := decodeAckShape(raw, PUBCOMP)
	if err != nil {
		return nil, err
	}
	return &PubComp{PacketID: pid, ReasonCode: PubRelReasonCode(reason), Properties: props}, nil
}

func (p *PubComp) Encode() []byte {
	return encodeAckShape(PUBCOMP, p.PacketID, byte(p.ReasonCode), p.Properties)
}
