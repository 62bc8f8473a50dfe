package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// Unsubscribe is a decoded UNSUBSCRIBE packet.
type Unsubscribe struct {
	PacketID   uint16
	Properties *Properties
	Filters    []string
}

func DecodeUnsubscribe(raw []byte) (*Unsubscribe, error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != UNSUBSCRIBE {
		return nil, &er.Err{Context: "Unsubscribe", Message: er.ErrInvalidUnsubscribePacket}
	}
	if raw[0]&0x0F != 0x02 {
		return nil, &er.Err{Context: "Unsubscribe, Flags", Message: er.ErrInvalidUnsubscribePacket}
	}

	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return nil, &er.Err{Context: "Unsubscribe", Message: er.ErrInvalidPacketLength}
	}

	pid, err := decodeUint16(body)
	if err != nil {
		return nil, &er.Err{Context: "Unsubscribe, PacketID", Message: err}
	}
	if pid == 0 {
		return nil, &er.Err{Context: "Unsubscribe, PacketID", Message: er.ErrInvalidPacketID}
	}
	body = body[2:]

	props, consumed, err := decodeProperties(body)
	if err != nil {
		return nil, &er.Err{Context: "Unsubscribe, Properties", Message: err}
	}
	body = body[consumed:]

	u := &Unsubscribe{PacketID: pid, Properties: props}
	for len(body) > 0 {
		path, consumed, err := decodeString(body)
		if err != nil {
			return nil, &er.Err{Context: "Unsubscribe, Filter", Message: err}
		}
		body = body[consumed:]
		if path == "" {
			return nil, &er.Err{Context: "Unsubscribe, Filter", Message: er.ErrEmptyTopicFilter}
		}
		u.Filters = append(u.Filters, path)
	}

	if len(u.Filters) == 0 {
		return nil, &er.Err{Context: "Unsubscribe", Message: er.ErrNoTopicFilters}
	}

	return u, nil
}

func (u *Unsubscribe) Encode() []byte {
	var body []byte
	body = append(body, encodeUint16(u.PacketID)...)
	body = append(body, encodeProperties(u.Properties)...)
	for _, f := range u.Filters {
		body = append(body, encodeString(f)...)
	}

	out := []byte{byte(UNSUBSCRIBE) | 0x02}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}

// UnsubAck is the UNSUBSCRIBE reply, one reason code per requested filter.
type UnsubAck struct {
	PacketID    uint16
	Properties  *Properties
	ReasonCodes []UnsubscribeReasonCode
}

func (p *UnsubAck) Encode() []byte {
	var body []byte
	body = append(body, encodeUint16(p.PacketID)...)
	body = append(body, encodeProperties(p.Properties)...)
	for _, rc := range p.ReasonCodes {
		body = append(body, byte(rc))
	}

	out := []byte{byte(UNSUBACK)}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}
