package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// SubscribeFilter is one requested filter inside a SUBSCRIBE packet,
// with its MQTT v5 subscription options.
type SubscribeFilter struct {
	Path              string
	QoS               QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
}

// Subscribe is a decoded SUBSCRIBE packet.
type Subscribe struct {
	PacketID   uint16
	Properties *Properties
	Filters    []SubscribeFilter
}

func DecodeSubscribe(raw []byte) (*Subscribe, error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != SUBSCRIBE {
		return nil, &er.Err{Context: "Subscribe", Message: er.ErrInvalidSubscribePacket}
	}
	if raw[0]&0x0F != 0x02 {
		return nil, &er.Err{Context: "Subscribe, Flags", Message: er.ErrInvalidSubscribePacket}
	}

	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return nil, &er.Err{Context: "Subscribe", Message: er.ErrInvalidPacketLength}
	}

	pid, err := decodeUint16(body)
	if err != nil {
		return nil, &er.Err{Context: "Subscribe, PacketID", Message: err}
	}
	if pid == 0 {
		return nil, &er.Err{Context: "Subscribe, PacketID", Message: er.ErrInvalidPacketID}
	}
	body = body[2:]

	props, consumed, err := decodeProperties(body)
	if err != nil {
		return nil, &er.Err{Context: "Subscribe, Properties", Message: err}
	}
	body = body[consumed:]

	s := &Subscribe{PacketID: pid, Properties: props}

	for len(body) > 0 {
		path, consumed, err := decodeString(body)
		if err != nil {
			return nil, &er.Err{Context: "Subscribe, Filter", Message: err}
		}
		body = body[consumed:]
		if path == "" {
			return nil, &er.Err{Context: "Subscribe, Filter", Message: er.ErrEmptyTopicFilter}
		}

		if len(body) < 1 {
			return nil, &er.Err{Context: "Subscribe, Options", Message: er.ErrShortBuffer}
		}
		opts := body[0]
		body = body[1:]

		s.Filters = append(s.Filters, SubscribeFilter{
			Path:              path,
			QoS:               QoS(opts & 0x03),
			NoLocal:           opts&0x04 != 0,
			RetainAsPublished: opts&0x08 != 0,
			RetainHandling:    RetainHandling((opts & 0x30) >> 4),
		})
	}

	if len(s.Filters) == 0 {
		return nil, &er.Err{Context: "Subscribe", Message: er.ErrNoTopicFilters}
	}

	return s, nil
}

func (s *Subscribe) Encode() []byte {
	var body []byte
	body = append(body, encodeUint16(s.PacketID)...)
	body = append(body, encodeProperties(s.Properties)...)
	for _, f := range s.Filters {
		body = append(body, encodeString(f.Path)...)
		opts := byte(f.QoS)
		if f.NoLocal {
			opts |= 0x04
		}
		if f.RetainAsPublished {
			opts |= 0x08
		}
		opts |= byte(f.RetainHandling) << 4
		body = append(body, opts)
	}

	out := []byte{byte(SUBSCRIBE) | 0x02}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}

// SubAck is the SUBSCRIBE reply, one reason code per requested filter.
type SubAck struct {
	PacketID    uint16
	Properties  *Properties
	ReasonCodes []SubscribeReasonCode
}

func (p *SubAck) Encode() []byte {
	var body []byte
	body = append(body, encodeUint16(p.PacketID)...)
	body = append(body, encodeProperties(p.Properties)...)
	for _, rc := range p.ReasonCodes {
		body = append(body, byte(rc))
	}

	out := []byte{byte(SUBACK)}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}
