package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// Decode inspects the fixed header of raw and routes to the matching
// packet decoder, the way the teacher's Parse dispatched on packet
// type. raw must hold exactly one complete packet (fixed header,
// remaining length, variable header and payload); framing off the
// wire is the transport's job.
func Decode(raw []byte) (*Decoded, error) {
	if len(raw) < 2 {
		return nil, &er.Err{Context: "Decode", Message: er.ErrEmptyBuffer}
	}

	pt := PacketType(raw[0] & 0xF0)
	d := &Decoded{Type: pt}

	var err error
	switch pt {
	case CONNECT:
		d.Connect, err = DecodeConnect(raw)
	case PUBLISH:
		d.Publish, err = DecodePublish(raw)
	case PUBACK:
		d.PubAck, err = DecodePubAck(raw)
	case PUBREC:
		d.PubRec, err = DecodePubRec(raw)
	case PUBREL:
		d.PubRel, err = DecodePubRel(raw)
	case PUBCOMP:
		d.PubComp, err = DecodePubComp(raw)
	case SUBSCRIBE:
		d.Subscribe, err = DecodeSubscribe(raw)
	case UNSUBSCRIBE:
		d.Unsubscribe, err = DecodeUnsubscribe(raw)
	case PINGREQ:
		d.PingReq, err = DecodePingReq(raw)
	case DISCONNECT:
		d.Disconnect, err = DecodeDisconnect(raw)
	default:
		return nil, &er.Err{Context: "Decode", Message: er.ErrInvalidPacketType}
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
