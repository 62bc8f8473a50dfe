package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// PingReq has no variable header or payload.
type PingReq struct{}

func DecodePingReq(raw []byte) (*PingReq, error) {
	if len(raw) != 2 || PacketType(raw[0]&0xF0) != PINGREQ || raw[1] != 0x00 {
		return nil, &er.Err{Context: "PingReq", Message: er.ErrInvalidPacketLength}
	}
	return &PingReq{}, nil
}

// PingResp has no variable header or payload.
type PingResp struct{}

func (p *PingResp) Encode() []byte {
	return []byte{byte(PINGRESP), 0x00}
}

// Disconnect carries a reason code and an optional human-readable
// message, both ways (inbound from client, outbound from broker).
type Disconnect struct {
	ReasonCode DisconnectReasonCode
	Properties *Properties
}

func DecodeDisconnect(raw []byte) (*Disconnect, error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != DISCONNECT {
		return nil, &er.Err{Context: "Disconnect", Message: er.ErrInvalidConnPacket}
	}
	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return nil, &er.Err{Context: "Disconnect", Message: er.ErrInvalidPacketLength}
	}
	if len(body) == 0 {
		return &Disconnect{ReasonCode: DisconnectNormal}, nil
	}
	d := &Disconnect{ReasonCode: DisconnectReasonCode(body[0])}
	body = body[1:]
	if len(body) > 0 {
		props, _, err := decodeProperties(body)
		if err != nil {
			return nil, err
		}
		d.Properties = props
	}
	return d, nil
}

func (d *Disconnect) Encode() []byte {
	body := []byte{byte(d.ReasonCode)}
	body = append(body, encodeProperties(d.Properties)...)

	out := []byte{byte(DISCONNECT)}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}

// ReasonString returns the human-readable Properties.ReasonString, or "".
func (d *Disconnect) ReasonString() string {
	if d.Properties == nil || d.Properties.ReasonString == nil {
		return ""
	}
	return *d.Properties.ReasonString
}

// NewDisconnect builds a DISCONNECT carrying an optional message in
// its ReasonString property, the way storage and lookup failures are
// surfaced to the peer (spec §7).
func NewDisconnect(code DisconnectReasonCode, message string) *Disconnect {
	d := &Disconnect{ReasonCode: code}
	if message != "" {
		d.Properties = &Properties{ReasonString: &message}
	}
	return d
}
