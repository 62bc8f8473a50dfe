package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// Login carries the optional username/password pair from a CONNECT
// packet, handed to the authentication collaborator as-is.
type Login struct {
	Username string
	Password string
}

// LastWill is the optional message the server publishes on the
// client's behalf if the connection drops uncleanly.
type LastWill struct {
	Topic   string
	Message []byte
	QoS     QoS
	Retain  bool
}

// Connect is the decoded CONNECT variable header and payload.
type Connect struct {
	ProtocolName    string
	ProtocolVersion byte
	CleanStart      bool
	KeepAlive       uint16
	ClientID        string

	Properties *Properties

	LastWill           *LastWill
	LastWillProperties *Properties

	Login *Login
}

// DecodeConnect parses a full CONNECT packet (including fixed header)
// into a Connect value.
func DecodeConnect(raw []byte) (*Connect, error) {
	if len(raw) < 2 || PacketType(raw[0]&0xF0) != CONNECT {
		return nil, &er.Err{Context: "Connect", Message: er.ErrInvalidConnPacket}
	}

	remLen, n, err := DecodeVarInt(raw[1:])
	if err != nil {
		return nil, err
	}
	body := raw[1+n:]
	if len(body) != remLen {
		return nil, &er.Err{Context: "Connect", Message: er.ErrInvalidPacketLength}
	}

	name, consumed, err := decodeString(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, ProtocolName", Message: err}
	}
	body = body[consumed:]
	if name != "MQTT" {
		return nil, &er.Err{Context: "Connect, ProtocolName", Message: er.ErrUnsupportedProtocolName}
	}

	if len(body) < 1 {
		return nil, &er.Err{Context: "Connect", Message: er.ErrInvalidConnPacket}
	}
	version := body[0]
	body = body[1:]
	if version != ProtocolVersion5 {
		return nil, &er.Err{Context: "Connect, ProtocolVersion", Message: er.ErrUnsupportedProtocolLevel}
	}

	if len(body) < 1 {
		return nil, &er.Err{Context: "Connect", Message: er.ErrInvalidConnPacket}
	}
	flags := body[0]
	body = body[1:]

	usernameFlag := flags&0x80 != 0
	passwordFlag := flags&0x40 != 0
	willRetain := flags&0x20 != 0
	willQoS := QoS((flags & 0x18) >> 3)
	willFlag := flags&0x04 != 0
	cleanStart := flags&0x02 != 0

	if willFlag && willQoS > QoS2 {
		return nil, &er.Err{Context: "Connect, WillQoS", Message: er.ErrInvalidWillQos}
	}
	if !usernameFlag && passwordFlag {
		return nil, &er.Err{Context: "Connect, Flags", Message: er.ErrPasswordWithoutUsername}
	}

	keepAlive, err := decodeUint16(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, KeepAlive", Message: err}
	}
	body = body[2:]

	props, consumed, err := decodeProperties(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, Properties", Message: err}
	}
	body = body[consumed:]

	clientID, consumed, err := decodeString(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, ClientID", Message: err}
	}
	body = body[consumed:]

	c := &Connect{
		ProtocolName:    name,
		ProtocolVersion: version,
		CleanStart:      cleanStart,
		KeepAlive:       keepAlive,
		ClientID:        clientID,
		Properties:      props,
	}

	if clientID == "" && !cleanStart {
		return nil, &er.Err{Context: "Connect, ClientID", Message: er.ErrEmptyAndCleanStartFalse}
	}

	if willFlag {
		willProps, consumed, err := decodeProperties(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, WillProperties", Message: err}
		}
		body = body[consumed:]

		topic, consumed, err := decodeString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, WillTopic", Message: err}
		}
		body = body[consumed:]

		message, consumed, err := decodeBinary(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, WillMessage", Message: err}
		}
		body = body[consumed:]

		c.LastWillProperties = willProps
		c.LastWill = &LastWill{
			Topic:   topic,
			Message: message,
			QoS:     willQoS,
			Retain:  willRetain,
		}
	}

	if usernameFlag {
		username, consumed, err := decodeString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, Username", Message: er.ErrMalformedUsernameField}
		}
		body = body[consumed:]
		c.Login = &Login{Username: username}
	}

	if passwordFlag {
		password, consumed, err := decodeString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, Password", Message: er.ErrMalformedPasswordField}
		}
		body = body[consumed:]
		if c.Login == nil {
			c.Login = &Login{}
		}
		c.Login.Password = password
	}

	return c, nil
}

// Encode serializes c back to wire bytes; used by client-side tests
// exercising the decoder.
func (c *Connect) Encode() []byte {
	var flags byte
	if c.Login != nil && c.Login.Username != "" {
		flags |= 0x80
	}
	if c.Login != nil && c.Login.Password != "" {
		flags |= 0x40
	}
	if c.LastWill != nil {
		flags |= 0x04
		flags |= byte(c.LastWill.QoS) << 3
		if c.LastWill.Retain {
			flags |= 0x20
		}
	}
	if c.CleanStart {
		flags |= 0x02
	}

	var body []byte
	body = append(body, encodeString("MQTT")...)
	body = append(body, ProtocolVersion5, flags)
	body = append(body, encodeUint16(c.KeepAlive)...)
	body = append(body, encodeProperties(c.Properties)...)
	body = append(body, encodeString(c.ClientID)...)

	if c.LastWill != nil {
		body = append(body, encodeProperties(c.LastWillProperties)...)
		body = append(body, encodeString(c.LastWill.Topic)...)
		body = append(body, encodeBinary(c.LastWill.Message)...)
	}
	if c.Login != nil && c.Login.Username != "" {
		body = append(body, encodeString(c.Login.Username)...)
	}
	if c.Login != nil && c.Login.Password != "" {
		body = append(body, encodeString(c.Login.Password)...)
	}

	out := []byte{byte(CONNECT)}
	out = append(out, EncodeVarInt(len(body))...)
	out = append(out, body...)
	return out
}
