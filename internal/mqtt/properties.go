package mqtt

import "github.com/robustmq-go/mqttd/pkg/er"

// Property identifiers, per the MQTT v5 properties table. Every v5
// property has a named constant; an identifier outside this table
// fails decoding with er.ErrUnknownProperty.
const (
	propPayloadFormatIndicator byte = 0x01
	propMessageExpiryInterval  byte = 0x02
	propContentType            byte = 0x03
	propResponseTopic          byte = 0x08
	propCorrelationData        byte = 0x09
	propSubscriptionIdentifier byte = 0x0B
	propSessionExpiryInterval  byte = 0x11
	propAssignedClientID       byte = 0x12
	propServerKeepAlive        byte = 0x13
	propAuthenticationMethod   byte = 0x15
	propAuthenticationData     byte = 0x16
	propRequestProblemInfo     byte = 0x17
	propWillDelayInterval      byte = 0x18
	propRequestResponseInfo    byte = 0x19
	propResponseInformation    byte = 0x1A
	propServerReference        byte = 0x1C
	propReasonString           byte = 0x1F
	propReceiveMaximum         byte = 0x21
	propTopicAliasMaximum      byte = 0x22
	propTopicAlias             byte = 0x23
	propMaximumQoS             byte = 0x24
	propRetainAvailable        byte = 0x25
	propUserProperty           byte = 0x26
	propMaximumPacketSize      byte = 0x27
	propWildcardSubAvailable   byte = 0x28
	propSubIDAvailable         byte = 0x29
	propSharedSubAvailable     byte = 0x2A
)

// UserProperty is a free-form key/value pair; MQTT v5 allows repeats.
type UserProperty struct {
	Key   string
	Value string
}

// Properties holds the decoded property set for whichever fields a
// given packet kind actually carries. Unused fields stay nil/zero.
type Properties struct {
	PayloadFormatIndicator *byte
	MessageExpiryInterval  *uint32
	ContentType            *string
	ResponseTopic          *string
	CorrelationData        []byte
	SubscriptionIdentifier *int
	SessionExpiryInterval  *uint32
	AssignedClientID       *string
	ServerKeepAlive        *uint16
	AuthenticationMethod   *string
	AuthenticationData     []byte
	RequestProblemInfo     *byte
	WillDelayInterval      *uint32
	RequestResponseInfo    *byte
	ResponseInformation    *string
	ServerReference        *string
	ReasonString           *string
	ReceiveMaximum         *uint16
	TopicAliasMaximum      *uint16
	TopicAlias             *uint16
	MaximumQoS             *byte
	RetainAvailable        *byte
	UserProperties         []UserProperty
	MaximumPacketSize      *uint32
	WildcardSubAvailable   *byte
	SubIDAvailable         *byte
	SharedSubAvailable     *byte
}

// Offset returns the "offset" user property value set by the Packet
// Handler on PUBACK/PUBREC replies, or "" if absent.
func (p *Properties) Offset() string {
	if p == nil {
		return ""
	}
	for _, up := range p.UserProperties {
		if up.Key == "offset" {
			return up.Value
		}
	}
	return ""
}

// WithOffset returns a copy of p (or a fresh Properties) with an
// "offset" user property appended.
func WithOffset(p *Properties, offset string) *Properties {
	out := Properties{}
	if p != nil {
		out = *p
	}
	out.UserProperties = append(append([]UserProperty{}, out.UserProperties...), UserProperty{Key: "offset", Value: offset})
	return &out
}

// EncodePropertiesBytes serializes p (length-prefixed, self
// delimiting) for storage facades that persist a PUBLISH's properties
// alongside its payload (spec §4.9 steps 6-7).
func EncodePropertiesBytes(p *Properties) []byte {
	return encodeProperties(p)
}

// DecodePropertiesBytes is the inverse of EncodePropertiesBytes.
func DecodePropertiesBytes(data []byte) (*Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}
	props, _, err := decodeProperties(data)
	return props, err
}

func encodeProperties(p *Properties) []byte {
	var body []byte

	put := func(id byte, data []byte) {
		body = append(body, id)
		body = append(body, data...)
	}

	if p != nil {
		if p.PayloadFormatIndicator != nil {
			put(propPayloadFormatIndicator, []byte{*p.PayloadFormatIndicator})
		}
		if p.MessageExpiryInterval != nil {
			put(propMessageExpiryInterval, encodeUint32(*p.MessageExpiryInterval))
		}
		if p.ContentType != nil {
			put(propContentType, encodeString(*p.ContentType))
		}
		if p.ResponseTopic != nil {
			put(propResponseTopic, encodeString(*p.ResponseTopic))
		}
		if p.CorrelationData != nil {
			put(propCorrelationData, encodeBinary(p.CorrelationData))
		}
		if p.SubscriptionIdentifier != nil {
			put(propSubscriptionIdentifier, EncodeVarInt(*p.SubscriptionIdentifier))
		}
		if p.SessionExpiryInterval != nil {
			put(propSessionExpiryInterval, encodeUint32(*p.SessionExpiryInterval))
		}
		if p.AssignedClientID != nil {
			put(propAssignedClientID, encodeString(*p.AssignedClientID))
		}
		if p.ServerKeepAlive != nil {
			put(propServerKeepAlive, encodeUint16(*p.ServerKeepAlive))
		}
		if p.AuthenticationMethod != nil {
			put(propAuthenticationMethod, encodeString(*p.AuthenticationMethod))
		}
		if p.AuthenticationData != nil {
			put(propAuthenticationData, encodeBinary(p.AuthenticationData))
		}
		if p.RequestProblemInfo != nil {
			put(propRequestProblemInfo, []byte{*p.RequestProblemInfo})
		}
		if p.WillDelayInterval != nil {
			put(propWillDelayInterval, encodeUint32(*p.WillDelayInterval))
		}
		if p.RequestResponseInfo != nil {
			put(propRequestResponseInfo, []byte{*p.RequestResponseInfo})
		}
		if p.ResponseInformation != nil {
			put(propResponseInformation, encodeString(*p.ResponseInformation))
		}
		if p.ServerReference != nil {
			put(propServerReference, encodeString(*p.ServerReference))
		}
		if p.ReasonString != nil {
			put(propReasonString, encodeString(*p.ReasonString))
		}
		if p.ReceiveMaximum != nil {
			put(propReceiveMaximum, encodeUint16(*p.ReceiveMaximum))
		}
		if p.TopicAliasMaximum != nil {
			put(propTopicAliasMaximum, encodeUint16(*p.TopicAliasMaximum))
		}
		if p.TopicAlias != nil {
			put(propTopicAlias, encodeUint16(*p.TopicAlias))
		}
		if p.MaximumQoS != nil {
			put(propMaximumQoS, []byte{*p.MaximumQoS})
		}
		if p.RetainAvailable != nil {
			put(propRetainAvailable, []byte{*p.RetainAvailable})
		}
		for _, up := range p.UserProperties {
			put(propUserProperty, append(encodeString(up.Key), encodeString(up.Value)...))
		}
		if p.MaximumPacketSize != nil {
			put(propMaximumPacketSize, encodeUint32(*p.MaximumPacketSize))
		}
		if p.WildcardSubAvailable != nil {
			put(propWildcardSubAvailable, []byte{*p.WildcardSubAvailable})
		}
		if p.SubIDAvailable != nil {
			put(propSubIDAvailable, []byte{*p.SubIDAvailable})
		}
		if p.SharedSubAvailable != nil {
			put(propSharedSubAvailable, []byte{*p.SharedSubAvailable})
		}
	}

	return append(EncodeVarInt(len(body)), body...)
}

// decodeProperties reads a properties block (length-prefixed with a
// variable byte integer) from the front of data, returning the
// Properties and bytes consumed including the length prefix.
func decodeProperties(data []byte) (*Properties, int, error) {
	length, lenBytes, err := DecodeVarInt(data)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < lenBytes+length {
		return nil, 0, &er.Err{Context: "decodeProperties", Message: er.ErrShortBuffer}
	}

	body := data[lenBytes : lenBytes+length]
	props := &Properties{}
	offset := 0

	for offset < len(body) {
		id := body[offset]
		offset++
		rest := body[offset:]

		switch id {
		case propPayloadFormatIndicator, propRequestProblemInfo, propRequestResponseInfo,
			propMaximumQoS, propRetainAvailable, propWildcardSubAvailable,
			propSubIDAvailable, propSharedSubAvailable:
			if len(rest) < 1 {
				return nil, 0, &er.Err{Context: "decodeProperties", Message: er.ErrShortBuffer}
			}
			b := rest[0]
			assignByteProp(props, id, &b)
			offset++
		case propMessageExpiryInterval, propSessionExpiryInterval, propWillDelayInterval, propMaximumPacketSize:
			v, err := decodeUint32(rest)
			if err != nil {
				return nil, 0, err
			}
			assignUint32Prop(props, id, &v)
			offset += 4
		case propServerKeepAlive, propReceiveMaximum, propTopicAliasMaximum, propTopicAlias:
			v, err := decodeUint16(rest)
			if err != nil {
				return nil, 0, err
			}
			assignUint16Prop(props, id, &v)
			offset += 2
		case propSubscriptionIdentifier:
			v, n, err := DecodeVarInt(rest)
			if err != nil {
				return nil, 0, err
			}
			props.SubscriptionIdentifier = &v
			offset += n
		case propContentType, propResponseTopic, propAssignedClientID, propAuthenticationMethod,
			propResponseInformation, propServerReference, propReasonString:
			s, n, err := decodeString(rest)
			if err != nil {
				return nil, 0, err
			}
			assignStringProp(props, id, &s)
			offset += n
		case propCorrelationData, propAuthenticationData:
			b, n, err := decodeBinary(rest)
			if err != nil {
				return nil, 0, err
			}
			assignBinaryProp(props, id, b)
			offset += n
		case propUserProperty:
			k, n1, err := decodeString(rest)
			if err != nil {
				return nil, 0, err
			}
			v, n2, err := decodeString(rest[n1:])
			if err != nil {
				return nil, 0, err
			}
			props.UserProperties = append(props.UserProperties, UserProperty{Key: k, Value: v})
			offset += n1 + n2
		default:
			return nil, 0, &er.Err{Context: "decodeProperties", Message: er.ErrUnknownProperty}
		}
	}

	return props, lenBytes + length, nil
}

func assignByteProp(p *Properties, id byte, v *byte) {
	switch id {
	case propPayloadFormatIndicator:
		p.PayloadFormatIndicator = v
	case propRequestProblemInfo:
		p.RequestProblemInfo = v
	case propRequestResponseInfo:
		p.RequestResponseInfo = v
	case propMaximumQoS:
		p.MaximumQoS = v
	case propRetainAvailable:
		p.RetainAvailable = v
	case propWildcardSubAvailable:
		p.WildcardSubAvailable = v
	case propSubIDAvailable:
		p.SubIDAvailable = v
	case propSharedSubAvailable:
		p.SharedSubAvailable = v
	}
}

func assignUint32Prop(p *Properties, id byte, v *uint32) {
	switch id {
	case propMessageExpiryInterval:
		p.MessageExpiryInterval = v
	case propSessionExpiryInterval:
		p.SessionExpiryInterval = v
	case propWillDelayInterval:
		p.WillDelayInterval = v
	case propMaximumPacketSize:
		p.MaximumPacketSize = v
	}
}

func assignUint16Prop(p *Properties, id byte, v *uint16) {
	switch id {
	case propServerKeepAlive:
		p.ServerKeepAlive = v
	case propReceiveMaximum:
		p.ReceiveMaximum = v
	case propTopicAliasMaximum:
		p.TopicAliasMaximum = v
	case propTopicAlias:
		p.TopicAlias = v
	}
}

func assignStringProp(p *Properties, id byte, v *string) {
	switch id {
	case propContentType:
		p.ContentType = v
	case propResponseTopic:
		p.ResponseTopic = v
	case propAssignedClientID:
		p.AssignedClientID = v
	case propAuthenticationMethod:
		p.AuthenticationMethod = v
	case propResponseInformation:
		p.ResponseInformation = v
	case propServerReference:
		p.ServerReference = v
	case propReasonString:
		p.ReasonString = v
	}
}

func assignBinaryProp(p *Properties, id byte, v []byte) {
	switch id {
	case propCorrelationData:
		p.CorrelationData = v
	case propAuthenticationData:
		p.AuthenticationData = v
	}
}
