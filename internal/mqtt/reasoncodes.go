package mqtt

// ConnectReasonCode is the CONNACK reason code (MQTT v5 §3.2.2.2).
type ConnectReasonCode byte

const (
	ConnectSuccess                  ConnectReasonCode = 0x00
	ConnectUnspecifiedError         ConnectReasonCode = 0x80
	ConnectMalformedPacket          ConnectReasonCode = 0x81
	ConnectBadUsernameOrPassword    ConnectReasonCode = 0x86
	ConnectNotAuthorized            ConnectReasonCode = 0x87
	ConnectServerUnavailable        ConnectReasonCode = 0x88
	ConnectBadClientID              ConnectReasonCode = 0x85
	ConnectUnsupportedProtoVersion  ConnectReasonCode = 0x84
)

// PubAckReasonCode is shared by PUBACK and PUBREC (MQTT v5 §3.4.2.1 / §3.5.2.1).
type PubAckReasonCode byte

const (
	PubAckSuccess                PubAckReasonCode = 0x00
	PubAckNoMatchingSubscribers  PubAckReasonCode = 0x10
	PubAckUnspecifiedError       PubAckReasonCode = 0x80
	PubAckPayloadFormatInvalid   PubAckReasonCode = 0x99
	PubAckPacketIdentifierInUse  PubAckReasonCode = 0x91
)

// PubRelReasonCode is shared by PUBREL and PUBCOMP.
type PubRelReasonCode byte

const (
	PubRelSuccess                     PubRelReasonCode = 0x00
	PubRelPacketIdentifierNotFound    PubRelReasonCode = 0x92
)

// SubscribeReasonCode is the per-filter SUBACK reason code.
type SubscribeReasonCode byte

const (
	SubAckQoS0              SubscribeReasonCode = 0x00
	SubAckQoS1              SubscribeReasonCode = 0x01
	SubAckQoS2              SubscribeReasonCode = 0x02
	SubAckUnspecifiedError  SubscribeReasonCode = 0x80
	SubAckTopicFilterInvalid SubscribeReasonCode = 0x8F
	SubAckPacketIDInUse     SubscribeReasonCode = 0x91
)

// UnsubscribeReasonCode is the per-filter UNSUBACK reason code.
type UnsubscribeReasonCode byte

const (
	UnsubAckSuccess              UnsubscribeReasonCode = 0x00
	UnsubAckNoSubscriptionExisted UnsubscribeReasonCode = 0x11
)

// DisconnectReasonCode (MQTT v5 §3.14.2.1).
type DisconnectReasonCode byte

const (
	DisconnectNormal           DisconnectReasonCode = 0x00
	DisconnectUnspecifiedError DisconnectReasonCode = 0x80
)

// RetainHandling controls whether a SUBSCRIBE triggers retained
// message replay (MQTT v5 §3.8.3.1).
type RetainHandling byte

const (
	RetainHandlingSendAtSubscribe            RetainHandling = 0
	RetainHandlingSendAtSubscribeIfNew        RetainHandling = 1
	RetainHandlingDoNotSend                   RetainHandling = 2
)
