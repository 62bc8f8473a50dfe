package broker

import "github.com/robustmq-go/mqttd/internal/mqtt"

// AckBuilder holds no state; its methods are pure constructors for
// reply packets, mirroring the teacher's packet.NewConnAck/NewPubAck
// family generalized to v5 reason codes and properties.
type AckBuilder struct{}

func NewAckBuilder() AckBuilder { return AckBuilder{} }

func (AckBuilder) ConnectSuccess(sessionPresent bool, assignedClientID string, sessionExpiry uint32) *mqtt.ConnAck {
	props := &mqtt.Properties{SessionExpiryInterval: &sessionExpiry}
	if assignedClientID != "" {
		props.AssignedClientID = &assignedClientID
	}
	return &mqtt.ConnAck{
		SessionPresent: sessionPresent,
		ReasonCode:     mqtt.ConnectSuccess,
		Properties:     props,
	}
}

func (AckBuilder) ConnectFail(reason mqtt.ConnectReasonCode, message string) *mqtt.ConnAck {
	ack := &mqtt.ConnAck{ReasonCode: reason}
	if message != "" {
		ack.Properties = &mqtt.Properties{ReasonString: &message}
	}
	return ack
}

func (AckBuilder) PubAck(pkid uint16, reason mqtt.PubAckReasonCode, userProps []mqtt.UserProperty) *mqtt.PubAck {
	var props *mqtt.Properties
	if len(userProps) > 0 {
		props = &mqtt.Properties{UserProperties: userProps}
	}
	return &mqtt.PubAck{PacketID: pkid, ReasonCode: reason, Properties: props}
}

func (b AckBuilder) PubAckFail(pkid uint16, reason mqtt.PubAckReasonCode, message string) *mqtt.PubAck {
	ack := &mqtt.PubAck{PacketID: pkid, ReasonCode: reason}
	if message != "" {
		ack.Properties = &mqtt.Properties{ReasonString: &message}
	}
	return ack
}

func (AckBuilder) PubRec(pkid uint16, userProps []mqtt.UserProperty) *mqtt.PubRec {
	var props *mqtt.Properties
	if len(userProps) > 0 {
		props = &mqtt.Properties{UserProperties: userProps}
	}
	return &mqtt.PubRec{PacketID: pkid, ReasonCode: mqtt.PubAckSuccess, Properties: props}
}

func (AckBuilder) PubRel(pkid uint16, reason mqtt.PubRelReasonCode) *mqtt.PubRel {
	return &mqtt.PubRel{PacketID: pkid, ReasonCode: reason}
}

func (AckBuilder) PubCompSuccess(pkid uint16) *mqtt.PubComp {
	return &mqtt.PubComp{PacketID: pkid, ReasonCode: mqtt.PubRelSuccess}
}

func (AckBuilder) PubCompFail(pkid uint16) *mqtt.PubComp {
	return &mqtt.PubComp{PacketID: pkid, ReasonCode: mqtt.PubRelPacketIdentifierNotFound}
}

func (AckBuilder) SubAck(pkid uint16, reasonCodes []mqtt.SubscribeReasonCode) *mqtt.SubAck {
	return &mqtt.SubAck{PacketID: pkid, ReasonCodes: reasonCodes}
}

func (AckBuilder) UnsubAck(pkid uint16, reasonCodes []mqtt.UnsubscribeReasonCode) *mqtt.UnsubAck {
	return &mqtt.UnsubAck{PacketID: pkid, ReasonCodes: reasonCodes}
}

func (AckBuilder) PingResp() *mqtt.PingResp {
	return &mqtt.PingResp{}
}

func (AckBuilder) Disconnect(reason mqtt.DisconnectReasonCode, message string) *mqtt.Disconnect {
	return mqtt.NewDisconnect(reason, message)
}
