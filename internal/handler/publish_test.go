package handler

import (
	"testing"

	"github.com/robustmq-go/mqttd/internal/mqtt"
)

func TestPublishQoS0HasNoReply(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	replies := env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS0, Payload: []byte("hi"),
	})
	if replies != nil {
		t.Fatalf("expected no reply for qos0, got %+v", replies)
	}
}

func TestPublishQoS1RepliesPubAckSuccess(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	replies := env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS1, PacketID: 7, Payload: []byte("hi"),
	})
	if len(replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies))
	}
	ack, ok := replies[0].(*mqtt.PubAck)
	if !ok {
		t.Fatalf("expected *mqtt.PubAck, got %T", replies[0])
	}
	if ack.ReasonCode != mqtt.PubAckSuccess || ack.PacketID != 7 {
		t.Fatalf("unexpected puback: %+v", ack)
	}
}

func TestPublishQoS2DuplicatePacketIDIsRejected(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	first := env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS2, PacketID: 9, Payload: []byte("hi"),
	})
	if rec, ok := first[0].(*mqtt.PubRec); !ok || rec.ReasonCode != mqtt.PubAckSuccess {
		t.Fatalf("expected first qos2 publish to succeed, got %+v", first)
	}

	second := env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS2, PacketID: 9, Payload: []byte("hi again"),
	})
	ack, ok := second[0].(*mqtt.PubAck)
	if !ok {
		t.Fatalf("expected *mqtt.PubAck, got %T", second[0])
	}
	if ack.ReasonCode != mqtt.PubAckPacketIdentifierInUse {
		t.Fatalf("expected PacketIdentifierInUse for the duplicate, got %v", ack.ReasonCode)
	}
}

func TestPublishRetainedEmptyPayloadDeletes(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS0, Retain: true, Payload: []byte("retained"),
	})
	topic := env.metadata.AddTopic("a/b")
	if _, _, ok, _ := env.storage.Get(topic.TopicID); !ok {
		t.Fatal("expected the retained message to be saved")
	}

	env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS0, Retain: true, Payload: nil,
	})
	if _, _, ok, _ := env.storage.Get(topic.TopicID); ok {
		t.Fatal("expected an empty-payload retained publish to delete the retained message")
	}
}

func TestPublishRejectsOversizedPayload(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	replies := env.h.Connect(1, &mqtt.Connect{
		ProtocolName: "MQTT", ProtocolVersion: mqtt.ProtocolVersion5,
		CleanStart: true, ClientID: "pub-1",
		Properties: &mqtt.Properties{MaximumPacketSize: uint32Ptr(4)},
	}, stubAddr("1.1.1.1:1"))
	if replies[0].(*mqtt.ConnAck).ReasonCode != mqtt.ConnectSuccess {
		t.Fatalf("expected connect to succeed, got %+v", replies)
	}

	out := env.h.Publish(1, &mqtt.Publish{
		Topic: "a/b", QoS: mqtt.QoS1, PacketID: 1, Payload: []byte("way too big"),
	})
	ack, ok := out[0].(*mqtt.PubAck)
	if !ok {
		t.Fatalf("expected *mqtt.PubAck, got %T", out[0])
	}
	if ack.ReasonCode != mqtt.PubAckPayloadFormatInvalid {
		t.Fatalf("expected PayloadFormatInvalid, got %v", ack.ReasonCode)
	}
}

func TestPublishUnknownConnectionIsDisconnected(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})

	replies := env.h.Publish(999, &mqtt.Publish{Topic: "a/b", QoS: mqtt.QoS0, Payload: []byte("x")})
	if len(replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies))
	}
	if _, ok := replies[0].(*mqtt.Disconnect); !ok {
		t.Fatalf("expected *mqtt.Disconnect for an unknown connection, got %T", replies[0])
	}
}

func TestPubRelCompletesQoS2Handshake(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	env.h.Publish(1, &mqtt.Publish{Topic: "a/b", QoS: mqtt.QoS2, PacketID: 3, Payload: []byte("x")})

	out := env.h.PubRel(1, &mqtt.PubRel{PacketID: 3})
	comp, ok := out[0].(*mqtt.PubComp)
	if !ok || comp.ReasonCode != mqtt.PubRelSuccess {
		t.Fatalf("expected a successful pubcomp, got %+v", out)
	}

	// a second PUBREL for the same packet id has no outstanding state left
	out = env.h.PubRel(1, &mqtt.PubRel{PacketID: 3})
	comp = out[0].(*mqtt.PubComp)
	if comp.ReasonCode != mqtt.PubRelPacketIdentifierNotFound {
		t.Fatalf("expected PacketIdentifierNotFound on replay, got %v", comp.ReasonCode)
	}
}

func TestPubRelWithoutPriorStateFails(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")

	out := env.h.PubRel(1, &mqtt.PubRel{PacketID: 42})
	comp, ok := out[0].(*mqtt.PubComp)
	if !ok || comp.ReasonCode != mqtt.PubRelPacketIdentifierNotFound {
		t.Fatalf("expected PacketIdentifierNotFound, got %+v", out)
	}
}

func uint32Ptr(v uint32) *uint32 { return &v }
