package handler

import (
	"testing"

	"github.com/robustmq-go/mqttd/internal/mqtt"
)

func TestUnsubscribeReportsSuccessAndNoSubscriptionExistedPerFilter(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "sub-1")

	env.h.Subscribe(1, &mqtt.Subscribe{
		PacketID: 1,
		Filters:  []mqtt.SubscribeFilter{{Path: "a/b", QoS: mqtt.QoS0}},
	})

	replies := env.h.Unsubscribe(1, &mqtt.Unsubscribe{
		PacketID: 2,
		Filters:  []string{"a/b", "never/subscribed"},
	})
	ack, ok := replies[0].(*mqtt.UnsubAck)
	if !ok {
		t.Fatalf("expected *mqtt.UnsubAck, got %T", replies[0])
	}
	if len(ack.ReasonCodes) != 2 {
		t.Fatalf("expected one reason code per filter, got %d", len(ack.ReasonCodes))
	}
	if ack.ReasonCodes[0] != mqtt.UnsubAckSuccess {
		t.Fatalf("expected Success for a/b, got %v", ack.ReasonCodes[0])
	}
	if ack.ReasonCodes[1] != mqtt.UnsubAckNoSubscriptionExisted {
		t.Fatalf("expected NoSubscriptionExisted for never/subscribed, got %v", ack.ReasonCodes[1])
	}
}

func TestUnsubscribeRemovesFromSubscribeCache(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "pub-1")
	mustConnect(env, 2, "sub-1")

	env.h.Subscribe(2, &mqtt.Subscribe{
		PacketID: 1,
		Filters:  []mqtt.SubscribeFilter{{Path: "a/b", QoS: mqtt.QoS0}},
	})
	env.h.Unsubscribe(2, &mqtt.Unsubscribe{PacketID: 2, Filters: []string{"a/b"}})

	// after unsubscribe, a publish to a/b should find no subscribers
	env.h.Publish(1, &mqtt.Publish{Topic: "a/b", QoS: mqtt.QoS0, Payload: []byte("x")})
	if matches := env.h.Subscriptions.Match("a/b"); len(matches) != 0 {
		t.Fatalf("expected no subscribers left on a/b, got %+v", matches)
	}
}

func TestUnsubscribeUnknownConnectionIsDisconnected(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	replies := env.h.Unsubscribe(999, &mqtt.Unsubscribe{PacketID: 1, Filters: []string{"a/b"}})
	if _, ok := replies[0].(*mqtt.Disconnect); !ok {
		t.Fatalf("expected *mqtt.Disconnect for an unknown connection, got %T", replies[0])
	}
}
