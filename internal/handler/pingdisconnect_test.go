package handler

import (
	"testing"

	"github.com/robustmq-go/mqttd/internal/mqtt"
)

func TestPingRefreshesHeartbeatAndRepliesPingResp(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "device-1")

	before, ok := env.h.Heartbeats.Get(1)
	if !ok {
		t.Fatal("expected a heartbeat record after connect")
	}

	replies := env.h.Ping(1, &mqtt.PingReq{})
	if len(replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies))
	}
	if _, ok := replies[0].(*mqtt.PingResp); !ok {
		t.Fatalf("expected *mqtt.PingResp, got %T", replies[0])
	}

	after, ok := env.h.Heartbeats.Get(1)
	if !ok {
		t.Fatal("expected a heartbeat record to still exist after ping")
	}
	if after.LastHeartbeatEpoch < before.LastHeartbeatEpoch {
		t.Fatal("expected the heartbeat timestamp to not go backwards")
	}
}

func TestPingUnknownConnectionIsDisconnected(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	replies := env.h.Ping(999, &mqtt.PingReq{})
	if _, ok := replies[0].(*mqtt.Disconnect); !ok {
		t.Fatalf("expected *mqtt.Disconnect for an unknown connection, got %T", replies[0])
	}
}

func TestDisconnectTearsDownStateAndSubsequentPublishIsRejected(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	mustConnect(env, 1, "device-1")

	replies := env.h.Disconnect(1, &mqtt.Disconnect{})
	if replies != nil {
		t.Fatalf("expected no reply to a client-initiated disconnect, got %+v", replies)
	}

	if _, ok := env.metadata.GetConnection(1); ok {
		t.Fatal("expected the connection to be removed")
	}
	if _, ok := env.h.Heartbeats.Get(1); ok {
		t.Fatal("expected the heartbeat record to be removed")
	}

	out := env.h.Publish(1, &mqtt.Publish{Topic: "a/b", QoS: mqtt.QoS0, Payload: []byte("x")})
	if _, ok := out[0].(*mqtt.Disconnect); !ok {
		t.Fatalf("expected a publish on a torn-down connection to reply disconnect, got %T", out[0])
	}
}

func TestDisconnectOnUnknownConnectionIsANoop(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})
	replies := env.h.Disconnect(999, &mqtt.Disconnect{})
	if replies != nil {
		t.Fatalf("expected no reply for a disconnect on an unknown connection, got %+v", replies)
	}
}
