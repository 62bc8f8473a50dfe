package handler

import (
	"testing"

	"github.com/robustmq-go/mqttd/internal/mqtt"
)

func TestConnectNewClientAssignsIDAndAcceptsSession(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})

	replies := env.h.Connect(1, &mqtt.Connect{
		ProtocolName:    "MQTT",
		ProtocolVersion: mqtt.ProtocolVersion5,
		CleanStart:      true,
	}, stubAddr("10.0.0.1:5555"))

	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(replies))
	}
	ack, ok := replies[0].(*mqtt.ConnAck)
	if !ok {
		t.Fatalf("expected *mqtt.ConnAck, got %T", replies[0])
	}
	if ack.ReasonCode != mqtt.ConnectSuccess {
		t.Fatalf("expected ConnectSuccess, got %v", ack.ReasonCode)
	}
	if ack.Properties == nil || ack.Properties.AssignedClientID == nil || *ack.Properties.AssignedClientID == "" {
		t.Fatal("expected a server-assigned client id for an empty CONNECT client id")
	}

	conn, ok := env.metadata.GetConnection(1)
	if !ok {
		t.Fatal("expected a Connection to be installed for connect_id 1")
	}
	if conn.ClientID != *ack.Properties.AssignedClientID {
		t.Fatalf("connection client id %q does not match assigned client id %q", conn.ClientID, *ack.Properties.AssignedClientID)
	}
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{allowed: map[string]bool{"good": true}})

	replies := env.h.Connect(1, &mqtt.Connect{
		ProtocolName:    "MQTT",
		ProtocolVersion: mqtt.ProtocolVersion5,
		CleanStart:      true,
		ClientID:        "device-1",
		Login:           &mqtt.Login{Username: "bad", Password: "wrong"},
	}, stubAddr("10.0.0.1:5555"))

	ack := replies[0].(*mqtt.ConnAck)
	if ack.ReasonCode != mqtt.ConnectNotAuthorized {
		t.Fatalf("expected ConnectNotAuthorized, got %v", ack.ReasonCode)
	}
	if _, ok := env.metadata.GetConnection(1); ok {
		t.Fatal("did not expect a Connection to be installed for a rejected login")
	}
}

func TestConnectMapsAuthenticatorErrorToServerUnavailable(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{err: errAuthBackendDown})

	replies := env.h.Connect(1, &mqtt.Connect{
		ProtocolName:    "MQTT",
		ProtocolVersion: mqtt.ProtocolVersion5,
		CleanStart:      true,
		ClientID:        "device-1",
	}, stubAddr("10.0.0.1:5555"))

	ack := replies[0].(*mqtt.ConnAck)
	if ack.ReasonCode != mqtt.ConnectServerUnavailable {
		t.Fatalf("expected ConnectServerUnavailable, got %v", ack.ReasonCode)
	}
}

func TestConnectSupersedesPriorConnectionForSameClientID(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})

	mustConnect(env, 1, "device-1")
	if _, ok := env.metadata.GetConnection(1); !ok {
		t.Fatal("expected first connection to be installed")
	}

	mustConnect(env, 2, "device-1")
	if _, ok := env.metadata.GetConnection(1); ok {
		t.Fatal("expected the prior connection to be evicted when the same client id reconnects")
	}
	if _, ok := env.metadata.GetConnection(2); !ok {
		t.Fatal("expected the new connection to be installed")
	}
}

func TestConnectCleanStartDropsPriorWill(t *testing.T) {
	env := newTestEnv(&fakeAuthenticator{})

	env.h.Connect(1, &mqtt.Connect{
		ProtocolName: "MQTT", ProtocolVersion: mqtt.ProtocolVersion5,
		ClientID: "device-1", CleanStart: false,
		LastWill: &mqtt.LastWill{Topic: "status", Message: []byte("offline")},
	}, stubAddr("1.2.3.4:1"))
	env.h.Disconnect(1, &mqtt.Disconnect{})

	env.h.Connect(2, &mqtt.Connect{
		ProtocolName: "MQTT", ProtocolVersion: mqtt.ProtocolVersion5,
		ClientID: "device-1", CleanStart: true,
	}, stubAddr("1.2.3.4:1"))

	session, ok := env.metadata.GetSession("device-1")
	if !ok {
		t.Fatal("expected a session for device-1")
	}
	if session.LastWill != nil {
		t.Fatal("expected clean_start to drop the prior will")
	}
}

var errAuthBackendDown = authBackendDownErr{}

type authBackendDownErr struct{}

func (authBackendDownErr) Error() string { return "auth backend unavailable" }
