// Package handler implements the MQTT v5 Packet Handler: the
// per-connection state machine described in spec §4.8-§4.14, one
// method per inbound packet kind, orchestrating the Metadata Cache,
// Idempotency Table, Ack Waiter Registry, Heartbeat Cache, Subscribe
// Cache and the storage facades. It plays the role the teacher's
// internal/transport/tcp.go inline switch played for MQTT 3.1.1,
// extracted into its own package and generalized to v5's reason codes
// and acknowledgement handshakes.
package handler

import (
	"net"
	"sync/atomic"

	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/logger"
	"github.com/robustmq-go/mqttd/internal/mqtt"
	"github.com/robustmq-go/mqttd/pkg/er"
)

// Authenticator is the login authentication collaborator of spec §4.8
// step 1. A nil error with ok=false means "not authorized"; a non-nil
// error means the collaborator itself failed (mapped to
// ServiceUnavailable rather than NotAuthorized).
type Authenticator interface {
	Authenticate(login *mqtt.Login, properties *mqtt.Properties, addr net.Addr) (ok bool, err error)
}

// defaultMaxPacketSize bounds PUBLISH payloads (spec §4.9 step 4) for
// a connection that negotiated no tighter limit and whose cluster
// config carries no override.
const defaultMaxPacketSize = 268435455

// Handler holds shared references to every cache and storage facade
// it orchestrates; it owns none of them (spec §3 "Ownership").
type Handler struct {
	Metadata      *broker.MetadataCache
	Idempotency   *broker.IdempotencyTable
	AckWaiters    *broker.AckWaiterRegistry
	Heartbeats    *broker.HeartbeatCache
	Subscriptions *broker.SubscribeCache
	Acks          broker.AckBuilder
	MessageLog    MessageLog
	Retained      RetainedStore
	Authenticator Authenticator
	Log           *logger.Logger

	pkidSeq uint32
}

// MessageLog is the narrow facade the handler needs from
// internal/storage, named locally so this package does not import
// internal/storage directly (spec §6's "downstream storage adapter"
// contract, kept abstract per spec §9's "dynamic dispatch on storage
// becomes an interface" design note).
type MessageLog interface {
	Append(topicID string, payload []byte, properties []byte) (offset string, err error)
}

// RetainedStore mirrors internal/storage.RetainedStore for the same reason.
type RetainedStore interface {
	Save(topicID string, payload []byte, properties []byte) error
	Get(topicID string) (payload []byte, properties []byte, ok bool, err error)
	Delete(topicID string) error
}

// New builds a Handler over the given collaborators.
func New(
	metadata *broker.MetadataCache,
	idempotency *broker.IdempotencyTable,
	ackWaiters *broker.AckWaiterRegistry,
	heartbeats *broker.HeartbeatCache,
	subscriptions *broker.SubscribeCache,
	messageLog MessageLog,
	retained RetainedStore,
	authenticator Authenticator,
	log *logger.Logger,
) *Handler {
	return &Handler{
		Metadata:      metadata,
		Idempotency:   idempotency,
		AckWaiters:    ackWaiters,
		Heartbeats:    heartbeats,
		Subscriptions: subscriptions,
		Acks:          broker.NewAckBuilder(),
		MessageLog:    messageLog,
		Retained:      retained,
		Authenticator: authenticator,
		Log:           log,
	}
}

// connectionNotFound builds the DISCONNECT reply every handler method
// returns when its connect_id has no live Connection (spec §7,
// "LookupMiss — connection absent").
func (h *Handler) connectionNotFound() []mqtt.Packet {
	return []mqtt.Packet{h.Acks.Disconnect(mqtt.DisconnectUnspecifiedError, er.ErrConnectionNotFound.Error())}
}

func (h *Handler) storageFailure(err error) []mqtt.Packet {
	return []mqtt.Packet{h.Acks.Disconnect(mqtt.DisconnectUnspecifiedError, err.Error())}
}

// nextPkid allocates a server-assigned packet identifier for outbound
// retained-message replay (spec §4.12 step 6). Ordinary push-worker
// delivery, out of this core's scope, would allocate from its own
// per-client sequence; this one is scoped to the handler because
// replay is issued synchronously inline with SUBSCRIBE.
func (h *Handler) nextPkid() uint16 {
	for {
		v := uint16(atomic.AddUint32(&h.pkidSeq, 1))
		if v != 0 {
			return v
		}
	}
}

func offsetUserProperties(offset string) []mqtt.UserProperty {
	if offset == "" {
		return nil
	}
	return []mqtt.UserProperty{{Key: "offset", Value: offset}}
}
