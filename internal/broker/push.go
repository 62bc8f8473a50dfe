package broker

import (
	"sync/atomic"
	"time"

	"github.com/robustmq-go/mqttd/internal/logger"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// PushSender is the narrow capability a transport listener exposes to
// a push worker: write one packet to whichever connection holds
// connectID. Kept minimal, the way internal/handler keeps its own
// MessageLog/RetainedStore interfaces narrow instead of importing a
// transport type directly.
type PushSender interface {
	Send(connectID uint64, pkt mqtt.Packet) error
}

// PushWorker delivers a published message to every matching,
// currently-connected subscriber (spec.md §6's "push/forwarding
// workers" collaborator, kept deliberately small: it is a single
// exclusive-subscription delivery path, not a full worker pool with
// shared-subscription leader/follower balancing, which spec.md §1
// keeps out of core scope).
type PushWorker struct {
	metadata *MetadataCache
	subs     *SubscribeCache
	waiters  *AckWaiterRegistry
	sender   PushSender
	log      *logger.Logger

	ackTimeout time.Duration
	pkidSeq    uint32
}

// NewPushWorker builds a PushWorker over the given collaborators.
func NewPushWorker(metadata *MetadataCache, subs *SubscribeCache, waiters *AckWaiterRegistry, sender PushSender, log *logger.Logger) *PushWorker {
	return &PushWorker{
		metadata:   metadata,
		subs:       subs,
		waiters:    waiters,
		sender:     sender,
		log:        log,
		ackTimeout: 30 * time.Second,
	}
}

// Publish fans payload out to every subscriber whose filter matches
// topicName, skipping subscribers that are offline (no live
// Connection — redelivery on reconnect is out of core scope) and
// subscribers that set no_local on a filter they published to
// themselves. Delivery QoS is capped to both the publisher's QoS and
// the subscriber's granted QoS, per MQTT v5 semantics.
func (w *PushWorker) Publish(publisherClientID, topicName string, payload []byte, props *mqtt.Properties, qos mqtt.QoS) {
	for _, filter := range w.subs.Match(topicName) {
		if filter.NoLocal && filter.ClientID == publisherClientID {
			continue
		}
		conn, ok := w.metadata.FindConnectionByClientID(filter.ClientID)
		if !ok {
			continue
		}

		granted := mqtt.MinQoS(filter.GrantedQoS, qos)
		pub := &mqtt.Publish{
			QoS:        granted,
			Retain:     filter.RetainAsPublished,
			Topic:      topicName,
			Properties: props,
			Payload:    payload,
		}
		if granted != mqtt.QoS0 {
			pub.PacketID = w.nextPkid()
			w.waiters.Register(filter.ClientID, pub.PacketID)
		}

		if err := w.sender.Send(conn.ConnectID, pub); err != nil {
			if w.log != nil {
				w.log.Warn("push delivery failed",
					logger.ClientID(filter.ClientID), logger.ErrorAttr(err))
			}
			if granted != mqtt.QoS0 {
				w.waiters.Drop(filter.ClientID, pub.PacketID)
			}
			continue
		}

		if granted != mqtt.QoS0 {
			go w.awaitAck(filter.ClientID, pub.PacketID)
		}
	}
}

// awaitAck blocks until the subscriber's inbound PUBACK/PUBREC/PUBCOMP
// handler fulfils the waiter or ackTimeout elapses, in which case the
// waiter is dropped; redelivery on timeout is out of core scope.
func (w *PushWorker) awaitAck(clientID string, pkid uint16) {
	waiter, ok := w.waiters.Get(clientID, pkid)
	if !ok {
		return
	}
	select {
	case <-waiter.Slot:
	case <-time.After(w.ackTimeout):
		w.waiters.Drop(clientID, pkid)
		if w.log != nil {
			w.log.Warn("push delivery timed out awaiting acknowledgement",
				logger.ClientID(clientID), logger.Int("pkid", int(pkid)))
		}
	}
}

func (w *PushWorker) nextPkid() uint16 {
	for {
		v := uint16(atomic.AddUint32(&w.pkidSeq, 1))
		if v != 0 {
			return v
		}
	}
}
