package broker

import (
	"sync"

	"github.com/robustmq-go/mqttd/internal/logger"
)

// AckWaiter is a one-shot delivery slot: a push worker registers one
// before sending a QoS >= 1 publish, then receives from Slot to learn
// the matching inbound acknowledgement. Buffered to capacity 1 so
// Complete never blocks on a waiter that gave up.
type AckWaiter struct {
	Slot chan AckPackageData
}

// AckWaiterRegistry is the single rendezvous point between inbound
// PUBACK/PUBREC/PUBCOMP handlers and the push workers awaiting them,
// generalized from the teacher's QoSManager retry bookkeeping into
// one-shot channels per the design notes' "replace async coroutines
// with tasks-plus-channels" guidance.
type AckWaiterRegistry struct {
	mu      sync.RWMutex
	waiters map[pkidKey]*AckWaiter
	log     *logger.Logger
}

func NewAckWaiterRegistry(log *logger.Logger) *AckWaiterRegistry {
	return &AckWaiterRegistry{
		waiters: make(map[pkidKey]*AckWaiter),
		log:     log,
	}
}

// Register installs a fresh one-shot slot for (clientID, pkid),
// replacing any stale prior slot for the same key.
func (r *AckWaiterRegistry) Register(clientID string, pkid uint16) *AckWaiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := &AckWaiter{Slot: make(chan AckPackageData, 1)}
	r.waiters[pkidKey{clientID, pkid}] = w
	return w
}

// Get is a non-consuming peek used by senders that want to know
// whether a waiter still exists without claiming it.
func (r *AckWaiterRegistry) Get(clientID string, pkid uint16) (*AckWaiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.waiters[pkidKey{clientID, pkid}]
	return w, ok
}

// Complete fulfils the slot for (clientID, pkid) if one exists. A
// missing slot is ignored silently (the waiter has already given up);
// a full slot is logged at Warn and otherwise ignored (the waiter has
// already been satisfied).
func (r *AckWaiterRegistry) Complete(clientID string, pkid uint16, data AckPackageData) {
	r.mu.Lock()
	w, ok := r.waiters[pkidKey{clientID, pkid}]
	if ok {
		delete(r.waiters, pkidKey{clientID, pkid})
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	select {
	case w.Slot <- data:
	default:
		if r.log != nil {
			r.log.Warn("ack waiter slot full, dropping acknowledgement",
				logger.ClientID(clientID), logger.Int("pkid", int(pkid)))
		}
	}
}

// Drop removes the waiter for (clientID, pkid) without fulfilling it,
// used when a push worker times out and gives up.
func (r *AckWaiterRegistry) Drop(clientID string, pkid uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiters, pkidKey{clientID, pkid})
}
