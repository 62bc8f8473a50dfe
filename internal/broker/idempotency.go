package broker

import "sync"

type pkidKey struct {
	clientID string
	pkid     uint16
}

// IdempotencyTable tracks in-flight packet identifiers for QoS 2
// publish (received, awaiting PUBREL) and for SUBSCRIBE, mirroring the
// teacher's QoSManager pending maps but generalized to a plain set
// since the v5 core needs presence, not the payload itself.
type IdempotencyTable struct {
	mu       sync.RWMutex
	qos2Pkid map[pkidKey]struct{}
	subPkid  map[pkidKey]struct{}
}

func NewIdempotencyTable() *IdempotencyTable {
	return &IdempotencyTable{
		qos2Pkid: make(map[pkidKey]struct{}),
		subPkid:  make(map[pkidKey]struct{}),
	}
}

func (t *IdempotencyTable) GetQoSPkidData(clientID string, pkid uint16) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.qos2Pkid[pkidKey{clientID, pkid}]
	return ok
}

func (t *IdempotencyTable) SaveQoSPkidData(clientID string, pkid uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.qos2Pkid[pkidKey{clientID, pkid}] = struct{}{}
}

func (t *IdempotencyTable) DeleteQoSPkidData(clientID string, pkid uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.qos2Pkid, pkidKey{clientID, pkid})
}

func (t *IdempotencyTable) GetSubPkidData(clientID string, pkid uint16) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subPkid[pkidKey{clientID, pkid}]
	return ok
}

func (t *IdempotencyTable) SaveSubPkidData(clientID string, pkid uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subPkid[pkidKey{clientID, pkid}] = struct{}{}
}

func (t *IdempotencyTable) DeleteSubPkidData(clientID string, pkid uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subPkid, pkidKey{clientID, pkid})
}
