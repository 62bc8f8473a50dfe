package handler

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// fakeAuthenticator accepts any login whose username is present in
// allowed, or accepts everything if allowed is nil.
type fakeAuthenticator struct {
	allowed map[string]bool
	err     error
}

func (f *fakeAuthenticator) Authenticate(login *mqtt.Login, _ *mqtt.Properties, _ net.Addr) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.allowed == nil {
		return true, nil
	}
	if login == nil {
		return false, nil
	}
	return f.allowed[login.Username], nil
}

// fakeStorage implements both MessageLog and RetainedStore in memory.
type fakeStorage struct {
	mu       sync.Mutex
	log      map[string][][]byte
	retained map[string][2][]byte // payload, properties
	failNext bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		log:      make(map[string][][]byte),
		retained: make(map[string][2][]byte),
	}
}

func (s *fakeStorage) Append(topicID string, payload []byte, properties []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return "", errors.New("storage unavailable")
	}
	s.log[topicID] = append(s.log[topicID], payload)
	return fmt.Sprintf("%d", len(s.log[topicID])-1), nil
}

func (s *fakeStorage) Save(topicID string, payload []byte, properties []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retained[topicID] = [2][]byte{payload, properties}
	return nil
}

func (s *fakeStorage) Get(topicID string) ([]byte, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.retained[topicID]
	if !ok {
		return nil, nil, false, nil
	}
	return v[0], v[1], true, nil
}

func (s *fakeStorage) Delete(topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retained, topicID)
	return nil
}

type testEnv struct {
	h        *Handler
	metadata *broker.MetadataCache
	storage  *fakeStorage
}

func newTestEnv(auth Authenticator) *testEnv {
	metadata := broker.NewMetadataCache()
	metadata.SetClusterInfo(broker.ClusterInfo{
		ClusterName:          "test",
		MaxQoS:               mqtt.QoS2,
		DefaultSessionExpiry: 3600,
	})
	idempotency := broker.NewIdempotencyTable()
	ackWaiters := broker.NewAckWaiterRegistry(nil)
	heartbeats := broker.NewHeartbeatCache(4)
	subs := broker.NewSubscribeCache()
	storage := newFakeStorage()

	h := New(metadata, idempotency, ackWaiters, heartbeats, subs, storage, storage, auth, nil)
	return &testEnv{h: h, metadata: metadata, storage: storage}
}

type stubAddr string

func (a stubAddr) Network() string { return "tcp" }
func (a stubAddr) String() string  { return string(a) }

func mustConnect(env *testEnv, connectID uint64, clientID string) []mqtt.Packet {
	return env.h.Connect(connectID, &mqtt.Connect{
		ProtocolName:    "MQTT",
		ProtocolVersion: mqtt.ProtocolVersion5,
		CleanStart:      true,
		ClientID:        clientID,
	}, stubAddr("127.0.0.1:1234"))
}
