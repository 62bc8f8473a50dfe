package broker

import (
	"sync"

	"github.com/google/uuid"
)

// MetadataCache holds the cluster's read-mostly config plus the
// concurrent indices for users, topics, sessions, connections and
// each client's subscription filters. Every map is guarded by its own
// RWMutex so a reader blocked on one index never waits on an
// unrelated one, the way the teacher's Broker keeps session state and
// retained messages under separate locks instead of one global mutex.
type MetadataCache struct {
	clusterMu sync.RWMutex
	cluster   ClusterInfo

	usersMu sync.RWMutex
	users   map[string]User

	topicsMu     sync.RWMutex
	topicsByName map[string]TopicInfo

	sessionsMu sync.RWMutex
	sessions   map[string]*Session

	connMu          sync.RWMutex
	connectionsByID map[uint64]*Connection

	clientSubsMu sync.RWMutex
	clientSubs   map[string]map[string]SubscriptionFilter // client_id -> filter_path -> filter
}

func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		users:           make(map[string]User),
		topicsByName:    make(map[string]TopicInfo),
		sessions:        make(map[string]*Session),
		connectionsByID: make(map[uint64]*Connection),
		clientSubs:      make(map[string]map[string]SubscriptionFilter),
	}
}

func (m *MetadataCache) SetClusterInfo(c ClusterInfo) {
	m.clusterMu.Lock()
	defer m.clusterMu.Unlock()
	m.cluster = c
}

func (m *MetadataCache) GetClusterInfo() ClusterInfo {
	m.clusterMu.RLock()
	defer m.clusterMu.RUnlock()
	return m.cluster
}

func (m *MetadataCache) AddUser(u User) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	m.users[u.Username] = u
}

func (m *MetadataCache) GetUser(username string) (User, bool) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()
	u, ok := m.users[username]
	return u, ok
}

func (m *MetadataCache) RemoveUser(username string) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	delete(m.users, username)
}

// AddTopic inserts a topic if absent, minting a stable opaque topic_id
// via uuid, and returns the (possibly pre-existing) TopicInfo.
func (m *MetadataCache) AddTopic(name string) TopicInfo {
	m.topicsMu.Lock()
	defer m.topicsMu.Unlock()

	if t, ok := m.topicsByName[name]; ok {
		return t
	}
	t := TopicInfo{TopicName: name, TopicID: uuid.NewString()}
	m.topicsByName[name] = t
	return t
}

func (m *MetadataCache) GetTopic(name string) (TopicInfo, bool) {
	m.topicsMu.RLock()
	defer m.topicsMu.RUnlock()
	t, ok := m.topicsByName[name]
	return t, ok
}

// ListTopics returns a snapshot of every known topic, used by
// retained-message replay (spec §4.12 step 6) to find which topics a
// newly accepted filter matches.
func (m *MetadataCache) ListTopics() []TopicInfo {
	m.topicsMu.RLock()
	defer m.topicsMu.RUnlock()
	out := make([]TopicInfo, 0, len(m.topicsByName))
	for _, t := range m.topicsByName {
		out = append(out, t)
	}
	return out
}

func (m *MetadataCache) AddSession(s *Session) {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()
	m.sessions[s.ClientID] = s
}

func (m *MetadataCache) GetSession(clientID string) (*Session, bool) {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	s, ok := m.sessions[clientID]
	return s, ok
}

func (m *MetadataCache) RemoveSession(clientID string) {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()
	delete(m.sessions, clientID)
}

func (m *MetadataCache) AddConnection(c *Connection) {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	m.connectionsByID[c.ConnectID] = c
}

func (m *MetadataCache) GetConnection(connectID uint64) (*Connection, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	c, ok := m.connectionsByID[connectID]
	return c, ok
}

// RemoveConnection is idempotent: removing an absent connect_id is a no-op.
func (m *MetadataCache) RemoveConnection(connectID uint64) {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	delete(m.connectionsByID, connectID)
}

// FindConnectionByClientID scans for a live connection bound to
// client_id, used by CONNECT supersession (step 4 of §4.8) to evict
// the prior connection before installing the new one.
func (m *MetadataCache) FindConnectionByClientID(clientID string) (*Connection, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	for _, c := range m.connectionsByID {
		if c.ClientID == clientID {
			return c, true
		}
	}
	return nil, false
}

// AddClientSubscribe records filter (replacing any prior filter with
// the same path for this client) in the per-client index used for
// O(1) UNSUBSCRIBE/DISCONNECT cleanup.
func (m *MetadataCache) AddClientSubscribe(clientID string, filter SubscriptionFilter) {
	m.clientSubsMu.Lock()
	defer m.clientSubsMu.Unlock()
	if m.clientSubs[clientID] == nil {
		m.clientSubs[clientID] = make(map[string]SubscriptionFilter)
	}
	m.clientSubs[clientID][filter.FilterPath] = filter
}

// RemoveFilterByPkid removes the listed filter paths for clientID.
// Named after the spec operation it implements; pkid here refers to
// the UNSUBSCRIBE packet identifier that carried these paths, not a
// key into this index.
func (m *MetadataCache) RemoveFilterByPkid(clientID string, filters []string) {
	m.clientSubsMu.Lock()
	defer m.clientSubsMu.Unlock()
	subs := m.clientSubs[clientID]
	if subs == nil {
		return
	}
	for _, f := range filters {
		delete(subs, f)
	}
	if len(subs) == 0 {
		delete(m.clientSubs, clientID)
	}
}

// ClientFilters returns a snapshot of clientID's current filter paths.
func (m *MetadataCache) ClientFilters(clientID string) []string {
	m.clientSubsMu.RLock()
	defer m.clientSubsMu.RUnlock()
	subs := m.clientSubs[clientID]
	out := make([]string, 0, len(subs))
	for path := range subs {
		out = append(out, path)
	}
	return out
}

// RemoveClientSubscriptions drops every filter index entry for clientID.
func (m *MetadataCache) RemoveClientSubscriptions(clientID string) {
	m.clientSubsMu.Lock()
	defer m.clientSubsMu.Unlock()
	delete(m.clientSubs, clientID)
}
