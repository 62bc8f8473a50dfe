package broker

import (
	"sync"
	"testing"
)

func TestMetadataCacheAddTopicIsStable(t *testing.T) {
	m := NewMetadataCache()

	first := m.AddTopic("sensors/outdoor/temp")
	second := m.AddTopic("sensors/outdoor/temp")

	if first.TopicID != second.TopicID {
		t.Fatalf("expected stable topic id, got %q then %q", first.TopicID, second.TopicID)
	}
	if first.TopicID == "" {
		t.Fatal("expected a non-empty minted topic id")
	}
}

func TestMetadataCacheSessionReuse(t *testing.T) {
	m := NewMetadataCache()

	s := &Session{ClientID: "device-1", SessionExpirySeconds: 3600}
	m.AddSession(s)

	got, ok := m.GetSession("device-1")
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got != s {
		t.Fatal("expected the same session pointer back")
	}

	m.RemoveSession("device-1")
	if _, ok := m.GetSession("device-1"); ok {
		t.Fatal("expected session to be gone after removal")
	}
}

func TestMetadataCacheFindConnectionByClientID(t *testing.T) {
	m := NewMetadataCache()

	conn := &Connection{ConnectID: 1, ClientID: "device-1"}
	m.AddConnection(conn)

	found, ok := m.FindConnectionByClientID("device-1")
	if !ok || found.ConnectID != 1 {
		t.Fatalf("expected to find connection 1, got %+v ok=%v", found, ok)
	}

	if _, ok := m.FindConnectionByClientID("device-2"); ok {
		t.Fatal("did not expect to find an unknown client id")
	}

	m.RemoveConnection(1)
	if _, ok := m.FindConnectionByClientID("device-1"); ok {
		t.Fatal("expected connection to be gone after removal")
	}
	// removing an absent connect_id is a no-op
	m.RemoveConnection(1)
}

func TestMetadataCacheClientSubscribeIndex(t *testing.T) {
	m := NewMetadataCache()

	m.AddClientSubscribe("device-1", SubscriptionFilter{ClientID: "device-1", FilterPath: "a/+"})
	m.AddClientSubscribe("device-1", SubscriptionFilter{ClientID: "device-1", FilterPath: "b/#"})

	filters := m.ClientFilters("device-1")
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d: %v", len(filters), filters)
	}

	m.RemoveFilterByPkid("device-1", []string{"a/+"})
	filters = m.ClientFilters("device-1")
	if len(filters) != 1 || filters[0] != "b/#" {
		t.Fatalf("expected only b/# to remain, got %v", filters)
	}

	m.RemoveClientSubscriptions("device-1")
	if filters := m.ClientFilters("device-1"); len(filters) != 0 {
		t.Fatalf("expected no filters after RemoveClientSubscriptions, got %v", filters)
	}
}

func TestMetadataCacheConcurrentConnectionWrites(t *testing.T) {
	m := NewMetadataCache()
	var wg sync.WaitGroup

	for i := uint64(1); i <= 100; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			m.AddConnection(&Connection{ConnectID: id, ClientID: "device"})
			m.GetConnection(id)
			m.RemoveConnection(id)
		}(i)
	}
	wg.Wait()
}

func TestClusterInfoRoundTrip(t *testing.T) {
	m := NewMetadataCache()
	m.SetClusterInfo(ClusterInfo{ClusterName: "prod", MaxQoS: 1, DefaultSessionExpiry: 60})

	got := m.GetClusterInfo()
	if got.ClusterName != "prod" || got.MaxQoS != 1 || got.DefaultSessionExpiry != 60 {
		t.Fatalf("unexpected cluster info: %+v", got)
	}
}
