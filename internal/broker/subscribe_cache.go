package broker

import (
	"strings"
	"sync"

	"github.com/robustmq-go/mqttd/pkg/er"
)

// ValidateFilterPath enforces the MQTT v5 topic-filter grammar: levels
// separated by '/', '+' occupies a whole level, '#' only as the final
// level, no null bytes, non-empty.
func ValidateFilterPath(path string) error {
	if path == "" {
		return &er.Err{Context: "ValidateFilterPath", Message: er.ErrEmptyTopicFilter}
	}
	if strings.ContainsRune(path, 0) {
		return &er.Err{Context: "ValidateFilterPath", Message: er.ErrNullByteInFilter}
	}

	levels := strings.Split(path, "/")
	for i, level := range levels {
		switch {
		case strings.Contains(level, "#") && level != "#":
			return &er.Err{Context: "ValidateFilterPath", Message: er.ErrMultiLevelWildcardNotAlone}
		case level == "#" && i != len(levels)-1:
			return &er.Err{Context: "ValidateFilterPath", Message: er.ErrMultiLevelWildcardNotLast}
		case strings.Contains(level, "+") && level != "+":
			return &er.Err{Context: "ValidateFilterPath", Message: er.ErrSingleLevelWildcardAlone}
		}
	}
	return nil
}

// MatchesFilter reports whether topicName matches filterPath under
// the same '+'/'#' wildcard rules the trie in SubscribeCache walks,
// used by retained-message replay to test one filter against each
// known topic without a trie lookup.
func MatchesFilter(filterPath, topicName string) bool {
	fLevels := strings.Split(filterPath, "/")
	tLevels := strings.Split(topicName, "/")

	for i, fl := range fLevels {
		if fl == "#" {
			return true
		}
		if i >= len(tLevels) {
			return false
		}
		if fl != "+" && fl != tLevels[i] {
			return false
		}
	}
	return len(fLevels) == len(tLevels)
}

type trieNode struct {
	children    map[string]*trieNode
	subscribers map[string]SubscriptionFilter // client_id -> filter
}

func newTrieNode() *trieNode {
	return &trieNode{
		children:    make(map[string]*trieNode),
		subscribers: make(map[string]SubscriptionFilter),
	}
}

// SubscribeCache indexes validated subscriptions by filter-path level
// for topic-to-filter matching at publish time and for retained-
// message replay at subscribe time, generalizing the teacher's
// SubscriptionTree trie to MQTT v5 subscription options.
type SubscribeCache struct {
	mu   sync.RWMutex
	root *trieNode
	// byClient supports remove_client / remove_subscribe without a
	// full trie walk: client_id -> filter_path -> levels.
	byClient map[string]map[string][]string
}

func NewSubscribeCache() *SubscribeCache {
	return &SubscribeCache{
		root:     newTrieNode(),
		byClient: make(map[string]map[string][]string),
	}
}

// AddSubscribe validates filter.FilterPath again and installs it into
// the trie and the by-client index, replacing any prior entry at the
// same path for this client.
func (c *SubscribeCache) AddSubscribe(filter SubscriptionFilter) error {
	if err := ValidateFilterPath(filter.FilterPath); err != nil {
		return err
	}

	levels := strings.Split(filter.FilterPath, "/")

	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.root
	for _, level := range levels {
		child, ok := node.children[level]
		if !ok {
			child = newTrieNode()
			node.children[level] = child
		}
		node = child
	}
	node.subscribers[filter.ClientID] = filter

	if c.byClient[filter.ClientID] == nil {
		c.byClient[filter.ClientID] = make(map[string][]string)
	}
	c.byClient[filter.ClientID][filter.FilterPath] = levels

	return nil
}

// RemoveSubscribe removes clientID's entries at the given filter paths.
func (c *SubscribeCache) RemoveSubscribe(clientID string, filterPaths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	client := c.byClient[clientID]
	for _, path := range filterPaths {
		levels, ok := client[path]
		if !ok {
			continue
		}
		c.removeLevels(clientID, levels)
		delete(client, path)
	}
	if len(client) == 0 {
		delete(c.byClient, clientID)
	}
}

// RemoveClient removes every subscription clientID holds.
func (c *SubscribeCache) RemoveClient(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, levels := range c.byClient[clientID] {
		c.removeLevels(clientID, levels)
	}
	delete(c.byClient, clientID)
}

func (c *SubscribeCache) removeLevels(clientID string, levels []string) {
	node := c.root
	for _, level := range levels {
		child, ok := node.children[level]
		if !ok {
			return
		}
		node = child
	}
	delete(node.subscribers, clientID)
}

// Start drives background reconciliation with the push workers. The
// core leaves this a no-op: shared-subscription leader/follower
// balancing lives outside this package.
func (c *SubscribeCache) Start(stop <-chan struct{}) {
	<-stop
}

// Match returns every SubscriptionFilter whose filter path matches
// topicName, honoring '+' (single level) and '#' (remaining levels).
func (c *SubscribeCache) Match(topicName string) []SubscriptionFilter {
	levels := strings.Split(topicName, "/")

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []SubscriptionFilter
	var walk func(node *trieNode, i int)
	walk = func(node *trieNode, i int) {
		if hashChild, ok := node.children["#"]; ok {
			for _, f := range hashChild.subscribers {
				out = append(out, f)
			}
		}
		if i == len(levels) {
			for _, f := range node.subscribers {
				out = append(out, f)
			}
			return
		}
		level := levels[i]
		if child, ok := node.children[level]; ok {
			walk(child, i+1)
		}
		if child, ok := node.children["+"]; ok {
			walk(child, i+1)
		}
	}
	walk(c.root, 0)

	return out
}
