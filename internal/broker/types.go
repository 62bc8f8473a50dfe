// Package broker holds the concurrent in-memory state the Packet
// Handler mutates per inbound MQTT packet: cluster/user/topic/session/
// connection metadata, the idempotency tables, the ack waiter
// registry, the heartbeat cache and the subscribe cache. It plays the
// role the teacher's internal/broker package played for MQTT 3.1.1,
// generalized to v5 and to the cluster-shaped data model this core
// assumes.
package broker

import (
	"sync"

	"github.com/robustmq-go/mqttd/internal/mqtt"
)

// ClusterInfo is the read-mostly cluster configuration. Loaded at
// startup, mutated only through SetClusterInfo.
type ClusterInfo struct {
	ClusterName          string
	MaxQoS               mqtt.QoS
	MaxPacketSize        uint32
	DefaultSessionExpiry uint32
}

// User is a registered login credential. Passwords are stored
// bcrypt-hashed; never mutated in place once inserted.
type User struct {
	Username    string
	PasswordSum string // bcrypt hash, see pkg/hash
	IsSuperuser bool
}

// TopicInfo maps a topic name to its stable storage key.
type TopicInfo struct {
	TopicName string
	TopicID   string
}

// LastWill is the session-scoped will, copied out of the CONNECT that
// created or refreshed the session.
type LastWill struct {
	Topic      string
	Message    []byte
	QoS        mqtt.QoS
	Retain     bool
	Properties *mqtt.Properties
}

// Session is keyed by client_id and survives across reconnects when
// clean_start is false and session_expiry has not elapsed.
type Session struct {
	ClientID             string
	ConnectID            uint64 // 0 when no connection is currently bound
	SessionExpirySeconds uint32
	LastWill             *LastWill
	CreatedAtUnix        int64
}

// Connection is keyed by connect_id, a monotonically assigned 64-bit
// integer minted by the transport's accept loop. At most one
// Connection may exist per client_id at any instant.
type Connection struct {
	ConnectID            uint64
	ClientID             string
	KeepAliveSeconds     uint16
	MaxPacketSize        uint32
	NegotiatedProperties *mqtt.Properties
	ProtocolVersion      byte
	PeerAddr             string

	aliasMu      sync.Mutex
	topicAliases map[uint16]string
}

// SetTopicAlias records the topic name a PUBLISH established for
// alias on this connection, so later PUBLISH packets may reference it
// by alias alone (spec §4.9 step 1). Safe to call unguarded by any
// other lock because one goroutine owns one connection's inbound
// packet stream (spec §5 ordering).
func (c *Connection) SetTopicAlias(alias uint16, topic string) {
	if alias == 0 {
		return
	}
	c.aliasMu.Lock()
	defer c.aliasMu.Unlock()
	if c.topicAliases == nil {
		c.topicAliases = make(map[uint16]string)
	}
	c.topicAliases[alias] = topic
}

// ResolveTopicAlias returns the topic name previously bound to alias
// on this connection, or "" if none.
func (c *Connection) ResolveTopicAlias(alias uint16) string {
	if alias == 0 {
		return ""
	}
	c.aliasMu.Lock()
	defer c.aliasMu.Unlock()
	return c.topicAliases[alias]
}

// SubscriptionFilter is one validated, granted subscription held by
// the Metadata Cache's per-client index and the Subscribe Cache's
// matcher index.
type SubscriptionFilter struct {
	ClientID          string
	FilterPath        string
	GrantedQoS        mqtt.QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    mqtt.RetainHandling
	SubscriptionID    *int
}

// AckType distinguishes which inbound acknowledgement fulfilled an Ack
// Waiter Registry slot.
type AckType byte

const (
	AckTypePubAck AckType = iota
	AckTypePubRec
	AckTypePubComp
)

// AckPackageData is delivered into an Ack Waiter Registry slot by the
// matching inbound PUBACK/PUBREC/PUBCOMP handler.
type AckPackageData struct {
	AckType    AckType
	PacketID   uint16
	ReasonCode byte
}

// HeartbeatRecord is the per-connection liveness record the Heartbeat
// Cache shards by connect_id.
type HeartbeatRecord struct {
	ConnectID          uint64
	ProtocolVersion    byte
	KeepAliveSeconds   uint16
	LastHeartbeatEpoch int64
}
