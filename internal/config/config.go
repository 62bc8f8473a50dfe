// Package config loads this broker's process configuration, expanded
// from the inline YAML struct the teacher's cmd/goqtt/main.go parsed
// directly, to the field surface spec §6 enumerates, plus the few
// deployment knobs this reimplementation's expansion adds (heartbeat
// shard count, sqlite path).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration, read once at startup and
// injected into collaborators at construction rather than read
// ambiently (spec §9 design note).
type Config struct {
	ClusterName          string    `yaml:"cluster_name"`
	GRPCPort             string    `yaml:"grpc_port"`
	MQTTPort             string    `yaml:"mqtt_port"`
	MaxQoS               int       `yaml:"max_qos"`
	DefaultSessionExpiry uint32    `yaml:"default_session_expiry"`
	MySQL                MySQL     `yaml:"mysql"`
	Runtime              Runtime   `yaml:"runtime"`
	System               System    `yaml:"system"`
	Heartbeat            Heartbeat `yaml:"heartbeat"`
	Storage              Storage   `yaml:"storage"`
}

// MySQL is carried from spec §6's enumerated fields even though this
// module's concrete storage adapter is sqlite (see DESIGN.md): the
// field stays because a future storage adapter swap is configuration,
// not a code change, per the "pluggable storage" design note (§9).
type MySQL struct {
	Server string `yaml:"server"`
}

type Runtime struct {
	WorkerThreads int `yaml:"worker_threads"`
}

type System struct {
	SystemUser     string `yaml:"system_user"`
	SystemPassword string `yaml:"system_password"`
}

// Heartbeat configures the Heartbeat Cache's shard count, the
// deployment knob spec §9 calls out ("pick a prime near the expected
// worker count").
type Heartbeat struct {
	ShardCount int `yaml:"shard_count"`
}

// Storage configures the sqlite-backed storage adapter's file path.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// DefaultSessionExpirySeconds is used when a CONNECT omits a session
// expiry property and the cluster has not overridden it.
const DefaultSessionExpirySeconds = 3600

// DefaultMaxPacketSize bounds PUBLISH payload size (spec §4.9 step 4)
// when a connection did not negotiate a tighter one.
const DefaultMaxPacketSize = 268435455

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Heartbeat.ShardCount <= 0 {
		cfg.Heartbeat.ShardCount = 17
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "./store/store.db"
	}
	if cfg.MQTTPort == "" {
		cfg.MQTTPort = "1883"
	}
	if cfg.MaxQoS <= 0 {
		cfg.MaxQoS = 2
	}
	if cfg.DefaultSessionExpiry == 0 {
		cfg.DefaultSessionExpiry = DefaultSessionExpirySeconds
	}
	if cfg.ClusterName == "" {
		cfg.ClusterName = "default"
	}

	return &cfg, nil
}
