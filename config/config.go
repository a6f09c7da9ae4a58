// Package config loads a DomainParticipant's static configuration from
// TOML, the way the teacher's own deployment configs are loaded
// (github.com/BurntSushi/toml), covering the knobs spec.md leaves to
// deployment: domain id, transport addresses, discovery timing, and
// default QoS.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// QosConfig mirrors the subset of qos.Policies a deployment typically
// wants to override from its default; zero values fall back to
// qos.Default() at the call site that consumes this config.
type QosConfig struct {
	Reliability      string `toml:"reliability"`  // "best_effort" | "reliable"
	Durability       string `toml:"durability"`   // "volatile" | "transient_local" | "transient" | "persistent"
	HistoryKind      string `toml:"history_kind"` // "keep_last" | "keep_all"
	HistoryDepth     int    `toml:"history_depth"`
	DeadlinePeriodMs int64  `toml:"deadline_period_ms"`
}

// DiscoveryConfig controls SPDP/SEDP timing and addressing.
type DiscoveryConfig struct {
	SPDPMulticastAddress string `toml:"spdp_multicast_address"`
	SPDPMulticastPort    uint32 `toml:"spdp_multicast_port"`
	AnnounceIntervalMs   int64  `toml:"announce_interval_ms"`
	LeaseDurationSec     int64  `toml:"lease_duration_sec"`
}

// TransportConfig controls the local UDP sockets.
type TransportConfig struct {
	UnicastAddress string `toml:"unicast_address"`
	UnicastPort    uint32 `toml:"unicast_port"`
	MaxMessageSize int    `toml:"max_message_size"`
}

// DomainParticipantConfig is the root configuration document for one
// participant (§4.7).
type DomainParticipantConfig struct {
	DomainId   uint32          `toml:"domain_id"`
	Transport  TransportConfig `toml:"transport"`
	Discovery  DiscoveryConfig `toml:"discovery"`
	DefaultQos QosConfig       `toml:"default_qos"`
	DataDir    string          `toml:"data_dir"`
}

// Default returns a configuration usable without any file on disk:
// domain 0, ephemeral unicast port, the well-known SPDP multicast group.
func Default() DomainParticipantConfig {
	return DomainParticipantConfig{
		DomainId: 0,
		Transport: TransportConfig{
			UnicastAddress: "0.0.0.0",
			UnicastPort:    0,
			MaxMessageSize: 1460,
		},
		Discovery: DiscoveryConfig{
			SPDPMulticastAddress: "239.255.0.1",
			SPDPMulticastPort:    7400,
			AnnounceIntervalMs:   2000,
			LeaseDurationSec:     30,
		},
		DefaultQos: QosConfig{
			Reliability:  "best_effort",
			Durability:   "volatile",
			HistoryKind:  "keep_last",
			HistoryDepth: 1,
		},
	}
}

// Load reads and parses a DomainParticipantConfig from path.
func Load(path string) (DomainParticipantConfig, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DomainParticipantConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// AnnounceInterval returns the SPDP announcement period as a Duration.
func (c DiscoveryConfig) AnnounceInterval() time.Duration {
	return time.Duration(c.AnnounceIntervalMs) * time.Millisecond
}

// LeaseDuration returns the SPDP participant lease as a Duration.
func (c DiscoveryConfig) LeaseDuration() time.Duration {
	return time.Duration(c.LeaseDurationSec) * time.Second
}
