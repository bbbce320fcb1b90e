// Package config loads the daemon's TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"pitlane/pkg/curve"
	"pitlane/pkg/protocol"
)

const DefaultConfigPath = "pitlane.toml"

type Config struct {
	Transport TransportConfig `toml:"transport"`
	Heartbeat HeartbeatConfig `toml:"heartbeat"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Slots     []SlotConfig    `toml:"slots"`
}

type TransportConfig struct {
	Addr      string `toml:"addr"`
	Reconnect string `toml:"reconnect"`
	Buf       int    `toml:"buf"`
	ReaderBuf int    `toml:"reader_buf"`
}

type HeartbeatConfig struct {
	Interval string `toml:"interval"`
}

type BridgeConfig struct {
	Addr    string `toml:"addr"`
	SendBuf int    `toml:"send_buf"`
}

// SlotConfig is the startup configuration for one slot. Power above 63 is
// rejected at load time rather than silently clamped: a config file asking
// for more than the device can deliver is a user mistake worth reporting.
type SlotConfig struct {
	ID      int    `toml:"id"`
	Power   int    `toml:"power"`
	Ghost   bool   `toml:"ghost"`
	Profile string `toml:"profile"`
}

func Default() Config {
	return Config{
		Transport: TransportConfig{
			Addr:      "127.0.0.1:7420",
			Reconnect: "1s",
			Buf:       256,
			ReaderBuf: 4 * 1024,
		},
		Heartbeat: HeartbeatConfig{
			Interval: "200ms",
		},
		Bridge: BridgeConfig{
			Addr:    "127.0.0.1:8765",
			SendBuf: 64,
		},
		Slots: []SlotConfig{},
	}
}

func Load(path string) (Config, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, os.ErrNotExist
	}
	return cfg, nil
}

func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

func (cfg *Config) Validate() error {
	if _, err := cfg.ReconnectInterval(); err != nil {
		return fmt.Errorf("transport.reconnect: %w", err)
	}
	if _, err := cfg.HeartbeatInterval(); err != nil {
		return fmt.Errorf("heartbeat.interval: %w", err)
	}

	seen := make(map[int]struct{}, len(cfg.Slots))
	for _, slot := range cfg.Slots {
		if slot.ID < 1 || slot.ID > protocol.NumSlots {
			return fmt.Errorf("slot id %d out of range 1..%d", slot.ID, protocol.NumSlots)
		}
		if _, dup := seen[slot.ID]; dup {
			return fmt.Errorf("duplicate slot id %d", slot.ID)
		}
		seen[slot.ID] = struct{}{}

		if slot.Power < 0 || slot.Power > 63 {
			return fmt.Errorf("slot %d power %d out of range 0..63", slot.ID, slot.Power)
		}
		if _, err := curve.ParseProfile(slot.Profile); err != nil {
			return fmt.Errorf("slot %d: %w", slot.ID, err)
		}
	}
	return nil
}

func (cfg *Config) ReconnectInterval() (time.Duration, error) {
	return parseDuration(cfg.Transport.Reconnect, time.Second)
}

func (cfg *Config) HeartbeatInterval() (time.Duration, error) {
	return parseDuration(cfg.Heartbeat.Interval, 200*time.Millisecond)
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", value)
	}
	return d, nil
}
