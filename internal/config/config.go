// Package config loads the kernel configuration from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	yaml "github.com/goccy/go-yaml"

	"tickos/internal/klog"
)

// Config mirrors tickos.yml (or tickos.toml).
type Config struct {
	TickMS           int    `yaml:"tick_ms" toml:"tick_ms"`         // 10 (by default)
	SliceTicks       int    `yaml:"slice_ticks" toml:"slice_ticks"` // 10 (by default)
	ReadyQueueCap    int    `yaml:"ready_queue_capacity" toml:"ready_queue_capacity"`
	ScancodeQueueCap int    `yaml:"scancode_queue_capacity" toml:"scancode_queue_capacity"`
	LogLevel         string `yaml:"log_level" toml:"log_level"`
	EventLog         string `yaml:"event_log" toml:"event_log"` // CSV path; empty disables it
	Hostname         string `yaml:"hostname" toml:"hostname"`
	HeartbeatTicks   int    `yaml:"heartbeat_ticks" toml:"heartbeat_ticks"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TickMS:           10,
		SliceTicks:       10,
		ReadyQueueCap:    100,
		ScancodeQueueCap: 100,
		LogLevel:         "info",
		Hostname:         "tickos",
		HeartbeatTicks:   100,
	}
}

// Load reads path and overrides defaults; an empty path or a missing file
// yields the defaults only. Files ending in .toml are decoded as TOML,
// everything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err = toml.Decode(string(data), &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}

	cfg.clamp()
	if _, err := klog.ParseLevel(cfg.LogLevel); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	def := Default()
	if c.TickMS <= 0 {
		c.TickMS = def.TickMS
	}
	if c.SliceTicks <= 0 {
		c.SliceTicks = def.SliceTicks
	}
	if c.ReadyQueueCap <= 0 {
		c.ReadyQueueCap = def.ReadyQueueCap
	}
	if c.ScancodeQueueCap <= 0 {
		c.ScancodeQueueCap = def.ScancodeQueueCap
	}
	if c.HeartbeatTicks <= 0 {
		c.HeartbeatTicks = def.HeartbeatTicks
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Hostname == "" {
		c.Hostname = def.Hostname
	}
}

// TickInterval is the PIT period.
func (c Config) TickInterval() time.Duration {
	ms, err := safecast.Conv[int64](c.TickMS)
	if err != nil || ms <= 0 {
		ms = int64(Default().TickMS)
	}
	return time.Duration(ms) * time.Millisecond
}

// Slice is the scheduler time slice in ticks.
func (c Config) Slice() uint64 {
	return ticks(c.SliceTicks, Default().SliceTicks)
}

// Heartbeat is the heartbeat task period in ticks.
func (c Config) Heartbeat() uint64 {
	return ticks(c.HeartbeatTicks, Default().HeartbeatTicks)
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() klog.Level {
	lvl, err := klog.ParseLevel(c.LogLevel)
	if err != nil {
		return klog.LevelInfo
	}
	return lvl
}

func ticks(v, def int) uint64 {
	n, err := safecast.Conv[uint64](v)
	if err != nil || n == 0 {
		return uint64(def)
	}
	return n
}
