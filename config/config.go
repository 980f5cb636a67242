package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Capture     CaptureConfig  `yaml:"capture"`
	Dispatch    DispatchConfig `yaml:"dispatch"`
	Rules       RulesConfig    `yaml:"rules"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Persistence Persistence    `yaml:"persistence"`
}

type CaptureConfig struct {
	// Interface is the device to capture on, e.g. "eth0".
	Interface   string `yaml:"interface"`
	BPFFilter   string `yaml:"bpf_filter"`
	SnapshotLen int    `yaml:"snapshot_len"`
	Promiscuous bool   `yaml:"promiscuous"`
}

type DispatchConfig struct {
	// Interval is the drain cadence of the dispatcher, in seconds.
	Interval int `yaml:"interval"`
	// HistoryLimit caps the in-memory record history; 0 means unbounded.
	HistoryLimit int  `yaml:"history_limit"`
	Alerts       bool `yaml:"alerts"`
}

// DrainInterval converts the configured cadence to a duration.
func (d DispatchConfig) DrainInterval() time.Duration {
	return time.Duration(d.Interval) * time.Second
}

type RulesConfig struct {
	Path string `yaml:"path"`
	// Autosave persists the rules file on every add/remove.
	Autosave bool `yaml:"autosave"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval between counter dumps, in seconds.
	Interval int `yaml:"interval"`
}

func (m MetricsConfig) DumpInterval() time.Duration {
	return time.Duration(m.Interval) * time.Second
}

type Persistence struct {
	Enabled    bool   `yaml:"enabled"`
	Url        string `yaml:"url"`
	DB         string `yaml:"db"`
	Collection string `yaml:"collection"`
}

var (
	defaultCapture = CaptureConfig{
		Interface:   "",
		BPFFilter:   "",
		SnapshotLen: 65535,
		Promiscuous: true,
	}

	defaultDispatch = DispatchConfig{
		Interval:     1,
		HistoryLimit: 0,
		Alerts:       true,
	}

	defaultRules = RulesConfig{
		Path:     "rules.json",
		Autosave: true,
	}

	defaultMetrics = MetricsConfig{
		Enabled:  false,
		Interval: 60,
	}

	defaultPersistence = Persistence{
		Enabled:    false,
		Url:        "",
		DB:         "pktwatch",
		Collection: "records",
	}
)

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := GenerateConfigTemplate()
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Dispatch.Interval <= 0 {
		cfg.Dispatch.Interval = defaultDispatch.Interval
	}
	if cfg.Capture.SnapshotLen <= 0 {
		cfg.Capture.SnapshotLen = defaultCapture.SnapshotLen
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = defaultRules.Path
	}

	return &cfg, nil
}

// GenerateConfigTemplate returns a config populated with the defaults.
func GenerateConfigTemplate() Config {
	return Config{
		Capture:     defaultCapture,
		Dispatch:    defaultDispatch,
		Rules:       defaultRules,
		Metrics:     defaultMetrics,
		Persistence: defaultPersistence,
	}
}
