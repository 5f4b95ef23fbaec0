package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pborges/p2pwire"
)

// ProtocolVersion is advertised when the config file does not set one.
var ProtocolVersion = p2pwire.Version{Major: 1, Minor: 0, Patch: 0}

type NodeConfig struct {
	ID           string
	Listen       string
	Version      p2pwire.Version
	MDNS         bool
	MDNSService  string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	MetricsAddr  string
}

type fileConfig struct {
	ID           string          `toml:"id"`
	Listen       string          `toml:"listen"`
	Version      p2pwire.Version `toml:"version"`
	MDNS         bool            `toml:"mdns"`
	MDNSService  string          `toml:"mdns_service"`
	WriteTimeout string          `toml:"write_timeout"`
	ReadTimeout  string          `toml:"read_timeout"`
	MetricsAddr  string          `toml:"metrics_addr"`
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ID:           uuid.NewString(),
		Listen:       fmt.Sprintf(":%d", p2pwire.DefaultPort),
		Version:      ProtocolVersion,
		MDNSService:  p2pwire.MdnsService,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

// LoadNodeConfig overlays the keys present in the TOML file at path on
// DefaultNodeConfig and validates the result.
func LoadNodeConfig(path string) (NodeConfig, error) {
	cfg := DefaultNodeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("load node config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return NodeConfig{}, fmt.Errorf("node config (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("version") {
		cfg.Version = raw.Version
	}
	if meta.IsDefined("mdns") {
		cfg.MDNS = raw.MDNS
	}
	if meta.IsDefined("mdns_service") {
		cfg.MDNSService = strings.TrimSpace(raw.MDNSService)
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return NodeConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return NodeConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("node config (%s): %w", path, err)
	}
	return cfg, nil
}

func ValidateNodeConfig(cfg NodeConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(cfg.ID, " \n") {
		return fmt.Errorf("id may not contain whitespace")
	}
	if cfg.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if cfg.MDNS && cfg.MDNSService == "" {
		return fmt.Errorf("mdns_service required when mdns is enabled")
	}
	if cfg.WriteTimeout < 0 || cfg.ReadTimeout < 0 {
		return fmt.Errorf("timeouts may not be negative")
	}
	return nil
}
