package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadLedgerConfig reads and parses the ledger.yml file
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	log.Printf("[config] LoadLedgerConfig called with path: %s", path)
	file, err := os.Open(path)
	if err != nil {
		log.Printf("[config] Failed to open file: %v", err)
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		log.Printf("[config] Failed to decode YAML: %v", err)
		return nil, err
	}

	cfg := &cfgFile.Config
	applyDefaults(cfg)
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.SelfNode.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[config] Successfully loaded config: listen=%s, backend=%s, genesis=%d accounts",
		cfg.SelfNode.ListenAddr, cfg.Store.Backend, len(cfg.Genesis))
	return cfg, nil
}

func applyDefaults(cfg *LedgerConfig) {
	if cfg.SelfNode.ListenAddr == "" {
		cfg.SelfNode.ListenAddr = DefaultListenAddr
	}
	if cfg.SelfNode.JSONRPCAddr == "" {
		cfg.SelfNode.JSONRPCAddr = DefaultJSONRPCAddr
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Directory == "" {
		cfg.Store.Directory = DefaultStoreDirectory
	}
	if cfg.Mining.Reward == 0 {
		cfg.Mining.Reward = DefaultMineReward
	}
}

// Validate checks that the loaded configuration is usable
func (c *LedgerConfig) Validate() error {
	if c.SelfNode.APIKey == "" {
		return fmt.Errorf("config: api_key is empty, set self_node.api_key or %s", EnvAPIKey)
	}
	switch c.Store.Backend {
	case "leveldb", "bolt":
		if c.Store.Directory == "" {
			return fmt.Errorf("config: store backend %q requires a directory", c.Store.Backend)
		}
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("config: store backend redis requires an addr")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store backend postgres requires a dsn")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	for _, g := range c.Genesis {
		if g.Address == "" {
			return fmt.Errorf("config: genesis account with empty address")
		}
	}
	return nil
}

type HTTPConfig struct {
	ReadTimeoutSec  int `ini:"read_timeout_sec"`
	WriteTimeoutSec int `ini:"write_timeout_sec"`
	IdleTimeoutSec  int `ini:"idle_timeout_sec"`
	ShutdownSec     int `ini:"shutdown_sec"`
}

type MineLimitConfig struct {
	WindowSec   int `ini:"window_sec"`
	MaxRequests int `ini:"max_requests"`
}

type LogConfig struct {
	File       string `ini:"file"`
	MaxSizeMB  int    `ini:"max_size_mb"`
	MaxAgeDays int    `ini:"max_age_days"`
}

// LoadHTTPConfig reads HTTP server tuning from an .ini file
func LoadHTTPConfig(path string) (*HTTPConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	httpSection := cfg.Section("http")
	httpCfg := &HTTPConfig{
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 10,
		IdleTimeoutSec:  60,
		ShutdownSec:     10,
	}
	err = httpSection.MapTo(httpCfg)
	if err != nil {
		return nil, err
	}
	return httpCfg, nil
}

// LoadMineLimitConfig reads the mine endpoint rate limit from an .ini file
func LoadMineLimitConfig(path string) (*MineLimitConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	limitSection := cfg.Section("mine_limit")
	limitCfg := &MineLimitConfig{
		WindowSec:   1,
		MaxRequests: 5,
	}
	err = limitSection.MapTo(limitCfg)
	if err != nil {
		return nil, err
	}
	return limitCfg, nil
}

func LoadLogConfig(path string) (*LogConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	logSection := cfg.Section("log")
	logCfg := &LogConfig{}
	err = logSection.MapTo(logCfg)
	if err != nil {
		return nil, err
	}
	return logCfg, nil
}
