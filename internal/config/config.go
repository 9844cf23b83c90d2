package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		// Backend selects the key-value store: memory, postgres or redis.
		Backend     string `yaml:"backend"`
		PostgresURL string `yaml:"postgres_url"`
		RedisAddr   string `yaml:"redis_addr"`
	} `yaml:"storage"`
	Paper struct {
		InitialCash float64 `yaml:"initial_cash"`
	} `yaml:"paper"`
	RealMoney struct {
		FeeFlat float64 `yaml:"fee_flat"`
		FeeRate float64 `yaml:"fee_rate"`
	} `yaml:"real_money"`
	Subscription struct {
		TrialDays int `yaml:"trial_days"`
	} `yaml:"subscription"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is fine; env vars alone suffice.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Storage.PostgresURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("PAPER_INITIAL_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Paper.InitialCash = f
		}
	}
	if v := os.Getenv("TRIAL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Subscription.TrialDays = n
		}
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Paper.InitialCash == 0 {
		cfg.Paper.InitialCash = 100000
	}
	if cfg.RealMoney.FeeFlat == 0 {
		cfg.RealMoney.FeeFlat = 0.99
	}
	if cfg.RealMoney.FeeRate == 0 {
		cfg.RealMoney.FeeRate = 0.001
	}
	if cfg.Subscription.TrialDays == 0 {
		cfg.Subscription.TrialDays = 7
	}
	return cfg, nil
}
