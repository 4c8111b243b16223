package core

import (
	"fmt"
	"strings"
)

type GraphConfig struct {
	BaseURL    string `koanf:"base_url" mapstructure:"base_url"`
	APIVersion string `koanf:"api_version" mapstructure:"api_version"`
}

type TokenConfig struct {
	RefreshThresholdDays int `koanf:"refresh_threshold_days" mapstructure:"refresh_threshold_days"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	Graph       GraphConfig `koanf:"graph" mapstructure:"graph"`
	Tokens      TokenConfig `koanf:"tokens" mapstructure:"tokens"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "instagram",
		Graph: GraphConfig{
			BaseURL:    "https://graph.instagram.com",
			APIVersion: "v23.0",
		},
		Tokens: TokenConfig{
			RefreshThresholdDays: 7,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Graph.BaseURL) == "" {
		return fmt.Errorf("core: graph.base_url is required")
	}
	if c.Tokens.RefreshThresholdDays < 0 {
		return fmt.Errorf("core: tokens.refresh_threshold_days must not be negative")
	}
	return nil
}
