// Package config holds the network selection a client runs against.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Network names a chain and the node endpoint to reach it through.
type Network struct {
	Name         string `yaml:"Name"`
	NetworkID    string `yaml:"NetworkID"`
	NodeEndpoint string `yaml:"NodeEndpoint"`
}

// ClientSettings tunes the HTTP client talking to the node.
type ClientSettings struct {
	DialTimeout    time.Duration `yaml:"DialTimeout"`
	RequestTimeout time.Duration `yaml:"RequestTimeout"`
}

// Config is the top level structure of a client configuration file.
type Config struct {
	Network Network        `yaml:"Network"`
	Client  ClientSettings `yaml:"Client"`
}

// MainNet is the built-in configuration of the public main network.
func MainNet() Config {
	return Config{Network: Network{
		Name:         "mainnet",
		NetworkID:    "ae_mainnet",
		NodeEndpoint: "https://mainnet.aeternity.io",
	}}
}

// TestNet is the built-in configuration of the public test network.
func TestNet() Config {
	return Config{Network: Network{
		Name:         "testnet",
		NetworkID:    "ae_uat",
		NodeEndpoint: "https://testnet.aeternity.io",
	}}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first structural problem of the configuration.
func (c Config) Validate() error {
	if c.Network.NetworkID == "" {
		return fmt.Errorf("config names no network id")
	}
	if c.Network.NodeEndpoint == "" {
		return fmt.Errorf("config names no node endpoint")
	}
	return nil
}
