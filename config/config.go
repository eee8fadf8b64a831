// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config carries the tunables a peer is composed with
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidPingInterval   = errors.New("ping interval must be positive")
	ErrInvalidQueueCapacity  = errors.New("job queue capacity must be >= 1")
	ErrInvalidRequestTimeout = errors.New("request timeout must be positive")
)

// Config holds the peer configuration
type Config struct {
	// PingInterval is the periodic ping cadence
	PingInterval time.Duration `yaml:"ping_interval"`
	// JobQueueCapacity bounds the sync job queue
	JobQueueCapacity int `yaml:"job_queue_capacity"`
	// RequestTimeout is the per-message network deadline
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// BlobStorePath is the local blob store root
	BlobStorePath string `yaml:"blob_store_path"`
	// LogPath is the bucket log database location
	LogPath string `yaml:"log_path"`
	// IdentityPath is the signing key file
	IdentityPath string `yaml:"identity_path"`
	// ListenAddrs are the transport listen multiaddrs
	ListenAddrs []string `yaml:"listen_addrs"`
	// Bootstrap are peer addresses dialed at startup
	Bootstrap []string `yaml:"bootstrap"`
}

// DefaultConfig returns the defaults a peer runs with when unconfigured
func DefaultConfig() Config {
	return Config{
		PingInterval:     60 * time.Second,
		JobQueueCapacity: 1000,
		RequestTimeout:   30 * time.Second,
		BlobStorePath:    "blobs",
		LogPath:          "buckets.db",
		IdentityPath:     "identity.pem",
		ListenAddrs:      []string{"/ip4/0.0.0.0/tcp/0"},
	}
}

// Valid returns nil if the configuration is usable
func (c Config) Valid() error {
	switch {
	case c.PingInterval <= 0:
		return ErrInvalidPingInterval
	case c.JobQueueCapacity < 1:
		return ErrInvalidQueueCapacity
	case c.RequestTimeout <= 0:
		return ErrInvalidRequestTimeout
	default:
		return nil
	}
}

// duration parses from "60s" style strings in config files
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// UnmarshalYAML decodes the wire form of Config, accepting durations as
// strings like "60s". Absent fields keep whatever the target already
// holds, so decoding over DefaultConfig leaves defaults in place.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		PingInterval     *duration `yaml:"ping_interval"`
		JobQueueCapacity *int      `yaml:"job_queue_capacity"`
		RequestTimeout   *duration `yaml:"request_timeout"`
		BlobStorePath    *string   `yaml:"blob_store_path"`
		LogPath          *string   `yaml:"log_path"`
		IdentityPath     *string   `yaml:"identity_path"`
		ListenAddrs      []string  `yaml:"listen_addrs"`
		Bootstrap        []string  `yaml:"bootstrap"`
	}{}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.PingInterval != nil {
		c.PingInterval = time.Duration(*aux.PingInterval)
	}
	if aux.JobQueueCapacity != nil {
		c.JobQueueCapacity = *aux.JobQueueCapacity
	}
	if aux.RequestTimeout != nil {
		c.RequestTimeout = time.Duration(*aux.RequestTimeout)
	}
	if aux.BlobStorePath != nil {
		c.BlobStorePath = *aux.BlobStorePath
	}
	if aux.LogPath != nil {
		c.LogPath = *aux.LogPath
	}
	if aux.IdentityPath != nil {
		c.IdentityPath = *aux.IdentityPath
	}
	if aux.ListenAddrs != nil {
		c.ListenAddrs = aux.ListenAddrs
	}
	if aux.Bootstrap != nil {
		c.Bootstrap = aux.Bootstrap
	}
	return nil
}

// Load reads a YAML config file over the defaults
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Valid()
}
