// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads and validates the server's TOML configuration
// file, the same format and library (naoina/toml) the rest of the
// stack uses for its node configuration.
package config

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

const (
	// DefaultListenAddr is the interface the TCP listener binds to.
	DefaultListenAddr = "0.0.0.0"
	// DefaultPort is the TCP port the server listens on.
	DefaultPort = 1234
	// DefaultAdminAddr is the interface the admin/metrics HTTP server
	// binds to.
	DefaultAdminAddr = "127.0.0.1"
	// DefaultAdminPort is the admin/metrics HTTP server's port.
	DefaultAdminPort = 6380
)

// Config is the server's full runtime configuration, loaded from a
// TOML file and overridable by CLI flags in cmd/kvd.
type Config struct {
	// ListenAddr and Port name the data-plane TCP listener.
	ListenAddr string
	Port       int

	// AdminAddr and AdminPort name the HTTP admin/introspection/metrics
	// listener; AdminEnabled turns it off entirely when false.
	AdminEnabled bool
	AdminAddr    string
	AdminPort    int

	// HashLoadFactor is the count/bucket-count ratio that triggers an
	// incremental rehash on every hash index the store creates.
	HashLoadFactor int
	// HashRehashQuantum bounds how many nodes migrate out of an old
	// hash table per operation while a rehash is in progress.
	HashRehashQuantum int

	// MetricsEnabled turns on metrics collection; MetricsInfluxDBURL,
	// when non-empty, additionally exports to an InfluxDB endpoint.
	// MetricsInfluxDBTags is a comma-separated list of key=value pairs
	// attached to every exported sample.
	MetricsEnabled      bool
	MetricsInfluxDBURL  string
	MetricsInfluxDBDB   string
	MetricsInfluxDBTags string

	// TracingEnabled turns on Jaeger tracing via opentracing-go.
	TracingEnabled    bool
	TracingServiceName string
	TracingAgentAddr  string

	// LogLevel is a go-ethereum/log level name (crit, error, warn,
	// info, debug, trace).
	LogLevel string
	// LogJSON selects structured JSON logging instead of the default
	// terminal-formatted output.
	LogJSON bool
}

// Default returns a Config populated with the server's defaults.
func Default() *Config {
	return &Config{
		ListenAddr:        DefaultListenAddr,
		Port:              DefaultPort,
		AdminEnabled:      true,
		AdminAddr:         DefaultAdminAddr,
		AdminPort:         DefaultAdminPort,
		HashLoadFactor:    8,
		HashRehashQuantum: 128,
		LogLevel:          "info",
		TracingServiceName: "kvd",
		TracingAgentAddr:  "127.0.0.1:6831",
	}
}

// Load reads and decodes a TOML config file on top of Default(),
// rejecting any key the TOML document defines that Config does not
// have a field for: a typo'd config key should fail fast at startup
// rather than silently doing nothing.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	decoder := toml.NewDecoder(f)
	decoder.IgnoreUntaggedFields = false
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invariant Config violates, or nil.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.AdminEnabled && (c.AdminPort <= 0 || c.AdminPort > 65535) {
		return fmt.Errorf("config: invalid admin port %d", c.AdminPort)
	}
	if c.HashLoadFactor <= 0 {
		return fmt.Errorf("config: HashLoadFactor must be positive, got %d", c.HashLoadFactor)
	}
	if c.HashRehashQuantum <= 0 {
		return fmt.Errorf("config: HashRehashQuantum must be positive, got %d", c.HashRehashQuantum)
	}
	switch c.LogLevel {
	case "crit", "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}
