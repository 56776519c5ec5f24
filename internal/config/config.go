// Package config loads the server and table settings from an HCL file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings
	Table  TableSettings
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	WSAddress string `hcl:"ws_address,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	LogFile   string `hcl:"log_file,optional"`
}

// TableSettings configures the single table the server hosts
type TableSettings struct {
	Capacity      int    `hcl:"capacity,optional"`
	Ante          int    `hcl:"ante,optional"`
	StartingStack int    `hcl:"starting_stack,optional"`
	AutoSolve     bool   `hcl:"auto_solve,optional"`
	TurnTimeout   string `hcl:"turn_timeout,optional"`
	Seed          int64  `hcl:"seed,optional"`
}

// fileConfig mirrors the file layout; both blocks may be omitted.
type fileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Table  *TableSettings  `hcl:"table,block"`
}

const (
	DefaultAddress       = "0.0.0.0"
	DefaultPort          = 5555
	DefaultLogLevel      = "info"
	DefaultCapacity      = 2
	DefaultAnte          = 10
	DefaultStartingStack = 1000

	// MaxCapacity keeps two hole cards per seat plus a full board inside one deck.
	MaxCapacity = 23
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  DefaultAddress,
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
		},
		Table: TableSettings{
			Capacity:      DefaultCapacity,
			Ante:          DefaultAnte,
			StartingStack: DefaultStartingStack,
		},
	}
}

// Load reads configuration from filename. A missing file yields Default.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file.Body)
}

// Parse reads configuration from HCL source held in memory.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Config, error) {
	var fc fileConfig
	if diags := gohcl.DecodeBody(body, nil, &fc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if fc.Server != nil {
		cfg.Server = *fc.Server
	}
	if fc.Table != nil {
		cfg.Table = *fc.Table
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Table.Capacity == 0 {
		c.Table.Capacity = DefaultCapacity
	}
	if c.Table.Ante == 0 {
		c.Table.Ante = DefaultAnte
	}
	if c.Table.StartingStack == 0 {
		c.Table.StartingStack = DefaultStartingStack
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Server.LogLevel)
	}
	if c.Table.Capacity < 2 || c.Table.Capacity > MaxCapacity {
		return fmt.Errorf("table capacity must be between 2 and %d, got %d", MaxCapacity, c.Table.Capacity)
	}
	if c.Table.Ante <= 0 {
		return fmt.Errorf("ante must be positive, got %d", c.Table.Ante)
	}
	if c.Table.StartingStack < c.Table.Ante {
		return fmt.Errorf("starting stack %d is below the ante %d", c.Table.StartingStack, c.Table.Ante)
	}
	if _, err := c.TurnTimeout(); err != nil {
		return err
	}
	return nil
}

// TurnTimeout parses the configured turn timeout. Empty means disabled.
func (c *Config) TurnTimeout() (time.Duration, error) {
	if c.Table.TurnTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Table.TurnTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid turn_timeout %q: %w", c.Table.TurnTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("turn_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// ListenAddress returns the host:port for the TCP listener
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}
