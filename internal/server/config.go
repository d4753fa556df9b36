package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server   ServerSettings  `hcl:"server,block"`
	Game     GameConfig      `hcl:"game,block"`
	Sessions SessionSettings `hcl:"sessions,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameConfig carries the chip parameters every room deals with
type GameConfig struct {
	SmallBlind         int `hcl:"small_blind,optional"`
	BigBlind           int `hcl:"big_blind,optional"`
	StartingStack      int `hcl:"starting_stack,optional"`
	TurnTimeoutSeconds int `hcl:"turn_timeout_seconds,optional"`
}

// SessionSettings configures the persistent session store
type SessionSettings struct {
	DBPath string `hcl:"db_path,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameConfig{
			SmallBlind:         5,
			BigBlind:           10,
			StartingStack:      1000,
			TurnTimeoutSeconds: 0,
		},
		Sessions: SessionSettings{
			DBPath: "chiptally.db",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.SmallBlind == 0 {
		config.Game.SmallBlind = 5
	}
	if config.Game.BigBlind == 0 {
		config.Game.BigBlind = 10
	}
	if config.Game.StartingStack == 0 {
		config.Game.StartingStack = 1000
	}
	if config.Sessions.DBPath == "" {
		config.Sessions.DBPath = "chiptally.db"
	}

	return &config, nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Game.StartingStack < c.Game.BigBlind {
		return fmt.Errorf("starting stack must cover at least one big blind")
	}
	if c.Game.TurnTimeoutSeconds < 0 {
		return fmt.Errorf("turn timeout cannot be negative")
	}
	return nil
}
