package config

import "time"

// Config holds client configuration values.
type Config struct {
	ServerURL    string        `mapstructure:"server_url" yaml:"server_url"`
	DBPath       string        `mapstructure:"db_path" yaml:"db_path"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	ReconnectMin time.Duration `mapstructure:"reconnect_min" yaml:"reconnect_min"`
	ReconnectMax time.Duration `mapstructure:"reconnect_max" yaml:"reconnect_max"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// ControlAddr enables the local HTTP control surface when non-empty.
	ControlAddr string `mapstructure:"control_addr" yaml:"control_addr"`
	// Guild and Channel are selected once the session is active.
	Guild   string `mapstructure:"guild" yaml:"guild"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:    "ws://localhost:8080/ws",
		DBPath:       "harmony.db",
		LogLevel:     "info",
		ReconnectMin: 500 * time.Millisecond,
		ReconnectMax: 30 * time.Second,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.DBPath != "" {
		c.DBPath = other.DBPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReconnectMin != 0 {
		c.ReconnectMin = other.ReconnectMin
	}
	if other.ReconnectMax != 0 {
		c.ReconnectMax = other.ReconnectMax
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.ControlAddr != "" {
		c.ControlAddr = other.ControlAddr
	}
	if other.Guild != "" {
		c.Guild = other.Guild
	}
	if other.Channel != "" {
		c.Channel = other.Channel
	}
}
