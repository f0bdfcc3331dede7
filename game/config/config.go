package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SHAREDSPACE_"

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config is the full server configuration
type Config struct {
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Relay  RelayConfig  `yaml:"relay" envPrefix:"RELAY_"`
	World  WorldConfig  `yaml:"world" envPrefix:"WORLD_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
	Ngrok  NgrokConfig  `yaml:"ngrok" envPrefix:"NGROK_"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	StaticDir    string        `yaml:"static_dir" env:"STATIC_DIR"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// Addr returns host:port for net.Listen
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type RelayConfig struct {
	SendQueueLimit int           `yaml:"send_queue_limit" env:"SEND_QUEUE_LIMIT"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	WriteWait      time.Duration `yaml:"write_wait" env:"WRITE_WAIT"`
	PongWait       time.Duration `yaml:"pong_wait" env:"PONG_WAIT"`
}

// PingPeriod is how often the server pings each connection
func (r RelayConfig) PingPeriod() time.Duration {
	return r.PongWait * 9 / 10
}

type WorldConfig struct {
	Arena    world.Arena `yaml:"arena"`
	Ordering string      `yaml:"ordering" env:"ORDERING"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
}

// Options converts the section into logger options
func (l LogConfig) Options() logging.Options {
	return logging.Options{
		Level:      l.Level,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	}
}

// NgrokConfig enables the public tunnel. An empty Authtoken falls back to
// NGROK_AUTHTOKEN.
type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Authtoken string `yaml:"authtoken" env:"AUTHTOKEN"`
	Domain    string `yaml:"domain" env:"DOMAIN"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "",
			Port:         8080,
			StaticDir:    "static",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Relay: RelayConfig{
			SendQueueLimit: 256,
			MaxMessageSize: 4096,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
		},
		World: WorldConfig{
			Arena:    world.DefaultArena(),
			Ordering: string(session.OrderingOverwrite),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and SHAREDSPACE_ environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and validates a YAML file on top of the defaults, without
// looking at the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Relay.SendQueueLimit <= 0 {
		errs = append(errs, fmt.Errorf("relay.send_queue_limit must be positive, got %d", c.Relay.SendQueueLimit))
	}
	if c.Relay.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_message_size must be positive, got %d", c.Relay.MaxMessageSize))
	}
	if c.Relay.WriteWait <= 0 || c.Relay.PongWait <= 0 {
		errs = append(errs, errors.New("relay.write_wait and relay.pong_wait must be positive"))
	} else if c.Relay.PingPeriod() <= c.Relay.WriteWait {
		errs = append(errs, fmt.Errorf("relay.pong_wait: ping period %s must exceed relay.write_wait %s",
			c.Relay.PingPeriod(), c.Relay.WriteWait))
	}
	if err := c.World.Arena.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("world.arena: %w", err))
	}
	if _, err := session.ParseOrdering(c.World.Ordering); err != nil {
		errs = append(errs, fmt.Errorf("world.ordering: %w", err))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Ordering returns the parsed ordering policy. Call Validate first.
func (c *Config) Ordering() session.Ordering {
	o, _ := session.ParseOrdering(c.World.Ordering)
	return o
}

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
