package config

import (
	"net"
	"strconv"
	"time"

	"github.com/getmockd/entityd/pkg/entity"
)

// Defaults applied before a configuration file is decoded.
const (
	DefaultPort            = 8080
	DefaultBasePath        = "/headless-test/v1.0"
	DefaultResourceName    = "entities"
	DefaultMaxPageSize     = 500
	DefaultEventBuffer     = 64
	DefaultMaxBodySize     = 1 << 20
	DefaultReadTimeout     = 30
	DefaultWriteTimeout    = 30
	DefaultShutdownTimeout = 10
)

// Config is the root of an entityd configuration file.
type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Seed   SeedConfig   `yaml:"seed" json:"seed"`

	// BaseDir resolves relative seed paths. It is the directory of the loaded
	// file, or the working directory for configs built in code.
	BaseDir string `yaml:"-" json:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host,omitempty" json:"host,omitempty"`
	Port            int    `yaml:"port" json:"port"`
	BasePath        string `yaml:"basePath" json:"basePath"`
	ReadTimeout     int    `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`         // seconds
	WriteTimeout    int    `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`       // seconds
	ShutdownTimeout int    `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"` // seconds
	MaxBodySize     int64  `yaml:"maxBodySize,omitempty" json:"maxBodySize,omitempty"`         // bytes
}

// StoreConfig configures the entity store and its provider.
type StoreConfig struct {
	Name        string `yaml:"name" json:"name"`
	Scope       string `yaml:"scope" json:"scope"`
	MaxPageSize int    `yaml:"maxPageSize,omitempty" json:"maxPageSize,omitempty"`
	EventBuffer int    `yaml:"eventBuffer,omitempty" json:"eventBuffer,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// SeedConfig lists the entities loaded at startup and on reset.
type SeedConfig struct {
	// Inline entities, each a flat object with an integer id.
	Inline []map[string]any `yaml:"inline,omitempty" json:"inline,omitempty"`
	// Files are glob patterns (** supported) of JSON or YAML seed files.
	Files []string `yaml:"files,omitempty" json:"files,omitempty"`
	// Watch reloads the seed when a matching file changes.
	Watch bool `yaml:"watch,omitempty" json:"watch,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			BasePath:        DefaultBasePath,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodySize:     DefaultMaxBodySize,
		},
		Store: StoreConfig{
			Name:        DefaultResourceName,
			Scope:       string(entity.ScopeSingleton),
			MaxPageSize: DefaultMaxPageSize,
			EventBuffer: DefaultEventBuffer,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		BaseDir: ".",
	}
}

// Scope returns the parsed store scope.
func (c *Config) Scope() (entity.Scope, error) {
	return entity.ParseScope(c.Store.Scope)
}

// Address returns the host:port the server listens on.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ReadTimeoutDuration returns the read timeout as a duration.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a duration.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// ShutdownTimeoutDuration returns the graceful shutdown timeout as a duration.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}
