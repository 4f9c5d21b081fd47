package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix prefixes every environment override, e.g. FOCUSYNC_REMOTE_BASE_URL.
const EnvPrefix = "FOCUSYNC"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Remote    RemoteConfig    `toml:"remote"`
	Integrity IntegrityConfig `toml:"integrity"`
	Timer     TimerConfig     `toml:"timer"`
	Drafter   DrafterConfig   `toml:"drafter"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// StoreConfig selects the local persistent adapter.
//
// Driver is "sqlite" (single file, process-local broadcast) or "file" (one JSON file per key, broadcast to other processes).
type StoreConfig struct {
	Driver string `toml:"driver" envconfig:"DRIVER"`
	Path   string `toml:"path" envconfig:"PATH"`
	Dir    string `toml:"dir" envconfig:"DIR"`
}

// RemoteConfig contains the remote collaborator endpoint and credentials.
type RemoteConfig struct {
	BaseURL   string        `toml:"base_url" envconfig:"BASE_URL"`
	Token     string        `toml:"token" envconfig:"TOKEN"`
	RateLimit float64       `toml:"rate_limit" envconfig:"RATE_LIMIT"`
	Timeout   time.Duration `toml:"timeout" envconfig:"TIMEOUT"`
}

// IntegrityConfig controls the background validator.
type IntegrityConfig struct {
	Interval   time.Duration `toml:"interval" envconfig:"INTERVAL"`
	Grace      time.Duration `toml:"grace" envconfig:"GRACE"`
	AutoRepair bool          `toml:"auto_repair" envconfig:"AUTO_REPAIR"`
}

// TimerConfig contains focus timer defaults.
type TimerConfig struct {
	DefaultDuration time.Duration `toml:"default_duration" envconfig:"DEFAULT_DURATION"`
	Tick            time.Duration `toml:"tick" envconfig:"TICK"`
}

// DrafterConfig contains text-completion credentials used to draft quotes.
type DrafterConfig struct {
	APIKey    string `toml:"api_key" envconfig:"API_KEY"`
	Model     string `toml:"model" envconfig:"MODEL"`
	MaxTokens int64  `toml:"max_tokens" envconfig:"MAX_TOKENS"`
}

// BridgeConfig contains the websocket transport listen address.
type BridgeConfig struct {
	Host string `toml:"host" envconfig:"HOST"`
	Port int    `toml:"port" envconfig:"PORT"`
}

// ServerConfig contains the reference backend settings.
type ServerConfig struct {
	Host         string `toml:"host" envconfig:"HOST"`
	Port         int    `toml:"port" envconfig:"PORT"`
	Database     string `toml:"database" envconfig:"DATABASE"`
	Token        string `toml:"token" envconfig:"TOKEN"`
	MaxOpenConns int    `toml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" envconfig:"LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values left out of the file keep their defaults; environment variables override both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config sections from FOCUSYNC_<SECTION>_<KEY> environment variables.
func ApplyEnv(config *Config) error {
	sections := []struct {
		prefix string
		target any
	}{
		{"STORE", &config.Store},
		{"REMOTE", &config.Remote},
		{"INTEGRITY", &config.Integrity},
		{"TIMER", &config.Timer},
		{"DRAFTER", &config.Drafter},
		{"BRIDGE", &config.Bridge},
		{"SERVER", &config.Server},
		{"LOG", &config.Log},
	}

	for _, s := range sections {
		if err := envconfig.Process(EnvPrefix+"_"+s.prefix, s.target); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, s.prefix, err)
		}
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
