package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendChime  = "chime"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	MaxPending int           `mapstructure:"max_pending"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Actions ActionsConfig `mapstructure:"actions"`
	Control ControlConfig `mapstructure:"control"`
	AWS     AWSConfig     `mapstructure:"aws"`
}

// ActionsConfig limits how many UI actions one client may send.
type ActionsConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type ControlConfig struct {
	// Backend is the control plane behind the gateway: memory or chime.
	Backend string `mapstructure:"backend"`
	// Endpoint, when set, makes participant sessions call a remote gateway
	// over HTTP instead of the local one.
	Endpoint          string        `mapstructure:"endpoint"`
	RecordingEndpoint string        `mapstructure:"recording_endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type AWSConfig struct {
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	AccountID        string `mapstructure:"account_id"`
	Bucket           string `mapstructure:"bucket"`
	MeetingsEndpoint string `mapstructure:"meetings_endpoint"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName over the defaults. A missing file leaves the
// defaults in place. HUDDLE_* environment variables override both, with
// nested keys joined by underscores (HUDDLE_AWS_REGION).
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("max_pending", 4096)
	v.SetDefault("secret", "huddle-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("actions.limit", 20)
	v.SetDefault("actions.interval", "10s")
	v.SetDefault("control.backend", BackendMemory)
	v.SetDefault("control.endpoint", "")
	v.SetDefault("control.recording_endpoint", "")
	v.SetDefault("control.timeout", "10s")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.account_id", "")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.meetings_endpoint", "")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("backend", cfg.Control.Backend).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Control.Backend {
	case BackendMemory:
	case BackendChime:
		if c.AWS.Region == "" {
			return fmt.Errorf("config: aws.region is required for the %s backend", BackendChime)
		}
	default:
		return fmt.Errorf("config: unknown control.backend %q", c.Control.Backend)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("config: ping_period must be positive")
	}
	return nil
}
