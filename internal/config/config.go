// Package config loads coursenotify settings from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roach88/coursenotify/internal/mail"
)

// EnvPrefix prefixes every environment override, e.g. COURSENOTIFY_SMTP_HOST.
const EnvPrefix = "COURSENOTIFY"

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" yaml:"port"`
	User          string `mapstructure:"user" yaml:"user"`
	Pass          string `mapstructure:"pass" yaml:"pass"`
	From          string `mapstructure:"from" yaml:"from"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify" yaml:"skip_tls_verify"`
}

// Config is the top-level application configuration.
type Config struct {
	// Database is the SQLite file path.
	Database string `mapstructure:"database" yaml:"database"`

	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// JWTSecret signs and verifies API bearer tokens (HS256).
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// PolicyFile is an optional CUE policy; empty means built-in defaults.
	PolicyFile string `mapstructure:"policy_file" yaml:"policy_file"`

	// Concurrency bounds per-event recipient fan-out.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	SMTP SMTPConfig `mapstructure:"smtp" yaml:"smtp"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "coursenotify.db")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("policy_file", "")
	v.SetDefault("concurrency", 4)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.skip_tls_verify", false)
}

// Load reads configuration from path (optional) and applies COURSENOTIFY_*
// environment overrides. A missing file yields defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are ignored; existing variables win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Mail converts the SMTP section for the mail sender.
func (c *Config) Mail() mail.Config {
	return mail.Config{
		Host:          c.SMTP.Host,
		Port:          c.SMTP.Port,
		User:          c.SMTP.User,
		Pass:          c.SMTP.Pass,
		From:          c.SMTP.From,
		SkipTLSVerify: c.SMTP.SkipTLSVerify,
	}
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (set %s_JWT_SECRET)", EnvPrefix)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}
