package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/hcpdash/internal/schema"
)

// Global configuration structure.
type Global struct {
	// Password is the shared dashboard secret. It is compared, never hashed.
	Password   string `mapstructure:"password" yaml:"password"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	Schema     string `mapstructure:"schema" yaml:"schema"`
	TopN       int    `mapstructure:"top_n" yaml:"top_n"`

	// Upload and session limits
	MaxUploadMB   int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMin int `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty" yaml:"log_pretty"`
	DevMode   bool   `mapstructure:"dev_mode" yaml:"dev_mode"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"password", "listen_addr", "schema", "top_n",
	"max_upload_mb", "session_ttl_min", "log_level", "log_pretty", "dev_mode",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".hcpdash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.hcpdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// the file holds the shared password
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (HCPDASH_*) > config file > defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("HCPDASH")
	v.AutomaticEnv()

	v.SetDefault("password", "test123")
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("schema", schema.Normalized.Name)
	v.SetDefault("top_n", 25)
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("session_ttl_min", 240)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("dev_mode", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the server cannot run with.
func (c *Global) Validate() error {
	if _, err := schema.Lookup(c.Schema); err != nil {
		return err
	}
	if c.TopN < 0 {
		return fmt.Errorf("top_n must be >= 0, got %d", c.TopN)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0, got %d", c.MaxUploadMB)
	}
	return nil
}

// Set assigns a single key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "password":
		if val == "" {
			return fmt.Errorf("password must not be empty")
		}
		c.Password = val
	case "listen_addr":
		c.ListenAddr = val
	case "schema":
		s, err := schema.Lookup(val)
		if err != nil {
			return err
		}
		c.Schema = s.Name
	case "top_n", "max_upload_mb", "session_ttl_min":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "top_n":
			c.TopN = i
		case "max_upload_mb":
			c.MaxUploadMB = i
		default:
			c.SessionTTLMin = i
		}
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_pretty", "dev_mode":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "log_pretty" {
			c.LogPretty = b
		} else {
			c.DevMode = b
		}
	default:
		return fmt.Errorf("unknown key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
