package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config.yaml"
	envPrefix      = "PGREVIEW"

	MinEncryptionKeyLength = 32
)

var configDirFunc = configDir

type Server struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Storage struct {
	Path string `mapstructure:"path"`
}

type Security struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type LiveDB struct {
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type AI struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Security Security `mapstructure:"security"`
	Log      Log      `mapstructure:"log"`
	LiveDB   LiveDB   `mapstructure:"livedb"`
	AI       AI       `mapstructure:"ai"`
}

// Defaults returns the built-in configuration. The storage path is left
// empty and resolved against the config directory by Load.
func Defaults() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Log: Log{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		LiveDB: LiveDB{MaxConns: 5, ConnectTimeout: 10 * time.Second},
		AI:     AI{RequestTimeout: 120 * time.Second},
	}
}

// Load reads path, or config.yaml in the config directory when path is
// empty. A missing file is not an error. PGREVIEW_* environment variables
// override file values, e.g. PGREVIEW_SECURITY_ENCRYPTION_KEY.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Storage.Path == "" {
		dir, err := configDirFunc()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = filepath.Join(dir, "pgreview.db")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("security.encryption_key", d.Security.EncryptionKey)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("livedb.max_conns", d.LiveDB.MaxConns)
	v.SetDefault("livedb.connect_timeout", d.LiveDB.ConnectTimeout)
	v.SetDefault("ai.request_timeout", d.AI.RequestTimeout)
}

// Validate reports the first invalid setting by its config key.
func (c *Config) Validate() error {
	if len(c.Security.EncryptionKey) < MinEncryptionKeyLength {
		return fmt.Errorf("security.encryption_key must be at least %d characters (run 'pgreview init' or set %s_SECURITY_ENCRYPTION_KEY)", MinEncryptionKeyLength, envPrefix)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("log.encoding %q must be json or console", c.Log.Encoding)
	}
	if c.LiveDB.MaxConns < 1 {
		return fmt.Errorf("livedb.max_conns must be at least 1")
	}
	if c.LiveDB.ConnectTimeout <= 0 {
		return fmt.Errorf("livedb.connect_timeout must be positive")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("ai.request_timeout must be positive")
	}
	return nil
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config directory: %w", err)
	}
	return filepath.Join(base, "pgreview"), nil
}

// Path is the default config file location.
func Path() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
