package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/jeanpaul/assistant/internal/store"
)

type Config struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	DBDir       string `yaml:"db_dir" mapstructure:"db_dir"`
	DBName      string `yaml:"db_name" mapstructure:"db_name"`
	DBFile      string `yaml:"db_file" mapstructure:"db_file"`
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
	InitFile    string `yaml:"init_file" mapstructure:"init_file"`
	Yes         bool   `yaml:"yes" mapstructure:"yes"`
	User        string `yaml:"user" mapstructure:"user"`
	LogFile     string `yaml:"log_file" mapstructure:"log_file"`
	LogLevel    string `yaml:"log_level" mapstructure:"log_level"`
}

// EnvPrefix prefixes every environment override, e.g. ASSISTANT_DB_DIR.
const EnvPrefix = "ASSISTANT"

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "user"
	}
	return &Config{
		Backend:     string(store.KindShelf),
		DBDir:       ".",
		DBName:      "addressbook",
		HistoryFile: ".assistant_history",
		InitFile:    ".assistant_init",
		User:        user,
		LogLevel:    "info",
	}
}

// New returns a viper instance seeded with the defaults and reading
// ASSISTANT_* environment overrides. Command-line flags are bound to it
// by the caller before Load.
func New() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("db_dir", d.DBDir)
	v.SetDefault("db_name", d.DBName)
	v.SetDefault("db_file", d.DBFile)
	v.SetDefault("history_file", d.HistoryFile)
	v.SetDefault("init_file", d.InitFile)
	v.SetDefault("yes", d.Yes)
	v.SetDefault("user", d.User)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the init file named by init_file, if present, and resolves
// the final configuration. Flags beat environment, environment beats the
// init file, and the init file beats the defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if path := v.GetString("init_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.DBDir = expandEnv(cfg.DBDir)
	cfg.DBFile = expandEnv(cfg.DBFile)
	cfg.HistoryFile = expandEnv(cfg.HistoryFile)
	cfg.LogFile = expandEnv(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := store.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("config: backend: %w", err)
	}
	if c.DBFile == "" && strings.TrimSpace(c.DBName) == "" {
		return fmt.Errorf("config: db_name is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.DBDir == "" {
		c.DBDir = "."
	}
	return nil
}

// StoreOptions describes the address book selected by c.
func (c *Config) StoreOptions() store.Options {
	kind, _ := store.ParseKind(c.Backend)
	return store.Options{
		Kind: kind,
		Dir:  c.DBDir,
		Name: c.DBName,
		File: c.DBFile,
	}
}
