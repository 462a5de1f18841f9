// Package config loads eva's settings from an optional TOML file and EVA_*
// environment variables, in that order of precedence from low to high.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const EnvPrefix = "EVA"

type Config struct {
	DB       DBConfig       `mapstructure:"db" toml:"db"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule" toml:"schedule"`
	Workday  WorkdayConfig  `mapstructure:"workday" toml:"workday"`
	Watch    WatchConfig    `mapstructure:"watch" toml:"watch"`
}

type DBConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// LogConfig sends logs to a rotated file when File is set, else to stderr.
type LogConfig struct {
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
}

// ScheduleConfig names the external scheduler program.
type ScheduleConfig struct {
	Command string   `mapstructure:"command" toml:"command"`
	Args    []string `mapstructure:"args" toml:"args"`
}

// WorkdayConfig bounds the daily ranges of the default time segment.
type WorkdayConfig struct {
	StartHour int `mapstructure:"start_hour" toml:"start_hour"`
	EndHour   int `mapstructure:"end_hour" toml:"end_hour"`
}

type WatchConfig struct {
	Buffer              int `mapstructure:"buffer" toml:"buffer"`
	DebounceMillis      int `mapstructure:"debounce_ms" toml:"debounce_ms"`
	ReminderLeadMinutes int `mapstructure:"reminder_lead_minutes" toml:"reminder_lead_minutes"`
}

func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		DB:  DBConfig{Path: filepath.Join(dir, "eva.db")},
		Log: LogConfig{MaxSizeMB: 10, MaxBackups: 3},
		Workday: WorkdayConfig{
			StartHour: 9,
			EndHour:   17,
		},
		Watch: WatchConfig{
			Buffer:              64,
			DebounceMillis:      250,
			ReminderLeadMinutes: 10,
		},
	}
}

// DefaultDir is the per-user directory for eva's config and database.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eva")
	}
	return ".eva"
}

func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Load reads path, which may be missing, then applies EVA_* overrides such
// as EVA_DB_PATH or EVA_WORKDAY_START_HOUR.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("db.path", cfg.DB.Path)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("schedule.command", cfg.Schedule.Command)
	v.SetDefault("schedule.args", cfg.Schedule.Args)
	v.SetDefault("workday.start_hour", cfg.Workday.StartHour)
	v.SetDefault("workday.end_hour", cfg.Workday.EndHour)
	v.SetDefault("watch.buffer", cfg.Watch.Buffer)
	v.SetDefault("watch.debounce_ms", cfg.Watch.DebounceMillis)
	v.SetDefault("watch.reminder_lead_minutes", cfg.Watch.ReminderLeadMinutes)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return errors.New("config: db.path is required")
	}
	if c.Workday.StartHour < 0 || c.Workday.EndHour > 24 || c.Workday.StartHour >= c.Workday.EndHour {
		return fmt.Errorf("config: invalid workday %d-%d", c.Workday.StartHour, c.Workday.EndHour)
	}
	if c.Watch.Buffer <= 0 {
		return fmt.Errorf("config: watch.buffer must be positive, got %d", c.Watch.Buffer)
	}
	if c.Watch.DebounceMillis < 0 || c.Watch.ReminderLeadMinutes < 0 {
		return errors.New("config: watch durations must not be negative")
	}
	return nil
}

// Save writes cfg as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := Encode(f, cfg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func Encode(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
