package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"riftterm/internal/generator"
	"riftterm/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. RIFTTERM_LOG_LEVEL.
const EnvPrefix = "RIFTTERM"

type Config struct {
	Mode       string           `mapstructure:"mode"`
	Seed       uint64           `mapstructure:"seed"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
}

type SimulationConfig struct {
	WarmUp         time.Duration `mapstructure:"warm_up"`
	ConnectDelay   time.Duration `mapstructure:"connect_delay"`
	ConnectedDelay time.Duration `mapstructure:"connected_delay"`
	ScanDelay      time.Duration `mapstructure:"scan_delay"`
	MinWait        time.Duration `mapstructure:"min_wait"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	DecisionDelay  time.Duration `mapstructure:"decision_delay"`
	ClosingDelay   time.Duration `mapstructure:"closing_delay"`

	TagProbability      float64 `mapstructure:"tag_probability"`
	ProcessingThreshold int     `mapstructure:"processing_threshold"`
	MaxDetections       int     `mapstructure:"max_detections"`
	MinAmount           float64 `mapstructure:"min_amount"`
	MaxAmount           float64 `mapstructure:"max_amount"`
	Capacity            int     `mapstructure:"capacity"`

	Addresses []string `mapstructure:"addresses"`
	TxIDs     []string `mapstructure:"txids"`
	Tags      []string `mapstructure:"tags"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	BasePath string `mapstructure:"base_path"`
	Metrics  bool   `mapstructure:"metrics"`
}

// Load reads .env files, then the optional config file at path, then
// RIFTTERM_* environment overrides. Missing .env files are ignored; a
// missing explicit config file is an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := generator.DefaultConfig()
	v.SetDefault("mode", string(session.ModeProcedural))
	v.SetDefault("seed", 0)

	v.SetDefault("simulation.warm_up", d.WarmUp)
	v.SetDefault("simulation.connect_delay", d.ConnectDelay)
	v.SetDefault("simulation.connected_delay", d.ConnectedDelay)
	v.SetDefault("simulation.scan_delay", d.ScanDelay)
	v.SetDefault("simulation.min_wait", d.MinWait)
	v.SetDefault("simulation.max_wait", d.MaxWait)
	v.SetDefault("simulation.decision_delay", d.DecisionDelay)
	v.SetDefault("simulation.closing_delay", d.ClosingDelay)
	v.SetDefault("simulation.tag_probability", d.TagProbability)
	v.SetDefault("simulation.processing_threshold", d.ProcessingThreshold)
	v.SetDefault("simulation.max_detections", d.MaxDetections)
	v.SetDefault("simulation.min_amount", d.MinAmount)
	v.SetDefault("simulation.max_amount", d.MaxAmount)
	v.SetDefault("simulation.capacity", d.Capacity)
	v.SetDefault("simulation.addresses", d.Addresses)
	v.SetDefault("simulation.txids", d.TxIDs)
	v.SetDefault("simulation.tags", d.Tags)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/api/terminal")
	v.SetDefault("server.metrics", true)
}

func (c *Config) Validate() error {
	if _, err := session.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Simulation.Generator().Validate()
}

// Generator converts the file/env representation into generator settings.
func (s SimulationConfig) Generator() generator.Config {
	return generator.Config{
		WarmUp:              s.WarmUp,
		ConnectDelay:        s.ConnectDelay,
		ConnectedDelay:      s.ConnectedDelay,
		ScanDelay:           s.ScanDelay,
		MinWait:             s.MinWait,
		MaxWait:             s.MaxWait,
		DecisionDelay:       s.DecisionDelay,
		ClosingDelay:        s.ClosingDelay,
		TagProbability:      s.TagProbability,
		ProcessingThreshold: s.ProcessingThreshold,
		MaxDetections:       s.MaxDetections,
		MinAmount:           s.MinAmount,
		MaxAmount:           s.MaxAmount,
		Capacity:            s.Capacity,
		Addresses:           s.Addresses,
		TxIDs:               s.TxIDs,
		Tags:                s.Tags,
	}
}

// Source returns a seeded random source, or nil to let the generator seed itself.
func (c *Config) Source() generator.Source {
	if c.Seed == 0 {
		return nil
	}
	return generator.NewSource(c.Seed)
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
