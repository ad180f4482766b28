package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Executor      ExecutorConfig      `toml:"executor"`
	Remote        RemoteConfig        `toml:"remote"`
	Oracle        OracleConfig        `toml:"oracle"`
	Peer          PeerConfig          `toml:"peer"`
	Notifications NotificationsConfig `toml:"notifications"`
	Schedule      []ScheduleEntry     `toml:"schedule"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file"`
	PromptsDir   string `toml:"prompts_dir"`
}

// ExecutorConfig holds settings for running commands
type ExecutorConfig struct {
	Mode          string   `toml:"mode"` // "local" or "remote"
	Shell         string   `toml:"shell"`
	ReadTimeout   Duration `toml:"read_timeout"`
	Pace          Duration `toml:"pace"`
	MaxReads      int      `toml:"max_reads"`
	BannerTimeout Duration `toml:"banner_timeout"`
}

// RemoteConfig holds settings for the remote execution peer client
type RemoteConfig struct {
	URL              string   `toml:"url"`
	ResponseTimeout  Duration `toml:"response_timeout"`
	MaxDrainDepth    int      `toml:"max_drain_depth"`
	MaxDrainDuration Duration `toml:"max_drain_duration"`
	DialTimeout      Duration `toml:"dial_timeout"`
}

// OracleConfig holds Claude CLI settings
type OracleConfig struct {
	Command   string   `toml:"command"`
	Model     string   `toml:"model"`
	ExtraArgs []string `toml:"extra_args"`
}

// PeerConfig holds settings for serving as a remote execution peer
type PeerConfig struct {
	Listen string `toml:"listen"`
	Shell  string `toml:"shell"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// ScheduleEntry is one cron-scheduled validation
type ScheduleEntry struct {
	Name        string   `toml:"name"`
	Cron        string   `toml:"cron"`
	Documents   []string `toml:"documents"`
	Mode        string   `toml:"mode"`
	NoRepair    bool     `toml:"no_repair"`
	MaxDuration Duration `toml:"max_duration"`
}

// Duration is a time.Duration written as a string such as "2s" or "10m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".doccheck", "doccheck.db"),
			LogLevel:     "info",
		},
		Executor: ExecutorConfig{
			Mode:          "local",
			Shell:         "/bin/bash",
			ReadTimeout:   Duration{2 * time.Second},
			Pace:          Duration{500 * time.Millisecond},
			MaxReads:      600,
			BannerTimeout: Duration{500 * time.Millisecond},
		},
		Remote: RemoteConfig{
			URL:              "ws://127.0.0.1:8765/ws",
			ResponseTimeout:  Duration{5 * time.Minute},
			MaxDrainDepth:    32,
			MaxDrainDuration: Duration{10 * time.Minute},
			DialTimeout:      Duration{10 * time.Second},
		},
		Oracle: OracleConfig{
			Command: "claude",
		},
		Peer: PeerConfig{
			Listen: "127.0.0.1:8765",
			Shell:  "/bin/bash",
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.General.PromptsDir = ExpandPath(cfg.General.PromptsDir)
	for i := range cfg.Schedule {
		for j, doc := range cfg.Schedule[i].Documents {
			cfg.Schedule[i].Documents[j] = ExpandPath(doc)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if err := validMode(c.Executor.Mode); err != nil {
		return fmt.Errorf("executor.mode: %w", err)
	}
	for i, s := range c.Schedule {
		if s.Name == "" {
			return fmt.Errorf("schedule %d: name is required", i)
		}
		if s.Mode != "" {
			if err := validMode(s.Mode); err != nil {
				return fmt.Errorf("schedule %q: %w", s.Name, err)
			}
		}
	}
	return nil
}

func validMode(mode string) error {
	switch mode {
	case "local", "remote":
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want local or remote)", mode)
	}
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "doccheck", "config.toml")
}
