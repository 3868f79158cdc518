// Package config loads taskbridge settings from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"taskbridge/internal/logging"
)

const (
	envConfigPath = "TASKBRIDGE_CONFIG"
	appDirName    = "taskbridge"

	DefaultAddr = "127.0.0.1:3001"
)

var ErrExists = errors.New("config file already exists")

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Taskwarrior TaskwarriorConfig `toml:"taskwarrior"`
	Archive     ArchiveConfig     `toml:"archive"`
	Journal     JournalConfig     `toml:"journal"`
	Logging     LoggingConfig     `toml:"logging"`
	UI          UIConfig          `toml:"ui"`
}

type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

type TaskwarriorConfig struct {
	Bin     string   `toml:"bin"`
	TaskRC  string   `toml:"taskrc"`
	DataDir string   `toml:"data_dir"`
	Timeout Duration `toml:"timeout"`
}

type ArchiveConfig struct {
	Enabled   bool `toml:"enabled"`
	AfterDays int  `toml:"after_days"`
}

type JournalConfig struct {
	Enabled bool `toml:"enabled"`
	// Path defaults to journal.sqlite next to the config file.
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type UIConfig struct {
	// Refresh is how often the browser UI stream re-reads tasks.
	Refresh Duration `toml:"refresh"`
}

// Duration reads and writes Go duration strings ("10s", "1m30s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{0},
		},
		Taskwarrior: TaskwarriorConfig{
			Bin:     "task",
			Timeout: Duration{10 * time.Second},
		},
		Archive: ArchiveConfig{Enabled: true, AfterDays: 60},
		Journal: JournalConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
		UI:      UIConfig{Refresh: Duration{5 * time.Second}},
	}
}

// ArchiveAfter is the auto-archive threshold; zero when disabled.
func (c Config) ArchiveAfter() time.Duration {
	if !c.Archive.Enabled || c.Archive.AfterDays <= 0 {
		return 0
	}
	return time.Duration(c.Archive.AfterDays) * 24 * time.Hour
}

// JournalPath resolves the journal location relative to configPath.
func (c Config) JournalPath(configPath string) string {
	if p := strings.TrimSpace(c.Journal.Path); p != "" {
		return expandHome(p)
	}
	return filepath.Join(filepath.Dir(configPath), "journal.sqlite")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ReadTimeout.Duration < 0 || c.Server.WriteTimeout.Duration < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if strings.TrimSpace(c.Taskwarrior.Bin) == "" {
		return errors.New("taskwarrior.bin is required")
	}
	if c.Taskwarrior.Timeout.Duration <= 0 {
		return errors.New("taskwarrior.timeout must be positive")
	}
	if c.Archive.AfterDays < 0 {
		return errors.New("archive.after_days must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.UI.Refresh.Duration <= 0 {
		return errors.New("ui.refresh must be positive")
	}
	return nil
}

// Path returns $TASKBRIDGE_CONFIG or <user config dir>/taskbridge/config.toml.
func Path() (string, error) {
	if v := strings.TrimSpace(os.Getenv(envConfigPath)); v != "" {
		return expandHome(v), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDirName, "config.toml"), nil
}

// Load reads path over the defaults. A missing or empty file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Write stores cfg at path. An existing file is only replaced when force is set.
func Write(path string, cfg Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.toml.*.tmp", path, b, 0o600)
}

// atomicWriteFile writes through a unique temp file and a rename so concurrent
// readers never see a partial file.
func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
