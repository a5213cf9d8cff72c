package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"soon/internal/calendar"
	appLog "soon/internal/log"
	"soon/internal/storage"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "soon.db"
	DefaultLogName        = "soon.log"
	appDirName            = "soon"
)

type Keymap struct {
	Quit       string `toml:"quit"`
	Add        string `toml:"add"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	Toggle     string `toml:"toggle"`
	Delete     string `toml:"delete"`
	Edit       string `toml:"edit"`
	Confirm    string `toml:"confirm"`
	Cancel     string `toml:"cancel"`
	SwitchView string `toml:"switch_view"`
	Refresh    string `toml:"refresh"`
}

type Config struct {
	Driver      string `toml:"driver"`
	DBPath      string `toml:"db_path"`
	PostgresDSN string `toml:"postgres_dsn"`

	// Epoch is day 0 of every stored date. Changing it shifts all tasks.
	Epoch           string `toml:"epoch"`
	DayBoundaryHour int    `toml:"day_boundary_hour"`
	Timezone        string `toml:"timezone"`

	// RefreshCron drives the background refresh. Empty means shortly after
	// the day boundary.
	RefreshCron string `toml:"refresh_cron"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	Keys Keymap `toml:"keys"`
}

// ResolveConfigPath returns $XDG_CONFIG_HOME/soon/config.toml, falling back
// to the working directory when no config dir is known.
func ResolveConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		appLog.Info("created default config", "path", path)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize(filepath.Dir(path))
	return cfg, cfg.Validate()
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	return Config{
		Driver:          storage.DriverSQLite,
		DBPath:          filepath.Join(dir, DefaultDBName),
		Epoch:           calendar.DefaultEpoch.Format("2006-01-02"),
		DayBoundaryHour: calendar.DefaultBoundaryHour,
		Timezone:        "Local",
		LogLevel:        "info",
		LogFile:         filepath.Join(dir, DefaultLogName),
		Keys:            defaultKeymap(),
	}
}

func defaultKeymap() Keymap {
	return Keymap{
		Quit:       "q",
		Add:        "a",
		Up:         "k",
		Down:       "j",
		Toggle:     " ",
		Delete:     "d",
		Edit:       "e",
		Confirm:    "enter",
		Cancel:     "esc",
		SwitchView: "tab",
		Refresh:    "r",
	}
}

// Normalize fills zero values left by older or partial config files.
func (c *Config) Normalize(dir string) {
	def := defaultConfig(dir)
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Epoch == "" {
		c.Epoch = def.Epoch
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	k, d := &c.Keys, def.Keys
	fill(&k.Quit, d.Quit)
	fill(&k.Add, d.Add)
	fill(&k.Up, d.Up)
	fill(&k.Down, d.Down)
	fill(&k.Toggle, d.Toggle)
	fill(&k.Delete, d.Delete)
	fill(&k.Edit, d.Edit)
	fill(&k.Confirm, d.Confirm)
	fill(&k.Cancel, d.Cancel)
	fill(&k.SwitchView, d.SwitchView)
	fill(&k.Refresh, d.Refresh)
}

func fill(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func (c Config) Validate() error {
	if c.DayBoundaryHour < 0 || c.DayBoundaryHour > 23 {
		return fmt.Errorf("day_boundary_hour must be 0-23, got %d", c.DayBoundaryHour)
	}
	if _, err := time.Parse("2006-01-02", c.Epoch); err != nil {
		return fmt.Errorf("epoch: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.RefreshSchedule()); err != nil {
		return fmt.Errorf("refresh_cron: %w", err)
	}
	switch c.Driver {
	case storage.DriverSQLite, storage.DriverMemory:
	case storage.DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres driver needs postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) Calendar() (calendar.Calendar, error) {
	epoch, err := time.Parse("2006-01-02", c.Epoch)
	if err != nil {
		return calendar.Calendar{}, err
	}
	loc, err := c.Location()
	if err != nil {
		return calendar.Calendar{}, err
	}
	return calendar.New(epoch, c.DayBoundaryHour, loc)
}

// RefreshSchedule is the cron spec for the background refresh.
func (c Config) RefreshSchedule() string {
	if c.RefreshCron != "" {
		return c.RefreshCron
	}
	return fmt.Sprintf("1 %d * * *", c.DayBoundaryHour)
}

func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:      c.Driver,
		DBPath:      c.DBPath,
		PostgresDSN: c.PostgresDSN,
	}
}
