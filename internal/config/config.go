package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	EvidenceDir   = "dir"
	EvidenceDrive = "drive"

	defaultHoursByDayWindow = 7
	DefaultRosterTab        = "Workers"
)

// RedisConfig enables the shared active-shift guard
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" validate:"min=0"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// EvidenceConfig selects where check-in and check-out photos are stored
type EvidenceConfig struct {
	Backend       string `yaml:"backend" validate:"required,oneof=dir drive"`
	Dir           string `yaml:"dir,omitempty" validate:"required_if=Backend dir"`
	DriveFolderID string `yaml:"driveFolderID,omitempty" validate:"required_if=Backend drive"`
}

type ReportConfig struct {
	HoursByDayWindow int    `yaml:"hoursByDayWindow,omitempty" validate:"min=0"`
	SheetID          string `yaml:"sheetID,omitempty"`
	SheetTab         string `yaml:"sheetTab,omitempty"`
}

// RosterConfig points at a Google Sheet tab listing worker profiles, one per row
type RosterConfig struct {
	SheetID string `yaml:"sheetID" validate:"required"`
	Tab     string `yaml:"tab,omitempty"`
}

// WorkerConfig is a worker profile seeded into the store at startup
type WorkerConfig struct {
	ID    string `yaml:"id" validate:"required"`
	Name  string `yaml:"name" validate:"required"`
	Role  string `yaml:"role" validate:"required,oneof=field-worker admin"`
	Email string `yaml:"email,omitempty" validate:"omitempty,email"`
	Phone string `yaml:"phone,omitempty"`
}

// Site is a work location with the days it is scheduled on
type Site struct {
	ID      string `yaml:"id,omitempty"`
	Name    string `yaml:"name" validate:"required"`
	Address string `yaml:"address,omitempty"`
	RRule   string `yaml:"rrule" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	Store              string         `yaml:"store" validate:"required,oneof=postgres sqlite memory"`
	DatabaseURL        string         `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	SQLitePath         string         `yaml:"sqlitePath,omitempty" validate:"required_if=Store sqlite"`
	Redis              *RedisConfig   `yaml:"redis,omitempty"`
	Evidence           EvidenceConfig `yaml:"evidence"`
	Timezone           string         `yaml:"timezone,omitempty"`
	RequireEndEvidence bool           `yaml:"requireEndEvidence,omitempty"`
	Report             ReportConfig   `yaml:"report,omitempty"`
	WorkerID           string         `yaml:"workerID" validate:"required"`
	Roster             *RosterConfig  `yaml:"roster,omitempty"`
	Workers            []WorkerConfig `yaml:"workers,omitempty" validate:"dive"`
	Sites              []Site         `yaml:"sites,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads the configuration for env, e.g. "test" reads shiftlog_config.test.yaml.
// It falls back to shiftlog_config.yaml when no env-specific file exists.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Secrets in a .env file next to the working directory override the YAML values.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	if cfg.Report.HoursByDayWindow == 0 {
		cfg.Report.HoursByDayWindow = defaultHoursByDayWindow
	}
	if cfg.Roster != nil && cfg.Roster.Tab == "" {
		cfg.Roster.Tab = DefaultRosterTab
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the timezone and each site's rrule
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, site := range cfg.Sites {
		if _, err := rrule.StrToRRule(site.RRule); err != nil {
			return fmt.Errorf("invalid rrule in sites[%d]: %w", i, err)
		}
	}

	seen := make(map[string]bool, len(cfg.Workers))
	for i, w := range cfg.Workers {
		if seen[w.ID] {
			return fmt.Errorf("config validation failed: duplicate worker id %q in workers[%d]", w.ID, i)
		}
		seen[w.ID] = true
	}

	return nil
}

// Location returns the configured timezone, or the local zone when unset
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ScheduledSites returns the sites whose rrule has an occurrence on day's calendar date
func (c *Config) ScheduledSites(day time.Time) ([]Site, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dateStr := dayStart.Format("2006-01-02")

	var sites []Site
	for i, site := range c.Sites {
		rule, err := rrule.StrToRRule(site.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for sites[%d]: %w", i, err)
		}

		// Anchor a week back so weekly rules line up with the searched day
		rule.DTStart(dayStart.AddDate(0, 0, -7))
		for _, occurrence := range rule.Between(dayStart, dayStart.AddDate(0, 0, 1), true) {
			if occurrence.Format("2006-01-02") == dateStr {
				sites = append(sites, site)
				break
			}
		}
	}
	return sites, nil
}

// FindSite looks a site up by id or name
func (c *Config) FindSite(key string) (Site, bool) {
	for _, s := range c.Sites {
		if (s.ID != "" && s.ID == key) || s.Name == key {
			return s, true
		}
	}
	return Site{}, false
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env file: %w", err)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" && cfg.Redis != nil {
		cfg.Redis.Password = v
	}
}

// findConfigFile searches the current directory then the home directory,
// trying shiftlog_config.<env>.yaml before shiftlog_config.yaml
func findConfigFile(env string) (string, error) {
	names := []string{"shiftlog_config.yaml"}
	if env != "" {
		names = append([]string{"shiftlog_config." + env + ".yaml"}, names...)
	}

	for _, name := range names {
		if path, err := findFile(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config file not found in current directory or home directory")
}
