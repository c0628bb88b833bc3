package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Store:      StoreSQLite,
		SQLitePath: "data/shiftlog.db",
		Evidence:   EvidenceConfig{Backend: EvidenceDir, Dir: "evidence"},
		WorkerID:   "w1",
		Workers: []WorkerConfig{
			{ID: "w1", Name: "Ada Lovelace", Role: "field-worker", Email: "ada@example.com"},
			{ID: "w2", Name: "Grace Hopper", Role: "admin"},
		},
		Sites: []Site{
			{Name: "Warehouse", Address: "1 Dock Road", RRule: "FREQ=WEEKLY;BYDAY=MO,WE,FR"},
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := Validate(validConfig())
	assert.NoError(t, err)
}

func TestValidate_MinimalConfig(t *testing.T) {
	cfg := &Config{
		Store:    StoreMemory,
		Evidence: EvidenceConfig{Backend: EvidenceDir, Dir: "evidence"},
		WorkerID: "w1",
	}

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *Config)
		contains string
	}{
		{
			name:     "unknown store",
			mutate:   func(cfg *Config) { cfg.Store = "mongo" },
			contains: "validation failed",
		},
		{
			name:     "postgres without database url",
			mutate:   func(cfg *Config) { cfg.Store = StorePostgres },
			contains: "validation failed",
		},
		{
			name:     "sqlite without path",
			mutate:   func(cfg *Config) { cfg.SQLitePath = "" },
			contains: "validation failed",
		},
		{
			name:     "drive evidence without folder",
			mutate:   func(cfg *Config) { cfg.Evidence = EvidenceConfig{Backend: EvidenceDrive} },
			contains: "validation failed",
		},
		{
			name:     "missing worker id",
			mutate:   func(cfg *Config) { cfg.WorkerID = "" },
			contains: "validation failed",
		},
		{
			name:     "bad role",
			mutate:   func(cfg *Config) { cfg.Workers[0].Role = "manager" },
			contains: "validation failed",
		},
		{
			name:     "duplicate worker",
			mutate:   func(cfg *Config) { cfg.Workers[1].ID = "w1" },
			contains: "duplicate worker id",
		},
		{
			name:     "redis without addr",
			mutate:   func(cfg *Config) { cfg.Redis = &RedisConfig{} },
			contains: "validation failed",
		},
		{
			name:     "roster without sheet",
			mutate:   func(cfg *Config) { cfg.Roster = &RosterConfig{Tab: "Staff"} },
			contains: "validation failed",
		},
		{
			name:     "bad timezone",
			mutate:   func(cfg *Config) { cfg.Timezone = "Mars/Olympus" },
			contains: "invalid timezone",
		},
		{
			name:     "invalid rrule",
			mutate:   func(cfg *Config) { cfg.Sites[0].RRule = "INVALID_RRULE_SYNTAX" },
			contains: "invalid rrule",
		},
		{
			name:     "empty rrule",
			mutate:   func(cfg *Config) { cfg.Sites[0].RRule = "" },
			contains: "validation failed",
		},
		{
			name:     "negative window",
			mutate:   func(cfg *Config) { cfg.Report.HoursByDayWindow = -1 },
			contains: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScheduledSites(t *testing.T) {
	cfg := validConfig()
	cfg.Sites = append(cfg.Sites,
		Site{Name: "Depot", RRule: "FREQ=DAILY"},
		Site{Name: "Head Office", RRule: "FREQ=MONTHLY;BYMONTHDAY=1"},
	)

	tests := []struct {
		name     string
		day      time.Time
		expected []string
	}{
		{name: "monday", day: time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), expected: []string{"Warehouse", "Depot"}},
		{name: "tuesday", day: time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), expected: []string{"Depot"}},
		{name: "first of month on a saturday", day: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), expected: []string{"Depot", "Head Office"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites, err := cfg.ScheduledSites(tt.day)
			require.NoError(t, err)

			var names []string
			for _, s := range sites {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestFindSite(t *testing.T) {
	cfg := validConfig()
	cfg.Sites[0].ID = "wh-1"

	site, ok := cfg.FindSite("wh-1")
	require.True(t, ok)
	assert.Equal(t, "Warehouse", site.Name)

	_, ok = cfg.FindSite("Warehouse")
	assert.True(t, ok)

	_, ok = cfg.FindSite("Nowhere")
	assert.False(t, ok)
}

func TestLocation(t *testing.T) {
	cfg := validConfig()

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "Europe/Dublin"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Dublin", loc.String())
}

func TestUsesGoogle(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesGoogle())

	cfg.Report.SheetID = "sheet123"
	assert.True(t, cfg.UsesGoogle())

	cfg = validConfig()
	cfg.Evidence = EvidenceConfig{Backend: EvidenceDrive, DriveFolderID: "folder"}
	assert.True(t, cfg.UsesGoogle())

	cfg = validConfig()
	cfg.Roster = &RosterConfig{SheetID: "roster123"}
	assert.True(t, cfg.UsesGoogle())
}

func TestLoadFromPath_ValidFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")

	content := `store: sqlite
sqlitePath: data/shiftlog.db
evidence:
  backend: dir
  dir: evidence
timezone: Europe/Dublin
requireEndEvidence: true
workerID: w1
workers:
  - id: w1
    name: Ada Lovelace
    role: field-worker
sites:
  - name: Warehouse
    rrule: FREQ=WEEKLY;BYDAY=MO
roster:
  sheetID: roster123
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(content), 0644))

	cfg, err := LoadFromPath("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.True(t, cfg.RequireEndEvidence)
	assert.Equal(t, 7, cfg.Report.HoursByDayWindow, "window defaults to a week")
	require.NotNil(t, cfg.Roster)
	assert.Equal(t, DefaultRosterTab, cfg.Roster.Tab)
	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, "Ada Lovelace", cfg.Workers[0].Name)
}

func TestLoadFromPath_DotEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	// Registered so the values loaded from .env are cleared after the test
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_PASSWORD", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("REDIS_PASSWORD")

	content := `store: postgres
evidence:
  backend: dir
  dir: evidence
redis:
  addr: localhost:6379
workerID: w1
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(content), 0644))
	require.NoError(t, os.WriteFile(".env", []byte("DATABASE_URL=postgres://localhost/shiftlog\nREDIS_PASSWORD=s3cret\n"), 0600))

	cfg, err := LoadFromPath("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/shiftlog", cfg.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store: [unclosed"), 0644))

	_, err := LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadFromPath_NonExistentFile(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestFindConfigFile_PrefersEnvFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, os.WriteFile("shiftlog_config.yaml", []byte("{}"), 0644))
	path, err := findConfigFile("test")
	require.NoError(t, err)
	assert.Equal(t, "shiftlog_config.yaml", path)

	require.NoError(t, os.WriteFile("shiftlog_config.test.yaml", []byte("{}"), 0644))
	path, err = findConfigFile("test")
	require.NoError(t, err)
	assert.Equal(t, "shiftlog_config.test.yaml", path)
}

func TestFindConfigFile_Missing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := findConfigFile("prod")
	assert.Error(t, err)
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "oauthClient.json")

	valid := `{"installed": {
		"client_id": "id.apps.googleusercontent.com",
		"project_id": "shiftlog",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": "https://oauth2.googleapis.com/token",
		"auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
		"client_secret": "secret",
		"redirect_uris": ["http://localhost"]
	}}`
	require.NoError(t, os.WriteFile(path, []byte(valid), 0600))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "shiftlog", cfg.Installed.ProjectID)

	require.NoError(t, os.WriteFile(path, []byte(`{"installed": {"client_id": "id"}}`), 0600))
	_, err = LoadOAuthClientFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
