// Package config loads runtime configuration from a YAML file, an optional
// .env file and MOHERUN_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/moherun/internal/errors"
)

const dateLayout = "2006-01-02"

// Config holds every tunable of the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Draw      DrawConfig      `yaml:"draw"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Persist   PersistConfig   `yaml:"persist"`
}

// ServerConfig holds HTTP and storage settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	BaseURL   string `yaml:"base_url"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// SheetsConfig points at the spreadsheet and the script endpoint.
type SheetsConfig struct {
	SpreadsheetID     string        `yaml:"spreadsheet_id"`
	ScriptURL         string        `yaml:"script_url"`
	WorkbookPath      string        `yaml:"workbook_path"`
	MediaTabs         []string      `yaml:"media_tabs"`
	ResultsTab        string        `yaml:"results_tab"`
	ChallengePoolPath string        `yaml:"challenge_pool_path"`
	ChallengePoolURL  string        `yaml:"challenge_pool_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ChallengeConfig holds the event constants.
type ChallengeConfig struct {
	GoalKm            float64 `yaml:"goal_km"`
	SupplyThresholdKm float64 `yaml:"supply_threshold_km"`
	StreakDays        int     `yaml:"streak_days"`
	StreakMultiplier  float64 `yaml:"streak_multiplier"`
	TeamMultiplier    float64 `yaml:"team_multiplier"`
	StartDate         string  `yaml:"start_date"`
	TimeZone          string  `yaml:"time_zone"`
	MaxWeeks          int     `yaml:"max_weeks"`
}

// DrawConfig holds the lucky-draw windows. Hours are local to the challenge time zone;
// an end hour of 24 means midnight.
type DrawConfig struct {
	Day            string `yaml:"day"`
	StartHour      int    `yaml:"start_hour"`
	EndHour        int    `yaml:"end_hour"`
	MakeupDay      string `yaml:"makeup_day"`
	MakeupStart    int    `yaml:"makeup_start_hour"`
	MakeupEnd      int    `yaml:"makeup_end_hour"`
	MakeupWeekID   string `yaml:"makeup_week_id"`
	DefaultTask    string `yaml:"default_task"`
	AnnounceWindow bool   `yaml:"announce_window"`
}

// RefreshConfig controls the scheduled refresh.
type RefreshConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// PersistConfig bounds the fire-and-forget writes.
type PersistConfig struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	Verify          bool          `yaml:"verify"`
}

// Default returns the configuration of the DC to Mohe challenge.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8081,
			DBPath:    "moherun.db",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Sheets: SheetsConfig{
			MediaTabs:  []string{"Media Storage", "Uploads"},
			ResultsTab: "Lucky Results",
			Timeout:    15 * time.Second,
		},
		Challenge: ChallengeConfig{
			GoalKm:            10000,
			SupplyThresholdKm: 5000,
			StreakDays:        5,
			StreakMultiplier:  1.2,
			TeamMultiplier:    2.0,
			StartDate:         "2025-12-15",
			TimeZone:          "America/New_York",
			MaxWeeks:          52,
		},
		Draw: DrawConfig{
			Day:            "sunday",
			StartHour:      20,
			EndHour:        24,
			MakeupDay:      "monday",
			MakeupStart:    20,
			MakeupEnd:      24,
			MakeupWeekID:   "W5",
			DefaultTask:    "Run 5 km with a friend",
			AnnounceWindow: true,
		},
		Refresh: RefreshConfig{
			Enabled: true,
			Cron:    "*/10 * * * *",
		},
		Persist: PersistConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			Timeout:         20 * time.Second,
		},
	}
}

// Load reads path (missing file is fine), then envFile (missing file is fine),
// then applies MOHERUN_* environment overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("MOHERUN_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	str("MOHERUN_SCRIPT_URL", &c.Sheets.ScriptURL)
	str("MOHERUN_WORKBOOK", &c.Sheets.WorkbookPath)
	str("MOHERUN_CHALLENGE_POOL", &c.Sheets.ChallengePoolPath)
	str("MOHERUN_CHALLENGE_POOL_URL", &c.Sheets.ChallengePoolURL)
	str("MOHERUN_DB", &c.Server.DBPath)
	str("MOHERUN_BASE_URL", &c.Server.BaseURL)
	str("MOHERUN_LOG_LEVEL", &c.Server.LogLevel)
	str("MOHERUN_LOG_FORMAT", &c.Server.LogFormat)
	str("MOHERUN_TIME_ZONE", &c.Challenge.TimeZone)
	str("MOHERUN_START_DATE", &c.Challenge.StartDate)
	str("MOHERUN_MAKEUP_WEEK", &c.Draw.MakeupWeekID)
	str("MOHERUN_REFRESH_CRON", &c.Refresh.Cron)

	if v := os.Getenv("MOHERUN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Validationf("MOHERUN_PORT: %q is not a number", v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MOHERUN_GOAL_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Validationf("MOHERUN_GOAL_KM: %q is not a number", v)
		}
		c.Challenge.GoalKm = f
	}
	if v := os.Getenv("MOHERUN_SUPPLY_THRESHOLD_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Validationf("MOHERUN_SUPPLY_THRESHOLD_KM: %q is not a number", v)
		}
		c.Challenge.SupplyThresholdKm = f
	}
	if v := os.Getenv("MOHERUN_REFRESH_ENABLED"); v != "" {
		c.Refresh.Enabled = v == "true" || v == "1"
	}
	return nil
}

// Validate rejects settings the scoring and draw code cannot work with.
func (c *Config) Validate() error {
	ch := c.Challenge
	if ch.GoalKm <= 0 {
		return errors.Validation("challenge.goal_km must be positive")
	}
	if ch.SupplyThresholdKm <= 0 {
		return errors.Validation("challenge.supply_threshold_km must be positive")
	}
	if ch.StreakDays < 1 || ch.StreakDays > 7 {
		return errors.Validationf("challenge.streak_days must be between 1 and 7, got %d", ch.StreakDays)
	}
	if ch.StreakMultiplier < 1 || ch.TeamMultiplier < 1 {
		return errors.Validation("multipliers must be at least 1")
	}
	if ch.MaxWeeks < 1 {
		return errors.Validation("challenge.max_weeks must be at least 1")
	}
	if _, err := time.LoadLocation(ch.TimeZone); err != nil {
		return errors.Validationf("unknown time zone %q", ch.TimeZone)
	}
	if _, err := time.Parse(dateLayout, ch.StartDate); err != nil {
		return errors.Validationf("challenge.start_date must be YYYY-MM-DD, got %q", ch.StartDate)
	}
	if _, err := ParseWeekday(c.Draw.Day); err != nil {
		return err
	}
	if _, err := ParseWeekday(c.Draw.MakeupDay); err != nil {
		return err
	}
	if !validWindow(c.Draw.StartHour, c.Draw.EndHour) || !validWindow(c.Draw.MakeupStart, c.Draw.MakeupEnd) {
		return errors.Validation("draw windows need 0 <= start < end <= 24")
	}
	if len(c.Sheets.MediaTabs) == 0 {
		return errors.Validation("sheets.media_tabs needs at least one tab name")
	}
	return nil
}

func validWindow(start, end int) bool {
	return start >= 0 && start < end && end <= 24
}

// Location returns the challenge time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Challenge.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StartDate returns midnight of the first challenge day in the challenge time zone.
func (c *Config) StartDate() time.Time {
	loc := c.Location()
	t, err := time.ParseInLocation(dateLayout, c.Challenge.StartDate, loc)
	if err != nil {
		return time.Date(2025, time.December, 15, 0, 0, 0, 0, loc)
	}
	return t
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return time.Sunday, errors.Validationf("unknown weekday %q", s)
	}
	return d, nil
}
