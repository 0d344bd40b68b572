package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

type Config struct {
	Ledger     LedgerConfig
	Gallery    GalleryConfig
	Database   DatabaseConfig
	MariaDB    MariaDBConfig
	Attendance AttendanceConfig
	Web        WebConfig
	LogMode    string // dev, prod or quiet
}

type LedgerConfig struct {
	Backend string // csv, postgres or mariadb
	Path    string // CSV ledger path (csv backend only)
}

type GalleryConfig struct {
	Source string // file or postgres
	Path   string // YAML gallery path (file source only)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. attendance:attendance@tcp(mariadb:3306)/attendance?parseTime=true
}

type AttendanceConfig struct {
	MatchThreshold   float64
	AutoMarkInterval time.Duration
	StatsWindowDays  int
	TimeZone         string // IANA name, empty means local time
}

// Location resolves the configured time zone. Calendar dates of attendance
// events are derived in this location.
func (c *AttendanceConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

type WebConfig struct {
	Port           int
	Host           string
	SessionSecret  string
	AdminUsername  string
	AdminPassword  string
	ViewerUsername string
	ViewerPassword string
	AllowedOrigins []string // Extra CORS origins besides localhost
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go durations ("3s") or plain seconds ("3").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Backend: strings.ToLower(envString("LEDGER_BACKEND", "csv")),
			Path:    envString("LEDGER_PATH", constants.DefaultLedgerPath),
		},
		Gallery: GalleryConfig{
			Source: strings.ToLower(envString("GALLERY_SOURCE", "file")),
			Path:   envString("GALLERY_PATH", constants.DefaultGalleryPath),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Attendance: AttendanceConfig{
			MatchThreshold:   envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			AutoMarkInterval: envDuration("AUTO_MARK_INTERVAL", constants.DefaultAutoMarkInterval),
			StatsWindowDays:  envInt("STATS_WINDOW_DAYS", constants.DefaultStatsWindowDays),
			TimeZone:         os.Getenv("ATTENDANCE_TIMEZONE"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AdminUsername:  envString("WEB_ADMIN_USERNAME", "admin"),
			AdminPassword:  os.Getenv("WEB_ADMIN_PASSWORD"),
			ViewerUsername: os.Getenv("WEB_VIEWER_USERNAME"),
			ViewerPassword: os.Getenv("WEB_VIEWER_PASSWORD"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		LogMode: envString("LOG_MODE", "dev"),
	}
}
