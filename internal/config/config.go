// Package config reads process settings from the environment and the catalog seed file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"print-scheduler/internal/models"
)

// Config holds everything cmd/scheduler needs to wire the service.
// Flags override the environment values.
type Config struct {
	Addr            string
	Timezone        string
	HorizonDays     int
	MinSegment      time.Duration
	DBDriver        string
	DBDSN           string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisStream     string
	RedisMaxLen     int64
	RescanCron      string
	SeedFile        string
	IntakePerMinute int
	RequestLog      bool
}

// FromEnv reads SCHEDULER_* variables with defaults for a local SQLite setup
func FromEnv() Config {
	return Config{
		Addr:            getenv("SCHEDULER_ADDR", ":8080"),
		Timezone:        getenv("SCHEDULER_TIMEZONE", "UTC"),
		HorizonDays:     getenvInt("SCHEDULER_HORIZON_DAYS", 90),
		MinSegment:      getenvDuration("SCHEDULER_MIN_SEGMENT", 30*time.Minute),
		DBDriver:        getenv("SCHEDULER_DB_DRIVER", "sqlite3"),
		DBDSN:           getenv("SCHEDULER_DB_DSN", "schedule.db"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getenvInt("REDIS_DB", 0),
		RedisStream:     getenv("SCHEDULER_STREAM", "schedule:changes"),
		RedisMaxLen:     int64(getenvInt("SCHEDULER_STREAM_MAXLEN", 10000)),
		RescanCron:      getenv("SCHEDULER_RESCAN_CRON", "*/15 * * * *"),
		SeedFile:        os.Getenv("SCHEDULER_SEED_FILE"),
		IntakePerMinute: getenvInt("SCHEDULER_INTAKE_PER_MINUTE", 60),
		RequestLog:      getenvBool("SCHEDULER_REQUEST_LOG", true),
	}
}

// Location resolves Timezone
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func (c Config) Validate() error {
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon days must be positive, got %d", c.HorizonDays)
	}
	if c.MinSegment < 0 {
		return fmt.Errorf("min segment must not be negative, got %s", c.MinSegment)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Seed is the initial catalog: business hours, roster, machines and backlog
type Seed struct {
	BusinessHours models.BusinessHoursConfig `json:"business_hours"`
	Staff         []models.StaffMember       `json:"staff"`
	Machines      []models.Machine           `json:"machines"`
	Jobs          []models.Job               `json:"jobs"`
}

// LoadSeed reads a JSON seed file. An empty path yields a Mon-Fri 08:00-17:00 calendar
// with nothing else.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{BusinessHours: models.StandardWeek("08:00", "17:00")}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(seed.BusinessHours.Days) == 0 {
		seed.BusinessHours.Days = models.StandardWeek("08:00", "17:00").Days
	}
	for i := range seed.Machines {
		if seed.Machines[i].Status == "" {
			seed.Machines[i].Status = models.MachineOperational
		}
	}
	for i := range seed.Jobs {
		if seed.Jobs[i].Status == "" {
			seed.Jobs[i].Status = models.StatusPending
		}
	}
	return seed, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}
