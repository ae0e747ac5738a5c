package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/scheduler"
)

// Config captures configuration values for the scheduler service.
type Config struct {
	HTTPPort  int
	LogLevel  string
	LogFormat string

	RoomsFile  string
	SlotsFile  string
	ArchiveDSN string
	SaveOnExit bool

	ConflictPolicy scheduler.Policy
	WindowStart    calendar.Date
	WindowEnd      calendar.Date
	DayStart       calendar.TimeOfDay
	DayEnd         calendar.TimeOfDay

	RateLimitPerSec float64
	RateLimitBurst  int
	ExportCacheTTL  time.Duration
}

// fileConfig mirrors the optional YAML file named by SCHEDULER_CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Port            string `yaml:"port"`
		RateLimitPerSec string `yaml:"rate_limit_per_sec"`
		RateLimitBurst  string `yaml:"rate_limit_burst"`
		ExportCacheTTL  string `yaml:"export_cache_ttl"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Storage struct {
		RoomsFile  string `yaml:"rooms_file"`
		SlotsFile  string `yaml:"slots_file"`
		ArchiveDSN string `yaml:"archive_dsn"`
		SaveOnExit string `yaml:"save_on_exit"`
	} `yaml:"storage"`
	Schedule struct {
		ConflictPolicy string `yaml:"conflict_policy"`
		WindowStart    string `yaml:"window_start"`
		WindowEnd      string `yaml:"window_end"`
		DayStart       string `yaml:"day_start"`
		DayEnd         string `yaml:"day_end"`
	} `yaml:"schedule"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		"SCHEDULER_HTTP_PORT":          f.Server.Port,
		"SCHEDULER_RATE_LIMIT_PER_SEC": f.Server.RateLimitPerSec,
		"SCHEDULER_RATE_LIMIT_BURST":   f.Server.RateLimitBurst,
		"SCHEDULER_EXPORT_CACHE_TTL":   f.Server.ExportCacheTTL,
		"SCHEDULER_LOG_LEVEL":          f.Log.Level,
		"SCHEDULER_LOG_FORMAT":         f.Log.Format,
		"SCHEDULER_ROOMS_FILE":         f.Storage.RoomsFile,
		"SCHEDULER_SLOTS_FILE":         f.Storage.SlotsFile,
		"SCHEDULER_ARCHIVE_DSN":        f.Storage.ArchiveDSN,
		"SCHEDULER_SAVE_ON_EXIT":       f.Storage.SaveOnExit,
		"SCHEDULER_CONFLICT_POLICY":    f.Schedule.ConflictPolicy,
		"SCHEDULER_WINDOW_START":       f.Schedule.WindowStart,
		"SCHEDULER_WINDOW_END":         f.Schedule.WindowEnd,
		"SCHEDULER_DAY_START":          f.Schedule.DayStart,
		"SCHEDULER_DAY_END":            f.Schedule.DayEnd,
	}
}

// Load parses configuration values from the optional YAML file named by
// SCHEDULER_CONFIG_FILE and the current process environment. Environment
// variables take precedence over file entries.
//
// The loader applies sensible defaults for optional fields and reports every
// invalid entry at once with a localized error message.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		LogLevel:        "info",
		LogFormat:       "json",
		ConflictPolicy:  scheduler.PolicySameRoom,
		DayStart:        calendar.MustTimeOfDay(8, 0),
		DayEnd:          calendar.MustTimeOfDay(20, 0),
		RateLimitPerSec: 20,
		RateLimitBurst:  40,
		ExportCacheTTL:  30 * time.Second,
	}

	fileValues := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("SCHEDULER_CONFIG_FILE")); path != "" {
		parsed, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		fileValues = parsed.values()
	}
	lookup := func(key string) string {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
		return strings.TrimSpace(fileValues[key])
	}

	invalid := make([]string, 0, 4)

	if portValue := lookup("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if level := lookup("SCHEDULER_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		}
	}

	if format := lookup("SCHEDULER_LOG_FORMAT"); format != "" {
		switch strings.ToLower(format) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(format)
		default:
			invalid = append(invalid, "SCHEDULER_LOG_FORMAT")
		}
	}

	cfg.RoomsFile = lookup("SCHEDULER_ROOMS_FILE")
	cfg.SlotsFile = lookup("SCHEDULER_SLOTS_FILE")
	cfg.ArchiveDSN = lookup("SCHEDULER_ARCHIVE_DSN")

	if saveValue := lookup("SCHEDULER_SAVE_ON_EXIT"); saveValue != "" {
		save, err := strconv.ParseBool(saveValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_SAVE_ON_EXIT")
		} else {
			cfg.SaveOnExit = save
		}
	}

	if policyValue := lookup("SCHEDULER_CONFLICT_POLICY"); policyValue != "" {
		policy, ok := scheduler.ParsePolicy(strings.ToLower(policyValue))
		if !ok {
			invalid = append(invalid, "SCHEDULER_CONFLICT_POLICY")
		} else {
			cfg.ConflictPolicy = policy
		}
	}

	for key, target := range map[string]*calendar.Date{
		"SCHEDULER_WINDOW_START": &cfg.WindowStart,
		"SCHEDULER_WINDOW_END":   &cfg.WindowEnd,
	} {
		if value := lookup(key); value != "" {
			date, err := calendar.ParseDate(value)
			if err != nil {
				invalid = append(invalid, key)
				continue
			}
			*target = date
		}
	}
	if !cfg.WindowStart.IsZero() && !cfg.WindowEnd.IsZero() && cfg.WindowEnd.Before(cfg.WindowStart) {
		invalid = append(invalid, "SCHEDULER_WINDOW_END")
	}

	for key, target := range map[string]*calendar.TimeOfDay{
		"SCHEDULER_DAY_START": &cfg.DayStart,
		"SCHEDULER_DAY_END":   &cfg.DayEnd,
	} {
		if value := lookup(key); value != "" {
			tod, err := calendar.ParseTimeOfDay(value)
			if err != nil {
				invalid = append(invalid, key)
				continue
			}
			*target = tod
		}
	}
	if cfg.DayEnd <= cfg.DayStart {
		invalid = append(invalid, "SCHEDULER_DAY_END")
	}

	if rateValue := lookup("SCHEDULER_RATE_LIMIT_PER_SEC"); rateValue != "" {
		rate, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || rate < 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT_PER_SEC")
		} else {
			cfg.RateLimitPerSec = rate
		}
	}

	if burstValue := lookup("SCHEDULER_RATE_LIMIT_BURST"); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if ttlValue := lookup("SCHEDULER_EXPORT_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "SCHEDULER_EXPORT_CACHE_TTL")
		} else {
			cfg.ExportCacheTTL = ttl
		}
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルを開けません: %w", err)
	}
	defer f.Close()

	var parsed fileConfig
	if err := yaml.NewDecoder(f).Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}
	return parsed, nil
}
