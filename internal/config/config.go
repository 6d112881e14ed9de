// Package config defines the process configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Bounds of the matching tolerance in minutes.
const (
	MinAllowedMinutes = 1
	MaxAllowedMinutes = 60
	DefaultMaxMinutes = 30
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr is the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// MaxBodyBytes caps the size of POST /analyses bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxMinutes is the default matching tolerance.
	MaxMinutes int `koanf:"max_minutes"`
	// WorkerCount sets the number of analysis workers per run.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the number of comparison datasets per run.
	QueueSize int `koanf:"queue_size"`

	// Input format of crossing logs.
	TimeLayout       string `koanf:"time_layout"`
	TimeZone         string `koanf:"time_zone"`
	EntryLabel       string `koanf:"entry_label"`
	ExitLabel        string `koanf:"exit_label"`
	ColumnTime       string `koanf:"column_time"`
	ColumnPerson     string `koanf:"column_person"`
	ColumnDirection  string `koanf:"column_direction"`
	ColumnCheckpoint string `koanf:"column_checkpoint"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		MaxBodyBytes:     32 << 20,
		ShutdownTimeout:  30 * time.Second,
		MaxMinutes:       DefaultMaxMinutes,
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        256,
		TimeLayout:       "02.01.2006 15:04",
		TimeZone:         "Local",
		EntryLabel:       "Giriş",
		ExitLabel:        "Çıxış",
		ColumnTime:       "Keçid zamanı",
		ColumnPerson:     "Soyadı, Adı (Lat)",
		ColumnDirection:  "İstiqamət",
		ColumnCheckpoint: "Sərhəd nəzarət məntəqəsi",
	}
}

// ValidMaxMinutes reports whether m is an accepted tolerance.
func ValidMaxMinutes(m int) bool {
	return m >= MinAllowedMinutes && m <= MaxAllowedMinutes
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	switch c.TimeZone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.TimeZone)
	}
}

// Validate checks value ranges and required strings.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr must not be empty")
	}
	if !ValidMaxMinutes(c.MaxMinutes) {
		problems = append(problems, fmt.Sprintf("max_minutes must be between %d and %d", MinAllowedMinutes, MaxAllowedMinutes))
	}
	if c.QueueSize < 1 {
		problems = append(problems, "queue_size must be positive")
	}
	if c.MaxBodyBytes < 1 {
		problems = append(problems, "max_body_bytes must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		problems = append(problems, "log_format must be text or json")
	}
	for key, val := range map[string]string{
		"time_layout":       c.TimeLayout,
		"entry_label":       c.EntryLabel,
		"exit_label":        c.ExitLabel,
		"column_time":       c.ColumnTime,
		"column_person":     c.ColumnPerson,
		"column_direction":  c.ColumnDirection,
		"column_checkpoint": c.ColumnCheckpoint,
	} {
		if strings.TrimSpace(val) == "" {
			problems = append(problems, key+" must not be empty")
		}
	}
	if strings.EqualFold(c.EntryLabel, c.ExitLabel) {
		problems = append(problems, "entry_label and exit_label must differ")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, "time_zone: "+err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}
