// Package config reads the server configuration from the environment.
// Every knob has a default; the process runs with nothing set.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr string

	IntroDelay      time.Duration
	SelectionWindow time.Duration
	ResultsDelay    time.Duration
	ArtStyle        string

	IdleTimeout   time.Duration
	SweepInterval time.Duration

	VendorBaseURL  string
	VendorAPIKey   string
	VendorTimeout  time.Duration
	GenConcurrency int

	ArchiveDSN string
	LogLevel   string
}

func Load() Config {
	return Config{
		Addr:            env("ADDR", ":8080"),
		IntroDelay:      duration("INTRO_DELAY", 5*time.Second),
		SelectionWindow: duration("SELECTION_WINDOW", 35*time.Second),
		ResultsDelay:    duration("RESULTS_DELAY", 4*time.Second),
		ArtStyle:        env("ART_STYLE", "vivid cartoon"),
		IdleTimeout:     duration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SweepInterval:   duration("SWEEP_INTERVAL", time.Minute),
		VendorBaseURL:   env("IMAGE_API_URL", "https://api.example-images.dev"),
		VendorAPIKey:    os.Getenv("IMAGE_API_KEY"),
		VendorTimeout:   duration("IMAGE_API_TIMEOUT", 30*time.Second),
		GenConcurrency:  integer("IMAGE_CONCURRENCY", 2),
		ArchiveDSN:      os.Getenv("ARCHIVE_DSN"),
		LogLevel:        env("LOG_LEVEL", "info"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func integer(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
