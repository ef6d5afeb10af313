// Package config loads process configuration from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeGROOVE-dev/exposure/pkg/confidence"
)

// ErrInvalid is returned for values that do not parse or are out of range.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables.
const (
	EnvAddr         = "EXPOSURE_ADDR"
	EnvDirectory    = "EXPOSURE_DIRECTORY"
	EnvDirectoryURL = "EXPOSURE_DIRECTORY_URL"
	EnvCacheDir     = "EXPOSURE_CACHE_DIR"
	EnvCacheTTL     = "EXPOSURE_CACHE_TTL"
	EnvConcurrency  = "EXPOSURE_CONCURRENCY"
	EnvAutoProceed  = "EXPOSURE_AUTO_PROCEED"
	EnvManualReview = "EXPOSURE_MANUAL_REVIEW"
	EnvReject       = "EXPOSURE_REJECT"
	EnvMinFactors   = "EXPOSURE_MIN_FACTORS"
	EnvDebug        = "EXPOSURE_DEBUG"
)

const (
	defaultAddr       = ":8080"
	defaultCacheTTL   = 24 * time.Hour
	defaultWorkers    = 8
	defaultDotenvPath = ".env"
)

// Config is the process configuration.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Config struct {
	Addr         string
	Directory    string // YAML directory file; empty uses the built-in directory
	DirectoryURL string // YAML directory fetched over HTTP
	CacheDir     string // Fetched documents are cached here; empty uses the user cache directory
	CacheTTL     time.Duration
	Concurrency  int
	Thresholds   confidence.Thresholds
	Debug        bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr:        defaultAddr,
		CacheTTL:    defaultCacheTTL,
		Concurrency: defaultWorkers,
		Thresholds:  confidence.DefaultThresholds(),
	}
}

// Load is Read followed by Validate.
func Load(files ...string) (*Config, error) {
	c, err := Read(files...)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read reads the given .env files, or ./.env when none are given, then the
// process environment. Process variables win over file values. A missing
// ./.env is not an error; a missing named file is. Values are parsed but not
// validated, so callers can apply overrides before calling Validate.
func Read(files ...string) (*Config, error) {
	named := len(files) > 0
	if !named {
		files = []string{defaultDotenvPath}
	}
	fileEnv, err := godotenv.Read(files...)
	if err != nil {
		if named || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		fileEnv = map[string]string{}
	}

	return parse(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	})
}

// FromLookup builds and validates a Config from a variable lookup function such as os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c, err := parse(lookup)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parse(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvAddr); ok {
		c.Addr = v
	}
	if v, ok := get(EnvDirectory); ok {
		c.Directory = v
	}
	if v, ok := get(EnvDirectoryURL); ok {
		c.DirectoryURL = v
	}
	if v, ok := get(EnvCacheDir); ok {
		c.CacheDir = v
	}
	if v, ok := get(EnvCacheTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvCacheTTL, v, err)
		}
		c.CacheTTL = d
	}
	if v, ok := get(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvDebug, v, err)
		}
		c.Debug = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvConcurrency, &c.Concurrency},
		{EnvAutoProceed, &c.Thresholds.AutoProceed},
		{EnvManualReview, &c.Thresholds.ManualReview},
		{EnvReject, &c.Thresholds.Reject},
		{EnvMinFactors, &c.Thresholds.MinFactors},
	}
	for _, i := range ints {
		v, ok := get(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, i.key, v)
		}
		*i.dst = n
	}
	return c, nil
}

// Validate checks values that cannot be checked while parsing.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency %d must be at least 1", ErrInvalid, c.Concurrency)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache TTL %s is negative", ErrInvalid, c.CacheTTL)
	}
	if c.Directory != "" && c.DirectoryURL != "" {
		return fmt.Errorf("%w: set only one of %s and %s", ErrInvalid, EnvDirectory, EnvDirectoryURL)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
