package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/exposure/pkg/confidence"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromLookup(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults",
			env:  nil,
			want: Default(),
		},
		{
			name: "everything set",
			env: map[string]string{
				EnvAddr:         "127.0.0.1:9000",
				EnvDirectory:    "/etc/exposure/directory.yaml",
				EnvCacheDir:     "/var/cache/exposure",
				EnvCacheTTL:     "90m",
				EnvConcurrency:  "4",
				EnvAutoProceed:  "85",
				EnvManualReview: "55",
				EnvReject:       "40",
				EnvMinFactors:   "3",
				EnvDebug:        "true",
			},
			want: &Config{
				Addr:        "127.0.0.1:9000",
				Directory:   "/etc/exposure/directory.yaml",
				CacheDir:    "/var/cache/exposure",
				CacheTTL:    90 * time.Minute,
				Concurrency: 4,
				Thresholds:  confidence.Thresholds{AutoProceed: 85, ManualReview: 55, Reject: 40, MinFactors: 3},
				Debug:       true,
			},
		},
		{
			name: "blank values keep defaults",
			env:  map[string]string{EnvAddr: "  ", EnvConcurrency: ""},
			want: Default(),
		},
		{name: "bad integer", env: map[string]string{EnvConcurrency: "many"}, wantErr: true},
		{name: "bad duration", env: map[string]string{EnvCacheTTL: "1 day"}, wantErr: true},
		{name: "bad bool", env: map[string]string{EnvDebug: "sometimes"}, wantErr: true},
		{name: "zero concurrency", env: map[string]string{EnvConcurrency: "0"}, wantErr: true},
		{name: "unordered thresholds", env: map[string]string{EnvReject: "90"}, wantErr: true},
		{
			name:    "two directories",
			env:     map[string]string{EnvDirectory: "a.yaml", EnvDirectoryURL: "https://example.com/a.yaml"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromLookup(lookupFrom(tt.env))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("FromLookup() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromLookup() failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromLookup() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	body := "EXPOSURE_ADDR=:9999\nEXPOSURE_CONCURRENCY=3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConcurrency, "5")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if c.Addr != ":9999" {
		t.Errorf("Addr = %q, want value from file", c.Addr)
	}
	if c.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5 from the environment", c.Concurrency)
	}
	if os.Getenv(EnvAddr) != "" {
		t.Error("Load() leaked file values into the process environment")
	}
}

func TestLoadMissingFiles(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}

	t.Chdir(t.TempDir())
	if _, err := Load(); err != nil {
		t.Errorf("Load() without ./.env failed: %v", err)
	}
}

func TestReadDefersValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvDirectory, "dir.yaml")
	t.Setenv(EnvDirectoryURL, "https://example.com/dir.yaml")

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}

	c, err := Read()
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if c.Directory != "dir.yaml" || c.DirectoryURL != "https://example.com/dir.yaml" {
		t.Errorf("Read() = %+v, want both directory settings", c)
	}
	c.DirectoryURL = ""
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() after resolving the conflict: %v", err)
	}

	t.Setenv(EnvConcurrency, "many")
	if _, err := Read(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Read() error = %v, want ErrInvalid for a non-integer", err)
	}
}
