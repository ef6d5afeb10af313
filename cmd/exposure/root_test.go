package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/exposure/pkg/config"
)

// flagCommand returns a command carrying the root persistent flags, bound to the
// package globals, with the given flags set.
func flagCommand(t *testing.T, set map[string]string) *cobra.Command {
	t.Helper()
	oldDir, oldURL, oldEnv, oldDebug := directory, directoryURL, envFile, debug
	t.Cleanup(func() { directory, directoryURL, envFile, debug = oldDir, oldURL, oldEnv, oldDebug })
	directory, directoryURL, envFile, debug = "", "", "", false

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&directory, "directory", "", "")
	cmd.Flags().StringVar(&directoryURL, "directory-url", "", "")
	cmd.Flags().BoolVar(&debug, "debug", false, "")
	for k, v := range set {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	return cmd
}

func TestLoadConfigFlagsSettleDirectoryConflict(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDirectory, "env.yaml")
	t.Setenv(config.EnvDirectoryURL, "https://example.com/env.yaml")

	tests := []struct {
		name    string
		flags   map[string]string
		wantDir string
		wantURL string
		wantErr bool
	}{
		{name: "no flags", wantErr: true},
		{name: "directory flag", flags: map[string]string{"directory": "flag.yaml"}, wantDir: "flag.yaml"},
		{name: "url flag", flags: map[string]string{"directory-url": "https://example.com/flag.yaml"}, wantURL: "https://example.com/flag.yaml"},
		{name: "both flags", flags: map[string]string{"directory": "a.yaml", "directory-url": "https://b"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(flagCommand(t, tt.flags))
			if tt.wantErr {
				if !errors.Is(err, config.ErrInvalid) {
					t.Fatalf("loadConfig() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig() failed: %v", err)
			}
			if cfg.Directory != tt.wantDir || cfg.DirectoryURL != tt.wantURL {
				t.Errorf("loadConfig() = {%q, %q}, want {%q, %q}", cfg.Directory, cfg.DirectoryURL, tt.wantDir, tt.wantURL)
			}
		})
	}
}
