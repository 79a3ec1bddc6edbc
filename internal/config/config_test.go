package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.DownloadsDir != "downloads" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxJobs != 0 || cfg.Retention != 0 {
		t.Fatalf("limits should default to unbounded: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "listen: \":9090\"\ndownloads_dir: media\nresolve_timeout: 30s\nmax_jobs: 4\nretention: 1h\nrandomize_user_agent: true\ndebug: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.DownloadsDir != "media" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ResolveTimeout.Std() != 30*time.Second || cfg.Retention.Std() != time.Hour {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.MaxJobs != 4 || !cfg.RandomizeUA || !cfg.Debug {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative max_jobs", "max_jobs: -1\n"},
		{"negative retention", "retention: -5m\n"},
		{"empty listen", "listen: \"\"\n"},
		{"bad yaml", "listen: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
