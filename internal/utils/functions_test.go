package utils

import (
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "My Video", "My Video"},
		{"punctuation stripped", "My/Video: Test?", "MyVideo Test"},
		{"traversal stripped", "../../etc/passwd", "etcpasswd"},
		{"trailing space trimmed", "Title!!! ", "Title"},
		{"keeps hyphen underscore", "a-b_c 1", "a-b_c 1"},
		{"empty falls back", "///???", DefaultTitle},
		{"unicode stripped", "日本語タイトル", DefaultTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTitle(tt.title)
			if got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
			if strings.ContainsAny(got, `/\:?*"<>|`) {
				t.Errorf("SanitizeTitle(%q) = %q contains unsafe characters", tt.title, got)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{10 * 1024 * 1024, "10.00 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatSizeMB(t *testing.T) {
	if got := FormatSizeMB(0); got != "Unknown" {
		t.Errorf("FormatSizeMB(0) = %q, want Unknown", got)
	}
	if got := FormatSizeMB(5 * 1024 * 1024); got != "5.00 MB" {
		t.Errorf("FormatSizeMB = %q, want 5.00 MB", got)
	}
}

func TestFormatBitrate(t *testing.T) {
	if got := FormatBitrate(0); got != "N/A" {
		t.Errorf("FormatBitrate(0) = %q, want N/A", got)
	}
	if got := FormatBitrate(129.5); got != "130 kbps" {
		t.Errorf("FormatBitrate = %q, want 130 kbps", got)
	}
}

func TestToMB(t *testing.T) {
	if got := ToMB(1024 * 1024); got != 1.0 {
		t.Errorf("ToMB(1MiB) = %v, want 1.0", got)
	}
	if got := ToMB(-5); got != 0 {
		t.Errorf("ToMB(-5) = %v, want 0", got)
	}
}
