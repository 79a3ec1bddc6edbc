package utils

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// SanitizeTitle reduces a media title to a filesystem-safe name. Only
// alphanumerics, spaces, hyphens and underscores survive; everything else
// (path separators included) is dropped, so the result can never traverse
// out of the downloads directory. An empty result falls back to DefaultTitle.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRight(b.String(), " ")
	if safe == "" {
		return DefaultTitle
	}
	return safe
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSizeMB renders a byte count the way the formats listing shows it.
func FormatSizeMB(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// FormatBitrate renders an average bitrate for format listings; extractors
// that report no abr get "N/A" rather than a bogus zero.
func FormatBitrate(abr float64) string {
	if abr <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f kbps", abr)
}

// ToMB converts bytes to megabytes rounded to two decimals for progress reports.
func ToMB(bytes int64) float64 {
	if bytes <= 0 {
		return 0
	}
	return float64(int64(float64(bytes)/1024/1024*100)) / 100
}

func CleanLocal(downloadsDir string) error {
	for _, dir := range []string{TempDirName, downloadsDir} {
		if dir == "" {
			continue
		}
		_, err := os.Stat(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}
