package fetcher

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	progressRegex = regexp.MustCompile(`\[download\]\s+([\d.]+)%\s+of\s+~?\s*([\d.]+)(KiB|MiB|GiB|TiB|B)`)
	destRegex     = regexp.MustCompile(`\[download\] Destination: (.+)`)
	mergeRegex    = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`)
	alreadyRegex  = regexp.MustCompile(`\[download\] (.+) has already been downloaded`)
)

var sizeUnits = map[string]float64{
	"B":   1,
	"KiB": 1024,
	"MiB": 1024 * 1024,
	"GiB": 1024 * 1024 * 1024,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// parseProgressLine extracts (downloaded, total) byte counts from one yt-dlp
// progress line like "[download]  42.5% of ~ 10.00MiB at 1.2MiB/s ETA 00:05".
// Totals prefixed with ~ are estimates and treated the same as exact sizes.
func parseProgressLine(line string) (downloaded, total int64, ok bool) {
	m := progressRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	size, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	totalBytes := size * sizeUnits[m[3]]
	return int64(percent / 100 * totalBytes), int64(totalBytes), true
}

// parseDestination extracts the output path from destination, merger, and
// already-downloaded lines. Merger lines win since they name the final
// container after post-processing.
func parseDestination(line string) (path string, merged bool, ok bool) {
	if m := mergeRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true, true
	}
	if m := destRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), false, true
	}
	if m := alreadyRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), false, true
	}
	return "", false, false
}
