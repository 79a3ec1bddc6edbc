package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/manvithgkacharya/yt-download/internal/utils"
	"github.com/rs/zerolog/log"
)

// Request describes one fetch operation. OnProgress is invoked from the
// reader goroutine for every progress line yt-dlp prints; it must be fast
// and must not block.
type Request struct {
	URL            string
	Selector       string
	OutputTemplate string
	MergeFormat    string
	OnProgress     func(downloaded, total int64)
}

// Fetcher runs yt-dlp as a subprocess and translates its line output into
// progress callbacks and a final artifact path.
type Fetcher struct {
	ytdlpPath  string
	ffmpegPath string
	rotateUA   bool
}

func New(rotateUA bool) (*Fetcher, error) {
	ytdlpPath, err := utils.EnsureYtdlp()
	if err != nil {
		return nil, fmt.Errorf("error ensuring yt-dlp: %v", err)
	}
	// ffmpeg is only required for merged downloads; missing ffmpeg surfaces
	// when a merge is actually requested
	ffmpegPath, _ := utils.EnsureFFmpeg()
	return &Fetcher{ytdlpPath: ytdlpPath, ffmpegPath: ffmpegPath, rotateUA: rotateUA}, nil
}

// Fetch downloads one media stream to the request's output template and
// returns the path of the produced artifact. The error, if any, carries the
// last line yt-dlp wrote to stderr.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (string, error) {
	args := []string{
		"--progress",
		"--newline",
		"--no-warnings",
		"-f", req.Selector,
		"-o", req.OutputTemplate,
		"--no-playlist",
	}
	if req.MergeFormat != "" {
		if f.ffmpegPath == "" {
			return "", fmt.Errorf("ffmpeg not available, cannot merge into %s", req.MergeFormat)
		}
		args = append(args, "--merge-output-format", req.MergeFormat, "--ffmpeg-location", f.ffmpegPath)
	}
	if f.rotateUA {
		args = append(args, "--user-agent", utils.GetRandomUserAgent())
	}
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, f.ytdlpPath, args...)
	log.Debug().Str("op", "fetcher/fetch").Msgf("Executing yt-dlp command: %s", cmd.String())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("error creating stdout pipe: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("error creating stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("error starting yt-dlp: %v", err)
	}

	var mu sync.Mutex
	var dest string
	var destMerged bool
	var lastErrLine string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processStream(stdout, func(line string) {
			if downloaded, total, ok := parseProgressLine(line); ok {
				if req.OnProgress != nil {
					req.OnProgress(downloaded, total)
				}
				return
			}
			if path, merged, ok := parseDestination(line); ok {
				mu.Lock()
				if merged || !destMerged {
					dest = path
					destMerged = merged
				}
				mu.Unlock()
			}
		})
	}()
	go func() {
		defer wg.Done()
		processStream(stderr, func(line string) {
			mu.Lock()
			lastErrLine = line
			mu.Unlock()
		})
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		mu.Lock()
		detail := lastErrLine
		mu.Unlock()
		if detail != "" {
			return "", fmt.Errorf("yt-dlp failed: %s", detail)
		}
		return "", fmt.Errorf("yt-dlp failed: %v", err)
	}
	if dest == "" {
		dest = newestMatch(req.OutputTemplate)
	}
	if dest == "" {
		return "", fmt.Errorf("yt-dlp finished but produced no identifiable output for %s", req.URL)
	}
	log.Info().Str("op", "fetcher/fetch").Msgf("yt-dlp download completed for %s", req.URL)
	return dest, nil
}

func processStream(reader io.Reader, lineFunc func(string)) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && lineFunc != nil {
			lineFunc(line)
		}
	}
}

// newestMatch falls back to scanning the template's directory for the most
// recently modified file sharing the template's literal prefix. Covers
// yt-dlp versions that skip the destination line on cached fragments.
func newestMatch(template string) string {
	dir := filepath.Dir(template)
	prefix := filepath.Base(template)
	if i := strings.Index(prefix, "%("); i >= 0 {
		prefix = prefix[:i]
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = filepath.Join(dir, entry.Name())
			newestMod = mod
		}
	}
	return newest
}
