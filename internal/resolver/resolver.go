package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/manvithgkacharya/yt-download/internal/utils"
)

const DefaultResolveTimeout = 60 * time.Second

// VideoFormat is one downloadable video variant.
type VideoFormat struct {
	ID         string `json:"id"`
	Resolution string `json:"res"`
	Size       string `json:"size"`
	Ext        string `json:"ext"`
}

// AudioFormat is one downloadable audio-only variant.
type AudioFormat struct {
	ID      string `json:"id"`
	Bitrate string `json:"bitrate"`
	Size    string `json:"size"`
	Ext     string `json:"ext"`
}

// MediaInfo is the metadata listing for one URL.
type MediaInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  int           `json:"duration"`
	Videos    []VideoFormat `json:"videos"`
	Audios    []AudioFormat `json:"audios"`
}

// Resolver extracts media metadata by running yt-dlp in dump-json mode.
type Resolver struct {
	ytdlpPath string
	timeout   time.Duration
	rotateUA  bool
}

func New(timeout time.Duration, rotateUA bool) (*Resolver, error) {
	ytdlpPath, err := utils.EnsureYtdlp()
	if err != nil {
		return nil, fmt.Errorf("error ensuring yt-dlp: %v", err)
	}
	if timeout == 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{ytdlpPath: ytdlpPath, timeout: timeout, rotateUA: rotateUA}, nil
}

// Resolve fetches the metadata listing for url. Any extraction failure is a
// single opaque error; callers treat it as a request-level failure.
func (r *Resolver) Resolve(ctx context.Context, url string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-J", "--no-playlist", "--no-warnings"}
	if r.rotateUA {
		args = append(args, "--user-agent", utils.GetRandomUserAgent())
	}
	args = append(args, url)
	cmd := exec.CommandContext(ctx, r.ytdlpPath, args...)
	log.Debug().Str("op", "resolver/resolve").Msgf("Executing yt-dlp command: %s", cmd.String())

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("yt-dlp extraction failed: %s", lastLine(exitErr.Stderr))
		}
		return nil, fmt.Errorf("yt-dlp extraction failed: %v", err)
	}
	info, err := parseInfo(out)
	if err != nil {
		return nil, err
	}
	log.Info().Str("op", "resolver/resolve").Msgf("Resolved %q with %d video and %d audio formats", info.Title, len(info.Videos), len(info.Audios))
	return info, nil
}

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Vcodec         string  `json:"vcodec"`
	Acodec         string  `json:"acodec"`
	Resolution     string  `json:"resolution"`
	Height         int     `json:"height"`
	Abr            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

type ytdlpInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Formats   []ytdlpFormat `json:"formats"`
}

// parseInfo splits the yt-dlp format dump into mp4 video variants and
// audio-only variants, mirroring what the format picker presents.
func parseInfo(data []byte) (*MediaInfo, error) {
	var raw ytdlpInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing yt-dlp output: %v", err)
	}
	info := &MediaInfo{
		Title:     raw.Title,
		Thumbnail: raw.Thumbnail,
		Duration:  int(raw.Duration),
		Videos:    []VideoFormat{},
		Audios:    []AudioFormat{},
	}
	for _, f := range raw.Formats {
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}
		switch {
		case f.Vcodec != "none" && f.Vcodec != "" && f.Ext == "mp4":
			res := f.Resolution
			if res == "" {
				if f.Height > 0 {
					res = strconv.Itoa(f.Height)
				} else {
					res = "N/A"
				}
			}
			info.Videos = append(info.Videos, VideoFormat{
				ID:         f.FormatID,
				Resolution: res,
				Size:       utils.FormatSizeMB(size),
				Ext:        f.Ext,
			})
		case f.Vcodec == "none" && f.Acodec != "none" && f.Acodec != "":
			info.Audios = append(info.Audios, AudioFormat{
				ID:      f.FormatID,
				Bitrate: utils.FormatBitrate(f.Abr),
				Size:    utils.FormatSizeMB(size),
				Ext:     f.Ext,
			})
		}
	}
	return info, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
