package manager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/manvithgkacharya/yt-download/internal/fetcher"
	"github.com/manvithgkacharya/yt-download/internal/progress"
	"github.com/manvithgkacharya/yt-download/internal/resolver"
	"github.com/manvithgkacharya/yt-download/internal/utils"
	"github.com/rs/zerolog/log"
)

var ErrMissingURL = errors.New("url is required")
var ErrMissingFormat = errors.New("format_id is required")

// MetadataResolver is the format-resolution collaborator.
type MetadataResolver interface {
	Resolve(ctx context.Context, url string) (*resolver.MediaInfo, error)
}

// MediaFetcher is the download collaborator. Fetch blocks until the download
// reaches a terminal state and returns the artifact path.
type MediaFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) (string, error)
}

// Manager creates download jobs and launches one runner goroutine per job.
// Runners communicate only through the progress store; nothing is ever
// thrown back at the request that started a job.
type Manager struct {
	store        *progress.Store
	resolver     MetadataResolver
	fetcher      MediaFetcher
	downloadsDir string
	maxJobs      int
	active       atomic.Int64
}

func New(store *progress.Store, res MetadataResolver, fet MediaFetcher, downloadsDir string, maxJobs int) *Manager {
	return &Manager{
		store:        store,
		resolver:     res,
		fetcher:      fet,
		downloadsDir: downloadsDir,
		maxJobs:      maxJobs,
	}
}

// Start validates the request, resolves the title, creates the job entry and
// fires off the runner. It returns as soon as the job is registered; callers
// poll for everything after that.
func (m *Manager) Start(ctx context.Context, mediaURL, formatID string) (jobID, title string, err error) {
	if strings.TrimSpace(mediaURL) == "" {
		return "", "", ErrMissingURL
	}
	if strings.TrimSpace(formatID) == "" {
		return "", "", ErrMissingFormat
	}
	if !m.reserveSlot() {
		return "", "", utils.ErrJobLimitReached
	}
	defer func() {
		if err != nil {
			m.active.Add(-1)
		}
	}()

	info, err := m.resolver.Resolve(ctx, mediaURL)
	if err != nil {
		return "", "", fmt.Errorf("error resolving metadata: %v", err)
	}
	safeTitle := utils.SanitizeTitle(info.Title)
	if err := os.MkdirAll(m.downloadsDir, 0755); err != nil {
		return "", "", fmt.Errorf("error creating downloads directory: %v", err)
	}
	template := filepath.Join(m.downloadsDir, safeTitle+"-%(format_id)s.%(ext)s")

	jobID = uuid.NewString()
	if err := m.store.Create(jobID); err != nil {
		return "", "", err
	}
	go m.run(jobID, mediaURL, formatID, template)
	log.Info().Str("op", "manager/start").Str("job", jobID).Msgf("Launched download of %q (format %s)", info.Title, formatID)
	return jobID, info.Title, nil
}

// reserveSlot claims a runner slot before any blocking work happens, so a
// burst of simultaneous requests cannot slip past the cap while an earlier
// request is still resolving. The slot is held until the runner exits, or
// returned by Start when the request fails before a runner launches.
func (m *Manager) reserveSlot() bool {
	if m.maxJobs <= 0 {
		m.active.Add(1)
		return true
	}
	for {
		n := m.active.Load()
		if n >= int64(m.maxJobs) {
			return false
		}
		if m.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Progress returns a snapshot of the job's state; unknown ids report the
// unknown sentinel status.
func (m *Manager) Progress(jobID string) progress.JobState {
	state, _ := m.store.Get(jobID)
	return state
}

// ActiveJobs reports the number of runners currently alive.
func (m *Manager) ActiveJobs() int {
	return int(m.active.Load())
}

// run drives one job to a terminal state. Runners outlive the request that
// started them, so they carry their own background context.
func (m *Manager) run(jobID, mediaURL, formatID, template string) {
	defer m.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("op", "manager/run").Str("job", jobID).Msgf("Runner panic: %v", r)
			m.store.SetFailed(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	selector, mergeFormat := BuildSelector(formatID)
	req := fetcher.Request{
		URL:            mediaURL,
		Selector:       selector,
		OutputTemplate: template,
		MergeFormat:    mergeFormat,
		OnProgress: func(downloaded, total int64) {
			m.store.SetDownloading(jobID, percentOf(downloaded, total), utils.ToMB(downloaded), utils.ToMB(total))
		},
	}
	dest, err := m.fetcher.Fetch(context.Background(), req)
	if err != nil {
		log.Error().Str("op", "manager/run").Str("job", jobID).Err(err).Msg("Download failed")
		m.store.SetFailed(jobID, err.Error())
		return
	}
	filename := url.PathEscape(filepath.Base(dest))
	m.store.SetFinished(jobID, filename)
	log.Info().Str("op", "manager/run").Str("job", jobID).Msgf("Download finished: %s", filename)
}

// BuildSelector maps a chosen format id to the yt-dlp selector and merge
// container. Audio-only ids (by naming convention, "audio" prefix) fetch as
// is; video ids get paired with the best available audio and merged to mp4.
func BuildSelector(formatID string) (selector, mergeFormat string) {
	if strings.HasPrefix(formatID, "audio") {
		return formatID, ""
	}
	return formatID + "+bestaudio/best", "mp4"
}

// percentOf computes a clamped integer download percentage; an unknown total
// is treated as 1 so early callbacks stay in range.
func percentOf(downloaded, total int64) int {
	if total < 1 {
		total = 1
	}
	percent := int(downloaded * 100 / total)
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}
