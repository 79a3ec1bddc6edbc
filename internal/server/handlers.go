package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manvithgkacharya/yt-download/internal/manager"
	"github.com/manvithgkacharya/yt-download/internal/progress"
	"github.com/manvithgkacharya/yt-download/internal/utils"
	"github.com/rs/zerolog/log"
)

// deliveryChunkSize bounds memory per in-flight delivery.
const deliveryChunkSize = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleGetFormats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	info, err := s.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		log.Error().Str("op", "server/get-formats").Err(err).Msg("Resolution failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		FormatID string `json:"format_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	jobID, title, err := s.manager.Start(r.Context(), req.URL, req.FormatID)
	switch {
	case err == nil:
	case errors.Is(err, manager.ErrMissingURL), errors.Is(err, manager.ErrMissingFormat):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, utils.ErrJobLimitReached):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	default:
		log.Error().Str("op", "server/download").Err(err).Msg("Could not start download")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"download_id": jobID,
		"title":       title,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	state := s.manager.Progress(r.PathValue("id"))
	resp := map[string]any{"status": string(state.Status)}
	switch state.Status {
	case progress.StatusDownloading:
		resp["progress"] = state.Progress
		resp["downloaded_mb"] = state.DownloadedMB
		resp["total_mb"] = state.TotalMB
	case progress.StatusFinished:
		resp["progress"] = state.Progress
		resp["filename"] = state.Filename
	case progress.StatusFailed:
		resp["error"] = state.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownloadFile streams a finished artifact once and reclaims the disk
// space afterward. The filename is caller-supplied: anything that is not a
// plain name inside the downloads directory is rejected.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" || filename != filepath.Base(filename) ||
		strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.downloadsDir, filename)
	file, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		file.Close()
		http.NotFound(w, r)
		return
	}
	// delivery is single-use: reclaim the artifact whether or not the client
	// consumed the whole stream. The remove defer is registered first so the
	// file is already closed when it runs; Windows refuses to delete open
	// files.
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Warn().Str("op", "server/download-file").Err(err).Msgf("Could not remove delivered file %s", filename)
		}
	}()
	defer file.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	buf := make([]byte, deliveryChunkSize)
	if _, err := io.CopyBuffer(w, file, buf); err != nil {
		// client went away mid-stream; the artifact is reclaimed regardless
		log.Debug().Str("op", "server/download-file").Err(err).Msgf("Delivery of %s interrupted", filename)
		return
	}
	log.Info().Str("op", "server/download-file").Msgf("Delivered %s (%s)", filename, utils.FormatBytes(uint64(stat.Size())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("op", "server/http").Err(err).Msg("Could not encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
