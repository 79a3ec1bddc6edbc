package server

import (
	"context"
	"net/http"
	"time"

	"github.com/manvithgkacharya/yt-download/internal/manager"
	"github.com/rs/zerolog/log"
)

// Server is the thin HTTP layer over the job manager and format resolver.
type Server struct {
	manager      *manager.Manager
	resolver     manager.MetadataResolver
	downloadsDir string
	listen       string
}

func New(listen, downloadsDir string, mgr *manager.Manager, res manager.MetadataResolver) *Server {
	return &Server{
		manager:      mgr,
		resolver:     res,
		downloadsDir: downloadsDir,
		listen:       listen,
	}
}

// Routes wires the HTTP surface: static index, format listing, download
// launch, progress polling, and one-shot file delivery.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /get-formats", s.handleGetFormats)
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("GET /progress/{id}", s.handleProgress)
	mux.HandleFunc("GET /download-file/{filename}", s.handleDownloadFile)
	return withCORS(withRequestLog(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.listen, Handler: s.Routes()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("op", "server/run").Msgf("Listening on %s", s.listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Str("op", "server/run").Msg("Server stopped")
		return nil
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("op", "server/http").Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("Request served")
	})
}
