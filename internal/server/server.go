// Package server exposes the session controller to a browser over HTTP and
// WebSocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/oukeidos/photomotion/internal/apperrors"
	"github.com/oukeidos/photomotion/internal/auth"
	"github.com/oukeidos/photomotion/internal/gemini"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
	"github.com/oukeidos/photomotion/internal/session"
	"github.com/oukeidos/photomotion/internal/veo"
	"github.com/oukeidos/photomotion/internal/view"
)

const (
	readTimeout     = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 15 * time.Second

	retryAfterSeconds = "10"
)

// SuggestFunc proposes a motion prompt for a photo.
type SuggestFunc func(ctx context.Context, req gemini.SuggestRequest) (string, error)

type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        *Metrics
	// Suggest is optional; without it /api/suggest answers 501.
	Suggest SuggestFunc
	Logger  *slog.Logger
}

type Server struct {
	ctrl     *session.Controller
	registry *media.Registry
	opts     Options
	hub      *Hub
	log      *slog.Logger

	// jobCtx outlives individual requests so a generation keeps running
	// after POST /api/generate returns.
	jobCtx context.Context
}

func New(jobCtx context.Context, ctrl *session.Controller, registry *media.Registry, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Component("server")
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	s := &Server{
		ctrl:     ctrl,
		registry: registry,
		opts:     opts,
		log:      opts.Logger,
		jobCtx:   jobCtx,
	}
	s.hub = NewHub(opts.AllowedOrigins, opts.Metrics, opts.Logger)
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", s.hub)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/auth", s.handleAuth).Methods(http.MethodPost)
	api.HandleFunc("/image", s.handleStageImage).Methods(http.MethodPost)
	api.HandleFunc("/image", s.handleGetImage).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleSettings).Methods(http.MethodPut)
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/suggest", s.handleSuggest).Methods(http.MethodPost)
	api.HandleFunc("/formats", s.handleFormats).Methods(http.MethodGet)

	r.HandleFunc("/videos/{id}", s.handleVideo).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/videos/{id}/download", s.handleVideoDownload).Methods(http.MethodGet)
	return r
}

// Handler wraps the router with recovery, access logging and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	if len(s.opts.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.opts.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.log}))(h)
	return handlers.LoggingHandler(logger.Writer("http"), h)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.attach()()

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutdown signal received, draining requests")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	s.log.Info("Server stopped cleanly")
	return nil
}

// attach forwards controller snapshots to the hub until the returned func is called.
func (s *Server) attach() func() {
	unsubscribe := s.ctrl.Subscribe(s.hub.Publish)
	s.hub.Publish(s.ctrl.Snapshot())
	return unsubscribe
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(view.IndexHTML())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key := strings.TrimSpace(r.FormValue("apiKey"))
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("apiKey is required"))
		return
	}
	if err := s.ctrl.OpenAuth(auth.WithSubmittedKey(r.Context(), key)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStageImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.opts.Metrics.observeUpload("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d MB", s.opts.MaxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		_ = s.ctrl.StageImage(r.Context(), nil, "")
		s.opts.Metrics.observeUpload("cleared")
		writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()
	if header.Size > s.opts.MaxUploadBytes {
		s.opts.Metrics.observeUpload("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d MB", s.opts.MaxUploadBytes>>20))
		return
	}
	if err := s.ctrl.StageImage(r.Context(), file, header.Header.Get("Content-Type")); err != nil {
		s.opts.Metrics.observeUpload("rejected")
		writeError(w, statusFor(err), err)
		return
	}
	s.opts.Metrics.observeUpload("staged")
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	img := s.ctrl.StagedImage()
	if img == nil {
		http.NotFound(w, r)
		return
	}
	data, err := img.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

type settingsRequest struct {
	Prompt      *string `json:"prompt"`
	AspectRatio *string `json:"aspectRatio"`
	Resolution  *string `json:"resolution"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings: %w", err))
		return
	}
	if req.AspectRatio != nil {
		a, err := veo.ParseAspectRatio(*req.AspectRatio)
		if err == nil {
			err = s.ctrl.SetAspectRatio(a)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Resolution != nil {
		res, err := veo.ParseResolution(*req.Resolution)
		if err == nil {
			err = s.ctrl.SetResolution(res)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Prompt != nil {
		s.ctrl.SetPrompt(*req.Prompt)
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	done, err := s.ctrl.Generate(s.jobCtx)
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotIdle):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	case done == nil:
		// Nothing staged: nothing to do.
		writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
	default:
		writeJSON(w, http.StatusAccepted, s.ctrl.Snapshot())
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Reset() {
		writeError(w, http.StatusConflict, errors.New("select an API key first"))
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.opts.Suggest == nil {
		writeError(w, http.StatusNotImplemented, errors.New("prompt suggestions are not enabled"))
		return
	}
	img := s.ctrl.StagedImage()
	if img == nil {
		writeError(w, http.StatusBadRequest, errors.New("stage an image first"))
		return
	}
	data, err := img.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var body struct {
		Hint string `json:"hint"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	prompt, err := s.opts.Suggest(r.Context(), gemini.SuggestRequest{Image: data, MIMEType: img.MIMEType, Hint: body.Hint})
	if err != nil {
		s.log.Warn("Prompt suggestion failed", "error", err)
		if apperrors.IsRetryable(err) {
			w.Header().Set("Retry-After", retryAfterSeconds)
		}
		writeError(w, statusFor(err), err)
		return
	}
	s.ctrl.SetPrompt(prompt)
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.ExportFormats)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	blob, ok := s.registry.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", blob.MIMEType)
	http.ServeContent(w, r, "", blob.CreatedAt, bytes.NewReader(blob.Data))
}

func (s *Server) handleVideoDownload(w http.ResponseWriter, r *http.Request) {
	blob, ok := s.registry.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	ext := r.URL.Query().Get("format")
	if ext == "" {
		ext = "mp4"
	}
	format, err := view.LookupFormat(ext)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := view.DownloadFileName(time.Now(), format.Extension)
	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, blob.CreatedAt, bytes.NewReader(blob.Data))
}

func statusFor(err error) int {
	kind, ok := apperrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperrors.KindValidation, apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindAuth, apperrors.KindCredential:
		return http.StatusUnauthorized
	case apperrors.KindRateLimit:
		return http.StatusTooManyRequests
	case apperrors.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": apperrors.PublicMessage(err)})
}

type recoveryLogger struct{ log *slog.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("Recovered from panic", "panic", fmt.Sprint(v...))
}
