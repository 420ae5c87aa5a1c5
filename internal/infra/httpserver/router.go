package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/identity"
	"github.com/anish1206/green-tech/internal/middleware"
)

// DefaultMaxUploadBytes bounds the multipart body when Options leaves it zero.
const DefaultMaxUploadBytes int64 = 5 << 20

// AnalysisService is the application surface the router drives.
type AnalysisService interface {
	SubmitAnalysis(ctx context.Context, caller *identity.Identity, file []byte, fileName string) (*domain.Analysis, error)
	ListHistory(ctx context.Context, caller *identity.Identity) ([]*domain.Analysis, error)
}

type Options struct {
	Service  AnalysisService
	Verifier identity.Verifier
	// Optional collaborators; nil disables the feature.
	Metrics  *middleware.Metrics
	Limiter  *middleware.RateLimiter
	Checkers map[string]middleware.HealthChecker

	CORSOrigins    []string
	MaxUploadBytes int64
	Log            *zap.Logger
}

type Router struct {
	svc      AnalysisService
	maxBytes int64
	log      *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{svc: opts.Service, maxBytes: opts.MaxUploadBytes, log: log}
	if r.maxBytes <= 0 {
		r.maxBytes = DefaultMaxUploadBytes
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID, chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(middleware.AccessLog(log))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Use(middleware.Authenticate(opts.Verifier, log))
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter))
		}
		rt.Post("/upload", r.wrap(r.handleUpload))
		rt.Get("/history", r.wrap(r.handleHistory))
	})

	return mux
}

// httpError is a failure decided at the transport layer.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var he *httpError
		if errors.As(err, &he) {
			writeError(w, he.status, he.msg)
			return
		}

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, domain.ErrBadRequest):
			status = http.StatusBadRequest
		}

		var se *domain.StageError
		if !errors.As(err, &se) {
			r.log.Error("unhandled error",
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err))
			writeError(w, status, "internal server error")
			return
		}
		if status == http.StatusInternalServerError {
			r.log.Error("request failed",
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.String("stage", se.Stage),
				zap.NamedError("cause", se.Cause()))
		}
		writeError(w, status, se.Error())
	}
}

// POST /api/upload
// multipart/form-data with a single "file" part.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	caller := identity.FromContext(req.Context())

	var data []byte
	var name string
	// Anonymous callers are turned away by the service without reading the body.
	if caller.Verified() {
		var err error
		data, name, err = r.readUpload(w, req)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return &httpError{status: http.StatusRequestEntityTooLarge, msg: "file too large"}
			}
			// the service reports "no file uploaded"
			data, name = nil, ""
		}
	}

	// Upload berjalan sampai selesai walau client putus.
	ctx := context.WithoutCancel(req.Context())
	a, err := r.svc.SubmitAnalysis(ctx, caller, data, name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) ([]byte, string, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxBytes)
	f, hdr, err := req.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, middleware.SanitizeFileName(hdr.Filename), nil
}

// GET /api/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.ListHistory(req.Context(), identity.FromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
