// Package server exposes the upload / report / export HTTP API consumed by
// the dashboard frontend.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/exportlens/exportlens/internal/config"
	"github.com/exportlens/exportlens/internal/filter"
	"github.com/exportlens/exportlens/internal/ingest"
	"github.com/exportlens/exportlens/internal/report"
	"github.com/exportlens/exportlens/internal/source"
)

// Server wires the ingestion pipeline behind the dashboard API.
type Server struct {
	cfg      config.ServerConfig
	opts     ingest.Options
	registry *Registry
}

// New creates a server with an empty dataset registry.
func New(cfg config.ServerConfig, opts ingest.Options) *Server {
	return &Server{
		cfg:      cfg,
		opts:     opts,
		registry: NewRegistry(cfg.MaxDatasets),
	}
}

// Router builds the chi router with CORS, recovery, and request logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/datasets", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleMeta)
			r.Delete("/", s.handleDelete)
			r.Get("/report", s.handleReport)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

type uploadResponse struct {
	ID       string           `json:"id"`
	Rows     int              `json:"rows"`
	Columns  []string         `json:"columns"`
	Warnings []ingest.Warning `json:"warnings"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if eris.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var sources []source.Source
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		data, err := io.ReadAll(file)
		file.Close() //nolint:errcheck
		if err != nil {
			respondError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		sources = append(sources, source.Source{Name: header.Filename, Data: data})
	}
	if len(sources) == 0 {
		respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	unified, warnings, err := ingest.Ingest(sources, s.opts)
	if err != nil {
		if eris.Is(err, ingest.ErrEmptyDataset) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    err.Error(),
				"warnings": warnings,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	ds := s.registry.Add(ingest.Normalize(unified, s.opts), warnings)
	respondJSON(w, http.StatusCreated, uploadResponse{
		ID:       ds.ID,
		Rows:     ds.Frame.NumRows(),
		Columns:  ds.Frame.Columns(),
		Warnings: ds.Warnings,
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	ds := s.registry.Get(chi.URLParam(r, "id"))
	if ds == nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return
	}
	respondJSON(w, http.StatusOK, uploadResponse{
		ID:       ds.ID,
		Rows:     ds.Frame.NumRows(),
		Columns:  ds.Frame.Columns(),
		Warnings: ds.Warnings,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Delete(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "dataset not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reportResponse struct {
	Rows       int               `json:"rows"`
	Candidates filter.Candidates `json:"candidates"`
	*report.Report
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ds := s.registry.Get(chi.URLParam(r, "id"))
	if ds == nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return
	}

	criteria, err := criteriaFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, candidates := filter.Apply(ds.Frame, criteria)
	respondJSON(w, http.StatusOK, reportResponse{
		Rows:       view.NumRows(),
		Candidates: candidates,
		Report:     report.Build(view),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ds := s.registry.Get(chi.URLParam(r, "id"))
	if ds == nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return
	}

	criteria, err := criteriaFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, _ := filter.Apply(ds.Frame, criteria)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_export_data.csv"`)
	if err := view.WriteCSV(w); err != nil {
		zap.L().Error("export: write csv", zap.Error(err))
	}
}

// criteriaFromQuery maps query parameters onto filter criteria. Absent set
// parameters stay nil so they default to the candidate sets.
func criteriaFromQuery(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	c := filter.Criteria{
		ProductSubstring: q.Get("product"),
		Destinations:     q["destination"],
		Exporters:        q["exporter"],
		Importers:        q["importer"],
	}

	for _, p := range []struct {
		key  string
		dest **time.Time
	}{
		{"from", &c.DateFrom},
		{"to", &c.DateTo},
	} {
		if raw := q.Get(p.key); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return c, eris.Errorf("invalid %s date %q, want YYYY-MM-DD", p.key, raw)
			}
			*p.dest = &t
		}
	}
	return c, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
