package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outletscraper/internal/models"
	"outletscraper/internal/scraper"
	"outletscraper/internal/service"
	"outletscraper/internal/store"
)

// DefaultPerPage is the page size of GET /outlets when none is given.
const DefaultPerPage = 10

type Options struct {
	Metrics        *scraper.Metrics
	AllowedOrigins []string
	// BaseContext parents background work such as rescrape-all. It defaults
	// to context.Background.
	BaseContext context.Context
}

// Server exposes the outlet service over HTTP.
type Server struct {
	svc       *service.Service
	metrics   *scraper.Metrics
	origins   map[string]bool
	anyOrigin bool
	baseCtx   context.Context
	handler   http.Handler

	background sync.WaitGroup
}

func New(svc *service.Service, opts Options) *Server {
	s := &Server{
		svc:     svc,
		metrics: opts.Metrics,
		origins: map[string]bool{},
		baseCtx: opts.BaseContext,
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			s.anyOrigin = true
		}
		s.origins[o] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /scrape-outlets", s.handleScrape)
	mux.HandleFunc("POST /save-outlets", s.handleSave)
	mux.HandleFunc("POST /scrape/rescrape-all", s.handleRescrapeAll)
	mux.HandleFunc("GET /outlets", s.handleList)
	mux.HandleFunc("DELETE /outlets", s.handleDeleteAll)
	mux.HandleFunc("GET /outlets/{id}", s.handleGet)
	mux.HandleFunc("PATCH /outlets/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /outlets/{id}", s.handleDelete)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	s.handler = s.cors(logRequests(mux))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Wait blocks until background jobs started by the server have finished.
func (s *Server) Wait() {
	s.background.Wait()
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (s.anyOrigin || s.origins[origin]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if !s.anyOrigin {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "McDonald's Outlet API is running",
		"endpoints": map[string]string{
			"scrape":  "/scrape-outlets",
			"save":    "/save-outlets",
			"outlets": "/outlets",
			"stats":   "/stats",
			"search":  "/api/v1/search",
		},
	})
}

type scrapeRequest struct {
	SearchTerm        string `json:"search_term"`
	OverwriteExisting bool   `json:"overwrite_existing"`
}

func (s *Server) decodeScrapeRequest(w http.ResponseWriter, r *http.Request) (scrapeRequest, bool) {
	var req scrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	term, err := service.NormalizeTerm(req.SearchTerm)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	req.SearchTerm = term
	return req, true
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.ScrapeOnly(r.Context(), req.SearchTerm)
	if err != nil {
		slog.ErrorContext(r.Context(), "scrape failed", slog.String("term", req.SearchTerm), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Scraping failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ScrapeAndStore(r.Context(), req.SearchTerm, req.OverwriteExisting))
}

func (s *Server) handleRescrapeAll(w http.ResponseWriter, r *http.Request) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.svc.RescrapeAll(s.baseCtx); err != nil {
			slog.ErrorContext(s.baseCtx, "rescrape all failed", slog.Any("error", err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Process to delete and rescrape all outlets started in the background.",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil || page < 1 {
		writeError(w, http.StatusUnprocessableEntity, "page must be a positive integer")
		return
	}
	perPage, err := intParam(q.Get("per_page"), DefaultPerPage)
	if err != nil || perPage < 1 || perPage > 100 {
		writeError(w, http.StatusUnprocessableEntity, "per_page must be between 1 and 100")
		return
	}

	res, err := s.svc.List(r.Context(), store.ListQuery{
		SearchTerm: q.Get("search_term"),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get outlets: "+err.Error())
		return
	}
	if res.Outlets == nil {
		res.Outlets = []models.StoredOutlet{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete outlets: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully deleted " + strconv.FormatInt(n, 10) + " outlets.",
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u models.OutletUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	o, err := s.svc.Update(r.Context(), id, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Outlet deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get statistics: "+err.Error())
		return
	}
	if st.BySearchTerm == nil {
		st.BySearchTerm = []store.TermCount{}
	}
	writeJSON(w, http.StatusOK, st)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.Query)
	switch {
	case errors.Is(err, service.ErrNoCompleter):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		slog.ErrorContext(r.Context(), "search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "An error occurred during the search process.")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"response": answer.Response})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "Invalid outlet ID format")
		return 0, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Outlet not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
