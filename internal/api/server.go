// Package api provides the HTTP API for watching and nudging the town.
// Reads are open; nudges are rate-limited per client IP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/engine"
	"github.com/talgya/butterfly-city/internal/persistence"
	"github.com/talgya/butterfly-city/internal/world"
)

const (
	defaultEventLimit   = 10
	defaultArchiveLimit = 50
	maxLimit            = 500
)

// Config configures a Server. Plaza and Archive are optional.
type Config struct {
	Town        *engine.Town
	Plaza       *world.Plaza
	Archive     *persistence.Archive
	Addr        string
	CORSOrigins []string
	NudgeRate   int // per minute per IP

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Leave it off unless a proxy in front of the server sets them.
	TrustProxy bool
}

// Server serves the town over HTTP.
type Server struct {
	town    *engine.Town
	plaza   *world.Plaza
	archive *persistence.Archive

	router   chi.Router
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	http     *http.Server

	// Active stream connection count.
	streamConns atomic.Int32
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	rate := cfg.NudgeRate
	if rate <= 0 {
		rate = 120
	}
	s := &Server{
		town:    cfg.Town,
		plaza:   cfg.Plaza,
		archive: cfg.Archive,
		limiter: NewRateLimiter(rate, time.Minute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.CORSOrigins),
		},
	}
	s.router = s.routes(cfg)
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	allowed := cfg.CORSOrigins
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/villagers", s.handleListVillagers)
		r.Post("/villagers", s.handleCreateVillager)
		r.Get("/villagers/{id}", s.handleGetVillager)

		r.With(s.limiter.Middleware).Post("/nudges", s.handleNudge)

		r.Get("/events", s.handleEvents)
		r.Get("/archive", s.handleArchive)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// requestLogger logs each request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.http.Addr, "archive", s.archive != nil)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.limiter.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.limiter.Close()
	if err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("HTTP API stopped")
	return nil
}

// Close releases background resources when the server is used only as a
// handler.
func (s *Server) Close() {
	s.limiter.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":           "Butterfly City",
		"villagers":      len(s.town.Villagers()),
		"events":         s.town.Events().Len(),
		"uptime":         s.town.Uptime().Round(time.Second).String(),
		"archive":        s.archive != nil,
		"stream_clients": s.streamConns.Load(),
	}
	writeJSON(w, http.StatusOK, status)
}

// villagerResponse is a villager view plus what the plaza shows for it.
type villagerResponse struct {
	engine.VillagerView
	TargetX *float64      `json:"target_x,omitempty"`
	Effect  *world.Effect `json:"effect,omitempty"`
}

func (s *Server) present(view engine.VillagerView) villagerResponse {
	resp := villagerResponse{VillagerView: view}
	if s.plaza == nil {
		return resp
	}
	if x, ok := s.plaza.Target(view.ID); ok {
		resp.TargetX = &x
	}
	if e, ok := s.plaza.EffectOn(view.ID); ok {
		resp.Effect = &e
	}
	return resp
}

func (s *Server) handleListVillagers(w http.ResponseWriter, r *http.Request) {
	views := s.town.Snapshot()
	out := make([]villagerResponse, 0, len(views))
	for _, v := range views {
		out = append(out, s.present(v))
	}
	writeJSON(w, http.StatusOK, out)
}

type createVillagerRequest struct {
	Name   string         `json:"name"`
	Traits []agents.Trait `json:"traits"`
	Mood   agents.Mood    `json:"mood"`
}

func (s *Server) handleCreateVillager(w http.ResponseWriter, r *http.Request) {
	var req createVillagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	v := s.town.CreateVillager(req.Name, req.Traits, req.Mood)
	if s.plaza != nil {
		s.town.WithLock(s.plaza.Place)
	}

	view, err := s.town.View(v.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.present(view))
}

func (s *Server) handleGetVillager(w http.ResponseWriter, r *http.Request) {
	id := agents.VillagerID(chi.URLParam(r, "id"))
	view, err := s.town.View(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "villager not found")
		return
	}
	writeJSON(w, http.StatusOK, s.present(view))
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request) {
	var req engine.NudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	out, err := s.town.RunNudge(r.Context(), req)
	switch {
	case errors.Is(err, engine.ErrUnknownVillager):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, engine.ErrUnknownNudge),
		errors.Is(err, engine.ErrWrongArity),
		errors.Is(err, engine.ErrSameVillager):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Warn("nudge failed", "kind", req.Kind, "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if s.plaza != nil {
		s.plaza.Gather(req.Villagers...)
		s.plaza.React(out, req.Villagers...)
	}
	if out.Consequences == nil {
		out.Consequences = []engine.Consequence{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if typ := r.URL.Query().Get("type"); typ != "" {
		writeJSON(w, http.StatusOK, s.town.Events().EventsByType(engine.EventType(typ)))
		return
	}
	limit := parseLimit(r, defaultEventLimit)
	writeJSON(w, http.StatusOK, s.town.Events().RecentEvents(limit))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "archive disabled")
		return
	}
	events, err := s.archive.Recent(parseLimit(r, defaultArchiveLimit))
	if err != nil {
		slog.Error("archive read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive read failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func parseLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
