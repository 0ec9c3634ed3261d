// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wellness-log/internal/config"
	"wellness-log/internal/metrics"
	"wellness-log/internal/sampling"
	"wellness-log/internal/storage"
	"wellness-log/internal/tracker"
)

const (
	serverName    = "wellness-log"
	serverVersion = "1.0.0"
)

type WellnessServer struct {
	httpServer *http.Server
	router     *mux.Router
	tracker    *tracker.Tracker
	storage    *storage.SQLiteStorage
	registry   *prometheus.Registry
	info       protocol.Implementation
	log        zerolog.Logger
}

// NewWellnessServer opens the database, builds the capability client and
// tracker, and wires the HTTP routes.
func NewWellnessServer(cfg *config.Config, log zerolog.Logger) (*WellnessServer, error) {
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	ai := sampling.NewClient(cfg, m, log)
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("no Gemini API key configured; AI features will report connection errors")
	}

	tr := tracker.New(context.Background(), stor, ai, tracker.Goals{
		CalorieGoal: cfg.DailyCalorieGoal,
		WaterGoalMl: cfg.DailyWaterGoalMl,
	}, log, tracker.WithMetrics(m))

	s := newWellnessServer(tr, reg, log)
	s.storage = stor
	s.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: s.router,
	}
	return s, nil
}

func newWellnessServer(tr *tracker.Tracker, reg *prometheus.Registry, log zerolog.Logger) *WellnessServer {
	s := &WellnessServer{
		tracker:  tr,
		registry: reg,
		info:     protocol.Implementation{Name: serverName, Version: serverVersion},
		log:      log.With().Str("component", "server").Logger(),
	}

	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, corsMiddleware)
	r.HandleFunc("/mcp", s.handleMCP).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/views", s.handleView).Methods(http.MethodGet)
	r.HandleFunc("/views/{view}", s.handleView).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router = r
	return s
}

func (s *WellnessServer) Handler() http.Handler {
	return s.router
}

// handleMCP decodes a tool call and routes it to the matching tool handler.
func (s *WellnessServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err), "")
		return
	}

	handler, ok := s.tools()[request.Name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown tool: %s", request.Name), "")
		return
	}

	data, err := handler(r.Context(), &request)
	if err != nil {
		s.writeToolError(w, request.Name, err)
		return
	}

	result, err := createJSONResponse(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *WellnessServer) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Render(mux.Vars(r)["view"]))
}

func (s *WellnessServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"server": s.info, "storage": "ok"}
	if s.storage != nil {
		if err := s.storage.Ping(r.Context()); err != nil {
			status["storage"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *WellnessServer) Start(ctx context.Context) error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting wellness server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *WellnessServer) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
