// Package web exposes the dashboard and the HTTP control surface over the
// scanner: configuration, lifecycle, alert feed and symbol history.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"bybit-volume-scanner/internal/domain"
	"bybit-volume-scanner/internal/scanner"
)

const (
	snapshotPollInterval = 2 * time.Second
	maxRecentAlerts      = 50
)

type scanControl interface {
	Start(ctx context.Context) bool
	Stop() bool
	Config() scanner.Config
	Configure(cfg scanner.Config)
	Status() scanner.Status
	Reset() error
	Symbols() []string
	SymbolHistory(symbol string) ([]domain.Sample, bool)
}

type alertReader interface {
	EventsAfter(index uint64) ([]domain.AlertRecord, error)
}

// Server exposes HTTP endpoints serving the HTML dashboard, the JSON control
// API and an SSE alert stream. It also acts as an alert sink, keeping the
// most recent alerts in memory for /api/alerts.
type Server struct {
	Addr   string
	scan   scanControl
	alerts alertReader
	logger *zap.Logger

	baseCtx context.Context

	mu     sync.Mutex
	recent []domain.Alert
}

// NewServer creates a new web server instance.
func NewServer(addr string, scan scanControl, alerts alertReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{Addr: addr, scan: scan, alerts: alerts, logger: logger}
}

// Notify records the alert in the in-memory ring, most recent first.
func (s *Server) Notify(alert domain.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append([]domain.Alert{alert}, s.recent...)
	if len(s.recent) > maxRecentAlerts {
		s.recent = s.recent[:maxRecentAlerts]
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled. Scanner starts triggered via the API inherit this ctx.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/volume-history/", s.handleVolumeHistory)
	mux.HandleFunc("/api/all-symbols", s.handleAllSymbols)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/alerts/stream", s.handleAlertStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// configPayload is the JSON body accepted by POST /api/config and
// POST /api/start. Absent fields keep their current values.
type configPayload struct {
	Category                *string  `json:"category"`
	TimeframeHours          *int     `json:"timeframe_hours"`
	VolumeIncreaseThreshold *float64 `json:"volume_increase_threshold"`
	CheckIntervalSeconds    *int     `json:"check_interval_seconds"`
}

// apply merges the payload into cfg, rejecting values the scanner core must
// never see. The core does not validate; this is the boundary.
func (p configPayload) apply(cfg scanner.Config) (scanner.Config, error) {
	if p.Category != nil {
		category := domain.Category(*p.Category)
		if !category.Valid() {
			return scanner.Config{}, fmt.Errorf("invalid category %q", *p.Category)
		}
		cfg.Category = category
	}
	if p.TimeframeHours != nil {
		if *p.TimeframeHours <= 0 {
			return scanner.Config{}, fmt.Errorf("timeframe_hours must be positive")
		}
		cfg.TimeframeHours = *p.TimeframeHours
	}
	if p.VolumeIncreaseThreshold != nil {
		if math.IsNaN(*p.VolumeIncreaseThreshold) || math.IsInf(*p.VolumeIncreaseThreshold, 0) {
			return scanner.Config{}, fmt.Errorf("volume_increase_threshold must be a finite number")
		}
		cfg.Threshold = *p.VolumeIncreaseThreshold
	}
	if p.CheckIntervalSeconds != nil {
		if *p.CheckIntervalSeconds <= 0 {
			return scanner.Config{}, fmt.Errorf("check_interval_seconds must be positive")
		}
		cfg.CheckInterval = time.Duration(*p.CheckIntervalSeconds) * time.Second
	}

	return cfg, nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeConfig(w)
	case http.MethodPost:
		var payload configPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		cfg, err := payload.apply(s.scan.Config())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		s.scan.Configure(cfg)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "configuration updated"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeConfig(w http.ResponseWriter) {
	cfg := s.scan.Config()
	status := s.scan.Status()

	writeJSON(w, http.StatusOK, map[string]any{
		"category":                  cfg.Category,
		"timeframe_hours":           cfg.TimeframeHours,
		"volume_increase_threshold": cfg.Threshold,
		"check_interval_seconds":    int(cfg.CheckInterval.Seconds()),
		"tracked_symbols":           status.TrackedSymbols,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// body is optional; an empty one keeps the current config
	var payload configPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cfg, err := payload.apply(s.scan.Config())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.scan.Configure(cfg)

	if !s.scan.Start(s.baseCtx) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "info", "message": "scanner already running"})
		return
	}

	s.logger.Info("scanner started via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "scanner started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.scan.Stop() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "info", "message": "scanner not running"})
		return
	}

	s.logger.Info("scanner stopped via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "scanner stopped"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.scan.Status()

	s.mu.Lock()
	alertsCount := len(s.recent)
	s.mu.Unlock()

	var lastScan any
	if !status.LastScan.IsZero() {
		lastScan = status.LastScan.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"is_running":      status.Running,
		"first_run":       status.FirstRun,
		"last_scan_time":  lastScan,
		"total_pairs":     status.TotalPairs,
		"tracked_symbols": status.TrackedSymbols,
		"alerts_count":    alertsCount,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	alerts := make([]domain.Alert, len(s.recent))
	copy(alerts, s.recent)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleVolumeHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/volume-history/")
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return
	}

	history, ok := s.scan.SymbolHistory(symbol)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "symbol not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"history": history,
	})
}

type symbolSummary struct {
	Symbol        string    `json:"symbol"`
	CurrentVolume float64   `json:"current_volume"`
	AvgVolume     *float64  `json:"avg_volume"`
	LastUpdate    time.Time `json:"last_update"`
	DataPoints    int       `json:"data_points"`
}

func (s *Server) handleAllSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := s.scan.Symbols()

	summaries := make([]symbolSummary, 0, len(symbols))
	for _, symbol := range symbols {
		history, ok := s.scan.SymbolHistory(symbol)
		if !ok || len(history) == 0 {
			continue
		}

		latest := history[len(history)-1]
		summary := symbolSummary{
			Symbol:        symbol,
			CurrentVolume: latest.Volume,
			LastUpdate:    latest.Timestamp,
			DataPoints:    len(history),
		}
		if avg, ok := scanner.Baseline(history); ok {
			summary.AvgVolume = &avg
		}

		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CurrentVolume > summaries[j].CurrentVolume
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"symbols": summaries,
		"total":   len(summaries),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.scan.Reset(); err != nil {
		s.logger.Warn("reset could not persist cleared history", zap.Error(err))
	}

	s.mu.Lock()
	s.recent = nil
	s.mu.Unlock()

	s.logger.Info("volume history reset via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "volume history reset"})
}

func (s *Server) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "alert store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendAlerts := func() error {
		records, err := s.alerts.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Alert)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: alert\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendAlerts(); err != nil {
		http.Error(w, "failed to load alerts", http.StatusInternalServerError)
		s.logger.Warn("alert stream initial load failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendAlerts(); err != nil {
				s.logger.Warn("alert stream poll failed", zap.Error(err))
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
