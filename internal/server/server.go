// Package server provides the HTTP server and API handlers for the console.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/alerts"
	"github.com/oversight-labs/fleetwatch/internal/capture"
	"github.com/oversight-labs/fleetwatch/internal/command"
	"github.com/oversight-labs/fleetwatch/internal/config"
	"github.com/oversight-labs/fleetwatch/internal/geo"
	"github.com/oversight-labs/fleetwatch/internal/riskanalysis"
	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
	"github.com/oversight-labs/fleetwatch/internal/version"
)

// Deps are the collaborators the API surface exposes.
type Deps struct {
	State    *session.State
	Pipeline *command.Pipeline
	Gateway  *riskanalysis.Client
	Engine   *alerts.Engine
	Captures *capture.Manager
}

// Server is the HTTP server for the console API.
type Server struct {
	cfg        config.ConsoleConfig
	deps       Deps
	log        *logrus.Logger
	httpServer *http.Server

	mu      sync.Mutex
	capSess *capture.Session
}

// New creates a new HTTP server wired to the given collaborators.
func New(cfg config.ConsoleConfig, deps Deps, log *logrus.Logger) *Server {
	s := &Server{cfg: cfg, deps: deps, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/devices", s.handleDevices).Methods("GET")
	api.HandleFunc("/devices/{id}/select", s.handleSelectDevice).Methods("POST")
	api.HandleFunc("/alerts", s.handleAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/read", s.handleAlertRead).Methods("POST")
	api.HandleFunc("/commands/log", s.handleCommandLog).Methods("GET")
	api.HandleFunc("/commands/execute", s.handleExecute).Methods("POST")
	api.HandleFunc("/commands/provision", s.handleProvision).Methods("POST")
	api.HandleFunc("/transcripts", s.handleTranscripts).Methods("GET")
	api.HandleFunc("/conversations", s.handleConversations).Methods("GET")
	api.HandleFunc("/conversations/{id}/decrypt", s.handleDecrypt).Methods("POST")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")
	api.HandleFunc("/rules/{id}/toggle", s.handleRuleToggle).Methods("POST")
	api.HandleFunc("/system/health", s.handleSystemHealth).Methods("GET")
	api.HandleFunc("/map/positions", s.handleMapPositions).Methods("GET")
	api.HandleFunc("/capture/start", s.handleCaptureStart).Methods("POST")
	api.HandleFunc("/capture/stop", s.handleCaptureStop).Methods("POST")
	api.HandleFunc("/capture/ambient/analyze", s.handleAmbientAnalyze).Methods("POST")
	api.HandleFunc("/analysis/advice", s.handleAdvice).Methods("POST")
	api.HandleFunc("/analysis/screenshot", s.handleScreenshot).Methods("POST")
	api.HandleFunc("/analysis/call-intent", s.handleCallIntent).Methods("POST")
	api.HandleFunc("/analysis/file-risk", s.handleFileRisk).Methods("POST")
	api.HandleFunc("/analysis/social", s.handleSocial).Methods("POST")

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server. It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("Console listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	var selectedID string
	if d, ok := s.deps.State.SelectedDevice(); ok {
		selectedID = d.ID
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices":     s.deps.State.Devices(),
		"selected_id": selectedID,
	})
}

func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.State.SelectDevice(id); err != nil {
		http.Error(w, "Unknown device", http.StatusNotFound)
		return
	}
	d, _ := s.deps.State.Device(id)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": s.deps.State.Alerts(),
		"unread": s.deps.State.UnreadAlertCount(),
	})
}

func (s *Server) handleAlertRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.deps.State.MarkAlertRead(id) {
		http.Error(w, "Unknown alert", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommandLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.CommandLog())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.deps.Pipeline.Execute(r.Context(), req.Name); err != nil {
		if errors.Is(err, command.ErrNoDeviceSelected) {
			http.Error(w, "No device selected", http.StatusConflict)
			return
		}
		http.Error(w, "Command failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.State.CommandLog())
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number string `json:"number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	dev, err := s.deps.Pipeline.Provision(r.Context(), req.Number)
	switch {
	case errors.Is(err, command.ErrEmptyProvisionTarget):
		http.Error(w, "Empty provision target", http.StatusBadRequest)
		return
	case errors.Is(err, command.ErrProvisionInProgress):
		http.Error(w, "Provisioning already in progress", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Provisioning failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.Transcripts())
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": s.deps.State.Conversations(),
		"decrypting_id": s.deps.State.DecryptingID(),
	})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Pipeline.DecryptChannel(r.Context(), id); err != nil {
		if errors.Is(err, command.ErrConversationNotFound) {
			http.Error(w, "Unknown conversation", http.StatusNotFound)
			return
		}
		http.Error(w, "Decrypt failed", http.StatusInternalServerError)
		return
	}
	c, _ := s.deps.State.Conversation(id)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.State.Rules())
}

func (s *Server) handleRuleToggle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.deps.State.ToggleRule(id) {
		http.Error(w, "Unknown rule", http.StatusNotFound)
		return
	}
	for _, rule := range s.deps.State.Rules() {
		if rule.ID == id {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
}

func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"health":   s.deps.State.Health(),
		"hardware": s.deps.State.Hardware(),
	})
}

// devicePosition is a device projected onto the 0-100 map viewport.
type devicePosition struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Server) handleMapPositions(w http.ResponseWriter, r *http.Request) {
	devices := s.deps.State.Devices()
	bounds := geo.ComputeBounds(devices)
	positions := make([]devicePosition, 0, len(devices))
	for _, d := range devices {
		x, y := geo.Project(d.Location.Lat, d.Location.Lng, bounds)
		positions = append(positions, devicePosition{
			ID: d.ID, Name: d.Name, Status: d.Status, X: x, Y: y,
		})
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	sess, err := s.deps.Captures.Start(context.Background(), req.Mode)
	switch {
	case errors.Is(err, capture.ErrUnknownMode):
		http.Error(w, "Unknown capture mode", http.StatusBadRequest)
		return
	case errors.Is(err, capture.ErrCaptureActive):
		http.Error(w, "Capture already active", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Capture failed", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	s.capSess = sess
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess := s.capSess
	s.capSess = nil
	s.mu.Unlock()
	if sess == nil {
		http.Error(w, "No active capture", http.StatusConflict)
		return
	}
	if err := s.deps.Captures.Stop(sess); err != nil {
		http.Error(w, "No active capture", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAmbientAnalyze(w http.ResponseWriter, r *http.Request) {
	segments := s.deps.State.Transcripts()
	if len(segments) == 0 {
		http.Error(w, "No transcript captured", http.StatusConflict)
		return
	}
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = fmt.Sprintf("%s: %s", seg.Speaker, seg.Text)
	}
	report := s.deps.Gateway.AnalyzeAmbientEnvironment(r.Context(), strings.Join(lines, "\n"))

	resp := struct {
		Report riskanalysis.AmbientReport `json:"report"`
		Alert  *types.Alert               `json:"alert,omitempty"`
	}{Report: report}
	if alert, raised := s.deps.Engine.RaiseIfQualifying(report); raised {
		resp.Alert = &alert
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway.GetAdvice(r.Context(), req.Query))
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageData string `json:"imageData"`
		MimeType  string `json:"mimeType"`
		Query     string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway.AnalyzeScreenshot(r.Context(), req.ImageData, req.MimeType, req.Query))
}

func (s *Server) handleCallIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number            string `json:"number"`
		TranscriptExcerpt string `json:"transcriptExcerpt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway.AnalyzeCallIntent(r.Context(), req.Number, req.TranscriptExcerpt))
}

func (s *Server) handleFileRisk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileName string `json:"fileName"`
		FileSize string `json:"fileSize"`
		Path     string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway.AnalyzeFileRisk(r.Context(), req.FileName, req.FileSize, req.Path))
}

func (s *Server) handleSocial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform          string `json:"platform"`
		TranscriptExcerpt string `json:"transcriptExcerpt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway.AnalyzeSocialPlatform(r.Context(), req.Platform, req.TranscriptExcerpt))
}
