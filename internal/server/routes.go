package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
	"github.com/b0ase/path402/apps/oreminer/internal/wallet"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 5000
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/toolbar", s.handleToolbar)
	mux.HandleFunc("POST /api/toolbar/open", s.handleOpen)
	mux.HandleFunc("POST /api/toolbar/close", s.handleClose)
	mux.HandleFunc("POST /api/account/provision", s.handleProvision)
	mux.HandleFunc("GET /api/account/attempts", s.handleAttempts)
	mux.HandleFunc("POST /api/mining/start", s.handleStart)
	mux.HandleFunc("POST /api/mining/stop", s.handleStop)
	mux.HandleFunc("GET /api/metrics/history", s.handleHistory)
	mux.HandleFunc("GET /api/wallet", s.handleWallet)
	mux.Handle("GET /metrics", s.daemon.MetricsHandler())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps orchestrator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, toolbar.ErrProvisionInFlight),
		errors.Is(err, toolbar.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, toolbar.ErrAccountNotConfirmed):
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// writeResult answers an entry point with the error or the fresh view.
func (s *Server) writeResult(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, s.daemon.Toolbar())
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	id := s.daemon.NodeID()
	if len(id) > 8 {
		id = id[:8]
	}
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"version":   "0.1.0",
		"node_id":   id,
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
		"state":     s.daemon.Toolbar().State,
	})
}

func (s *Server) handleToolbar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.daemon.Toolbar())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.daemon.OpenToolbar(r.Context()))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.daemon.CloseToolbar()
	s.writeResult(w, nil)
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	err := s.daemon.ProvisionAccount(r.Context())
	if err != nil {
		s.writeResult(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(s.daemon.Toolbar())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.daemon.StartMining(r.Context()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.daemon.StopMining())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	samples, err := s.daemon.History(queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"samples": samples, "count": len(samples)})
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.daemon.Attempts(queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"attempts": attempts, "count": len(attempts)})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.daemon.WalletStatus())
}
