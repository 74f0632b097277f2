package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"i4.energy/across/mgsm/modem"
)

// Controller is the part of a modem session the server drives.
type Controller interface {
	Start() error
	Stop(ctx context.Context) error
	Status() modem.Status
}

// Server handles incoming HTTP requests for inspecting and controlling the
// configured modem session
type Server struct {
	Logger  *slog.Logger
	Session Controller
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendStatus(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(s.Session.Status())
}

// handleStatus returns the session snapshot
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendStatus(w, http.StatusOK)
}

// handleStart begins bring-up
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.Session.Start()
	switch {
	case errors.Is(err, modem.ErrAlreadyStarted):
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.Logger.Error("Failed to start modem", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Modem bring-up started")
	s.sendStatus(w, http.StatusAccepted)
}

// handleStop takes the link down and powers the modem off
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	err := s.Session.Stop(r.Context())
	switch {
	case errors.Is(err, modem.ErrAlreadyStopped):
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.Logger.Error("Failed to stop modem", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Modem stopped")
	s.sendStatus(w, http.StatusOK)
}
