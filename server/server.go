// Package server exposes the query operations over HTTP. Routes are
// scoped by operator name; an unknown operator is a 404, a missing
// snapshot (service still warming up) is a 503.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"buscom.dev/transit"
	"buscom.dev/transit/snapshot"
)

type Server struct {
	manager *transit.Manager
	logger  *zap.Logger
}

func New(manager *transit.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{manager: manager, logger: logger}
}

func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/{operator}", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/departures", s.handleDepartures)
		r.Post("/realtime", s.handleRealtime)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type routeJSON struct {
	RouteName string `json:"route_name"`
	Headsign  string `json:"headsign"`
}

type stopJSON struct {
	StopID string      `json:"stop_id"`
	Name   string      `json:"name"`
	Lat    float64     `json:"lat"`
	Lon    float64     `json:"lon"`
	Routes []routeJSON `json:"routes"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operator")
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter")
		return
	}

	results, err := s.manager.Search(op, query)
	if err != nil {
		s.writeOperationError(w, r, err)
		return
	}

	out := make([]stopJSON, len(results))
	for i, res := range results {
		routes := make([]routeJSON, len(res.Routes))
		for j, rt := range res.Routes {
			routes[j] = routeJSON{RouteName: rt.RouteName, Headsign: rt.Headsign}
		}
		out[i] = stopJSON{
			StopID: res.StopID,
			Name:   res.Name,
			Lat:    res.Lat,
			Lon:    res.Lon,
			Routes: routes,
		}
	}

	s.writeJSON(w, http.StatusOK, out)
}

type boardEntryJSON struct {
	TripID       string  `json:"trip_id"`
	StopSequence uint32  `json:"stop_sequence"`
	Departure    string  `json:"departure"`
	RouteName    string  `json:"route_name"`
	Destination  string  `json:"destination"`
	Congestion   float64 `json:"congestion"`
}

func (s *Server) handleDepartures(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operator")
	stopID := r.URL.Query().Get("id")
	if stopID == "" {
		s.writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	board, err := s.manager.DepartureBoard(op, stopID)
	if err != nil {
		s.writeOperationError(w, r, err)
		return
	}

	out := make([]boardEntryJSON, len(board))
	for i, entry := range board {
		out[i] = boardEntryJSON{
			TripID:       entry.TripID,
			StopSequence: entry.StopSequence,
			Departure:    entry.Departure.Departure,
			RouteName:    entry.RouteName,
			Destination:  entry.Destination,
			Congestion:   entry.Congestion,
		}
	}

	s.writeJSON(w, http.StatusOK, out)
}

type realtimeRequest struct {
	TripIDs []string `json:"trip_ids"`
	StopID  string   `json:"stop_id"`
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operator")

	var req realtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StopID == "" || len(req.TripIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "stop_id and trip_ids are required")
		return
	}

	statuses, err := s.manager.RealtimeStatus(op, req.TripIDs, req.StopID)
	if err != nil {
		s.writeOperationError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		s.writeError(w, http.StatusServiceUnavailable, "schedule not loaded yet")
	case isUnknownOperator(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isUnknownOperator(err error) bool {
	var ue *transit.UnknownOperatorError
	return errors.As(err, &ue)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAddr formats the bind address for a configured port.
func ListenAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
