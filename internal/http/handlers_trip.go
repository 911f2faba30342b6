package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"expensia/internal/core"
	"expensia/internal/storage"
)

type tripRequest struct {
	Name         string          `json:"name"`
	Participants []string        `json:"participants"`
	Visibility   core.Visibility `json:"visibility"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Visibility == "" {
		req.Visibility = core.VisibilityShared
	}

	trip := core.Trip{
		UserID:       sessionFrom(r).UserID,
		Name:         req.Name,
		Participants: req.Participants,
		Visibility:   req.Visibility,
	}
	if err := trip.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storage.CreateTrip(r.Context(), &trip); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create trip", "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.storage.ListTripsForUser(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list trips", "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) handleListTripMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trip, err := s.storage.GetTrip(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "trip not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load trip", "trip_id", id, "error", err)
		respondInternalError(w)
		return
	}
	if !trip.CanAccess(sessionFrom(r).UserID) {
		respondError(w, http.StatusNotFound, "trip not found")
		return
	}

	messages, err := s.storage.ListTripMessages(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list trip messages", "trip_id", id, "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
