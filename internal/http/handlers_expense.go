package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"expensia/internal/core"
	"expensia/internal/services"
	"expensia/internal/storage"
)

type expenseRequest struct {
	Category    string     `json:"category"`
	Icon        string     `json:"icon"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Date        string     `json:"date"`
	TripID      string     `json:"tripId"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Date is optional for expenses and defaults to the current day.
	date := time.Now()
	if req.Date != "" {
		var err error
		date, err = parseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	session := sessionFrom(r)
	if req.TripID != "" {
		trip, err := s.storage.GetTrip(r.Context(), req.TripID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusNotFound, "trip not found")
				return
			}
			slog.ErrorContext(r.Context(), "Failed to load trip", "trip_id", req.TripID, "error", err)
			respondInternalError(w)
			return
		}
		if !trip.CanAccess(session.UserID) {
			respondError(w, http.StatusNotFound, "trip not found")
			return
		}
	}

	expense, err := s.transactions.CreateExpense(r.Context(), core.Expense{
		UserID:      session.UserID,
		Category:    req.Category,
		Icon:        req.Icon,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		TripID:      req.TripID,
	})
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create expense", "error", err)
		respondInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Expense added successfully",
		"data":    expense,
	})
}

func (s *Server) handleGetExpenses(w http.ResponseWriter, r *http.Request) {
	date, ok := optionalDate(w, r)
	if !ok {
		return
	}
	page, limit := parsePagination(r)
	tripID := r.URL.Query().Get("tripId")

	result, err := s.transactions.ListExpensesGrouped(r.Context(), sessionFrom(r).UserID, date, tripID, page, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"data":        result.Groups,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.transactions.DeleteExpense(r.Context(), id, sessionFrom(r).UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete expense", "id", id, "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Expense deleted successfully"})
}

func (s *Server) handleDownloadExpenses(w http.ResponseWriter, r *http.Request) {
	buf, err := s.export.ExpenseWorkbook(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		if errors.Is(err, services.ErrNoRecords) {
			respondError(w, http.StatusNotFound, "no expense records found")
			return
		}
		slog.ErrorContext(r.Context(), "Expense export failed", "error", err)
		respondInternalError(w)
		return
	}
	serveWorkbook(w, "Expenses.xlsx", buf.Bytes())
}
