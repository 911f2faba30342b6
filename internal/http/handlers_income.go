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

type incomeRequest struct {
	Source      string     `json:"source"`
	Icon        string     `json:"icon"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Date        string     `json:"date"`
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	income, err := s.transactions.CreateIncome(r.Context(), core.Income{
		UserID:      sessionFrom(r).UserID,
		Source:      req.Source,
		Icon:        req.Icon,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
	})
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create income", "error", err)
		respondInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Income added successfully",
		"data":    income,
	})
}

func (s *Server) handleGetIncomes(w http.ResponseWriter, r *http.Request) {
	date, ok := optionalDate(w, r)
	if !ok {
		return
	}
	page, limit := parsePagination(r)

	result, err := s.transactions.ListIncomesGrouped(r.Context(), sessionFrom(r).UserID, date, page, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list incomes", "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Incomes grouped by date",
		"data":        result.Groups,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
	})
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.transactions.DeleteIncome(r.Context(), id, sessionFrom(r).UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "income not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete income", "id", id, "error", err)
		respondInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Income deleted successfully"})
}

func (s *Server) handleDownloadIncomes(w http.ResponseWriter, r *http.Request) {
	buf, err := s.export.IncomeWorkbook(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		if errors.Is(err, services.ErrNoRecords) {
			respondError(w, http.StatusNotFound, "no income records found")
			return
		}
		slog.ErrorContext(r.Context(), "Income export failed", "error", err)
		respondInternalError(w)
		return
	}
	serveWorkbook(w, "Incomes.xlsx", buf.Bytes())
}

// optionalDate reads the date query parameter if present. The second
// return is false when the parameter was present but malformed and the
// response has already been written.
func optionalDate(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return nil, true
	}
	date, err := parseDate(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return nil, false
	}
	return &date, true
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrEmptyUserID,
		core.ErrEmptySource,
		core.ErrEmptyCategory,
		core.ErrDescriptionTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func serveWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
