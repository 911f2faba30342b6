package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"expensia/internal/auth"
)

func sessionFrom(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionKey).(*auth.Session)
	return session
}

// parseDate parses a date string in YYYY-MM-DD format in local time.
func parseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, time.Local)
}

// parsePagination extracts page and limit from query parameters with
// sane defaults.
func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 10

	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}

	return page, limit
}
