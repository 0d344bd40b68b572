package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var errInvalidDate = errors.New("date must be YYYY-MM-DD")

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// dateParam parses a YYYY-MM-DD value, defaulting to today in the ledger's
// time zone when empty.
func dateParam(value string, l *ledger.Ledger, now time.Time) (ledger.Date, error) {
	if value == "" {
		return l.Today(now), nil
	}
	d, err := ledger.ParseDate(value)
	if err != nil {
		return ledger.Date{}, errInvalidDate
	}
	return d, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
