package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/absence"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// AttendanceHandler serves the attendance table and the mark/absence actions
type AttendanceHandler struct {
	ledger   *ledger.Ledger
	gallery  *gallery.Holder
	session  *capture.Session
	absences *absence.Recorder
	metrics  *metrics.Recorder
	log      *logging.Logger
	now      func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(l *ledger.Ledger, holder *gallery.Holder, session *capture.Session, m *metrics.Recorder, log *logging.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		ledger:   l,
		gallery:  holder,
		session:  session,
		absences: absence.NewRecorder(l),
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// EventResponse is one row of the attendance table
type EventResponse struct {
	StudentID string        `json:"student_id"`
	Name      string        `json:"name"`
	Class     string        `json:"class"`
	Timestamp string        `json:"timestamp"`
	Status    ledger.Status `json:"status"`
	Note      string        `json:"note,omitempty"`
}

// AttendanceListResponse is the response of List
type AttendanceListResponse struct {
	Date   ledger.Date     `json:"date"`
	Class  string          `json:"class"`
	Events []EventResponse `json:"events"`
}

// List returns the events of one date, optionally filtered by class
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r.URL.Query().Get("date"), h.ledger, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	class := r.URL.Query().Get("class")
	if class == "" {
		class = constants.AllClasses
	}

	g := h.gallery.Current()
	events := h.ledger.Query(ledger.Filter{Date: date, Class: class}, g)

	resp := AttendanceListResponse{Date: date, Class: class, Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, EventResponse{
			StudentID: e.StudentID,
			Name:      e.Name,
			Class:     g.ClassOf(e.StudentID),
			Timestamp: e.Timestamp.In(h.ledger.Location()).Format(ledger.TimestampLayout),
			Status:    e.Status,
			Note:      e.Note,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Absentees returns the enrolled people not yet marked present on a date
func (h *AttendanceHandler) Absentees(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r.URL.Query().Get("date"), h.ledger, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	people := h.ledger.Absentees(date, r.URL.Query().Get("class"), h.gallery.Current())
	respondJSON(w, http.StatusOK, map[string]any{
		"date":      date,
		"absentees": people,
	})
}

type markRequest struct {
	Faces []facematch.Detection `json:"faces"`
}

// Mark matches the faces of one frame and marks everybody identified. It is
// the manual mark action and is not debounced.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	for i, f := range req.Faces {
		if len(f.Embedding) != constants.EmbeddingDim {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("face %d: embedding must have %d values", i, constants.EmbeddingDim))
			return
		}
	}

	result, err := h.session.MarkNow(r.Context(), h.now(), req.Faces)
	if err != nil {
		h.log.Error("mark failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type absencesRequest struct {
	Date  string `json:"date"`
	Class string `json:"class"`
	Note  string `json:"note"`
}

// RecordAbsences appends Absent events for everybody not present on the date
func (h *AttendanceHandler) RecordAbsences(w http.ResponseWriter, r *http.Request) {
	var req absencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	date, err := dateParam(req.Date, h.ledger, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.absences.RecordAbsences(r.Context(), date, req.Class, req.Note, h.gallery.Current())
	if err != nil {
		h.log.Error("recording absences failed", "date", date.String(), "class", sanitizeForLog(req.Class), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record absences")
		return
	}
	h.metrics.AddAbsences(n)
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "recorded": n})
}

// Export streams the whole ledger in its persisted CSV form
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("attendance-%s.csv", h.ledger.Today(h.now()))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(h.ledger.Rows()); err != nil {
		h.log.Warn("export interrupted", "error", err)
	}
}
