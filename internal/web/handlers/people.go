package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// PeopleHandler serves the enrolled people and the delete-student operation
type PeopleHandler struct {
	ledger  *ledger.Ledger
	gallery *gallery.Holder
	purger  ledger.Purger
	stats   *StatsHandler
	log     *logging.Logger
	now     func() time.Time
}

// NewPeopleHandler creates a new people handler. purger may be nil when the
// ledger backend cannot remove events.
func NewPeopleHandler(l *ledger.Ledger, holder *gallery.Holder, purger ledger.Purger, sh *StatsHandler, log *logging.Logger) *PeopleHandler {
	return &PeopleHandler{
		ledger:  l,
		gallery: holder,
		purger:  purger,
		stats:   sh,
		log:     log,
		now:     time.Now,
	}
}

// PersonResponse is an enrolled person with today's presence
type PersonResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Class   string `json:"class"`
	Present bool   `json:"present"`
}

// List returns enrolled people filtered by class and name query
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r.URL.Query().Get("date"), h.ledger, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := h.gallery.Current()
	var people []gallery.EnrolledPerson
	if q := r.URL.Query().Get("q"); q != "" {
		people = g.SearchByName(q)
	} else {
		people = g.People()
	}

	class := r.URL.Query().Get("class")
	allClasses := gallery.IsAllClasses(class)

	resp := make([]PersonResponse, 0, len(people))
	for _, p := range people {
		if !allClasses && p.ClassTag != class {
			continue
		}
		resp = append(resp, PersonResponse{
			ID:      p.ID,
			Name:    p.Name,
			Class:   p.ClassTag,
			Present: h.ledger.IsPresent(p.ID, date),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Classes returns the distinct class tags of the gallery
func (h *PeopleHandler) Classes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"classes": h.gallery.Current().Classes(),
	})
}

// PurgeEvents deletes every attendance event of one person and reloads the ledger
func (h *PeopleHandler) PurgeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "student id is required")
		return
	}
	if h.purger == nil {
		respondError(w, http.StatusNotImplemented, "ledger backend does not support purging")
		return
	}

	removed, err := h.purger.Purge(r.Context(), id)
	if err != nil {
		h.log.Error("purge failed", "student_id", sanitizeForLog(id), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to purge events")
		return
	}
	if err := h.ledger.Reload(r.Context()); err != nil {
		h.log.Error("reloading ledger after purge failed", "error", err)
		respondError(w, http.StatusInternalServerError, "events purged but ledger reload failed")
		return
	}
	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	h.log.Info("purged events", "student_id", sanitizeForLog(id), "removed", removed)
	respondJSON(w, http.StatusOK, map[string]any{"student_id": id, "removed": removed})
}
