package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// GalleryHandler serves gallery maintenance endpoints
type GalleryHandler struct {
	gallery   *gallery.Holder
	threshold float64
	metrics   *metrics.Recorder
	log       *logging.Logger
}

// NewGalleryHandler creates a new gallery handler. threshold is the default
// distance under which two enrollments count as the same face.
func NewGalleryHandler(holder *gallery.Holder, threshold float64, m *metrics.Recorder, log *logging.Logger) *GalleryHandler {
	return &GalleryHandler{gallery: holder, threshold: threshold, metrics: m, log: log}
}

// Reload swaps in a fresh snapshot from the configured gallery source
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	g, err := h.gallery.Reload(r.Context())
	if err != nil {
		h.metrics.ObserveGalleryReload(0, err)
		if errors.Is(err, gallery.ErrNoSource) {
			respondError(w, http.StatusNotImplemented, "no gallery source configured")
			return
		}
		h.log.Error("gallery reload failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to reload gallery")
		return
	}

	h.metrics.ObserveGalleryReload(g.Len(), nil)
	h.log.Info("gallery reloaded", "people", g.Len())
	respondJSON(w, http.StatusOK, map[string]any{
		"people":  g.Len(),
		"classes": g.Classes(),
	})
}

// Duplicates reports pairs of enrolled people whose embeddings are closer
// than the threshold
func (h *GalleryHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			respondError(w, http.StatusBadRequest, "threshold must be a positive number")
			return
		}
		threshold = f
	}

	pairs := database.FindDuplicates(h.gallery.Current(), threshold)
	if pairs == nil {
		pairs = []database.DuplicatePair{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"threshold":  threshold,
		"duplicates": pairs,
	})
}
