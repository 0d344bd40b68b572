package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/stats"
)

const statsCacheTTL = 10 * time.Minute

// statsKey identifies one cached aggregation. The ledger version makes any
// write invalidate the entry, the gallery snapshot any reload.
type statsKey struct {
	window  int
	date    ledger.Date
	version uint64
	gallery *gallery.Gallery
}

// statsCache holds the last computed stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	key       statsKey
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get(key statsKey, now time.Time) (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || c.key != key || now.After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(key statsKey, data *StatsResponse, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.data = data
	c.expiresAt = now.Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	ledger        *ledger.Ledger
	gallery       *gallery.Holder
	defaultWindow int
	cache         statsCache
	now           func() time.Time
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(l *ledger.Ledger, holder *gallery.Holder, defaultWindow int) *StatsHandler {
	return &StatsHandler{
		ledger:        l,
		gallery:       holder,
		defaultWindow: defaultWindow,
		now:           time.Now,
	}
}

// InvalidateCache clears the cached stats so the next request recomputes them
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	Date         ledger.Date       `json:"date"`
	WindowDays   int               `json:"window_days"`
	Days         []stats.DailyStat `json:"days"`
	TotalPresent int               `json:"total_present"`
	TotalAbsent  int               `json:"total_absent"`
	Enrolled     int               `json:"enrolled"`
	SkippedRows  int               `json:"skipped_rows"`
}

// Get returns per-day present and absent counts over a trailing window
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	date, err := dateParam(r.URL.Query().Get("date"), h.ledger, now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := h.defaultWindow
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "window must be a non-negative number of days")
			return
		}
		window = n
	}

	g := h.gallery.Current()
	key := statsKey{window: window, date: date, version: h.ledger.Version(), gallery: g}
	if cached, ok := h.cache.get(key, now); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	days := stats.Aggregate(h.ledger.Events(), window, date, h.ledger.Location())
	present, absent := stats.Totals(days)

	resp := &StatsResponse{
		Date: date, WindowDays: window, Days: days,
		TotalPresent: present, TotalAbsent: absent,
		Enrolled:    g.Len(),
		SkippedRows: h.ledger.LoadReport().Skipped,
	}

	h.cache.set(key, resp, now)
	respondJSON(w, http.StatusOK, resp)
}
