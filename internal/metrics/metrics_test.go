package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveMatch(true)
	r.ObserveMatch(true)
	r.ObserveMatch(false)
	r.ObserveMark("marked")
	r.ObserveMark("already_marked")
	r.ObserveMark("already_marked")
	r.AddAbsences(3)
	r.AddAbsences(0)
	r.SetLedger(42, 2)
	r.ObserveGalleryReload(30, nil)
	r.ObserveGalleryReload(0, errors.New("bad yaml"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"matched", testutil.ToFloat64(r.facesMatched), 2},
		{"unknown", testutil.ToFloat64(r.facesUnknown), 1},
		{"marked", testutil.ToFloat64(r.marks.WithLabelValues("marked")), 1},
		{"already marked", testutil.ToFloat64(r.marks.WithLabelValues("already_marked")), 2},
		{"absences", testutil.ToFloat64(r.absencesRecorded), 3},
		{"ledger events", testutil.ToFloat64(r.ledgerEvents), 42},
		{"skipped rows", testutil.ToFloat64(r.ledgerSkippedRows), 2},
		{"gallery size kept after failed reload", testutil.ToFloat64(r.gallerySize), 30},
		{"reload errors", testutil.ToFloat64(r.galleryReloads.WithLabelValues("error")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveMatch(true)
	r.ObserveMark("marked")
	r.AddAbsences(1)
	r.SetLedger(1, 0)
	r.ObserveGalleryReload(1, nil)

	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	r := New()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/api/v1/people/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", r.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/people/A001", nil))

	if got := testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/v1/people/{id}", "404")); got != 1 {
		t.Errorf("requests counter = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "attendance_http_requests_total") {
		t.Error("/metrics output missing request counter")
	}
}
