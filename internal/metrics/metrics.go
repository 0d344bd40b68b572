// Package metrics exposes Prometheus counters for matching and marking.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

// Recorder owns a private registry so tests and multiple servers never
// collide on the default one. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	facesMatched      prometheus.Counter
	facesUnknown      prometheus.Counter
	marks             *prometheus.CounterVec
	absencesRecorded  prometheus.Counter
	ledgerEvents      prometheus.Gauge
	ledgerSkippedRows prometheus.Gauge
	gallerySize       prometheus.Gauge
	galleryReloads    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		facesMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "matcher", Name: "faces_matched_total",
			Help: "Faces matched to an enrolled person.",
		}),
		facesUnknown: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "matcher", Name: "faces_unknown_total",
			Help: "Faces with no enrolled person within the threshold.",
		}),
		marks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "marks_total",
			Help: "Mark attempts by outcome.",
		}, []string{"outcome"}),
		absencesRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "absences_recorded_total",
			Help: "Absent events appended.",
		}),
		ledgerEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "events",
			Help: "Events currently held by the ledger.",
		}),
		ledgerSkippedRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "skipped_rows",
			Help: "Malformed rows skipped on the last load.",
		}),
		gallerySize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "gallery", Name: "people",
			Help: "Enrolled people in the active gallery snapshot.",
		}),
		galleryReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gallery", Name: "reloads_total",
			Help: "Gallery reloads by result.",
		}, []string{"result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveMatch counts one matcher decision.
func (r *Recorder) ObserveMatch(matched bool) {
	if r == nil {
		return
	}
	if matched {
		r.facesMatched.Inc()
	} else {
		r.facesUnknown.Inc()
	}
}

// ObserveMark counts one mark outcome ("marked", "already_marked" or "error").
func (r *Recorder) ObserveMark(outcome string) {
	if r == nil {
		return
	}
	r.marks.WithLabelValues(outcome).Inc()
}

// AddAbsences counts appended Absent events.
func (r *Recorder) AddAbsences(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.absencesRecorded.Add(float64(n))
}

// SetLedger records the ledger size and the rows skipped on load.
func (r *Recorder) SetLedger(events, skipped int) {
	if r == nil {
		return
	}
	r.ledgerEvents.Set(float64(events))
	r.ledgerSkippedRows.Set(float64(skipped))
}

// ObserveGalleryReload records a reload attempt and the resulting size.
func (r *Recorder) ObserveGalleryReload(people int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.galleryReloads.WithLabelValues("error").Inc()
		return
	}
	r.galleryReloads.WithLabelValues("ok").Inc()
	r.gallerySize.Set(float64(people))
}

// Middleware records request counts and latency keyed by the chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
