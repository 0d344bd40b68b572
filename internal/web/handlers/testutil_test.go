package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// testNow is the fixed clock of handler tests
var testNow = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Attendance: config.AttendanceConfig{
			MatchThreshold:  0.6,
			StatsWindowDays: 30,
		},
		Web: config.WebConfig{
			AdminUsername:  "admin",
			AdminPassword:  "admin-pass",
			ViewerUsername: "frontdesk",
			ViewerPassword: "frontdesk-pass",
		},
	}
}

// vec builds a 128-dimensional embedding from its leading values
func vec(vals ...float32) []float32 {
	v := make([]float32, 128)
	copy(v, vals)
	return v
}

// testGallery has two people in 10A and one in 10B
func testGallery() *gallery.Gallery {
	return gallery.MustNew([]gallery.EnrolledPerson{
		{ID: "A001", Name: "Alice", ClassTag: "10A", Embedding: vec(0, 0)},
		{ID: "A002", Name: "Bob", ClassTag: "10A", Embedding: vec(1, 0)},
		{ID: "B001", Name: "Nguyễn Văn An", ClassTag: "10B", Embedding: vec(0, 1)},
	})
}

// testEnv wires a ledger on the in-memory store with a gallery holder
type testEnv struct {
	store   *mock.MockEventStore
	ledger  *ledger.Ledger
	holder  *gallery.Holder
	source  *mock.MockGallerySource
	session *capture.Session
}

func newTestEnv(t *testing.T, events ...ledger.Event) *testEnv {
	t.Helper()
	store := mock.NewMockEventStore()
	store.AddEvents(events...)
	l, err := ledger.Open(context.Background(), store, time.UTC)
	if err != nil {
		t.Fatalf("ledger.Open() error: %v", err)
	}
	source := mock.NewMockGallerySource(testGallery().People()...)
	holder := gallery.NewHolder(testGallery(), source)
	return &testEnv{
		store:   store,
		ledger:  l,
		holder:  holder,
		source:  source,
		session: capture.NewSession(facematch.NewMatcher(0.6), l, holder),
	}
}

// present builds a Present event at the given hour of the test day
func present(id, name string, hour int) ledger.Event {
	return ledger.Event{
		StudentID: id,
		Name:      name,
		Timestamp: time.Date(2024, 5, 2, hour, 0, 0, 0, time.UTC),
		Status:    ledger.Present,
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

var testLog = logging.Nop()
