package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

func newPeopleHandler(env *testEnv, purger ledger.Purger) *PeopleHandler {
	h := NewPeopleHandler(env.ledger, env.holder, purger, newStatsHandler(env), testLog)
	h.now = func() time.Time { return testNow }
	return h
}

func TestPeopleHandler_List(t *testing.T) {
	env := newTestEnv(t, present("A002", "Bob", 8))
	handler := newPeopleHandler(env, env.store)

	tests := []struct {
		name        string
		query       string
		wantIDs     []string
		wantPresent map[string]bool
	}{
		{"everybody", "", []string{"A001", "A002", "B001"}, map[string]bool{"A002": true}},
		{"class filter", "?class=10B", []string{"B001"}, nil},
		{"name without diacritics", "?q=nguyen", []string{"B001"}, nil},
		{"name and class", "?q=bob&class=10B", []string{}, nil},
		{"other date", "?date=2024-05-01", []string{"A001", "A002", "B001"}, map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/people"+tt.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var people []PersonResponse
			parseJSONResponse(t, recorder, &people)

			if len(people) != len(tt.wantIDs) {
				t.Fatalf("people = %+v, want %v", people, tt.wantIDs)
			}
			for i, p := range people {
				if p.ID != tt.wantIDs[i] {
					t.Errorf("people[%d] = %s, want %s", i, p.ID, tt.wantIDs[i])
				}
				if tt.wantPresent != nil && p.Present != tt.wantPresent[p.ID] {
					t.Errorf("%s present = %v", p.ID, p.Present)
				}
			}
		})
	}
}

func TestPeopleHandler_Classes(t *testing.T) {
	handler := newPeopleHandler(newTestEnv(t), nil)

	recorder := httptest.NewRecorder()
	handler.Classes(recorder, httptest.NewRequest("GET", "/api/v1/classes", nil))

	var resp map[string][]string
	parseJSONResponse(t, recorder, &resp)
	if got := resp["classes"]; len(got) != 2 || got[0] != "10A" || got[1] != "10B" {
		t.Errorf("classes = %v", got)
	}
}

func TestPeopleHandler_PurgeEvents(t *testing.T) {
	env := newTestEnv(t,
		present("A001", "Alice", 8),
		present("A002", "Bob", 8),
		ledger.Event{StudentID: "A001", Timestamp: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), Status: ledger.Absent, Note: "sick"},
	)
	handler := newPeopleHandler(env, env.store)

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/people/A001/events", nil), map[string]string{"id": "A001"})
	recorder := httptest.NewRecorder()
	handler.PurgeEvents(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Removed int `json:"removed"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Removed != 2 {
		t.Errorf("removed = %d, want 2", resp.Removed)
	}
	if env.ledger.Len() != 1 || env.ledger.IsPresent("A001", ledger.Date{Year: 2024, Month: 5, Day: 2}) {
		t.Error("ledger mirror still holds purged events")
	}
}

func TestPeopleHandler_PurgeEvents_Errors(t *testing.T) {
	tests := []struct {
		name     string
		purger   func(env *testEnv) ledger.Purger
		id       string
		wantCode int
	}{
		{"backend without purge", func(*testEnv) ledger.Purger { return nil }, "A001", http.StatusNotImplemented},
		{"missing id", func(env *testEnv) ledger.Purger { return env.store }, "", http.StatusBadRequest},
		{"store failure", func(env *testEnv) ledger.Purger {
			env.store.PurgeError = errors.New("locked")
			return env.store
		}, "A001", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handler := newPeopleHandler(env, tt.purger(env))

			req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/people/x/events", nil), map[string]string{"id": tt.id})
			recorder := httptest.NewRecorder()
			handler.PurgeEvents(recorder, req)

			assertStatusCode(t, recorder, tt.wantCode)
		})
	}
}

func TestGalleryHandler_Reload(t *testing.T) {
	env := newTestEnv(t)
	m := metrics.New()
	handler := NewGalleryHandler(env.holder, 0.6, m, testLog)

	env.source.SetPeople(gallery.EnrolledPerson{ID: "C001", Name: "Carol", ClassTag: "11A", Embedding: vec(3, 3)})
	recorder := httptest.NewRecorder()
	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/gallery/reload", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if env.holder.Current().Len() != 1 {
		t.Errorf("gallery size = %d, want 1", env.holder.Current().Len())
	}

	env.source.LoadError = errors.New("bad yaml")
	recorder = httptest.NewRecorder()
	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/gallery/reload", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	if _, ok := env.holder.Current().Lookup("C001"); !ok {
		t.Error("failed reload replaced the active snapshot")
	}
}

func TestGalleryHandler_ReloadWithoutSource(t *testing.T) {
	holder := gallery.NewHolder(testGallery(), nil)
	handler := NewGalleryHandler(holder, 0.6, nil, testLog)

	recorder := httptest.NewRecorder()
	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/gallery/reload", nil))

	assertStatusCode(t, recorder, http.StatusNotImplemented)
}

func TestGalleryHandler_Duplicates(t *testing.T) {
	holder := gallery.NewHolder(gallery.MustNew([]gallery.EnrolledPerson{
		{ID: "A001", Name: "Alice", ClassTag: "10A", Embedding: vec(0, 0)},
		{ID: "A009", Name: "Alice again", ClassTag: "10A", Embedding: vec(0.05, 0)},
		{ID: "B001", Name: "Bob", ClassTag: "10B", Embedding: vec(4, 4)},
	}), nil)
	handler := NewGalleryHandler(holder, 0.6, nil, testLog)

	recorder := httptest.NewRecorder()
	handler.Duplicates(recorder, httptest.NewRequest("GET", "/api/v1/gallery/duplicates", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Duplicates []struct {
			First  struct{ ID string } `json:"first"`
			Second struct{ ID string } `json:"second"`
		} `json:"duplicates"`
	}
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Duplicates) != 1 || resp.Duplicates[0].First.ID != "A001" || resp.Duplicates[0].Second.ID != "A009" {
		t.Errorf("duplicates = %+v", resp.Duplicates)
	}

	recorder = httptest.NewRecorder()
	handler.Duplicates(recorder, httptest.NewRequest("GET", "/api/v1/gallery/duplicates?threshold=0", nil))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}
