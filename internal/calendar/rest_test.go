package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func restClient(t *testing.T, handler http.HandlerFunc) *RestClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRestClient(srv.URL, srv.Client(), 5*time.Second)
}

func TestListEventsParsesBothTimeShapes(t *testing.T) {
	c := restClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("singleEvents") != "true" {
			t.Errorf("singleEvents missing: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(restEventList{Items: []restEvent{
			{
				ID:      "e1",
				Summary: "💬 Alice",
				Start:   restTime{DateTime: "2023-11-15T00:13:20+02:00"},
				End:     restTime{DateTime: "2023-11-15T00:23:20+02:00"},
			},
			{
				ID:      "e2",
				Summary: "💬 Bob",
				Start:   restTime{DateTime: "2023-11-15T10:00:00", TimeZone: "Asia/Jerusalem"},
				End:     restTime{DateTime: "2023-11-15T10:30:00", TimeZone: "Asia/Jerusalem"},
			},
		}})
	})

	events, err := c.ListEvents(context.Background(), "cal1", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	// Both shapes resolve to the same absolute instants they describe.
	if events[0].Start.UnixMilli() != 1_700_000_000_000 {
		t.Errorf("offset shape start = %d", events[0].Start.UnixMilli())
	}
	loc, _ := time.LoadLocation("Asia/Jerusalem")
	want := time.Date(2023, 11, 15, 10, 0, 0, 0, loc)
	if !events[1].Start.Equal(want) {
		t.Errorf("naive shape start = %v, want %v", events[1].Start, want)
	}
}

func TestInsertEventReturnsID(t *testing.T) {
	c := restClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var body restEvent
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Summary != "💬 Alice" {
			t.Errorf("summary = %q", body.Summary)
		}
		if body.Start.TimeZone != "Asia/Jerusalem" {
			t.Errorf("start timeZone = %q", body.Start.TimeZone)
		}
		body.ID = "created1"
		_ = json.NewEncoder(w).Encode(body)
	})

	loc, _ := time.LoadLocation("Asia/Jerusalem")
	id, err := c.InsertEvent(context.Background(), "cal1", Event{
		Summary:  "💬 Alice",
		Start:    time.UnixMilli(1_700_000_000_000).In(loc),
		End:      time.UnixMilli(1_700_000_600_000).In(loc),
		TimeZone: "Asia/Jerusalem",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "created1" {
		t.Errorf("id = %q, want created1", id)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		wantFatal bool
		wantTrans bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusBadRequest, false, false},
	}
	for _, cse := range cases {
		c := restClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(cse.status)
		})
		_, err := c.ListEvents(context.Background(), "cal1", time.Now(), time.Now())
		if err == nil {
			t.Fatalf("status %d: expected error", cse.status)
		}
		var fatal *FatalError
		var transient *TransientError
		if errors.As(err, &fatal) != cse.wantFatal {
			t.Errorf("status %d: fatal = %v, want %v", cse.status, !cse.wantFatal, cse.wantFatal)
		}
		if errors.As(err, &transient) != cse.wantTrans {
			t.Errorf("status %d: transient = %v, want %v", cse.status, !cse.wantTrans, cse.wantTrans)
		}
	}
}

func TestDeleteEvent(t *testing.T) {
	c := restClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteEvent(context.Background(), "cal1", "e1"); err != nil {
		t.Fatal(err)
	}
}
