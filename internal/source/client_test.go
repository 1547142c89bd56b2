package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "1101000001", "token", 0, 5*time.Second)
}

func TestFetchHistoryNormalizesAndFilters(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/waInstance1101000001/getChatHistory/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req historyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.ChatID != "972500000001@c.us" {
			t.Errorf("chatId = %q", req.ChatID)
		}
		_ = json.NewEncoder(w).Encode([]historyItem{
			{IDMessage: "m1", Timestamp: 1_700_000_000, Type: "incoming", TextMessage: "hi", SenderName: "Alice", TypeMessage: "textMessage"},
			{IDMessage: "m2", Timestamp: 1_700_000_600, Type: "outgoing", Body: "hey"},
			{IDMessage: "m3", Timestamp: 1_700_010_000, Type: "incoming", TypeMessage: "imageMessage"},
			{IDMessage: "old", Timestamp: 1_600_000_000, Type: "incoming", TextMessage: "ancient"},
		})
	})

	startMs := int64(1_700_000_000_000)
	endMs := startMs + 24*3600_000
	msgs, err := c.FetchHistory(context.Background(), "972500000001@c.us", startMs, endMs)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (out-of-window dropped)", len(msgs))
	}

	// Seconds normalized to milliseconds.
	if msgs[0].Timestamp != 1_700_000_000_000 {
		t.Errorf("timestamp = %d, want ms", msgs[0].Timestamp)
	}
	if msgs[0].FromMe || !msgs[1].FromMe {
		t.Errorf("from_me derivation wrong: %v %v", msgs[0].FromMe, msgs[1].FromMe)
	}
	if msgs[0].Body != "hi" || msgs[1].Body != "hey" {
		t.Errorf("bodies = %q %q (textMessage|body fallback)", msgs[0].Body, msgs[1].Body)
	}
	if msgs[2].MediaKind != "imageMessage" || msgs[2].Body != "" {
		t.Errorf("media message = %+v", msgs[2])
	}
}

func TestFetchHistoryAuthError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.FetchHistory(context.Background(), "x@c.us", 0, 1)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", authErr.StatusCode)
	}
}

func TestFetchHistoryTransientError(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.FetchHistory(context.Background(), "x@c.us", 0, 1)
		var transient *TransientError
		if !errors.As(err, &transient) {
			t.Errorf("status %d: err = %v, want TransientError", status, err)
		}
	}
}

func TestFetchHistoryPacing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]historyItem{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "id", "tok", 50*time.Millisecond, 5*time.Second)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.FetchHistory(context.Background(), "x@c.us", 0, 1); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 paced calls took %v, want >= 100ms", elapsed)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
