package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eyalbz/wacal/internal/store"
)

// historyPageSize is how many messages one getChatHistory call requests.
// The window filter below discards anything outside [startMs, endMs].
const historyPageSize = 1000

// Client fetches chat history from a Green-API-shaped WhatsApp HTTP API.
// Calls are paced by an internal limiter so bursts of chats do not trip
// upstream rate limits.
type Client struct {
	baseURL    string
	instanceID string
	apiToken   string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a source client. perFetchDelay is the minimum spacing
// between consecutive history calls; timeout bounds each HTTP request.
func NewClient(baseURL, instanceID, apiToken string, perFetchDelay, timeout time.Duration) *Client {
	limit := rate.Inf
	if perFetchDelay > 0 {
		limit = rate.Every(perFetchDelay)
	}
	return &Client{
		baseURL:    baseURL,
		instanceID: instanceID,
		apiToken:   apiToken,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type historyRequest struct {
	ChatID string `json:"chatId"`
	Count  int    `json:"count"`
}

// historyItem is one message as returned by the source API.
// Timestamps are in SECONDS; the store unit is milliseconds.
type historyItem struct {
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"` // "outgoing" | "incoming"
	ChatID      string `json:"chatId"`
	TextMessage string `json:"textMessage"`
	Body        string `json:"body"`
	TypeMessage string `json:"typeMessage"`
	SenderName  string `json:"senderName"`
}

// FetchHistory implements HistoryFetcher against the HTTP API.
func (c *Client) FetchHistory(ctx context.Context, chatID string, startMs, endMs int64) ([]store.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Cause: err}
	}

	url := fmt.Sprintf("%s/waInstance%s/getChatHistory/%s", c.baseURL, c.instanceID, c.apiToken)
	payload, err := json.Marshal(historyRequest{ChatID: chatID, Count: historyPageSize})
	if err != nil {
		return nil, fmt.Errorf("marshal history request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Cause: fmt.Errorf("source status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("source status %d: %s", resp.StatusCode, body)
	}

	var items []historyItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &TransientError{Cause: fmt.Errorf("decode history: %w", err)}
	}

	var msgs []store.Message
	for _, it := range items {
		ts := it.Timestamp * 1000
		if ts < startMs || ts > endMs {
			continue
		}
		body := it.TextMessage
		if body == "" {
			body = it.Body
		}
		mediaKind := ""
		if it.TypeMessage != "" && it.TypeMessage != "textMessage" && it.TypeMessage != "extendedTextMessage" {
			mediaKind = it.TypeMessage
		}
		msgs = append(msgs, store.Message{
			ChatID:        chatID,
			MsgID:         it.IDMessage,
			SenderDisplay: it.SenderName,
			Body:          body,
			MediaKind:     mediaKind,
			FromMe:        it.Type == "outgoing",
			Timestamp:     ts,
		})
	}
	return msgs, nil
}
