package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RestClient implements Client against a Google-Calendar-v3-shaped REST API.
// The http.Client is expected to carry authorization (oauth2 transport).
type RestClient struct {
	baseURL string
	http    *http.Client
}

// NewRestClient creates a calendar REST client. httpClient must inject
// credentials; timeout bounds each request.
func NewRestClient(baseURL string, httpClient *http.Client, timeout time.Duration) *RestClient {
	c := *httpClient
	c.Timeout = timeout
	return &RestClient{baseURL: baseURL, http: &c}
}

type restTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type restEvent struct {
	ID          string   `json:"id,omitempty"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Start       restTime `json:"start"`
	End         restTime `json:"end"`
}

type restEventList struct {
	Items []restEvent `json:"items"`
}

// ListEvents implements Client.
func (c *RestClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	u := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var list restEventList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &TransientError{Cause: fmt.Errorf("decode event list: %w", err)}
	}

	events := make([]Event, 0, len(list.Items))
	for _, it := range list.Items {
		start, err := parseEventTime(it.Start)
		if err != nil {
			return nil, fmt.Errorf("event %s start: %w", it.ID, err)
		}
		end, err := parseEventTime(it.End)
		if err != nil {
			return nil, fmt.Errorf("event %s end: %w", it.ID, err)
		}
		events = append(events, Event{
			ID:          it.ID,
			Summary:     it.Summary,
			Description: it.Description,
			Start:       start,
			End:         end,
			TimeZone:    it.Start.TimeZone,
		})
	}
	return events, nil
}

// InsertEvent implements Client.
func (c *RestClient) InsertEvent(ctx context.Context, calendarID string, ev Event) (string, error) {
	body := restEvent{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       restTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         restTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	u := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransientError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var created restEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &TransientError{Cause: fmt.Errorf("decode created event: %w", err)}
	}
	return created.ID, nil
}

// DeleteEvent implements Client.
func (c *RestClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	u := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(calendarID), url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}
	return classifyStatus(resp)
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FatalError{StatusCode: resp.StatusCode, Detail: string(detail)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{Cause: fmt.Errorf("calendar status %d", resp.StatusCode)}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar status %d: %s", resp.StatusCode, detail)
	}
}

// parseEventTime handles both wire shapes the API emits: a full RFC3339
// dateTime with offset, and a zone-less dateTime paired with a timeZone
// name. Both resolve to an absolute instant so overlap comparisons never
// mix naive and aware values.
func parseEventTime(rt restTime) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, rt.DateTime); err == nil {
		return t, nil
	}
	loc := time.UTC
	if rt.TimeZone != "" {
		if l, err := time.LoadLocation(rt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", rt.DateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", rt.DateTime, err)
	}
	return t, nil
}
