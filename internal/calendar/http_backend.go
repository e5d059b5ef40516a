package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// HTTPBackend talks to the clinic's calendar service over its REST API.
type HTTPBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHTTPBackend creates a client for the calendar service at baseURL.
func NewHTTPBackend(baseURL, apiKey string, logger *logging.Logger) *HTTPBackend {
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type eventPayload struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Notes string    `json:"notes,omitempty"`
}

func (b *HTTPBackend) ConflictingEvent(ctx context.Context, start time.Time, durationMin int, excludeID string) (*Event, error) {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	q := url.Values{}
	q.Set("from", start.UTC().Format(time.RFC3339))
	q.Set("to", end.UTC().Format(time.RFC3339))

	var events []Event
	if err := b.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &events); err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == excludeID {
			continue
		}
		if events[i].Start.Before(end) && start.Before(events[i].End) {
			return &events[i], nil
		}
	}
	return nil, nil
}

func (b *HTTPBackend) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	var created Event
	payload := eventPayload{Title: in.Title, Start: in.Start, End: in.end(), Notes: in.Notes}
	if err := b.do(ctx, http.MethodPost, "/events", payload, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("calendar: create event returned empty id")
	}
	return created.ID, nil
}

func (b *HTTPBackend) UpdateEvent(ctx context.Context, id string, in EventInput) error {
	payload := eventPayload{Title: in.Title, Start: in.Start, End: in.end(), Notes: in.Notes}
	return b.do(ctx, http.MethodPut, "/events/"+url.PathEscape(id), payload, nil)
}

func (b *HTTPBackend) DeleteEvent(ctx context.Context, id string) error {
	return b.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, payload, out any) error {
	if b.baseURL == "" {
		return fmt.Errorf("calendar: missing base url")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("calendar: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("calendar: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("calendar: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("calendar: status %d: %s", resp.StatusCode, msg)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("calendar: decode response: %w", err)
		}
	}
	return nil
}
