package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HTTPSinkConfig holds options for the HTTP capture sink.
type HTTPSinkConfig struct {
	// Endpoint is the capture API base URL; events are POSTed to
	// Endpoint + "/capture".
	Endpoint string
	APIKey   string
	// QueueSize bounds the delivery queue. Zero uses 1000. Events are
	// dropped with a warning when the queue is full; tracking must never
	// block a request.
	QueueSize int
	// Client overrides the delivery client. Nil uses a 10s-timeout client.
	Client *http.Client
	Logger *slog.Logger
}

// HTTPSink delivers events to a PostHog-style capture API from a background
// worker.
type HTTPSink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger

	queue     chan captureEvent
	done      chan struct{}
	closeOnce sync.Once
}

// captureEvent is the capture API wire format.
type captureEvent struct {
	UUID       string         `json:"uuid"`
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// NewHTTPSink creates the sink and starts its delivery worker.
func NewHTTPSink(cfg HTTPSinkConfig) *HTTPSink {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	s := &HTTPSink{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   client,
		logger:   logger.With("component", "analytics"),
		queue:    make(chan captureEvent, queueSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Track enqueues an event for delivery. The subject_id property, when
// present, becomes the capture distinct_id.
func (s *HTTPSink) Track(_ context.Context, event string, properties map[string]any) error {
	distinctID, _ := properties["subject_id"].(string)

	ev := captureEvent{
		UUID:       uuid.NewString(),
		APIKey:     s.apiKey,
		Event:      event,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	select {
	case s.queue <- ev:
		return nil
	default:
		s.logger.Warn("analytics queue full, dropping event", "event", event)
		return nil
	}
}

// Close stops accepting events and waits for the queue to drain.
func (s *HTTPSink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	<-s.done
}

func (s *HTTPSink) run() {
	defer close(s.done)
	for ev := range s.queue {
		if err := s.post(ev); err != nil {
			s.logger.Warn("event delivery failed", "event", ev.Event, "error", err)
		}
	}
}

func (s *HTTPSink) post(ev captureEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint+"/capture", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("capture API returned status %d", resp.StatusCode)
	}
	return nil
}
