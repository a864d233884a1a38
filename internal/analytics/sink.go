// Package analytics provides event tracking sinks for experiment assignment
// and exposure events.
package analytics

import (
	"context"
	"sync"
)

// Sink receives tracking events. Implementations must tolerate nil
// properties and must not retain the properties map after returning.
type Sink interface {
	Track(ctx context.Context, event string, properties map[string]any) error
}

// NopSink discards all events.
type NopSink struct{}

// Track discards the event.
func (NopSink) Track(context.Context, string, map[string]any) error {
	return nil
}

// ConsentFunc reports whether tracking consent was granted for the request.
type ConsentFunc func(ctx context.Context) bool

// WithConsent wraps a sink so events are silently dropped when the request
// context carries no tracking consent. The engine itself stays
// consent-unaware; gating lives entirely in this decorator.
func WithConsent(next Sink, consent ConsentFunc) Sink {
	return &consentGate{next: next, consent: consent}
}

type consentGate struct {
	next    Sink
	consent ConsentFunc
}

func (g *consentGate) Track(ctx context.Context, event string, properties map[string]any) error {
	if !g.consent(ctx) {
		return nil
	}
	return g.next.Track(ctx, event, properties)
}

// RecordedEvent is one event captured by a Recorder.
type RecordedEvent struct {
	Event      string
	Properties map[string]any
}

// Recorder captures events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// Track stores a copy of the event.
func (r *Recorder) Track(_ context.Context, event string, properties map[string]any) error {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Event: event, Properties: props})
	return nil
}

// Events returns a snapshot of everything tracked so far.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}
