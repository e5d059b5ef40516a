// Package calendar mirrors clinic appointments onto an external agenda.
// The database remains the source of truth; calendar writes are secondary
// effects whose failures the caller decides how to surface.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one busy block on the clinic agenda.
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Notes string    `json:"notes,omitempty"`
}

// EventInput describes an event to create or replace.
type EventInput struct {
	Title       string
	Start       time.Time
	DurationMin int
	Notes       string
}

func (in EventInput) end() time.Time {
	return in.Start.Add(time.Duration(in.DurationMin) * time.Minute)
}

// Backend is the calendar the clinic schedules against.
type Backend interface {
	// ConflictingEvent returns the first event overlapping the given slot,
	// or nil when the slot is free. An event may be excluded by id so a
	// reschedule does not collide with itself.
	ConflictingEvent(ctx context.Context, start time.Time, durationMin int, excludeID string) (*Event, error)
	CreateEvent(ctx context.Context, in EventInput) (string, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) error
	DeleteEvent(ctx context.Context, id string) error
}

// MemoryBackend keeps events in memory, for tests and local development.
type MemoryBackend struct {
	mu     sync.Mutex
	events map[string]*Event
}

// NewMemoryBackend creates an empty in-memory calendar.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{events: make(map[string]*Event)}
}

func (b *MemoryBackend) ConflictingEvent(ctx context.Context, start time.Time, durationMin int, excludeID string) (*Event, error) {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	b.mu.Lock()
	defer b.mu.Unlock()

	var hits []*Event
	for _, ev := range b.events {
		if ev.ID == excludeID {
			continue
		}
		if ev.Start.Before(end) && start.Before(ev.End) {
			hits = append(hits, ev)
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Start.Before(hits[j].Start) })
	clone := *hits[0]
	return &clone, nil
}

func (b *MemoryBackend) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.events[id] = &Event{ID: id, Title: in.Title, Start: in.Start, End: in.end(), Notes: in.Notes}
	return id, nil
}

func (b *MemoryBackend) UpdateEvent(ctx context.Context, id string, in EventInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.events[id]; !ok {
		return fmt.Errorf("calendar: event %s not found", id)
	}
	b.events[id] = &Event{ID: id, Title: in.Title, Start: in.Start, End: in.end(), Notes: in.Notes}
	return nil
}

func (b *MemoryBackend) DeleteEvent(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.events[id]; !ok {
		return fmt.Errorf("calendar: event %s not found", id)
	}
	delete(b.events, id)
	return nil
}

// Len reports how many events the backend holds. Test helper.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
