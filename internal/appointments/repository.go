package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines appointment persistence.
type Repository interface {
	Insert(ctx context.Context, in *CreateInput) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, id int64, in *UpdateInput) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, int, error)
	// ListUpcomingByPatient returns the patient's scheduled appointments at
	// or after now, earliest first.
	ListUpcomingByPatient(ctx context.Context, patientID int64, now time.Time) ([]*Appointment, error)
}

// InMemoryRepository keeps appointments in a map, for tests and local
// development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[int64]*Appointment)}
}

func (r *InMemoryRepository) Insert(ctx context.Context, in *CreateInput) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a := &Appointment{
		ID:          r.nextID,
		PatientID:   in.PatientID,
		Date:        in.Date,
		Reason:      in.Reason,
		DurationMin: in.DurationMin,
		Status:      StatusScheduled,
		CreatedAt:   time.Now().UTC(),
	}
	r.rows[a.ID] = a
	return cloneAppointment(a), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int64, in *UpdateInput) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Reason != nil {
		a.Reason = in.Reason
	}
	if in.DurationMin != nil {
		a.DurationMin = *in.DurationMin
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.CalendarEventID != nil {
		a.CalendarEventID = in.CalendarEventID
	}
	return cloneAppointment(a), nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Appointment
	for _, a := range r.rows {
		if filter.PatientID != 0 && a.PatientID != filter.PatientID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !a.Date.Before(*filter.To) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	total := len(matched)
	limit, offset := clampPage(filter.Limit, filter.Offset)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*Appointment, 0, end-offset)
	for _, a := range matched[offset:end] {
		out = append(out, cloneAppointment(a))
	}
	return out, total, nil
}

func (r *InMemoryRepository) ListUpcomingByPatient(ctx context.Context, patientID int64, now time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Appointment
	for _, a := range r.rows {
		if a.PatientID != patientID || a.Status != StatusScheduled || a.Date.Before(now) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func cloneAppointment(a *Appointment) *Appointment {
	clone := *a
	return &clone
}
