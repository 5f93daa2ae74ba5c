package memory

import (
	"context"
	"slices"
	"sort"

	"eventplanner/internal/domain"
)

type eventRepository struct {
	store *Store
}

// NewEventRepository returns a domain.EventRepository backed by s.
func NewEventRepository(s *Store) domain.EventRepository {
	return &eventRepository{store: s}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[e.CreatorID]; !ok {
		return domain.ErrNotFound
	}
	row := &eventRow{
		id:          s.newID(),
		title:       e.Title,
		description: e.Description,
		startTime:   e.StartTime,
		creatorID:   e.CreatorID,
		createdAt:   s.now().UTC(),
		attendees:   []string{e.CreatorID},
	}
	s.events[row.id] = row

	e.ID = row.id
	e.CreatedAt = row.createdAt
	creator := domain.Attendee{ID: e.CreatorID, Name: s.userName(e.CreatorID)}
	e.Creator = &creator
	e.Attendees = []domain.Attendee{creator}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e := r.toDomain(row)
	e.Attendees = []domain.Attendee{}
	return e, nil
}

func (r *eventRepository) GetWithAttendees(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.toDomain(row), nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.Event, 0, len(s.events))
	for _, row := range s.events {
		events = append(events, r.toDomain(row))
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (r *eventRepository) UpdateAttendees(ctx context.Context, eventID, userID string, op domain.AttendeeOp) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.events[eventID]
	if !ok {
		return false, domain.ErrNotFound
	}
	idx := slices.Index(row.attendees, userID)
	switch op {
	case domain.AttendeeAdd:
		if idx >= 0 {
			return false, nil
		}
		if _, ok := s.users[userID]; !ok {
			return false, domain.ErrNotFound
		}
		row.attendees = append(row.attendees, userID)
		return true, nil
	case domain.AttendeeRemove:
		if idx < 0 {
			return false, nil
		}
		row.attendees = slices.Delete(row.attendees, idx, idx+1)
		return true, nil
	default:
		return false, domain.ErrInvalidInput
	}
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// toDomain copies row into a fresh Event; callers hold the store lock.
func (r *eventRepository) toDomain(row *eventRow) *domain.Event {
	s := r.store
	creator := domain.Attendee{ID: row.creatorID, Name: s.userName(row.creatorID)}
	attendees := make([]domain.Attendee, 0, len(row.attendees))
	for _, id := range row.attendees {
		attendees = append(attendees, domain.Attendee{ID: id, Name: s.userName(id)})
	}
	return &domain.Event{
		ID:          row.id,
		Title:       row.title,
		Description: row.description,
		StartTime:   row.startTime,
		CreatorID:   row.creatorID,
		Creator:     &creator,
		Attendees:   attendees,
		CreatedAt:   row.createdAt,
	}
}
