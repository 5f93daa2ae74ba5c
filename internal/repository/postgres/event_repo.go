package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"eventplanner/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		WITH inserted AS (
			INSERT INTO events (title, description, start_time, creator_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, creator_id
		)
		SELECT i.id, i.created_at, u.name
		FROM inserted i
		JOIN users u ON u.id = i.creator_id
	`
	var creatorName string
	if err = tx.QueryRowContext(ctx, query, e.Title, e.Description, e.StartTime, e.CreatorID).
		Scan(&e.ID, &e.CreatedAt, &creatorName); err != nil {
		return mapError(err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)`,
		e.ID, e.CreatorID,
	); err != nil {
		return mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return mapError(err)
	}

	creator := domain.Attendee{ID: e.CreatorID, Name: creatorName}
	e.Creator = &creator
	e.Attendees = []domain.Attendee{creator}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, description, start_time, creator_id, created_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{Attendees: []domain.Attendee{}}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartTime, &e.CreatorID, &e.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (r *eventRepository) GetWithAttendees(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT e.id, e.title, e.description, e.start_time, e.creator_id, e.created_at, u.name
		FROM events e
		JOIN users u ON u.id = e.creator_id
		WHERE e.id = $1
	`
	e := &domain.Event{}
	creator := domain.Attendee{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartTime, &e.CreatorID, &e.CreatedAt, &creator.Name,
	)
	if err != nil {
		return nil, mapError(err)
	}
	creator.ID = e.CreatorID
	e.Creator = &creator

	byEvent, err := r.attendeesFor(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	e.Attendees = byEvent[e.ID]
	if e.Attendees == nil {
		e.Attendees = []domain.Attendee{}
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT e.id, e.title, e.description, e.start_time, e.creator_id, e.created_at, u.name
		FROM events e
		JOIN users u ON u.id = e.creator_id
		ORDER BY e.start_time ASC, e.id ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	ids := make([]string, 0)
	for rows.Next() {
		e := &domain.Event{}
		creator := domain.Attendee{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.CreatorID, &e.CreatedAt, &creator.Name); err != nil {
			return nil, mapError(err)
		}
		creator.ID = e.CreatorID
		e.Creator = &creator
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(events) == 0 {
		return events, nil
	}

	byEvent, err := r.attendeesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		e.Attendees = byEvent[e.ID]
		if e.Attendees == nil {
			e.Attendees = []domain.Attendee{}
		}
	}
	return events, nil
}

// attendeesFor loads attendee summaries for the given events in join order.
func (r *eventRepository) attendeesFor(ctx context.Context, eventIDs []string) (map[string][]domain.Attendee, error) {
	query := `
		SELECT a.event_id, u.id, u.name
		FROM event_attendees a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = ANY($1)
		ORDER BY a.joined_at ASC, u.id ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Attendee, len(eventIDs))
	for rows.Next() {
		var eventID string
		var a domain.Attendee
		if err := rows.Scan(&eventID, &a.ID, &a.Name); err != nil {
			return nil, mapError(err)
		}
		out[eventID] = append(out[eventID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// UpdateAttendees decides idempotency in a single conditional statement, so two
// concurrent calls for the same (event, user) can never both report a change.
func (r *eventRepository) UpdateAttendees(ctx context.Context, eventID, userID string, op domain.AttendeeOp) (bool, error) {
	var query string
	switch op {
	case domain.AttendeeAdd:
		query = `
			INSERT INTO event_attendees (event_id, user_id)
			SELECT e.id, $2 FROM events e WHERE e.id = $1
			ON CONFLICT (event_id, user_id) DO NOTHING
		`
	case domain.AttendeeRemove:
		query = `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`
	default:
		return false, fmt.Errorf("%w: unknown attendee op %d", domain.ErrInvalidInput, op)
	}

	result, err := r.DB.ExecContext(ctx, query, eventID, userID)
	if err != nil {
		return false, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, mapError(err)
	}
	if affected > 0 {
		return true, nil
	}

	// Nothing changed: either a no-op on an existing event or the event is gone.
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
