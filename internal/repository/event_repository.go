package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides CRUD operations for events. Status transitions
// use a guarded UPDATE (WHERE status = <from>) so that two racing
// administrative calls cannot both transition the same event.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for callers that need to open a
// transaction spanning several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, organizer_id, title, venue, starts_at, ends_at, status, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }, e *model.Event) error {
    return row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Venue,
        &e.StartsAt, &e.EndsAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts a new event in DRAFT status and populates the
// generated ID and timestamps on the passed struct.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO events (organizer_id, title, venue, starts_at, ends_at, status)
         VALUES (?, ?, ?, ?, ?, ?)`,
        e.OrganizerID, e.Title, e.Venue, e.StartsAt.UTC(), e.EndsAt.UTC(), model.EventStatusDraft)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, e.ID)
    return scanEvent(row, e)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    var e model.Event
    row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
    if err := scanEvent(row, &e); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    return &e, nil
}

// ListPublished returns published events ordered by start time.
func (r *EventRepo) ListPublished(ctx context.Context) ([]model.Event, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE status = ? ORDER BY starts_at`,
        model.EventStatusPublished)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var e model.Event
        if err := scanEvent(rows, &e); err != nil {
            return nil, err
        }
        events = append(events, e)
    }
    return events, rows.Err()
}

// ListByOrganizer returns all events created by the given organizer,
// newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE organizer_id = ? ORDER BY created_at DESC`,
        organizerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var e model.Event
        if err := scanEvent(rows, &e); err != nil {
            return nil, err
        }
        events = append(events, e)
    }
    return events, rows.Err()
}

// UpdateStatus transitions an event from one status to another. The
// previous status is part of the WHERE clause; when no row matches,
// ErrConflict is returned and nothing changes.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE events SET status = ? WHERE id = ? AND status = ?`, to, id, from)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Distinguish a missing event from a failed guard.
        if _, getErr := r.GetByID(ctx, id); getErr != nil {
            return getErr
        }
        return ErrConflict
    }
    return nil
}
