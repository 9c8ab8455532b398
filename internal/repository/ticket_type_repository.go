package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// TicketTypeRepo owns the ticket_types table and, with it, the
// inventory ledger. The reserved counter is only ever written through
// Reserve and Release; no other code touches it. Reserve serializes
// concurrent attempts against the same ticket type with a row-level
// lock (SELECT ... FOR UPDATE) and re-checks availability after the
// lock is held, so two concurrent reservations can never both observe
// stale availability.
type TicketTypeRepo struct {
    db *sql.DB
}

// NewTicketTypeRepo returns a TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketTypeColumns = `id, event_id, name, price_cents, capacity, reserved, sale_starts_at, sale_ends_at, created_at, updated_at`

func scanTicketType(row interface{ Scan(...any) error }, t *model.TicketType) error {
    return row.Scan(&t.ID, &t.EventID, &t.Name, &t.PriceCents, &t.Capacity, &t.Reserved,
        &t.SaleStartsAt, &t.SaleEndsAt, &t.CreatedAt, &t.UpdatedAt)
}

// Create inserts a new ticket type and populates the generated ID and
// timestamps on the passed struct.
func (r *TicketTypeRepo) Create(ctx context.Context, t *model.TicketType) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO ticket_types (event_id, name, price_cents, capacity, reserved, sale_starts_at, sale_ends_at)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
        t.EventID, t.Name, t.PriceCents, t.Capacity,
        t.SaleStartsAt.UTC(), t.SaleEndsAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    row := r.db.QueryRowContext(ctx,
        `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, t.ID)
    return scanTicketType(row, t)
}

// GetByID returns a single ticket type or ErrTicketTypeNotFound.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
    var t model.TicketType
    row := r.db.QueryRowContext(ctx,
        `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id)
    if err := scanTicketType(row, &t); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrTicketTypeNotFound
        }
        return nil, err
    }
    return &t, nil
}

// ListByEvent returns all ticket types of an event ordered by ID.
func (r *TicketTypeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = ? ORDER BY id`, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    types := make([]model.TicketType, 0)
    for rows.Next() {
        var t model.TicketType
        if err := scanTicketType(rows, &t); err != nil {
            return nil, err
        }
        types = append(types, t)
    }
    return types, rows.Err()
}

// Reserve atomically decrements available inventory for one ticket
// type. It locks the row, re-checks `capacity - reserved >= qty` under
// the lock and increments reserved in the same transaction. On a
// shortfall it returns *InsufficientInventoryError carrying the
// current availability; nothing is mutated in that case.
func (r *TicketTypeRepo) Reserve(ctx context.Context, ticketTypeID uint64, qty uint32) error {
    if qty == 0 {
        return nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    var capacity, reserved uint32
    err = tx.QueryRowContext(ctx,
        `SELECT capacity, reserved FROM ticket_types WHERE id = ? FOR UPDATE`,
        ticketTypeID).Scan(&capacity, &reserved)
    if err != nil {
        if err == sql.ErrNoRows {
            return ErrTicketTypeNotFound
        }
        return err
    }
    available := uint32(0)
    if capacity > reserved {
        available = capacity - reserved
    }
    if available < qty {
        return &InsufficientInventoryError{TicketTypeID: ticketTypeID, Requested: qty, Available: available}
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE ticket_types SET reserved = reserved + ? WHERE id = ?`,
        qty, ticketTypeID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Release is the exact inverse of Reserve. A single guarded UPDATE is
// atomic on its own, so no explicit lock is needed; the guard keeps
// reserved from going negative if a compensation is replayed against
// already-released state.
func (r *TicketTypeRepo) Release(ctx context.Context, ticketTypeID uint64, qty uint32) error {
    if qty == 0 {
        return nil
    }
    res, err := r.db.ExecContext(ctx,
        `UPDATE ticket_types SET reserved = reserved - ? WHERE id = ? AND reserved >= ?`,
        qty, ticketTypeID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// UpdatePricing changes price and capacity of a ticket type. Capacity
// may never drop below the reserved count; the guard is enforced in
// the statement so a concurrent reservation cannot slip under it.
func (r *TicketTypeRepo) UpdatePricing(ctx context.Context, id uint64, priceCents, capacity uint32) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE ticket_types SET price_cents = ?, capacity = ? WHERE id = ? AND reserved <= ?`,
        priceCents, capacity, id, capacity)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// UpdateSaleWindow adjusts when a ticket type is on sale.
func (r *TicketTypeRepo) UpdateSaleWindow(ctx context.Context, id uint64, start, end time.Time) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE ticket_types SET sale_starts_at = ?, sale_ends_at = ? WHERE id = ?`,
        start.UTC(), end.UTC(), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrTicketTypeNotFound
    }
    return nil
}
