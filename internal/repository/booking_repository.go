package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// BookingRepo provides persistence for bookings and their items. A
// booking and its items are always written together in one
// transaction; items are immutable after creation (the unit price is
// a snapshot taken at purchase time). Status transitions use guarded
// UPDATEs so a booking can only ever move forward through its
// lifecycle.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, user_id, event_id, group_id, status, total_amount_cents, discount_amount_cents, discount_rate, payment_ref, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
    var groupID sql.NullInt64
    var paymentRef sql.NullString
    err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.EventID, &groupID, &b.Status,
        &b.TotalAmountCents, &b.DiscountAmountCents, &b.DiscountRate,
        &paymentRef, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return err
    }
    if groupID.Valid {
        g := uint64(groupID.Int64)
        b.GroupID = &g
    }
    if paymentRef.Valid {
        p := paymentRef.String
        b.PaymentRef = &p
    }
    return nil
}

// Create inserts a booking and its items in a single transaction and
// populates generated IDs and timestamps. A collision on the unique
// reference column returns ErrDuplicateReference; the caller
// regenerates the reference and retries.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking, items []model.BookingItem) error {
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

    res, err := tx.ExecContext(ctx,
        `INSERT INTO bookings (reference, user_id, event_id, status, total_amount_cents, discount_amount_cents, discount_rate)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        b.Reference, b.UserID, b.EventID, model.BookingStatusPending,
        b.TotalAmountCents, b.DiscountAmountCents, b.DiscountRate)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrDuplicateReference
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    b.Status = model.BookingStatusPending

    if len(items) > 0 {
        query := `INSERT INTO booking_items (booking_id, ticket_type_id, quantity, unit_price_cents) VALUES `
        args := make([]interface{}, 0, len(items)*4)
        for i := range items {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?)"
            items[i].BookingID = b.ID
            args = append(args, b.ID, items[i].TicketTypeID, items[i].Quantity, items[i].UnitPriceCents)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }

    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID)
    if err := scanBooking(row, b); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    var b model.Booking
    row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
    if err := scanBooking(row, &b); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &b, nil
}

// GetByReference returns a booking by its human-shareable reference.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
    var b model.Booking
    row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, reference)
    if err := scanBooking(row, &b); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &b, nil
}

// ItemsByBooking returns the booking's items ordered by ID.
func (r *BookingRepo) ItemsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingItem, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, booking_id, ticket_type_id, quantity, unit_price_cents, created_at
         FROM booking_items WHERE booking_id = ? ORDER BY id`, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.BookingItem, 0)
    for rows.Next() {
        var it model.BookingItem
        if err := rows.Scan(&it.ID, &it.BookingID, &it.TicketTypeID, &it.Quantity, &it.UnitPriceCents, &it.CreatedAt); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// GetItem returns a single booking item.
func (r *BookingRepo) GetItem(ctx context.Context, itemID uint64) (*model.BookingItem, error) {
    var it model.BookingItem
    err := r.db.QueryRowContext(ctx,
        `SELECT id, booking_id, ticket_type_id, quantity, unit_price_cents, created_at
         FROM booking_items WHERE id = ?`, itemID).
        Scan(&it.ID, &it.BookingID, &it.TicketTypeID, &it.Quantity, &it.UnitPriceCents, &it.CreatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &it, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return r.list(ctx, `WHERE user_id = ?`, userID)
}

// ListByEvent returns all bookings of an event, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
    return r.list(ctx, `WHERE event_id = ?`, eventID)
}

// ListActiveByEvent returns PENDING and CONFIRMED bookings of an
// event. Used when an event is cancelled to release everything that
// still holds inventory.
func (r *BookingRepo) ListActiveByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
    return r.list(ctx, `WHERE event_id = ? AND status IN ('PENDING','CONFIRMED')`, eventID)
}

func (r *BookingRepo) list(ctx context.Context, where string, args ...interface{}) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings `+where+` ORDER BY created_at DESC`, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        var b model.Booking
        if err := scanBooking(rows, &b); err != nil {
            return nil, err
        }
        bookings = append(bookings, b)
    }
    return bookings, rows.Err()
}

// UpdateStatus transitions a booking from one status to another. The
// previous status is part of the WHERE clause: when no row matches,
// ErrConflict is returned and nothing changes. This is the guard that
// keeps the lifecycle strictly forward.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`, to, id, from)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        if _, getErr := r.GetByID(ctx, id); getErr != nil {
            return getErr
        }
        return ErrConflict
    }
    return nil
}

// SetPaymentRef records the external payment reference on a booking.
func (r *BookingRepo) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET payment_ref = ? WHERE id = ?`, ref, id)
    return err
}

// ApplyDiscount attaches a booking to a group and rewrites its totals
// with the group discount applied. Only pending bookings can be
// discounted; the guard returns ErrConflict otherwise.
func (r *BookingRepo) ApplyDiscount(ctx context.Context, id, groupID uint64, rate float64, discountCents, totalCents uint32) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET group_id = ?, discount_rate = ?, discount_amount_cents = ?, total_amount_cents = ?
         WHERE id = ? AND status = ?`,
        groupID, rate, discountCents, totalCents, id, model.BookingStatusPending)
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

// Delete removes a booking together with its items and any issued
// credentials. This is the administrative destroy used by group
// rollback; the normal lifecycle never deletes rows.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
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
    if _, err := tx.ExecContext(ctx,
        `DELETE FROM admission_credentials
         WHERE booking_item_id IN (SELECT id FROM booking_items WHERE booking_id = ?)`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM booking_items WHERE booking_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ExpiredPending returns pending bookings created before the cutoff.
// The sweeper cancels them to release inventory locked up by
// abandoned carts.
func (r *BookingRepo) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings
         WHERE status = ? AND created_at < ? ORDER BY created_at LIMIT ?`,
        model.BookingStatusPending, cutoff.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        var b model.Booking
        if err := scanBooking(rows, &b); err != nil {
            return nil, err
        }
        bookings = append(bookings, b)
    }
    return bookings, rows.Err()
}
