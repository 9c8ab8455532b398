package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// CredentialRepo owns the admission_credentials table. The used_at
// column is only ever set through Consume and ConsumeAllForItem, both
// of which are single guarded UPDATEs (used_at IS NULL in the WHERE
// clause), so two simultaneous check-ins of the same ticket cannot
// both succeed.
type CredentialRepo struct {
    db *sql.DB
}

// NewCredentialRepo returns a CredentialRepo bound to the given database.
func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{db: db} }

// CreateBatch inserts all credentials for a booking item in one
// statement. Called once per item at confirmation time; a pending
// booking never has credentials.
func (r *CredentialRepo) CreateBatch(ctx context.Context, creds []model.AdmissionCredential) error {
    if len(creds) == 0 {
        return nil
    }
    query := `INSERT INTO admission_credentials (booking_item_id, ticket_number, token, issued_at, expires_at) VALUES `
    args := make([]interface{}, 0, len(creds)*5)
    for i, cr := range creds {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?)"
        args = append(args, cr.BookingItemID, cr.TicketNumber, cr.Token, cr.IssuedAt.UTC(), cr.ExpiresAt.UTC())
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// DeleteByItem removes all credentials of a booking item. Only used
// as compensation when a confirmation fails halfway through minting.
func (r *CredentialRepo) DeleteByItem(ctx context.Context, itemID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `DELETE FROM admission_credentials WHERE booking_item_id = ?`, itemID)
    return err
}

// ByItem returns all credentials of a booking item ordered by ticket
// number.
func (r *CredentialRepo) ByItem(ctx context.Context, itemID uint64) ([]model.AdmissionCredential, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, booking_item_id, ticket_number, token, issued_at, expires_at, used_at, checked_in_by
         FROM admission_credentials WHERE booking_item_id = ? ORDER BY ticket_number`, itemID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    creds := make([]model.AdmissionCredential, 0)
    for rows.Next() {
        var cr model.AdmissionCredential
        var usedAt sql.NullTime
        var checkedInBy sql.NullInt64
        if err := rows.Scan(&cr.ID, &cr.BookingItemID, &cr.TicketNumber, &cr.Token,
            &cr.IssuedAt, &cr.ExpiresAt, &usedAt, &checkedInBy); err != nil {
            return nil, err
        }
        if usedAt.Valid {
            t := usedAt.Time
            cr.UsedAt = &t
        }
        if checkedInBy.Valid {
            op := uint64(checkedInBy.Int64)
            cr.CheckedInBy = &op
        }
        creds = append(creds, cr)
    }
    return creds, rows.Err()
}

// Consume marks one credential as used and records the operator. The
// guard (used_at IS NULL, not expired) makes this a compare-and-set:
// when no row is updated, the reason is resolved with a follow-up
// read so the caller can distinguish AlreadyUsed from NotFound.
func (r *CredentialRepo) Consume(ctx context.Context, token string, itemID, operatorID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE admission_credentials
         SET used_at = UTC_TIMESTAMP(), checked_in_by = ?
         WHERE token = ? AND booking_item_id = ? AND used_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
        operatorID, token, itemID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var usedAt sql.NullTime
    err = r.db.QueryRowContext(ctx,
        `SELECT used_at FROM admission_credentials WHERE token = ? AND booking_item_id = ?`,
        token, itemID).Scan(&usedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return ErrCredentialNotFound
        }
        return err
    }
    if usedAt.Valid {
        return ErrCredentialUsed
    }
    // Row exists and is unused: the expiry guard must have failed.
    return ErrCredentialNotFound
}

// ConsumeAllForItem marks every unused, unexpired credential of a
// booking item as used and returns how many were consumed. Bulk
// check-in applies this per item, skipping what is already used.
func (r *CredentialRepo) ConsumeAllForItem(ctx context.Context, itemID, operatorID uint64) (int, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE admission_credentials
         SET used_at = UTC_TIMESTAMP(), checked_in_by = ?
         WHERE booking_item_id = ? AND used_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
        operatorID, itemID)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    return int(n), nil
}

// CountByItem returns total and used credential counts for an item.
func (r *CredentialRepo) CountByItem(ctx context.Context, itemID uint64) (total, used int, err error) {
    err = r.db.QueryRowContext(ctx,
        `SELECT COUNT(*), COUNT(used_at) FROM admission_credentials WHERE booking_item_id = ?`,
        itemID).Scan(&total, &used)
    return total, used, err
}
