package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// GroupRepo provides persistence for ticket groups and their members.
// Membership joins are serialized with a row-level lock on the group
// so the max_members bound cannot be exceeded by concurrent joins.
type GroupRepo struct {
    db *sql.DB
}

// NewGroupRepo returns a GroupRepo bound to the given database.
func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{db: db} }

const groupColumns = `id, event_id, creator_id, name, invite_code, max_members, is_active, total_bookings, total_amount_cents, discount_applied_cents, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }, g *model.Group) error {
    return row.Scan(&g.ID, &g.EventID, &g.CreatorID, &g.Name, &g.InviteCode, &g.MaxMembers,
        &g.IsActive, &g.TotalBookings, &g.TotalAmountCents, &g.DiscountAppliedCents,
        &g.CreatedAt, &g.UpdatedAt)
}

// Create inserts a group and its creator as an admin member in one
// transaction. A collision on the unique invite code returns
// ErrDuplicateReference; the caller regenerates and retries.
func (r *GroupRepo) Create(ctx context.Context, g *model.Group) error {
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
        `INSERT INTO ticket_groups (event_id, creator_id, name, invite_code, max_members, is_active)
         VALUES (?, ?, ?, ?, ?, 1)`,
        g.EventID, g.CreatorID, g.Name, g.InviteCode, g.MaxMembers)
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
    g.ID = uint64(id)
    if _, err := tx.ExecContext(ctx,
        `INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, 1)`,
        g.ID, g.CreatorID); err != nil {
        return err
    }
    row := tx.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM ticket_groups WHERE id = ?`, g.ID)
    if err := scanGroup(row, g); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a single group or ErrGroupNotFound.
func (r *GroupRepo) GetByID(ctx context.Context, id uint64) (*model.Group, error) {
    var g model.Group
    row := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM ticket_groups WHERE id = ?`, id)
    if err := scanGroup(row, &g); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrGroupNotFound
        }
        return nil, err
    }
    return &g, nil
}

// GetByInviteCode resolves a group by its invite code.
func (r *GroupRepo) GetByInviteCode(ctx context.Context, code string) (*model.Group, error) {
    var g model.Group
    row := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM ticket_groups WHERE invite_code = ?`, code)
    if err := scanGroup(row, &g); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrGroupNotFound
        }
        return nil, err
    }
    return &g, nil
}

// AddMember joins a user to a group. The group row is locked while
// the member count is checked so concurrent joins cannot overshoot
// max_members. Duplicate membership returns ErrAlreadyMember.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID uint64) error {
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
    var maxMembers uint32
    var isActive bool
    err = tx.QueryRowContext(ctx,
        `SELECT max_members, is_active FROM ticket_groups WHERE id = ? FOR UPDATE`,
        groupID).Scan(&maxMembers, &isActive)
    if err != nil {
        if err == sql.ErrNoRows {
            return ErrGroupNotFound
        }
        return err
    }
    if !isActive {
        return ErrConflict
    }
    var count uint32
    if err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM group_members WHERE group_id = ?`, groupID).Scan(&count); err != nil {
        return err
    }
    if count >= maxMembers {
        return ErrGroupFull
    }
    if _, err := tx.ExecContext(ctx,
        `INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, 0)`,
        groupID, userID); err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrAlreadyMember
        }
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Members returns all members of a group in join order.
func (r *GroupRepo) Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, group_id, user_id, is_admin, joined_at FROM group_members WHERE group_id = ? ORDER BY joined_at, id`,
        groupID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    members := make([]model.GroupMember, 0)
    for rows.Next() {
        var m model.GroupMember
        if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.IsAdmin, &m.JoinedAt); err != nil {
            return nil, err
        }
        members = append(members, m)
    }
    return members, rows.Err()
}

// IsAdmin reports whether the user administers the group.
func (r *GroupRepo) IsAdmin(ctx context.Context, groupID, userID uint64) (bool, error) {
    var isAdmin bool
    err := r.db.QueryRowContext(ctx,
        `SELECT is_admin FROM group_members WHERE group_id = ? AND user_id = ?`,
        groupID, userID).Scan(&isAdmin)
    if err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return isAdmin, nil
}

// AddAggregates increments the group's rollup counters after a fully
// successful group purchase.
func (r *GroupRepo) AddAggregates(ctx context.Context, groupID uint64, bookings uint32, amountCents, discountCents uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE ticket_groups
         SET total_bookings = total_bookings + ?,
             total_amount_cents = total_amount_cents + ?,
             discount_applied_cents = discount_applied_cents + ?
         WHERE id = ?`,
        bookings, amountCents, discountCents, groupID)
    return err
}
