package model

import "time"

// Group coordinates a multi-buyer purchase against one event.  Members
// join via the invite code; a group purchase creates one booking per
// member and shares a volume-based discount tier.  The aggregate
// columns are only updated after a group purchase fully succeeds.
//
// Fields:
//  ID                   – primary key identifier.
//  EventID              – event this group buys tickets for.
//  CreatorID            – user who created the group (auto-added as admin).
//  Name                 – display name of the group.
//  InviteCode           – unique code shared to join the group.
//  MaxMembers           – upper bound on member count.
//  IsActive             – inactive groups cannot purchase or accept members.
//  TotalBookings        – number of bookings created through this group.
//  TotalAmountCents     – sum of member booking totals.
//  DiscountAppliedCents – sum of discounts granted across member bookings.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – timestamp of last update.
type Group struct {
    ID                   uint64    // ticket_groups.id
    EventID              uint64    // ticket_groups.event_id
    CreatorID            uint64    // ticket_groups.creator_id
    Name                 string    // ticket_groups.name
    InviteCode           string    // ticket_groups.invite_code
    MaxMembers           uint32    // ticket_groups.max_members
    IsActive             bool      // ticket_groups.is_active
    TotalBookings        uint32    // ticket_groups.total_bookings
    TotalAmountCents     uint64    // ticket_groups.total_amount_cents
    DiscountAppliedCents uint64    // ticket_groups.discount_applied_cents
    CreatedAt            time.Time // ticket_groups.created_at
    UpdatedAt            time.Time // ticket_groups.updated_at
}

// GroupMember links a user to a group.  The creator is inserted as an
// admin member when the group is created; only admins may start a
// group purchase.
//
// Fields:
//  ID       – primary key identifier.
//  GroupID  – group joined.
//  UserID   – member user.
//  IsAdmin  – whether this member administers the group.
//  JoinedAt – when the user joined.
type GroupMember struct {
    ID       uint64    // group_members.id
    GroupID  uint64    // group_members.group_id
    UserID   uint64    // group_members.user_id
    IsAdmin  bool      // group_members.is_admin
    JoinedAt time.Time // group_members.joined_at
}
