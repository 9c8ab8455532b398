package service

import (
    "context"
    "log"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// MemberOrder is one group member's share of a group purchase.
type MemberOrder struct {
    UserID  uint64          `json:"user_id" validate:"required,gt=0"`
    Tickets []TicketRequest `json:"tickets" validate:"required,min=1,dive"`
}

// GroupPurchaseResult summarizes a completed group purchase.
type GroupPurchaseResult struct {
    GroupID            uint64          `json:"group_id"`
    DiscountRate       float64         `json:"discount_rate"`
    TotalTickets       uint32          `json:"total_tickets"`
    TotalAmountCents   uint64          `json:"total_amount_cents"`
    TotalDiscountCents uint64          `json:"total_discount_cents"`
    Bookings           []model.Booking `json:"bookings"`
}

// DiscountRate returns the volume discount tier for a combined ticket
// quantity. Tiers are cumulative thresholds, not per-member.
func DiscountRate(totalTickets uint32) float64 {
    switch {
    case totalTickets >= 50:
        return 0.20
    case totalTickets >= 20:
        return 0.15
    case totalTickets >= 10:
        return 0.10
    case totalTickets >= 5:
        return 0.05
    default:
        return 0
    }
}

// GroupService orchestrates multi-buyer purchases. A group purchase
// creates one pending booking per member order and applies the shared
// volume discount to each; if any member's purchase or discount fails,
// every booking created in the attempt is destroyed and its inventory
// released, so the group either gets all its bookings or none.
type GroupService struct {
    groups  GroupStore
    booking *BookingService
}

// NewGroupService wires a GroupService on top of the booking service.
func NewGroupService(groups GroupStore, booking *BookingService) *GroupService {
    if groups == nil || booking == nil {
        panic("nil dependency passed to NewGroupService")
    }
    return &GroupService{groups: groups, booking: booking}
}

// CreateGroup creates a group for an event with the caller as its
// admin member. The invite code is generated with collision retry.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID, eventID uint64, name string, maxMembers uint32) (*model.Group, error) {
    if maxMembers < 2 {
        return nil, validationf("a group needs at least 2 members")
    }
    if _, err := s.booking.purchasableEvent(ctx, eventID); err != nil {
        return nil, err
    }
    g := &model.Group{
        EventID:    eventID,
        CreatorID:  creatorID,
        Name:       name,
        MaxMembers: maxMembers,
        IsActive:   true,
    }
    var err error
    for attempt := 0; attempt < referenceAttempts; attempt++ {
        g.InviteCode, err = utils.NewInviteCode()
        if err != nil {
            return nil, err
        }
        err = s.groups.Create(ctx, g)
        if err != repository.ErrDuplicateReference {
            return g, err
        }
    }
    return nil, err
}

// Join adds the caller to the group behind an invite code. The member
// count check happens under a row lock in the store, so a full group
// never over-admits.
func (s *GroupService) Join(ctx context.Context, userID uint64, inviteCode string) (*model.Group, error) {
    g, err := s.groups.GetByInviteCode(ctx, inviteCode)
    if err != nil {
        return nil, err
    }
    if err := s.groups.AddMember(ctx, g.ID, userID); err != nil {
        return nil, err
    }
    return g, nil
}

// Get returns a group with its members, visible to members only.
func (s *GroupService) Get(ctx context.Context, groupID, userID uint64) (*model.Group, []model.GroupMember, error) {
    g, err := s.groups.GetByID(ctx, groupID)
    if err != nil {
        return nil, nil, err
    }
    members, err := s.groups.Members(ctx, g.ID)
    if err != nil {
        return nil, nil, err
    }
    for _, m := range members {
        if m.UserID == userID {
            return g, members, nil
        }
    }
    return nil, nil, repository.ErrForbidden
}

// Purchase runs a group purchase. Only a group admin may start one,
// and every order must belong to a current member. The discount tier
// is computed from the combined quantity across all orders before any
// booking is created.
func (s *GroupService) Purchase(ctx context.Context, initiatorID, groupID uint64, orders []MemberOrder) (*GroupPurchaseResult, error) {
    g, err := s.groups.GetByID(ctx, groupID)
    if err != nil {
        return nil, err
    }
    if !g.IsActive {
        return nil, ErrStateConflict
    }
    admin, err := s.groups.IsAdmin(ctx, g.ID, initiatorID)
    if err != nil {
        return nil, err
    }
    if !admin {
        return nil, repository.ErrForbidden
    }
    if len(orders) == 0 {
        return nil, validationf("a group purchase needs at least one order")
    }

    members, err := s.groups.Members(ctx, g.ID)
    if err != nil {
        return nil, err
    }
    memberIDs := make(map[uint64]bool, len(members))
    for _, m := range members {
        memberIDs[m.UserID] = true
    }

    var totalTickets uint32
    perType := make(map[uint64]uint32)
    seen := make(map[uint64]bool, len(orders))
    for _, o := range orders {
        if !memberIDs[o.UserID] {
            return nil, validationf("user %d is not a member of group %d", o.UserID, g.ID)
        }
        if seen[o.UserID] {
            return nil, validationf("duplicate order for user %d", o.UserID)
        }
        seen[o.UserID] = true
        for _, t := range o.Tickets {
            totalTickets += t.Quantity
            perType[t.TicketTypeID] += t.Quantity
        }
    }

    // Pre-flight availability check across the combined order, so an
    // obviously doomed purchase fails before any member's inventory is
    // touched. The authoritative check still happens per member under
    // the inventory lock.
    for ttID, qty := range perType {
        tt, err := s.booking.types.GetByID(ctx, ttID)
        if err != nil {
            return nil, err
        }
        if tt.Available() < qty {
            return nil, &repository.InsufficientInventoryError{
                TicketTypeID: ttID,
                Requested:    qty,
                Available:    tt.Available(),
            }
        }
    }
    rate := DiscountRate(totalTickets)

    created := make([]*model.Booking, 0, len(orders))
    destroyAll := func() {
        for i := len(created) - 1; i >= 0; i-- {
            if err := s.booking.DestroyPending(ctx, created[i].ID); err != nil {
                log.Printf("group: rollback of booking %d failed: %v", created[i].ID, err)
            }
        }
    }

    result := &GroupPurchaseResult{GroupID: g.ID, DiscountRate: rate, TotalTickets: totalTickets}
    for _, o := range orders {
        b, err := s.booking.Purchase(ctx, o.UserID, g.EventID, o.Tickets)
        if err != nil {
            destroyAll()
            return nil, err
        }
        created = append(created, b)

        discount := discountCents(b.TotalAmountCents, rate)
        newTotal := b.TotalAmountCents - discount
        if err := s.booking.bookings.ApplyDiscount(ctx, b.ID, g.ID, rate, discount, newTotal); err != nil {
            destroyAll()
            return nil, err
        }
        b.GroupID = &g.ID
        b.DiscountRate = rate
        b.DiscountAmountCents = discount
        b.TotalAmountCents = newTotal
        result.TotalAmountCents += uint64(newTotal)
        result.TotalDiscountCents += uint64(discount)
        result.Bookings = append(result.Bookings, *b)
    }

    // Aggregates are written only once the whole purchase stands.
    if err := s.groups.AddAggregates(ctx, g.ID, uint32(len(created)), result.TotalAmountCents, result.TotalDiscountCents); err != nil {
        log.Printf("group: aggregate update for group %d failed: %v", g.ID, err)
    }
    return result, nil
}
