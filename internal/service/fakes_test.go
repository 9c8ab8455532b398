package service

import (
    "context"
    "sync"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// memStore is an in-memory implementation of every store interface,
// guarded by one mutex so the concurrency tests exercise the same
// serialization the MySQL row locks provide in production.
type memStore struct {
    mu       sync.Mutex
    now      func() time.Time
    nextID   uint64
    events   map[uint64]*model.Event
    types    map[uint64]*model.TicketType
    bookings map[uint64]*model.Booking
    items    map[uint64]*model.BookingItem
    creds    map[uint64][]*model.AdmissionCredential // keyed by booking item ID
    groups   map[uint64]*model.Group
    members  map[uint64][]*model.GroupMember

    createCalls   int
    failCreateAt  int  // 1-based booking insert call to fail, 0 = never
    failCredBatch bool // force credential minting to fail
}

func newMemStore() *memStore {
    return &memStore{
        now:      func() time.Time { return time.Now().UTC() },
        events:   make(map[uint64]*model.Event),
        types:    make(map[uint64]*model.TicketType),
        bookings: make(map[uint64]*model.Booking),
        items:    make(map[uint64]*model.BookingItem),
        creds:    make(map[uint64][]*model.AdmissionCredential),
        groups:   make(map[uint64]*model.Group),
        members:  make(map[uint64][]*model.GroupMember),
    }
}

func (s *memStore) id() uint64 {
    s.nextID++
    return s.nextID
}

// addEvent seeds a published event starting in 24h and ending in 27h.
func (s *memStore) addEvent(status string) *model.Event {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    ev := &model.Event{
        ID:          s.id(),
        OrganizerID: 1,
        Title:       "Test Event",
        Venue:       "Main Hall",
        StartsAt:    now.Add(24 * time.Hour),
        EndsAt:      now.Add(27 * time.Hour),
        Status:      status,
    }
    s.events[ev.ID] = ev
    return ev
}

// addType seeds an on-sale ticket type for an event.
func (s *memStore) addType(eventID uint64, price, capacity uint32) *model.TicketType {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    tt := &model.TicketType{
        ID:           s.id(),
        EventID:      eventID,
        Name:         "General Admission",
        PriceCents:   price,
        Capacity:     capacity,
        SaleStartsAt: now.Add(-time.Hour),
        SaleEndsAt:   now.Add(23 * time.Hour),
    }
    s.types[tt.ID] = tt
    return tt
}

// ----- EventStore -----

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[id]
    if !ok {
        return nil, repository.ErrEventNotFound
    }
    cp := *ev
    return &cp, nil
}

// ----- InventoryLedger / TicketTypeStore -----

func (s *memStore) Reserve(ctx context.Context, ticketTypeID uint64, qty uint32) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    tt, ok := s.types[ticketTypeID]
    if !ok {
        return repository.ErrTicketTypeNotFound
    }
    if tt.Available() < qty {
        return &repository.InsufficientInventoryError{
            TicketTypeID: ticketTypeID, Requested: qty, Available: tt.Available(),
        }
    }
    tt.Reserved += qty
    return nil
}

func (s *memStore) Release(ctx context.Context, ticketTypeID uint64, qty uint32) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    tt, ok := s.types[ticketTypeID]
    if !ok || tt.Reserved < qty {
        return repository.ErrConflict
    }
    tt.Reserved -= qty
    return nil
}

func (s *memStore) GetTicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    tt, ok := s.types[id]
    if !ok {
        return nil, repository.ErrTicketTypeNotFound
    }
    cp := *tt
    return &cp, nil
}

func (s *memStore) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.TicketType, 0)
    for _, tt := range s.types {
        if tt.EventID == eventID {
            out = append(out, *tt)
        }
    }
    return out, nil
}

// typeStore adapts memStore to TicketTypeStore: the interface method
// name GetByID collides with EventStore's on the same struct.
type typeStore struct{ *memStore }

func (t typeStore) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
    return t.GetTicketType(ctx, id)
}

// ----- BookingStore -----

func (s *memStore) Create(ctx context.Context, b *model.Booking, items []model.BookingItem) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.createCalls++
    if s.failCreateAt != 0 && s.createCalls == s.failCreateAt {
        return repository.ErrConflict
    }
    for _, existing := range s.bookings {
        if existing.Reference == b.Reference {
            return repository.ErrDuplicateReference
        }
    }
    b.ID = s.id()
    b.CreatedAt = s.now()
    b.UpdatedAt = b.CreatedAt
    cp := *b
    s.bookings[b.ID] = &cp
    for i := range items {
        it := items[i]
        it.ID = s.id()
        it.BookingID = b.ID
        s.items[it.ID] = &it
    }
    return nil
}

func (s *memStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *memStore) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, b := range s.bookings {
        if b.Reference == reference {
            cp := *b
            return &cp, nil
        }
    }
    return nil, repository.ErrBookingNotFound
}

func (s *memStore) GetItem(ctx context.Context, itemID uint64) (*model.BookingItem, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    it, ok := s.items[itemID]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *it
    return &cp, nil
}

func (s *memStore) ItemsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingItem, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.BookingItem, 0)
    for _, it := range s.items {
        if it.BookingID == bookingID {
            out = append(out, *it)
        }
    }
    return out, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Booking, 0)
    for _, b := range s.bookings {
        if b.UserID == userID {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (s *memStore) ListActiveByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Booking, 0)
    for _, b := range s.bookings {
        if b.EventID == eventID &&
            (b.Status == model.BookingStatusPending || b.Status == model.BookingStatusConfirmed) {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    if b.Status != from {
        return repository.ErrConflict
    }
    b.Status = to
    b.UpdatedAt = s.now()
    return nil
}

func (s *memStore) SetPaymentRef(ctx context.Context, id uint64, paymentRef string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    ref := paymentRef
    b.PaymentRef = &ref
    return nil
}

func (s *memStore) ApplyDiscount(ctx context.Context, id, groupID uint64, rate float64, discountCents, totalCents uint32) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    if b.Status != model.BookingStatusPending {
        return repository.ErrConflict
    }
    gid := groupID
    b.GroupID = &gid
    b.DiscountRate = rate
    b.DiscountAmountCents = discountCents
    b.TotalAmountCents = totalCents
    return nil
}

func (s *memStore) Delete(ctx context.Context, id uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.bookings[id]; !ok {
        return repository.ErrBookingNotFound
    }
    for itemID, it := range s.items {
        if it.BookingID == id {
            delete(s.creds, itemID)
            delete(s.items, itemID)
        }
    }
    delete(s.bookings, id)
    return nil
}

func (s *memStore) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Booking, 0)
    for _, b := range s.bookings {
        if b.Status == model.BookingStatusPending && b.CreatedAt.Before(cutoff) {
            out = append(out, *b)
            if limit > 0 && len(out) >= limit {
                break
            }
        }
    }
    return out, nil
}

// bookingStore adapts memStore to BookingStore: GetByID collides with
// the other stores' method of the same name.
type bookingStore struct{ *memStore }

func (b bookingStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    return b.GetBooking(ctx, id)
}

// ----- CredentialStore -----

func (s *memStore) CreateBatch(ctx context.Context, creds []model.AdmissionCredential) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.failCredBatch {
        return repository.ErrConflict
    }
    for i := range creds {
        cr := creds[i]
        cr.ID = s.id()
        s.creds[cr.BookingItemID] = append(s.creds[cr.BookingItemID], &cr)
    }
    return nil
}

func (s *memStore) DeleteByItem(ctx context.Context, itemID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.creds, itemID)
    return nil
}

func (s *memStore) ByItem(ctx context.Context, itemID uint64) ([]model.AdmissionCredential, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.AdmissionCredential, 0, len(s.creds[itemID]))
    for _, cr := range s.creds[itemID] {
        out = append(out, *cr)
    }
    return out, nil
}

func (s *memStore) Consume(ctx context.Context, token string, itemID, operatorID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    for _, cr := range s.creds[itemID] {
        if cr.Token != token {
            continue
        }
        if cr.UsedAt != nil {
            return repository.ErrCredentialUsed
        }
        if !cr.ExpiresAt.After(now) {
            return repository.ErrCredentialNotFound
        }
        used := now
        cr.UsedAt = &used
        op := operatorID
        cr.CheckedInBy = &op
        return nil
    }
    return repository.ErrCredentialNotFound
}

func (s *memStore) ConsumeAllForItem(ctx context.Context, itemID, operatorID uint64) (int, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    n := 0
    for _, cr := range s.creds[itemID] {
        if cr.UsedAt == nil && cr.ExpiresAt.After(now) {
            used := now
            cr.UsedAt = &used
            op := operatorID
            cr.CheckedInBy = &op
            n++
        }
    }
    return n, nil
}

func (s *memStore) CountByItem(ctx context.Context, itemID uint64) (total, used int, err error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, cr := range s.creds[itemID] {
        total++
        if cr.UsedAt != nil {
            used++
        }
    }
    return total, used, nil
}

// ----- GroupStore -----

func (s *memStore) CreateGroup(ctx context.Context, g *model.Group) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, existing := range s.groups {
        if existing.InviteCode == g.InviteCode {
            return repository.ErrDuplicateReference
        }
    }
    g.ID = s.id()
    g.CreatedAt = s.now()
    cp := *g
    s.groups[g.ID] = &cp
    s.members[g.ID] = []*model.GroupMember{{
        ID: s.id(), GroupID: g.ID, UserID: g.CreatorID, IsAdmin: true, JoinedAt: g.CreatedAt,
    }}
    return nil
}

func (s *memStore) GetGroup(ctx context.Context, id uint64) (*model.Group, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    g, ok := s.groups[id]
    if !ok {
        return nil, repository.ErrGroupNotFound
    }
    cp := *g
    return &cp, nil
}

func (s *memStore) GetByInviteCode(ctx context.Context, code string) (*model.Group, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, g := range s.groups {
        if g.InviteCode == code {
            cp := *g
            return &cp, nil
        }
    }
    return nil, repository.ErrGroupNotFound
}

func (s *memStore) AddMember(ctx context.Context, groupID, userID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    g, ok := s.groups[groupID]
    if !ok {
        return repository.ErrGroupNotFound
    }
    if !g.IsActive {
        return repository.ErrConflict
    }
    for _, m := range s.members[groupID] {
        if m.UserID == userID {
            return repository.ErrAlreadyMember
        }
    }
    if uint32(len(s.members[groupID])) >= g.MaxMembers {
        return repository.ErrGroupFull
    }
    s.members[groupID] = append(s.members[groupID], &model.GroupMember{
        ID: s.id(), GroupID: groupID, UserID: userID, JoinedAt: s.now(),
    })
    return nil
}

func (s *memStore) Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.GroupMember, 0, len(s.members[groupID]))
    for _, m := range s.members[groupID] {
        out = append(out, *m)
    }
    return out, nil
}

func (s *memStore) IsAdmin(ctx context.Context, groupID, userID uint64) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, m := range s.members[groupID] {
        if m.UserID == userID {
            return m.IsAdmin, nil
        }
    }
    return false, nil
}

func (s *memStore) AddAggregates(ctx context.Context, groupID uint64, bookings uint32, amountCents, discountCents uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    g, ok := s.groups[groupID]
    if !ok {
        return repository.ErrGroupNotFound
    }
    g.TotalBookings += bookings
    g.TotalAmountCents += amountCents
    g.DiscountAppliedCents += discountCents
    return nil
}

// groupStore adapts memStore to GroupStore, resolving the Create and
// GetByID name collisions with BookingStore.
type groupStore struct{ *memStore }

func (g groupStore) Create(ctx context.Context, grp *model.Group) error {
    return g.CreateGroup(ctx, grp)
}

func (g groupStore) GetByID(ctx context.Context, id uint64) (*model.Group, error) {
    return g.GetGroup(ctx, id)
}

// ----- EventPublisher -----

// recordPublisher records published domain events for assertions.
type recordPublisher struct {
    mu        sync.Mutex
    confirmed []queue.BookingConfirmedEvent
    cancelled []queue.BookingCancelledEvent
    checkedIn []queue.TicketCheckedInEvent
    refunds   []queue.RefundRequestedEvent
}

func (p *recordPublisher) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.confirmed = append(p.confirmed, ev)
    return nil
}

func (p *recordPublisher) BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.cancelled = append(p.cancelled, ev)
    return nil
}

func (p *recordPublisher) TicketCheckedIn(ctx context.Context, ev queue.TicketCheckedInEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.checkedIn = append(p.checkedIn, ev)
    return nil
}

func (p *recordPublisher) RefundRequested(ctx context.Context, ev queue.RefundRequestedEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.refunds = append(p.refunds, ev)
    return nil
}

// newTestServices wires a full service stack on one memStore.
func newTestServices(store *memStore) (*BookingService, *GroupService, *CredentialService, *recordPublisher) {
    pub := &recordPublisher{}
    credSvc := NewCredentialService(store, bookingStore{store}, pub, "test-qr-secret", 6*time.Hour)
    bookingSvc := NewBookingService(store, typeStore{store}, store, bookingStore{store}, credSvc, pub)
    groupSvc := NewGroupService(groupStore{store}, bookingSvc)
    return bookingSvc, groupSvc, credSvc, pub
}
