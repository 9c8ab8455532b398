package service

import (
    "context"
    "log"
    "time"
)

// Sweeper periodically expires pending bookings that were never
// confirmed, returning their inventory to the pool. It is the only
// path by which an abandoned cart releases its hold.
type Sweeper struct {
    booking  *BookingService
    ttl      time.Duration
    interval time.Duration
    batch    int
}

// NewSweeper configures a sweeper. ttl is how long a booking may stay
// PENDING; interval is how often the sweep runs; batch caps how many
// bookings one pass expires.
func NewSweeper(booking *BookingService, ttl, interval time.Duration, batch int) *Sweeper {
    return &Sweeper{booking: booking, ttl: ttl, interval: interval, batch: batch}
}

// Run sweeps on a ticker until ctx is cancelled. Intended to be
// launched as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
    log.Printf("sweeper: started (ttl=%s interval=%s)", s.ttl, s.interval)
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            log.Println("sweeper: stopped")
            return
        case <-ticker.C:
            n, err := s.booking.ExpireStale(ctx, s.ttl, s.batch)
            if err != nil {
                log.Printf("sweeper: sweep failed: %v", err)
                continue
            }
            if n > 0 {
                log.Printf("sweeper: expired %d stale pending bookings", n)
            }
        }
    }
}
