package entitlement

import (
	"context"
	"fmt"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/repo"
)

// Window is the fixed usage period after which counters start over.
const Window = 24 * time.Hour

// IsExpired reports whether rec's window has elapsed at now. A record exactly
// one Window old is still current.
func IsExpired(rec repo.UsageRecord, now time.Time) bool {
	return now.Sub(rec.LastReset) > Window
}

// ApplyResetIfDue returns rec zeroed at now when its window has elapsed.
func ApplyResetIfDue(rec repo.UsageRecord, now time.Time) (repo.UsageRecord, bool) {
	if !IsExpired(rec, now) {
		return rec, false
	}
	rec.Count = 0
	rec.LastReset = now
	return rec, true
}

// Ledger keeps per-user, per-service call counters.
type Ledger struct {
	repo  repo.Repository
	clock Clock
}

// NewLedger builds a Ledger on top of the repository.
func NewLedger(r repo.Repository, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ledger{repo: r, clock: clock}
}

// GetOrCreate loads the counter, creating it on first use and persisting a
// due reset.
func (l *Ledger) GetOrCreate(ctx context.Context, userID int64, service string) (repo.UsageRecord, error) {
	now := l.clock.Now()
	rec, err := l.repo.UpdateUsage(ctx, userID, service, now, func(rec *repo.UsageRecord) (bool, error) {
		return resetInPlace(rec, now), nil
	})
	if err != nil {
		return repo.UsageRecord{}, fmt.Errorf("load usage %s: %w", service, err)
	}
	return *rec, nil
}

// Check reports whether one more call fits under quota and how many were used.
func (l *Ledger) Check(ctx context.Context, userID int64, service string, quota int) (bool, int, error) {
	rec, err := l.GetOrCreate(ctx, userID, service)
	if err != nil {
		return false, 0, err
	}
	return fits(rec.Count, quota), rec.Count, nil
}

// Increment adds exactly one call to the counter.
func (l *Ledger) Increment(ctx context.Context, userID int64, service string) error {
	now := l.clock.Now()
	_, err := l.repo.UpdateUsage(ctx, userID, service, now, func(rec *repo.UsageRecord) (bool, error) {
		resetInPlace(rec, now)
		rec.Count++
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("increment usage %s: %w", service, err)
	}
	return nil
}

// TryIncrement checks and increments in one transaction. used is the
// counter value after the call.
func (l *Ledger) TryIncrement(ctx context.Context, userID int64, service string, quota int) (bool, int, error) {
	now := l.clock.Now()
	var allowed bool
	rec, err := l.repo.UpdateUsage(ctx, userID, service, now, func(rec *repo.UsageRecord) (bool, error) {
		changed := resetInPlace(rec, now)
		if !fits(rec.Count, quota) {
			return changed, nil
		}
		allowed = true
		rec.Count++
		return true, nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("try increment usage %s: %w", service, err)
	}
	return allowed, rec.Count, nil
}

func resetInPlace(rec *repo.UsageRecord, now time.Time) bool {
	next, changed := ApplyResetIfDue(*rec, now)
	*rec = next
	return changed
}

func fits(used, quota int) bool {
	return quota == catalog.Unlimited || used < quota
}
