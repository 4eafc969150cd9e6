package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/repo"
	"ai-bot/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	repo  *repo.SQLiteRepository
	clock *FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := repo.NewSQLite(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, r.RunMigrations(ctx, migrations.SQLite()))

	reg, err := catalog.New(catalog.DefaultPackages())
	require.NoError(t, err)

	clock := NewFakeClock(t0)
	return &fixture{
		svc:   NewService(reg, r, clock, nil, logger),
		repo:  r,
		clock: clock,
	}
}

func (f *fixture) user(t *testing.T, id int64) {
	t.Helper()
	_, err := f.repo.EnsureUser(context.Background(), repo.UserProfile{ID: id, Language: "en"}, f.clock.Now())
	require.NoError(t, err)
}

func (f *fixture) premium(t *testing.T, id int64, pkg string, expiry time.Time) {
	t.Helper()
	require.NoError(t, f.repo.UpdatePremium(context.Background(), id, repo.PremiumUpdate{
		IsPremium:     true,
		PremiumExpiry: &expiry,
		PackageKey:    &pkg,
	}))
}

func TestIsExpiredBoundary(t *testing.T) {
	rec := repo.UsageRecord{Count: 3, LastReset: t0}

	assert.False(t, IsExpired(rec, t0.Add(Window)))
	assert.True(t, IsExpired(rec, t0.Add(Window+time.Nanosecond)))

	same, changed := ApplyResetIfDue(rec, t0.Add(Window))
	assert.False(t, changed)
	assert.Equal(t, 3, same.Count)

	now := t0.Add(Window + time.Second)
	reset, changed := ApplyResetIfDue(rec, now)
	assert.True(t, changed)
	assert.Equal(t, 0, reset.Count)
	assert.Equal(t, now, reset.LastReset)
	assert.Equal(t, 3, rec.Count, "input is not mutated")
}

func TestFreshUserGetsFullQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1)

	basic := catalog.DefaultPackages()[0]
	for _, service := range catalog.Services {
		dec, err := f.svc.CheckRateLimit(ctx, 1, service)
		require.NoError(t, err)
		assert.Equal(t, Decision{Allowed: true, Used: 0, Limit: basic.Quotas[service]}, dec, service)
	}
}

func TestQuotaExhaustedAfterN(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1)

	for i := 0; i < 5; i++ {
		dec, err := f.svc.CheckRateLimit(ctx, 1, catalog.ServiceChat)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
		require.NoError(t, f.svc.Consume(ctx, 1, catalog.ServiceChat))
	}

	dec, err := f.svc.CheckRateLimit(ctx, 1, catalog.ServiceChat)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: false, Used: 5, Limit: 5}, dec)
}

func TestUnlimitedConsumeNeverCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 2)
	f.premium(t, 2, "pro", t0.Add(30*24*time.Hour))

	for i := 0; i < 25; i++ {
		require.NoError(t, f.svc.Consume(ctx, 2, catalog.ServiceChat))
	}
	_, err := f.repo.GetUsage(ctx, 2, catalog.ServiceChat)
	assert.True(t, errors.Is(err, repo.ErrNotFound), "ledger row stays absent")

	dec, err := f.svc.CheckRateLimit(ctx, 2, catalog.ServiceChat)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Used: 0, Limit: -1}, dec)
}

func TestCountersResetAfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 3)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.svc.Consume(ctx, 3, catalog.ServiceVideoCreation))
	}
	dec, err := f.svc.CheckRateLimit(ctx, 3, catalog.ServiceVideoCreation)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	f.clock.Advance(Window)
	dec, err = f.svc.CheckRateLimit(ctx, 3, catalog.ServiceVideoCreation)
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "no reset at exactly 24h")
	assert.Equal(t, 2, dec.Used)

	f.clock.Advance(time.Second)
	dec, err = f.svc.CheckRateLimit(ctx, 3, catalog.ServiceVideoCreation)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Used: 0, Limit: 2}, dec)

	rec, err := f.repo.GetUsage(ctx, 3, catalog.ServiceVideoCreation)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Count)
	assert.True(t, rec.LastReset.Equal(f.clock.Now()), "reset is persisted")
}

func TestLapsedPremiumFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 4)
	f.premium(t, 4, "standard", t0.Add(time.Hour))

	active, err := f.svc.IsPremiumActive(ctx, 4)
	require.NoError(t, err)
	assert.True(t, active)

	pkg, err := f.svc.UserPackage(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "standard", pkg.Key)

	f.clock.Advance(2 * time.Hour)

	dec, err := f.svc.CheckRateLimit(ctx, 4, catalog.ServiceChat)
	require.NoError(t, err)
	assert.Equal(t, 5, dec.Limit)

	u, err := f.repo.GetUser(ctx, 4)
	require.NoError(t, err)
	assert.False(t, u.IsPremium, "expiry is persisted lazily")

	active, err = f.svc.IsPremiumActive(ctx, 4)
	require.NoError(t, err)
	assert.False(t, active)

	pkg, err = f.svc.UserPackage(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "basic", pkg.Key)
}

func TestPremiumWithoutExpiryStaysActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 5)
	pkg := "pro"
	require.NoError(t, f.repo.UpdatePremium(ctx, 5, repo.PremiumUpdate{IsPremium: true, PackageKey: &pkg}))

	f.clock.Advance(10 * 365 * 24 * time.Hour)
	active, err := f.svc.IsPremiumActive(ctx, 5)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestUnknownServiceAndUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 6)

	_, err := f.svc.CheckRateLimit(ctx, 6, "teleport")
	assert.True(t, errors.Is(err, ErrUnknownService))
	assert.True(t, errors.Is(f.svc.Consume(ctx, 6, "teleport"), ErrUnknownService))

	basic := catalog.DefaultPackages()[0]
	dec, err := f.svc.CheckRateLimit(ctx, 999, catalog.ServiceChat)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Used: 0, Limit: basic.Quotas[catalog.ServiceChat]}, dec)
	_, err = f.repo.GetUsage(ctx, 999, catalog.ServiceChat)
	assert.True(t, errors.Is(err, repo.ErrNotFound), "checking stores nothing")

	assert.True(t, errors.Is(f.svc.Consume(ctx, 999, catalog.ServiceChat), repo.ErrNotFound))
	ran := false
	_, err = f.svc.Gate(ctx, 999, catalog.ServiceChat, func(context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, errors.Is(err, repo.ErrNotFound))
	assert.False(t, ran, "work is not run for unknown users")

	active, err := f.svc.IsPremiumActive(ctx, 999)
	require.NoError(t, err)
	assert.False(t, active)

	pkg, err := f.svc.UserPackage(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, "basic", pkg.Key)
}

func TestTryIncrementStopsAtQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 7)
	ledger := f.svc.Ledger()

	allowed, used, err := ledger.TryIncrement(ctx, 7, catalog.ServiceChat, 2)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, used)

	allowed, used, err = ledger.TryIncrement(ctx, 7, catalog.ServiceChat, 2)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, used)

	allowed, used, err = ledger.TryIncrement(ctx, 7, catalog.ServiceChat, 2)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2, used)

	allowed, _, err = ledger.TryIncrement(ctx, 7, catalog.ServiceTranslation, 0)
	require.NoError(t, err)
	assert.False(t, allowed, "zero quota means not included")
}

func TestGateConsumesOnlyOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 9)

	ran := false
	dec, err := f.svc.Gate(ctx, 9, catalog.ServiceVideoCreation, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, Decision{Allowed: true, Used: 1, Limit: 2}, dec)

	boom := errors.New("provider down")
	_, err = f.svc.Gate(ctx, 9, catalog.ServiceVideoCreation, func(context.Context) error { return boom })
	assert.True(t, errors.Is(err, boom))

	rec, err := f.repo.GetUsage(ctx, 9, catalog.ServiceVideoCreation)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count, "failed work is not billed")

	_, err = f.svc.Gate(ctx, 9, catalog.ServiceVideoCreation, func(context.Context) error { return nil })
	require.NoError(t, err)

	dec, err = f.svc.Gate(ctx, 9, catalog.ServiceVideoCreation, func(context.Context) error {
		t.Fatal("work must not run when denied")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: false, Used: 2, Limit: 2}, dec)
}

func TestGateSerialisesConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 10)

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Gate(ctx, 10, catalog.ServiceChat, func(context.Context) error {
				calls.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), calls.Load())
	rec, err := f.repo.GetUsage(ctx, 10, catalog.ServiceChat)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Count)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestUsageSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 11)
	require.NoError(t, f.svc.Consume(ctx, 11, catalog.ServiceTranslation))

	lines, err := f.svc.Usage(ctx, 11)
	require.NoError(t, err)
	require.Len(t, lines, len(catalog.Services))
	assert.Equal(t, ServiceUsage{Service: catalog.ServiceTranslation, Used: 1, Limit: 20, Remaining: 19}, lines[1])

	f.premium(t, 11, "pro", t0.Add(24*time.Hour))
	lines, err = f.svc.Usage(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, -1, lines[0].Remaining)
	assert.Equal(t, ServiceUsage{Service: catalog.ServiceVideoCreation, Used: 0, Limit: 50, Remaining: 50}, lines[3])
}
