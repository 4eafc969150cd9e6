// Package entitlement decides whether a user may call a gated service and
// keeps the per-service usage counters.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/metrics"
	"ai-bot/internal/repo"

	"github.com/google/uuid"
)

// ErrUnknownService is returned for service names the catalog does not gate.
var ErrUnknownService = catalog.ErrUnknownService

// Decision is the outcome of a rate limit check. Limit is -1 when unlimited.
type Decision struct {
	Allowed bool
	Used    int
	Limit   int
}

// Unlimited reports whether the decision carries no upper bound.
func (d Decision) Unlimited() bool { return d.Limit == catalog.Unlimited }

// ServiceUsage is one line of a user's usage summary. Remaining is -1 when
// the service is unlimited.
type ServiceUsage struct {
	Service   string
	Used      int
	Limit     int
	Remaining int
}

// WorkFunc performs the gated action.
type WorkFunc func(ctx context.Context) error

// Service resolves a user's package and enforces its quotas.
type Service struct {
	catalog *catalog.Registry
	repo    repo.Repository
	ledger  *Ledger
	clock   Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
	locks   *keyedMutex
}

// NewService wires the entitlement service. metrics may be nil.
func NewService(reg *catalog.Registry, r repo.Repository, clock Clock, m *metrics.Metrics, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		catalog: reg,
		repo:    r,
		ledger:  NewLedger(r, clock),
		clock:   clock,
		metrics: m,
		logger:  logger.With("component", "entitlement"),
		locks:   newKeyedMutex(),
	}
}

// Ledger exposes the usage ledger backing the service.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// IsPremiumActive reports whether the user holds unexpired premium. An
// expired flag is cleared as a side effect. Unknown users are not premium.
func (s *Service) IsPremiumActive(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	return s.premiumActive(ctx, u)
}

func (s *Service) premiumActive(ctx context.Context, u *repo.User) (bool, error) {
	if !u.IsPremium {
		return false, nil
	}
	now := s.clock.Now()
	if u.PremiumExpiry == nil || u.PremiumExpiry.After(now) {
		return true, nil
	}
	expired, err := s.repo.ExpirePremium(ctx, u.ID, now)
	if err != nil {
		return false, fmt.Errorf("expire premium: %w", err)
	}
	if expired {
		s.logger.Info("premium expired", "user_id", u.ID, "expiry", u.PremiumExpiry)
	}
	u.IsPremium = false
	return false, nil
}

// effectivePackage returns the package a user is billed against. A paid
// package without active premium falls back to the default package.
func (s *Service) effectivePackage(ctx context.Context, u *repo.User) (catalog.Package, bool, error) {
	active, err := s.premiumActive(ctx, u)
	if err != nil {
		return catalog.Package{}, false, err
	}
	pkg := s.catalog.Resolve(u.PackageKey)
	if !pkg.Free && !active {
		pkg = s.catalog.Default()
	}
	return pkg, active, nil
}

// UserPackage returns the package currently in effect for the user.
func (s *Service) UserPackage(ctx context.Context, userID int64) (catalog.Package, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return s.catalog.Default(), nil
		}
		return catalog.Package{}, fmt.Errorf("load user: %w", err)
	}
	pkg, _, err := s.effectivePackage(ctx, u)
	return pkg, err
}

// resolveQuota returns the user's quota for service and whether premium is
// active. Unknown users are quoted from the default package with known false.
func (s *Service) resolveQuota(ctx context.Context, userID int64, service string) (quota int, premium, known bool, err error) {
	if !catalog.ValidService(service) {
		return 0, false, false, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			quota, _ = s.catalog.Default().Quota(service)
			return quota, false, false, nil
		}
		return 0, false, false, fmt.Errorf("load user %d: %w", userID, err)
	}
	pkg, active, err := s.effectivePackage(ctx, u)
	if err != nil {
		return 0, false, false, err
	}
	quota, _ = pkg.Quota(service)
	return quota, active, true, nil
}

// CheckRateLimit decides whether the user may make one more call to service.
// Unknown users get a fresh default package decision and nothing is stored.
func (s *Service) CheckRateLimit(ctx context.Context, userID int64, service string) (Decision, error) {
	dec, _, err := s.decide(ctx, userID, service)
	return dec, err
}

func (s *Service) decide(ctx context.Context, userID int64, service string) (Decision, bool, error) {
	quota, premium, known, err := s.resolveQuota(ctx, userID, service)
	if err != nil {
		return Decision{}, false, err
	}
	if premium && quota == catalog.Unlimited {
		s.observe(service, "unlimited")
		return Decision{Allowed: true, Used: 0, Limit: catalog.Unlimited}, true, nil
	}

	var (
		allowed bool
		used    int
	)
	if known {
		allowed, used, err = s.ledger.Check(ctx, userID, service, quota)
		if err != nil {
			return Decision{}, true, err
		}
	} else {
		allowed = fits(0, quota)
	}
	if allowed {
		s.observe(service, "allowed")
	} else {
		s.observe(service, "denied")
	}
	return Decision{Allowed: allowed, Used: used, Limit: quota}, known, nil
}

// Consume records one call to service. Unlimited services are not counted.
// Usage is only stored for registered users.
func (s *Service) Consume(ctx context.Context, userID int64, service string) error {
	quota, _, known, err := s.resolveQuota(ctx, userID, service)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("consume %s for user %d: %w", service, userID, repo.ErrNotFound)
	}
	if quota == catalog.Unlimited {
		return nil
	}
	if err := s.ledger.Increment(ctx, userID, service); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.UsageConsumed.WithLabelValues(service).Inc()
	}
	return nil
}

// Gate checks the quota, runs work and consumes one unit when work succeeds,
// holding the (user, service) lock throughout. A denial is reported through
// the Decision with a nil error. Every call leaves a request log.
func (s *Service) Gate(ctx context.Context, userID int64, service string, work WorkFunc) (Decision, error) {
	unlock := s.locks.Lock(strconv.FormatInt(userID, 10) + ":" + service)
	defer unlock()

	started := time.Now()
	dec, known, err := s.decide(ctx, userID, service)
	if err != nil {
		return Decision{}, err
	}
	if !known {
		return dec, fmt.Errorf("gate %s for user %d: %w", service, userID, repo.ErrNotFound)
	}
	if !dec.Allowed {
		s.logRequest(ctx, userID, service, repo.RequestRateLimited, nil, started)
		return dec, nil
	}

	if err := work(ctx); err != nil {
		s.logRequest(ctx, userID, service, repo.RequestError, err, started)
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("entitlement_work").Inc()
		}
		return dec, fmt.Errorf("%s: %w", service, err)
	}

	if !dec.Unlimited() {
		allowed, used, err := s.ledger.TryIncrement(ctx, userID, service, dec.Limit)
		if err != nil {
			s.logRequest(ctx, userID, service, repo.RequestError, err, started)
			return dec, err
		}
		if !allowed {
			// Another process got the last unit between check and consume.
			s.logger.Warn("quota exhausted during gated call", "user_id", userID, "service", service, "used", used)
		} else if s.metrics != nil {
			s.metrics.UsageConsumed.WithLabelValues(service).Inc()
		}
		dec.Used = used
	}

	s.logRequest(ctx, userID, service, repo.RequestSuccess, nil, started)
	return dec, nil
}

// Usage summarises remaining quota per service for the user.
func (s *Service) Usage(ctx context.Context, userID int64) ([]ServiceUsage, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	pkg, premium, err := s.effectivePackage(ctx, u)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceUsage, 0, len(catalog.Services))
	for _, service := range catalog.Services {
		quota, _ := pkg.Quota(service)
		line := ServiceUsage{Service: service, Limit: quota, Remaining: catalog.Unlimited}
		if quota == catalog.Unlimited && premium {
			out = append(out, line)
			continue
		}
		rec, err := s.ledger.GetOrCreate(ctx, userID, service)
		if err != nil {
			return nil, err
		}
		line.Used = rec.Count
		if quota != catalog.Unlimited {
			line.Remaining = max(quota-rec.Count, 0)
		}
		out = append(out, line)
	}
	return out, nil
}

func (s *Service) observe(service, outcome string) {
	if s.metrics != nil {
		s.metrics.EntitlementDecisions.WithLabelValues(service, outcome).Inc()
	}
}

func (s *Service) logRequest(ctx context.Context, userID int64, service, status string, cause error, started time.Time) {
	entry := repo.RequestLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		Service:      service,
		Status:       status,
		ProcessingMS: time.Since(started).Milliseconds(),
		CreatedAt:    s.clock.Now(),
	}
	if cause != nil {
		msg := cause.Error()
		entry.ErrorMessage = &msg
	}
	if err := s.repo.InsertRequestLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write request log", "error", err, "user_id", userID, "service", service)
	}
}
