// Package promo manages discount codes.
package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-bot/internal/metrics"
	"ai-bot/internal/repo"
)

// ErrInvalidDiscount is returned when a discount is outside 1..100.
var ErrInvalidDiscount = errors.New("discount percent must be between 1 and 100")

// ErrEmptyCode is returned when a code normalizes to nothing.
var ErrEmptyCode = errors.New("promo code is empty")

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// CreateParams describes a new code. MaxUses 0 means unlimited; a nil
// ExpiresAt means the code never expires.
type CreateParams struct {
	Code            string
	DiscountPercent int
	MaxUses         int
	ExpiresAt       *time.Time
}

// Engine validates and creates promo codes. Redemption happens inside the
// payment confirmation transaction.
type Engine struct {
	repo    repo.Repository
	clock   Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an Engine. metrics may be nil.
func New(r repo.Repository, clock Clock, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		repo:    r,
		clock:   clock,
		metrics: m,
		logger:  logger.With("component", "promo"),
	}
}

// Normalize trims and upper-cases a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsUsable reports whether pc can be applied at now.
func IsUsable(pc repo.PromoCode, now time.Time) bool {
	if !pc.Active {
		return false
	}
	if pc.ExpiresAt != nil && !pc.ExpiresAt.After(now) {
		return false
	}
	return pc.MaxUses == 0 || pc.CurrentUses < pc.MaxUses
}

// Discount applies pct percent off price using integer arithmetic.
func Discount(price int64, pct int) int64 {
	return price - price*int64(pct)/100
}

// Validate returns the code when it exists and is usable, nil otherwise.
func (e *Engine) Validate(ctx context.Context, code string) (*repo.PromoCode, error) {
	norm := Normalize(code)
	if norm == "" {
		e.observe("invalid")
		return nil, nil
	}
	pc, err := e.repo.GetPromoCode(ctx, norm)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			e.observe("invalid")
			return nil, nil
		}
		return nil, fmt.Errorf("validate promo: %w", err)
	}
	if !IsUsable(*pc, e.clock.Now()) {
		e.observe("invalid")
		return nil, nil
	}
	e.observe("valid")
	return pc, nil
}

// Create stores a new code. It returns false when the code already exists.
func (e *Engine) Create(ctx context.Context, p CreateParams) (bool, error) {
	code := Normalize(p.Code)
	if code == "" {
		return false, ErrEmptyCode
	}
	if p.DiscountPercent < 1 || p.DiscountPercent > 100 {
		return false, ErrInvalidDiscount
	}
	if p.MaxUses < 0 {
		return false, fmt.Errorf("max uses must not be negative")
	}

	pct := p.DiscountPercent
	created, err := e.repo.InsertPromoCode(ctx, repo.PromoCode{
		Code:            code,
		DiscountPercent: &pct,
		MaxUses:         p.MaxUses,
		Active:          true,
		ExpiresAt:       p.ExpiresAt,
		CreatedAt:       e.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("create promo: %w", err)
	}
	if created {
		e.logger.Info("promo code created", "code", code, "discount", pct, "max_uses", p.MaxUses)
	}
	return created, nil
}

// List returns every code, newest first.
func (e *Engine) List(ctx context.Context) ([]repo.PromoCode, error) {
	codes, err := e.repo.ListPromoCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	return codes, nil
}

func (e *Engine) observe(result string) {
	if e.metrics != nil {
		e.metrics.PromoValidations.WithLabelValues(result).Inc()
	}
}
