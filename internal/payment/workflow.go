// Package payment runs the manual purchase flow: package selection, promo
// entry, pending payments and admin confirmation.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/entitlement"
	"ai-bot/internal/metrics"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrUnauthorized is returned when a non-admin calls an admin operation.
	ErrUnauthorized = errors.New("admin privileges required")
	// ErrNotFoundOrProcessed is returned for unknown or non-pending payments.
	ErrNotFoundOrProcessed = errors.New("payment not found or already processed")
	// ErrUnknownPackage is returned for package keys outside the catalog.
	ErrUnknownPackage = catalog.ErrUnknownPackage
	// ErrFreePackage is returned when a payment is requested for a free package.
	ErrFreePackage = errors.New("package is free")
	// ErrInvalidStep is returned when a checkout is driven out of order.
	ErrInvalidStep = errors.New("checkout is not at this step")
	// ErrPremiumActive is returned when a user with running premium picks a
	// free package.
	ErrPremiumActive = errors.New("premium is still active")
)

// Report is sent to admins when a user says they have paid.
type Report struct {
	Payment repo.Payment
	User    repo.User
	Package catalog.Package
}

// Notifier delivers payment reports to admins.
type Notifier interface {
	PaymentReported(ctx context.Context, report Report) error
}

// Instructions tell the user where to send money for a pending payment.
type Instructions struct {
	Payment repo.Payment
	Target  string
	Holder  string
}

// ConfirmResult is the outcome of an admin confirmation.
type ConfirmResult struct {
	Success   bool
	UserID    int64
	Payment   repo.Payment
	ExpiresAt *time.Time
}

// Options configures a Workflow.
type Options struct {
	Catalog       *catalog.Registry
	Repository    repo.Repository
	Promos        *promo.Engine
	Clock         entitlement.Clock
	Metrics       *metrics.Metrics
	AdminIDs      []int64
	PaymentTarget string
	PaymentHolder string
}

// Workflow owns every payment state transition.
type Workflow struct {
	catalog  *catalog.Registry
	repo     repo.Repository
	promos   *promo.Engine
	clock    entitlement.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
	notifier Notifier
	admins   map[int64]struct{}
	target   string
	holder   string
}

// New builds a Workflow. The admin set is copied and never changes.
func New(opts Options, logger *slog.Logger) *Workflow {
	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = entitlement.SystemClock{}
	}
	return &Workflow{
		catalog: opts.Catalog,
		repo:    opts.Repository,
		promos:  opts.Promos,
		clock:   clock,
		metrics: opts.Metrics,
		logger:  logger.With("component", "payment"),
		admins:  admins,
		target:  opts.PaymentTarget,
		holder:  opts.PaymentHolder,
	}
}

// SetNotifier registers where payment reports go.
func (w *Workflow) SetNotifier(n Notifier) {
	w.notifier = n
}

// IsAdmin reports whether id may run admin operations.
func (w *Workflow) IsAdmin(id int64) bool {
	_, ok := w.admins[id]
	return ok
}

// AdminIDs returns the configured admin ids.
func (w *Workflow) AdminIDs() []int64 {
	ids := make([]int64, 0, len(w.admins))
	for id := range w.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Start opens a new checkout.
func (w *Workflow) Start() Checkout {
	return Checkout{Step: StepSelectingPackage}
}

// SelectPackage picks a package for userID. A free package is assigned at
// once and ends the checkout; a paid one moves on to promo entry. Users with
// running premium cannot switch themselves to a free package.
func (w *Workflow) SelectPackage(ctx context.Context, userID int64, key string) (Checkout, error) {
	pkg, err := w.catalog.Get(strings.ToLower(strings.TrimSpace(key)))
	if err != nil {
		return Checkout{Step: StepSelectingPackage}, err
	}
	if pkg.Free {
		active, err := w.premiumRunning(ctx, userID)
		if err != nil {
			return Checkout{Step: StepSelectingPackage}, err
		}
		if active {
			return Checkout{Step: StepSelectingPackage}, ErrPremiumActive
		}
		if err := w.repo.SetUserPackage(ctx, userID, pkg.Key); err != nil {
			return Checkout{Step: StepSelectingPackage}, fmt.Errorf("assign free package: %w", err)
		}
		w.logger.Info("free package assigned", "user_id", userID, "package", pkg.Key)
		return Checkout{Step: StepDone, PackageKey: pkg.Key}, nil
	}
	return Checkout{
		Step:       StepEnteringPromo,
		PackageKey: pkg.Key,
		ListPrice:  pkg.Price,
		Amount:     pkg.Price,
	}, nil
}

// premiumRunning reports whether userID holds premium that has not expired.
// Unknown users have none.
func (w *Workflow) premiumRunning(ctx context.Context, userID int64) (bool, error) {
	u, err := w.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	if !u.IsPremium {
		return false, nil
	}
	return u.PremiumExpiry == nil || u.PremiumExpiry.After(w.clock.Now()), nil
}

// ApplyPromo prices the checkout. An empty code or SkipToken keeps the list
// price, as does an invalid code, which is reported through PromoResult.
func (w *Workflow) ApplyPromo(ctx context.Context, co Checkout, code string) (Checkout, PromoResult, error) {
	if co.Step != StepEnteringPromo {
		return co, PromoResult{}, ErrInvalidStep
	}
	co.Amount = co.ListPrice
	co.PromoCode = ""
	co.DiscountPercent = 0
	co.Step = StepWaitingForPayment
	res := PromoResult{ListPrice: co.ListPrice, Amount: co.ListPrice}

	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, SkipToken) {
		res.Skipped = true
		return co, res, nil
	}

	res.Code = promo.Normalize(trimmed)
	pc, err := w.promos.Validate(ctx, trimmed)
	if err != nil {
		co.Step = StepEnteringPromo
		return co, PromoResult{}, err
	}
	if pc == nil || pc.DiscountPercent == nil {
		res.Invalid = true
		return co, res, nil
	}

	co.PromoCode = pc.Code
	co.DiscountPercent = *pc.DiscountPercent
	co.Amount = promo.Discount(co.ListPrice, *pc.DiscountPercent)
	res.DiscountPercent = co.DiscountPercent
	res.Amount = co.Amount
	return co, res, nil
}

// Submit creates the pending payment for a priced checkout.
func (w *Workflow) Submit(ctx context.Context, userID int64, co Checkout) (Checkout, Instructions, error) {
	if co.Step != StepWaitingForPayment || co.PaymentID != "" {
		return co, Instructions{}, ErrInvalidStep
	}
	ins, err := w.CreatePendingPayment(ctx, userID, co.PackageKey, co.Amount, co.PromoCode)
	if err != nil {
		return co, Instructions{}, err
	}
	co.PaymentID = ins.Payment.ID
	return co, ins, nil
}

// CreatePendingPayment records a payment awaiting admin confirmation.
func (w *Workflow) CreatePendingPayment(ctx context.Context, userID int64, packageKey string, amount int64, promoCode string) (Instructions, error) {
	pkg, err := w.catalog.Get(packageKey)
	if err != nil {
		return Instructions{}, err
	}
	if pkg.Free {
		return Instructions{}, fmt.Errorf("%w: %s", ErrFreePackage, pkg.Key)
	}
	if amount < 0 || amount > pkg.Price {
		return Instructions{}, fmt.Errorf("amount %d out of range for %s", amount, pkg.Key)
	}

	p := repo.Payment{
		ID:         ulid.Make().String(),
		UserID:     userID,
		PackageKey: pkg.Key,
		ListPrice:  pkg.Price,
		Amount:     amount,
		Status:     repo.PaymentPending,
		CreatedAt:  w.clock.Now(),
	}
	if code := promo.Normalize(promoCode); code != "" {
		p.PromoCode = &code
	}

	stored, err := w.repo.InsertPayment(ctx, p)
	if err != nil {
		w.countError()
		return Instructions{}, fmt.Errorf("create pending payment: %w", err)
	}
	w.count(pkg.Key, repo.PaymentPending)
	w.logger.Info("pending payment created", "payment_id", stored.ID, "user_id", userID, "package", pkg.Key, "amount", amount)

	return Instructions{Payment: *stored, Target: w.target, Holder: w.holder}, nil
}

// ReportPaid tells admins the user claims to have paid. It changes nothing.
func (w *Workflow) ReportPaid(ctx context.Context, userID int64, paymentID string) error {
	p, err := w.repo.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFoundOrProcessed, paymentID)
		}
		return fmt.Errorf("load payment: %w", err)
	}
	if p.UserID != userID || p.Status != repo.PaymentPending {
		return fmt.Errorf("%w: %s", ErrNotFoundOrProcessed, paymentID)
	}
	u, err := w.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	pkg, err := w.catalog.Get(p.PackageKey)
	if err != nil {
		return err
	}

	if w.notifier == nil {
		w.logger.Warn("no notifier configured, payment report dropped", "payment_id", p.ID)
		return nil
	}
	if err := w.notifier.PaymentReported(ctx, Report{Payment: *p, User: *u, Package: pkg}); err != nil {
		w.countError()
		return fmt.Errorf("notify admins: %w", err)
	}
	w.logger.Info("payment reported", "payment_id", p.ID, "user_id", userID)
	return nil
}

// ConfirmPayment activates the payment's package for its user. Status
// change, promo redemption, activation and usage reset commit together.
func (w *Workflow) ConfirmPayment(ctx context.Context, paymentID string, adminID int64) (ConfirmResult, error) {
	if !w.IsAdmin(adminID) {
		return ConfirmResult{}, ErrUnauthorized
	}

	now := w.clock.Now()
	var expiresAt *time.Time
	conf, err := w.repo.ConfirmPayment(ctx, paymentID, adminID, now, func(p repo.Payment) (repo.Activation, error) {
		pkg, err := w.catalog.Get(p.PackageKey)
		if err != nil {
			return repo.Activation{}, err
		}
		act := repo.Activation{PackageKey: pkg.Key, ResetServices: boundedServices(pkg)}
		if pkg.DurationDays > 0 {
			expiry := now.AddDate(0, 0, pkg.DurationDays)
			act.PremiumExpiry = &expiry
			expiresAt = &expiry
		}
		return act, nil
	})
	if err != nil {
		if repo.IsNotFoundOrProcessed(err) {
			return ConfirmResult{}, fmt.Errorf("%w: %s", ErrNotFoundOrProcessed, paymentID)
		}
		w.countError()
		return ConfirmResult{}, err
	}

	p := conf.Payment
	if p.PromoCode != nil && !conf.PromoRedeemed {
		w.logger.Warn("promo code exhausted before confirmation", "payment_id", p.ID, "code", *p.PromoCode)
	}
	w.count(p.PackageKey, repo.PaymentConfirmed)
	w.logger.Info("payment confirmed", "payment_id", p.ID, "user_id", p.UserID, "package", p.PackageKey, "admin_id", adminID)

	return ConfirmResult{Success: true, UserID: p.UserID, Payment: p, ExpiresAt: expiresAt}, nil
}

// RejectPayment moves a pending payment to failed.
func (w *Workflow) RejectPayment(ctx context.Context, paymentID string, adminID int64) (*repo.Payment, error) {
	if !w.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	if err := w.repo.FailPayment(ctx, paymentID); err != nil {
		if repo.IsNotFoundOrProcessed(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFoundOrProcessed, paymentID)
		}
		w.countError()
		return nil, err
	}
	p, err := w.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("reload payment: %w", err)
	}
	w.count(p.PackageKey, repo.PaymentFailed)
	w.logger.Info("payment rejected", "payment_id", p.ID, "user_id", p.UserID, "admin_id", adminID)
	return p, nil
}

// ListPendingPayments returns payments awaiting confirmation, oldest first.
func (w *Workflow) ListPendingPayments(ctx context.Context) ([]repo.Payment, error) {
	payments, err := w.repo.ListPaymentsByStatus(ctx, repo.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return payments, nil
}

// GrantPremium gives userID premium for days. Existing unexpired premium is
// extended. Users on a free package get the cheapest paid one. It returns
// false for unknown users.
func (w *Workflow) GrantPremium(ctx context.Context, adminID, userID int64, days int) (bool, error) {
	if !w.IsAdmin(adminID) {
		return false, ErrUnauthorized
	}
	if days <= 0 {
		return false, fmt.Errorf("grant premium: days must be positive")
	}
	now := w.clock.Now()
	var (
		key    string
		expiry time.Time
	)
	err := w.repo.GrantPremium(ctx, userID, now, func(u repo.User) (repo.Activation, error) {
		pkg := w.catalog.Resolve(u.PackageKey)
		if pkg.Free {
			paid := w.catalog.Paid()
			if len(paid) == 0 {
				return repo.Activation{}, fmt.Errorf("catalog has no paid package")
			}
			pkg = paid[0]
		}
		base := now
		if u.IsPremium && u.PremiumExpiry != nil && u.PremiumExpiry.After(now) {
			base = *u.PremiumExpiry
		}
		key = pkg.Key
		expiry = base.AddDate(0, 0, days)
		return repo.Activation{PackageKey: pkg.Key, PremiumExpiry: &expiry, ResetServices: boundedServices(pkg)}, nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		w.countError()
		return false, err
	}
	w.logger.Info("premium granted", "user_id", userID, "package", key, "expiry", expiry, "admin_id", adminID)
	return true, nil
}

// RevokePremium clears premium and puts the user back on the default
// package. It returns false for unknown users.
func (w *Workflow) RevokePremium(ctx context.Context, adminID, userID int64) (bool, error) {
	if !w.IsAdmin(adminID) {
		return false, ErrUnauthorized
	}
	def := w.catalog.Default().Key
	err := w.repo.UpdatePremium(ctx, userID, repo.PremiumUpdate{IsPremium: false, PackageKey: &def})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("revoke premium: %w", err)
	}
	w.logger.Info("premium revoked", "user_id", userID, "admin_id", adminID)
	return true, nil
}

// Stats summarises users and payments for admins.
func (w *Workflow) Stats(ctx context.Context, adminID int64) (*repo.Stats, error) {
	if !w.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	stats, err := w.repo.GetStats(ctx, w.clock.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// Users lists the newest users for admins. limit is clamped to 1..500.
func (w *Workflow) Users(ctx context.Context, adminID int64, limit int) ([]repo.User, error) {
	if !w.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	users, err := w.repo.ListUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func boundedServices(pkg catalog.Package) []string {
	var out []string
	for _, service := range catalog.Services {
		if q, ok := pkg.Quota(service); ok && q != catalog.Unlimited {
			out = append(out, service)
		}
	}
	return out
}

func (w *Workflow) count(pkg, status string) {
	if w.metrics != nil {
		w.metrics.Payments.WithLabelValues(pkg, status).Inc()
	}
}

func (w *Workflow) countError() {
	if w.metrics != nil {
		w.metrics.Errors.WithLabelValues("payment").Inc()
	}
}
