package repo

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrNotPending is returned when a payment left the pending state.
	ErrNotPending = errors.New("payment is not pending")
)

// UsageFunc mutates a locked usage record and reports whether it changed.
type UsageFunc func(rec *UsageRecord) (changed bool, err error)

// ActivateFunc computes the grant for a payment inside the confirmation transaction.
type ActivateFunc func(p Payment) (Activation, error)

// GrantFunc computes a manual grant from the locked user row.
type GrantFunc func(u User) (Activation, error)

// Repository defines the interface for data persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Users
	EnsureUser(ctx context.Context, profile UserProfile, now time.Time) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	SetUserLanguage(ctx context.Context, id int64, lang string) error
	SetUserPackage(ctx context.Context, id int64, packageKey string) error
	UpdatePremium(ctx context.Context, id int64, upd PremiumUpdate) error
	GrantPremium(ctx context.Context, userID int64, now time.Time, fn GrantFunc) error
	ExpirePremium(ctx context.Context, id int64, now time.Time) (bool, error)
	ListUsers(ctx context.Context, limit int) ([]User, error)

	// Usage
	UpdateUsage(ctx context.Context, userID int64, service string, now time.Time, fn UsageFunc) (*UsageRecord, error)
	GetUsage(ctx context.Context, userID int64, service string) (*UsageRecord, error)
	ListUsage(ctx context.Context, userID int64) ([]UsageRecord, error)

	// Payments
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPaymentsByStatus(ctx context.Context, status string) ([]Payment, error)
	ConfirmPayment(ctx context.Context, id string, adminID int64, now time.Time, fn ActivateFunc) (*Confirmation, error)
	FailPayment(ctx context.Context, id string) error

	// Promo codes
	InsertPromoCode(ctx context.Context, code PromoCode) (bool, error)
	GetPromoCode(ctx context.Context, code string) (*PromoCode, error)
	ListPromoCodes(ctx context.Context) ([]PromoCode, error)

	// Request logs
	InsertRequestLog(ctx context.Context, log RequestLog) error
	GetStats(ctx context.Context, activeSince time.Time) (*Stats, error)
}
