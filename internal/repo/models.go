package repo

import "time"

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Request log statuses.
const (
	RequestSuccess     = "success"
	RequestError       = "error"
	RequestRateLimited = "rate_limited"
)

// User represents the users table row.
type User struct {
	ID            int64
	DisplayName   *string
	Language      string
	IsPremium     bool
	PremiumExpiry *time.Time
	PackageKey    *string
	CreatedAt     time.Time
	LastActive    time.Time
}

// UserProfile carries data used to upsert a user.
type UserProfile struct {
	ID          int64
	DisplayName *string
	Language    string
}

// PremiumUpdate describes an entitlement change for a user.
type PremiumUpdate struct {
	IsPremium     bool
	PremiumExpiry *time.Time
	PackageKey    *string
}

// UsageRecord is a per-user, per-service counter.
type UsageRecord struct {
	UserID    int64
	Service   string
	Count     int
	LastReset time.Time
}

// Payment represents a row in payments table.
type Payment struct {
	ID          string
	UserID      int64
	PackageKey  string
	ListPrice   int64
	Amount      int64
	PromoCode   *string
	Status      string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
	ConfirmedBy *int64
}

// Activation is what a confirmed payment grants.
type Activation struct {
	PackageKey    string
	PremiumExpiry *time.Time
	// ResetServices are re-created at zero; every other usage row of the
	// user is dropped.
	ResetServices []string
}

// Confirmation is the outcome of ConfirmPayment.
type Confirmation struct {
	Payment       Payment
	PromoRedeemed bool
}

// PromoCode represents a row in promo_codes table.
type PromoCode struct {
	Code            string
	DiscountPercent *int
	BonusDays       *int
	MaxUses         int
	CurrentUses     int
	Active          bool
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

// RequestLog records a single gated service call.
type RequestLog struct {
	ID           string
	UserID       int64
	Service      string
	Status       string
	ErrorMessage *string
	ProcessingMS int64
	CreatedAt    time.Time
}

// Stats aggregates admin panel figures.
type Stats struct {
	TotalUsers      int64
	ActiveUsers     int64
	PremiumUsers    int64
	PendingPayments int64
	ConfirmedAmount int64
	ServiceUsage    map[string]int64
}
