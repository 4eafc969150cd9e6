package payment

// Step is a checkout dialog state.
type Step string

const (
	StepSelectingPackage  Step = "selecting_package"
	StepEnteringPromo     Step = "entering_promo"
	StepWaitingForPayment Step = "waiting_for_payment"
	StepDone              Step = "done"
)

// SkipToken skips the promo step.
const SkipToken = "/skip"

// Checkout is the per-user purchase dialog state. It is persisted between
// messages, so it carries only plain values.
type Checkout struct {
	Step            Step   `json:"step"`
	PackageKey      string `json:"package_key,omitempty"`
	ListPrice       int64  `json:"list_price,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	PromoCode       string `json:"promo_code,omitempty"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	PaymentID       string `json:"payment_id,omitempty"`
}

// Terminal reports whether the dialog has finished.
func (c Checkout) Terminal() bool {
	return c.Step == StepDone
}

// PromoResult describes what ApplyPromo did with the entered code.
type PromoResult struct {
	Skipped         bool
	Invalid         bool
	Code            string
	DiscountPercent int
	ListPrice       int64
	Amount          int64
}
