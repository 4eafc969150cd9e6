package httpserver

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-bot/internal/metrics"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
)

// AdminIDHeader names the admin performing a request.
const AdminIDHeader = "X-Admin-ID"

// PaymentNotifier tells buyers about admin decisions taken over HTTP.
type PaymentNotifier interface {
	NotifyConfirmed(ctx context.Context, res payment.ConfirmResult)
	NotifyRejected(ctx context.Context, p repo.Payment)
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	UsernameMD5 string
	PasswordMD5 string
	Payments    *payment.Workflow
	Promos      *promo.Engine
	Notifier    PaymentNotifier
	Metrics     *metrics.Metrics
}

// AdminHandler serves the JSON admin API behind basic auth. Credentials are
// compared as md5 hex digests so plain values never sit in the config.
type AdminHandler struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	usernameMD5 string
	passwordMD5 string
	payments    *payment.Workflow
	promos      *promo.Engine
	notifier    PaymentNotifier
	mux         *http.ServeMux
}

// NewAdminHandler builds the admin API.
func NewAdminHandler(cfg AdminConfig, logger *slog.Logger) *AdminHandler {
	h := &AdminHandler{
		logger:      logger.With("component", "admin_api"),
		metrics:     cfg.Metrics,
		usernameMD5: strings.ToLower(strings.TrimSpace(cfg.UsernameMD5)),
		passwordMD5: strings.ToLower(strings.TrimSpace(cfg.PasswordMD5)),
		payments:    cfg.Payments,
		promos:      cfg.Promos,
		notifier:    cfg.Notifier,
		mux:         http.NewServeMux(),
	}

	h.route("GET /admin/payments/pending", h.handlePending)
	h.route("POST /admin/payments/{id}/confirm", h.handleConfirm)
	h.route("POST /admin/payments/{id}/reject", h.handleReject)
	h.route("GET /admin/promos", h.handleListPromos)
	h.route("POST /admin/promos", h.handleCreatePromo)
	h.route("GET /admin/stats", h.handleStats)
	h.route("GET /admin/users", h.handleUsers)
	return h
}

type adminHandlerFunc func(w http.ResponseWriter, r *http.Request, adminID int64)

func (h *AdminHandler) route(pattern string, fn adminHandlerFunc) {
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if h.metrics != nil {
				h.metrics.AdminRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
			}
		}()

		if err := h.validateAuth(r); err != nil {
			h.logger.Warn("admin auth failed", "error", err, "remote", r.RemoteAddr)
			if h.metrics != nil {
				h.metrics.Errors.WithLabelValues("admin_api_auth").Inc()
			}
			writeError(rec, http.StatusUnauthorized, "unauthorized")
			return
		}
		adminID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(AdminIDHeader)), 10, 64)
		if err != nil || !h.payments.IsAdmin(adminID) {
			writeError(rec, http.StatusForbidden, "admin id required")
			return
		}
		fn(rec, r, adminID)
	})
}

// ServeHTTP satisfies http.Handler.
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *AdminHandler) validateAuth(r *http.Request) error {
	if h.usernameMD5 == "" || h.passwordMD5 == "" {
		return fmt.Errorf("admin credentials not configured")
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return fmt.Errorf("missing basic auth")
	}
	if !equalHex(md5Hex(username), h.usernameMD5) {
		return fmt.Errorf("invalid username hash")
	}
	if !equalHex(md5Hex(password), h.passwordMD5) {
		return fmt.Errorf("invalid password hash")
	}
	return nil
}

func md5Hex(val string) string {
	sum := md5.Sum([]byte(val))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

func equalHex(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (h *AdminHandler) handlePending(w http.ResponseWriter, r *http.Request, _ int64) {
	pending, err := h.payments.ListPendingPayments(r.Context())
	if err != nil {
		h.internalError(w, "list pending payments", err)
		return
	}
	out := make([]paymentJSON, 0, len(pending))
	for _, p := range pending {
		out = append(out, toPaymentJSON(p))
	}
	writeJSON(w, map[string]any{"payments": out})
}

func (h *AdminHandler) handleConfirm(w http.ResponseWriter, r *http.Request, adminID int64) {
	id := r.PathValue("id")
	res, err := h.payments.ConfirmPayment(r.Context(), id, adminID)
	if err != nil {
		h.decisionError(w, "confirm payment", err)
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyConfirmed(r.Context(), res)
	}
	writeJSON(w, map[string]any{
		"success":    true,
		"user_id":    res.UserID,
		"payment":    toPaymentJSON(res.Payment),
		"expires_at": res.ExpiresAt,
	})
}

func (h *AdminHandler) handleReject(w http.ResponseWriter, r *http.Request, adminID int64) {
	p, err := h.payments.RejectPayment(r.Context(), r.PathValue("id"), adminID)
	if err != nil {
		h.decisionError(w, "reject payment", err)
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyRejected(r.Context(), *p)
	}
	writeJSON(w, map[string]any{"success": true, "payment": toPaymentJSON(*p)})
}

func (h *AdminHandler) decisionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, payment.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, payment.ErrNotFoundOrProcessed):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.internalError(w, op, err)
	}
}

func (h *AdminHandler) handleListPromos(w http.ResponseWriter, r *http.Request, _ int64) {
	codes, err := h.promos.List(r.Context())
	if err != nil {
		h.internalError(w, "list promos", err)
		return
	}
	out := make([]promoJSON, 0, len(codes))
	for _, pc := range codes {
		out = append(out, toPromoJSON(pc))
	}
	writeJSON(w, map[string]any{"promos": out})
}

type createPromoRequest struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	MaxUses         int        `json:"max_uses"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

func (h *AdminHandler) handleCreatePromo(w http.ResponseWriter, r *http.Request, adminID int64) {
	var req createPromoRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.MaxUses < 0 {
		writeError(w, http.StatusBadRequest, "max_uses must not be negative")
		return
	}

	created, err := h.promos.Create(r.Context(), promo.CreateParams{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		MaxUses:         req.MaxUses,
		ExpiresAt:       req.ExpiresAt,
	})
	switch {
	case errors.Is(err, promo.ErrInvalidDiscount), errors.Is(err, promo.ErrEmptyCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(w, "create promo", err)
		return
	case !created:
		writeError(w, http.StatusConflict, "promo code already exists")
		return
	}
	h.logger.Info("promo created via api", "code", promo.Normalize(req.Code), "admin_id", adminID)
	writeJSONStatus(w, http.StatusCreated, map[string]any{"created": true, "code": promo.Normalize(req.Code)})
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request, adminID int64) {
	stats, err := h.payments.Stats(r.Context(), adminID)
	if err != nil {
		h.decisionError(w, "load stats", err)
		return
	}
	writeJSON(w, map[string]any{
		"total_users":      stats.TotalUsers,
		"active_users":     stats.ActiveUsers,
		"premium_users":    stats.PremiumUsers,
		"pending_payments": stats.PendingPayments,
		"confirmed_amount": stats.ConfirmedAmount,
		"service_usage":    stats.ServiceUsage,
	})
}

func (h *AdminHandler) handleUsers(w http.ResponseWriter, r *http.Request, adminID int64) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	users, err := h.payments.Users(r.Context(), adminID, limit)
	if err != nil {
		h.decisionError(w, "list users", err)
		return
	}
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON{
			ID:            u.ID,
			DisplayName:   u.DisplayName,
			Language:      u.Language,
			IsPremium:     u.IsPremium,
			PremiumExpiry: u.PremiumExpiry,
			Package:       u.PackageKey,
			CreatedAt:     u.CreatedAt,
			LastActive:    u.LastActive,
		})
	}
	writeJSON(w, map[string]any{"users": out})
}

func (h *AdminHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "error", err)
	if h.metrics != nil {
		h.metrics.Errors.WithLabelValues("admin_api").Inc()
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type paymentJSON struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	PackageKey  string     `json:"package"`
	ListPrice   int64      `json:"list_price"`
	Amount      int64      `json:"amount"`
	PromoCode   *string    `json:"promo_code,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy *int64     `json:"confirmed_by,omitempty"`
}

func toPaymentJSON(p repo.Payment) paymentJSON {
	return paymentJSON{
		ID:          p.ID,
		UserID:      p.UserID,
		PackageKey:  p.PackageKey,
		ListPrice:   p.ListPrice,
		Amount:      p.Amount,
		PromoCode:   p.PromoCode,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		ConfirmedAt: p.ConfirmedAt,
		ConfirmedBy: p.ConfirmedBy,
	}
}

type promoJSON struct {
	Code            string     `json:"code"`
	DiscountPercent *int       `json:"discount_percent,omitempty"`
	MaxUses         int        `json:"max_uses"`
	CurrentUses     int        `json:"current_uses"`
	Active          bool       `json:"active"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toPromoJSON(pc repo.PromoCode) promoJSON {
	return promoJSON{
		Code:            pc.Code,
		DiscountPercent: pc.DiscountPercent,
		MaxUses:         pc.MaxUses,
		CurrentUses:     pc.CurrentUses,
		Active:          pc.Active,
		ExpiresAt:       pc.ExpiresAt,
		CreatedAt:       pc.CreatedAt,
	}
}

type userJSON struct {
	ID            int64      `json:"id"`
	DisplayName   *string    `json:"display_name,omitempty"`
	Language      string     `json:"language"`
	IsPremium     bool       `json:"is_premium"`
	PremiumExpiry *time.Time `json:"premium_expiry,omitempty"`
	Package       *string    `json:"package,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActive    time.Time  `json:"last_active"`
}
