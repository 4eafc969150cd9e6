package convo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/locale"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
)

func (e *Engine) handleAdmin(ctx context.Context, t *turn, cmd, args string) {
	if !e.payments.IsAdmin(t.in.UserID) {
		e.logger.Warn("admin command refused", "user_id", t.in.UserID, "command", cmd)
		e.reply(ctx, t, "admin_unauthorized", nil)
		return
	}

	switch cmd {
	case "/pending":
		e.cmdPending(ctx, t)
	case "/confirm":
		e.cmdConfirm(ctx, t, firstField(args))
	case "/reject":
		e.cmdReject(ctx, t, firstField(args))
	case "/newpromo":
		e.cmdNewPromo(ctx, t, args)
	case "/promos":
		e.cmdPromos(ctx, t)
	case "/grant":
		e.cmdGrant(ctx, t, args)
	case "/revoke":
		e.cmdRevoke(ctx, t, args)
	case "/adminstats":
		e.cmdAdminStats(ctx, t)
	}
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (e *Engine) cmdPending(ctx context.Context, t *turn) {
	pending, err := e.payments.ListPendingPayments(ctx)
	if err != nil {
		e.fail(ctx, t, "list pending payments", err)
		return
	}
	if len(pending) == 0 {
		e.reply(ctx, t, "pending_empty", nil)
		return
	}

	var b strings.Builder
	b.WriteString(e.text(t, "pending_header", locale.Args{"count": len(pending)}))
	for _, p := range pending {
		code := e.text(t, "none", nil)
		if p.PromoCode != nil {
			code = *p.PromoCode
		}
		b.WriteString("\n")
		b.WriteString(e.text(t, "pending_line", locale.Args{
			"id":      p.ID,
			"user":    p.UserID,
			"package": p.PackageKey,
			"amount":  locale.FormatAmount(p.Amount),
			"promo":   code,
		}))
	}
	e.send(ctx, t, b.String())
}

func (e *Engine) cmdConfirm(ctx context.Context, t *turn, id string) {
	res, err := e.payments.ConfirmPayment(ctx, id, t.in.UserID)
	if err != nil {
		e.adminError(ctx, t, id, "confirm payment", err)
		return
	}
	e.reply(ctx, t, "admin_confirmed", locale.Args{"id": id, "user": res.UserID})
	e.NotifyConfirmed(ctx, res)
}

func (e *Engine) cmdReject(ctx context.Context, t *turn, id string) {
	p, err := e.payments.RejectPayment(ctx, id, t.in.UserID)
	if err != nil {
		e.adminError(ctx, t, id, "reject payment", err)
		return
	}
	e.reply(ctx, t, "admin_rejected", locale.Args{"id": id, "user": p.UserID})
	e.NotifyRejected(ctx, *p)
}

func (e *Engine) adminError(ctx context.Context, t *turn, id, op string, err error) {
	switch {
	case errors.Is(err, payment.ErrUnauthorized):
		e.reply(ctx, t, "admin_unauthorized", nil)
	case errors.Is(err, payment.ErrNotFoundOrProcessed):
		e.reply(ctx, t, "payment_not_found", locale.Args{"id": id})
	default:
		e.fail(ctx, t, op, err)
	}
}

// cmdNewPromo parses "<code> <percent> [max uses] [days valid]".
func (e *Engine) cmdNewPromo(ctx context.Context, t *turn, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 4 {
		e.reply(ctx, t, "promo_usage", nil)
		return
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(fields[1], "%"))
	if err != nil {
		e.reply(ctx, t, "promo_usage", nil)
		return
	}
	params := promo.CreateParams{Code: fields[0], DiscountPercent: pct}
	if len(fields) > 2 {
		maxUses, err := strconv.Atoi(fields[2])
		if err != nil || maxUses < 0 {
			e.reply(ctx, t, "promo_usage", nil)
			return
		}
		params.MaxUses = maxUses
	}
	if len(fields) > 3 {
		days, err := strconv.Atoi(fields[3])
		if err != nil || days <= 0 {
			e.reply(ctx, t, "promo_usage", nil)
			return
		}
		expires := e.clock.Now().Add(time.Duration(days) * 24 * time.Hour)
		params.ExpiresAt = &expires
	}

	created, err := e.promos.Create(ctx, params)
	switch {
	case errors.Is(err, promo.ErrInvalidDiscount):
		e.reply(ctx, t, "promo_invalid_discount", nil)
	case errors.Is(err, promo.ErrEmptyCode):
		e.reply(ctx, t, "promo_usage", nil)
	case err != nil:
		e.fail(ctx, t, "create promo", err)
	case created:
		e.reply(ctx, t, "promo_created", locale.Args{"code": promo.Normalize(params.Code), "percent": pct})
	default:
		e.reply(ctx, t, "promo_exists", locale.Args{"code": promo.Normalize(params.Code)})
	}
}

func (e *Engine) cmdPromos(ctx context.Context, t *turn) {
	codes, err := e.promos.List(ctx)
	if err != nil {
		e.fail(ctx, t, "list promos", err)
		return
	}
	if len(codes) == 0 {
		e.reply(ctx, t, "promos_empty", nil)
		return
	}

	now := e.clock.Now()
	lines := make([]string, 0, len(codes))
	for _, pc := range codes {
		pct := 0
		if pc.DiscountPercent != nil {
			pct = *pc.DiscountPercent
		}
		maxUses := e.text(t, "unlimited", nil)
		if pc.MaxUses > 0 {
			maxUses = strconv.Itoa(pc.MaxUses)
		}
		status := e.text(t, "status_inactive", nil)
		if promo.IsUsable(pc, now) {
			status = e.text(t, "status_active", nil)
		}
		lines = append(lines, e.text(t, "promo_list_line", locale.Args{
			"code":    pc.Code,
			"percent": pct,
			"uses":    pc.CurrentUses,
			"max":     maxUses,
			"status":  status,
		}))
	}
	e.send(ctx, t, strings.Join(lines, "\n"))
}

func (e *Engine) cmdGrant(ctx context.Context, t *turn, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		e.reply(ctx, t, "grant_usage", nil)
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		e.reply(ctx, t, "grant_usage", nil)
		return
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil || days <= 0 {
		e.reply(ctx, t, "grant_usage", nil)
		return
	}

	ok, err := e.payments.GrantPremium(ctx, t.in.UserID, userID, days)
	if err != nil {
		e.fail(ctx, t, "grant premium", err)
		return
	}
	if !ok {
		e.reply(ctx, t, "user_not_found", locale.Args{"user": userID})
		return
	}
	e.reply(ctx, t, "granted", locale.Args{"user": userID, "days": days})
}

func (e *Engine) cmdRevoke(ctx context.Context, t *turn, args string) {
	userID, err := strconv.ParseInt(firstField(args), 10, 64)
	if err != nil {
		e.reply(ctx, t, "revoke_usage", nil)
		return
	}
	ok, err := e.payments.RevokePremium(ctx, t.in.UserID, userID)
	if err != nil {
		e.fail(ctx, t, "revoke premium", err)
		return
	}
	if !ok {
		e.reply(ctx, t, "user_not_found", locale.Args{"user": userID})
		return
	}
	e.reply(ctx, t, "revoked", locale.Args{"user": userID})
}

func (e *Engine) cmdAdminStats(ctx context.Context, t *turn) {
	stats, err := e.payments.Stats(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load stats", err)
		return
	}
	e.send(ctx, t, e.statsText(t.lang, stats))
}

func (e *Engine) statsText(lang string, stats *repo.Stats) string {
	var b strings.Builder
	b.WriteString(e.tr.Text(lang, "admin_stats", locale.Args{
		"total":   stats.TotalUsers,
		"active":  stats.ActiveUsers,
		"premium": stats.PremiumUsers,
		"pending": stats.PendingPayments,
		"revenue": locale.FormatAmount(stats.ConfirmedAmount),
	}))
	for _, service := range catalog.Services {
		count, ok := stats.ServiceUsage[service]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(e.tr.Text(lang, "admin_stats_service", locale.Args{
			"service": e.tr.ServiceName(lang, service),
			"count":   count,
		}))
	}
	return b.String()
}
