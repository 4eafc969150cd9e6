package convo

import (
	"context"
	"errors"

	"ai-bot/internal/locale"
	"ai-bot/internal/payment"
	"ai-bot/internal/repo"
	"ai-bot/internal/wa"

	"go.mau.fi/whatsmeow/types"
)

type adminTarget struct {
	jid  types.JID
	lang string
}

// adminTargets lists every admin chat with its language. The optional
// notify chat uses the fallback language.
func (e *Engine) adminTargets(ctx context.Context) []adminTarget {
	ids := e.payments.AdminIDs()
	targets := make([]adminTarget, 0, len(ids)+1)
	for _, id := range ids {
		targets = append(targets, adminTarget{jid: wa.UserJID(id), lang: e.userLanguage(ctx, id)})
	}
	if e.adminChat != nil {
		targets = append(targets, adminTarget{jid: *e.adminChat, lang: e.tr.Fallback()})
	}
	return targets
}

// broadcastAdmins renders a message per admin language and sends it to
// every admin chat. Delivery continues past failures.
func (e *Engine) broadcastAdmins(ctx context.Context, render func(lang string) string) error {
	ctx = wa.WithoutReply(ctx)
	var errs []error
	for _, to := range e.adminTargets(ctx) {
		if err := e.sender.SendText(ctx, to.jid, render(to.lang)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PaymentReported sends a payment report to every admin chat.
func (e *Engine) PaymentReported(ctx context.Context, report payment.Report) error {
	name := "-"
	if report.User.DisplayName != nil {
		name = *report.User.DisplayName
	}
	return e.broadcastAdmins(ctx, func(lang string) string {
		code := e.tr.Text(lang, "none", nil)
		if report.Payment.PromoCode != nil {
			code = *report.Payment.PromoCode
		}
		return e.tr.Text(lang, "admin_payment_report", locale.Args{
			"id":      report.Payment.ID,
			"user":    report.Payment.UserID,
			"name":    name,
			"package": report.Package.Name(lang),
			"amount":  locale.FormatAmount(report.Payment.Amount),
			"promo":   code,
		})
	})
}

// RemindPending tells admins how many payments still wait for a decision.
func (e *Engine) RemindPending(ctx context.Context) error {
	pending, err := e.payments.ListPendingPayments(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	return e.broadcastAdmins(ctx, func(lang string) string {
		return e.tr.Text(lang, "pending_reminder", locale.Args{"count": len(pending)})
	})
}

// SendDailyDigest sends the admin statistics summary to every admin chat.
func (e *Engine) SendDailyDigest(ctx context.Context) error {
	ids := e.payments.AdminIDs()
	if len(ids) == 0 {
		return nil
	}
	stats, err := e.payments.Stats(ctx, ids[0])
	if err != nil {
		return err
	}
	return e.broadcastAdmins(ctx, func(lang string) string {
		return e.statsText(lang, stats)
	})
}

// NotifyConfirmed tells the buyer their package is active.
func (e *Engine) NotifyConfirmed(ctx context.Context, res payment.ConfirmResult) {
	lang := e.userLanguage(ctx, res.UserID)
	pkgName := res.Payment.PackageKey
	if pkg, err := e.catalog.Get(res.Payment.PackageKey); err == nil {
		pkgName = pkg.Name(lang)
	}
	expiry := e.tr.Text(lang, "unlimited", nil)
	if res.ExpiresAt != nil {
		expiry = res.ExpiresAt.Format(dateLayout)
	}
	e.sendTo(wa.WithoutReply(ctx), wa.UserJID(res.UserID), e.tr.Text(lang, "payment_confirmed_user", locale.Args{
		"package": pkgName,
		"expiry":  expiry,
	}))
}

// NotifyRejected tells the buyer their payment was rejected.
func (e *Engine) NotifyRejected(ctx context.Context, p repo.Payment) {
	lang := e.userLanguage(ctx, p.UserID)
	e.sendTo(wa.WithoutReply(ctx), wa.UserJID(p.UserID), e.tr.Text(lang, "payment_rejected_user", locale.Args{"id": p.ID}))
}

// userLanguage returns the stored language of userID or the fallback.
func (e *Engine) userLanguage(ctx context.Context, userID int64) string {
	u, err := e.repo.GetUser(ctx, userID)
	if err != nil {
		return e.tr.Fallback()
	}
	if lang, ok := locale.Normalize(u.Language); ok {
		return lang
	}
	return e.tr.Fallback()
}
