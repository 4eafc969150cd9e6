package convo

import (
	"context"
	"errors"
	"sort"

	"ai-bot/internal/locale"
	"ai-bot/internal/payment"
	"ai-bot/internal/repo"
	"ai-bot/internal/session"
)

func (e *Engine) cmdBuy(ctx context.Context, t *turn, args string) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}
	co := e.payments.Start()
	st.Checkout = &co
	st.Wizard = nil

	if args == "" {
		if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
			e.fail(ctx, t, "save session", err)
			return
		}
		e.send(ctx, t, e.packagesText(t)+"\n\n"+e.text(t, "buy_prompt", nil))
		return
	}
	e.selectPackage(ctx, t, st, args)
}

func (e *Engine) selectPackage(ctx context.Context, t *turn, st session.State, key string) {
	co, err := e.payments.SelectPackage(ctx, t.in.UserID, key)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownPackage) {
			st.Checkout = &co
			if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
				e.fail(ctx, t, "save session", err)
				return
			}
			e.reply(ctx, t, "unknown_package", locale.Args{"key": key})
			return
		}
		if errors.Is(err, payment.ErrPremiumActive) {
			st.Checkout = nil
			if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
				e.fail(ctx, t, "save session", err)
				return
			}
			e.reply(ctx, t, "premium_blocks_free", nil)
			return
		}
		e.fail(ctx, t, "select package", err)
		return
	}

	pkg, err := e.catalog.Get(co.PackageKey)
	if err != nil {
		e.fail(ctx, t, "select package", err)
		return
	}

	if co.Terminal() {
		st.Checkout = nil
		if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
			e.fail(ctx, t, "save session", err)
			return
		}
		e.reply(ctx, t, "free_package_selected", locale.Args{"package": pkg.Name(t.lang)})
		return
	}

	st.Checkout = &co
	if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
		e.fail(ctx, t, "save session", err)
		return
	}
	e.reply(ctx, t, "promo_prompt", locale.Args{
		"package": pkg.Name(t.lang),
		"price":   locale.FormatAmount(co.ListPrice),
	})
}

func (e *Engine) cmdPromo(ctx context.Context, t *turn, args string) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}
	if st.Checkout == nil || st.Checkout.Step != payment.StepEnteringPromo {
		e.reply(ctx, t, "no_checkout", nil)
		return
	}
	if args == "" {
		pkg, err := e.catalog.Get(st.Checkout.PackageKey)
		if err != nil {
			e.fail(ctx, t, "load package", err)
			return
		}
		e.reply(ctx, t, "promo_prompt", locale.Args{
			"package": pkg.Name(t.lang),
			"price":   locale.FormatAmount(st.Checkout.ListPrice),
		})
		return
	}
	e.applyPromo(ctx, t, st, args)
}

func (e *Engine) cmdSkip(ctx context.Context, t *turn) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}
	if st.Checkout == nil || st.Checkout.Step != payment.StepEnteringPromo {
		e.reply(ctx, t, "no_checkout", nil)
		return
	}
	e.applyPromo(ctx, t, st, payment.SkipToken)
}

// applyPromo prices the checkout, creates the pending payment and sends
// transfer instructions.
func (e *Engine) applyPromo(ctx context.Context, t *turn, st session.State, code string) {
	co, res, err := e.payments.ApplyPromo(ctx, *st.Checkout, code)
	if err != nil {
		e.fail(ctx, t, "apply promo", err)
		return
	}

	price := locale.FormatAmount(res.ListPrice)
	switch {
	case res.Skipped:
		e.reply(ctx, t, "promo_skipped", locale.Args{"price": price})
	case res.Invalid:
		e.reply(ctx, t, "promo_invalid", locale.Args{"code": res.Code, "price": price})
	default:
		e.reply(ctx, t, "promo_applied", locale.Args{
			"code":    res.Code,
			"percent": res.DiscountPercent,
			"price":   price,
			"amount":  locale.FormatAmount(res.Amount),
		})
	}

	co, ins, err := e.payments.Submit(ctx, t.in.UserID, co)
	if err != nil {
		e.fail(ctx, t, "create payment", err)
		return
	}
	st.Checkout = &co
	if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
		e.fail(ctx, t, "save session", err)
		return
	}

	pkg, err := e.catalog.Get(co.PackageKey)
	if err != nil {
		e.fail(ctx, t, "load package", err)
		return
	}
	e.reply(ctx, t, "payment_instructions", locale.Args{
		"id":      ins.Payment.ID,
		"package": pkg.Name(t.lang),
		"amount":  locale.FormatAmount(ins.Payment.Amount),
		"target":  ins.Target,
		"holder":  ins.Holder,
	})
}

// cmdPaid reports the checkout's payment, or the user's newest pending
// payment when the session has expired.
func (e *Engine) cmdPaid(ctx context.Context, t *turn) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}

	paymentID := ""
	if co := st.Checkout; co != nil && co.Step == payment.StepWaitingForPayment {
		paymentID = co.PaymentID
	}
	if paymentID == "" {
		paymentID, err = e.latestPending(ctx, t.in.UserID)
		if err != nil {
			e.fail(ctx, t, "find pending payment", err)
			return
		}
	}
	if paymentID == "" {
		e.reply(ctx, t, "paid_no_payment", nil)
		return
	}

	if err := e.payments.ReportPaid(ctx, t.in.UserID, paymentID); err != nil {
		if errors.Is(err, payment.ErrNotFoundOrProcessed) {
			_ = e.sessions.Clear(ctx, t.in.UserID)
			e.reply(ctx, t, "paid_no_payment", nil)
			return
		}
		e.fail(ctx, t, "report payment", err)
		return
	}

	st.Checkout = nil
	if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
		e.logger.Warn("clear checkout failed", "user_id", t.in.UserID, "error", err)
	}
	e.reply(ctx, t, "paid_reported", locale.Args{"id": paymentID})
}

func (e *Engine) latestPending(ctx context.Context, userID int64) (string, error) {
	pending, err := e.payments.ListPendingPayments(ctx)
	if err != nil {
		return "", err
	}
	var mine []repo.Payment
	for _, p := range pending {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	if len(mine) == 0 {
		return "", nil
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	return mine[0].ID, nil
}
