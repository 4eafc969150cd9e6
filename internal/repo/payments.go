package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, user_id, package_key, list_price, amount, promo_code, status, created_at, confirmed_at, confirmed_by`

// InsertPayment stores a new payment record.
func (r *PostgresRepository) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	const q = `
INSERT INTO payments (id, user_id, package_key, list_price, amount, promo_code, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns + `;
`
	row := r.pool.QueryRow(ctx, q,
		p.ID,
		p.UserID,
		p.PackageKey,
		p.ListPrice,
		p.Amount,
		p.PromoCode,
		p.Status,
		p.CreatedAt,
	)
	inserted, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return inserted, nil
}

// GetPayment retrieves a payment by id.
func (r *PostgresRepository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 LIMIT 1;`
	p, err := scanPayment(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", mapPgErr(err))
	}
	return p, nil
}

// ListPaymentsByStatus returns payments in status, oldest first.
func (r *PostgresRepository) ListPaymentsByStatus(ctx context.Context, status string) ([]Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 ORDER BY created_at ASC;`
	rows, err := r.pool.Query(ctx, q, status)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

// ConfirmPayment marks a pending payment confirmed, redeems its promo code,
// activates the user's package and resets the user's usage counters, all in
// one transaction.
func (r *PostgresRepository) ConfirmPayment(ctx context.Context, id string, adminID int64, now time.Time, fn ActivateFunc) (*Confirmation, error) {
	var out Confirmation
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE;`, id))
		if err != nil {
			return mapPgErr(err)
		}
		if p.Status != PaymentPending {
			return ErrNotPending
		}

		act, err := fn(*p)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
UPDATE payments SET status = 'confirmed', confirmed_at = $2, confirmed_by = $3
WHERE id = $1 AND status = 'pending';
`, id, now, adminID); err != nil {
			return fmt.Errorf("mark confirmed: %w", err)
		}
		p.Status = PaymentConfirmed
		p.ConfirmedAt = &now
		p.ConfirmedBy = &adminID

		if p.PromoCode != nil {
			ct, err := tx.Exec(ctx, `
UPDATE promo_codes SET current_uses = current_uses + 1
WHERE code = $1 AND (max_uses = 0 OR current_uses < max_uses);
`, *p.PromoCode)
			if err != nil {
				return fmt.Errorf("redeem promo: %w", err)
			}
			out.PromoRedeemed = ct.RowsAffected() > 0
		}

		if err := activateUser(ctx, tx, p.UserID, act, now); err != nil {
			return err
		}

		out.Payment = *p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm payment %s: %w", id, err)
	}
	return &out, nil
}

// GrantPremium locks the user row, lets fn compute the grant and applies it
// with the usage reset in one transaction.
func (r *PostgresRepository) GrantPremium(ctx context.Context, userID int64, now time.Time, fn GrantFunc) error {
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE;`, userID))
		if err != nil {
			return mapPgErr(err)
		}
		act, err := fn(*u)
		if err != nil {
			return err
		}
		return activateUser(ctx, tx, userID, act, now)
	})
	if err != nil {
		return fmt.Errorf("grant premium %d: %w", userID, err)
	}
	return nil
}

// activateUser switches the user to act and recreates the usage rows of
// act.ResetServices at zero.
func activateUser(ctx context.Context, tx pgx.Tx, userID int64, act Activation, now time.Time) error {
	ct, err := tx.Exec(ctx, `
UPDATE users SET is_premium = TRUE, premium_expiry = $2, package_key = $3
WHERE id = $1;
`, userID, act.PremiumExpiry, act.PackageKey)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("activate user %d: %w", userID, ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM service_usage WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear usage: %w", err)
	}
	for _, svc := range act.ResetServices {
		if _, err := tx.Exec(ctx, `
INSERT INTO service_usage (user_id, service_name, request_count, last_reset)
VALUES ($1, $2, 0, $3);
`, userID, svc, now); err != nil {
			return fmt.Errorf("reset usage %s: %w", svc, err)
		}
	}
	return nil
}

// FailPayment moves a pending payment to failed.
func (r *PostgresRepository) FailPayment(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE payments SET status = 'failed' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetPayment(ctx, id); err != nil {
		return fmt.Errorf("fail payment %s: %w", id, err)
	}
	return fmt.Errorf("fail payment %s: %w", id, ErrNotPending)
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.PackageKey, &p.ListPrice, &p.Amount, &p.PromoCode, &p.Status, &p.CreatedAt, &p.ConfirmedAt, &p.ConfirmedBy); err != nil {
		return nil, err
	}
	return &p, nil
}

// IsNotFoundOrProcessed reports whether err means the payment cannot be confirmed.
func IsNotFoundOrProcessed(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPending)
}
