package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// -- Users --

func (r *SQLiteRepository) EnsureUser(ctx context.Context, profile UserProfile, now time.Time) (*User, error) {
	// RETURNING rows carry no declared column types, so DATETIME values would
	// come back as text; read the row back instead.
	const q = `
INSERT INTO users (id, display_name, language, created_at, last_active)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    display_name = COALESCE(excluded.display_name, users.display_name),
    last_active = excluded.last_active;
`
	now = now.UTC()
	if _, err := r.db.ExecContext(ctx, q, profile.ID, profile.DisplayName, profile.Language, now, now); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return r.GetUser(ctx, profile.ID)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapSQLErr(err))
	}
	return u, nil
}

func (r *SQLiteRepository) SetUserLanguage(ctx context.Context, id int64, lang string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE id = ?`, lang, id)
	if err != nil {
		return fmt.Errorf("set user language: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set user language %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SetUserPackage(ctx context.Context, id int64, packageKey string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET package_key = ? WHERE id = ?`, packageKey, id)
	if err != nil {
		return fmt.Errorf("set user package: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set user package %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePremium(ctx context.Context, id int64, upd PremiumUpdate) error {
	const q = `UPDATE users SET is_premium = ?, premium_expiry = ?, package_key = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, upd.IsPremium, utcPtr(upd.PremiumExpiry), upd.PackageKey, id)
	if err != nil {
		return fmt.Errorf("update premium: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update premium %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ExpirePremium(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `
UPDATE users SET is_premium = 0
WHERE id = ? AND is_premium = 1 AND premium_expiry IS NOT NULL AND premium_expiry <= ?;
`
	res, err := r.db.ExecContext(ctx, q, id, now.UTC())
	if err != nil {
		return false, fmt.Errorf("expire premium: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// -- Usage --

func (r *SQLiteRepository) UpdateUsage(ctx context.Context, userID int64, service string, now time.Time, fn UsageFunc) (*UsageRecord, error) {
	var rec UsageRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO service_usage (user_id, service_name, request_count, last_reset)
VALUES (?, ?, 0, ?)
ON CONFLICT (user_id, service_name) DO NOTHING;
`, userID, service, now.UTC()); err != nil {
			return fmt.Errorf("init usage: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = ? AND service_name = ?;
`, userID, service)
		if err := row.Scan(&rec.UserID, &rec.Service, &rec.Count, &rec.LastReset); err != nil {
			return fmt.Errorf("load usage: %w", err)
		}

		changed, err := fn(&rec)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE service_usage SET request_count = ?, last_reset = ?
WHERE user_id = ? AND service_name = ?;
`, rec.Count, rec.LastReset.UTC(), userID, service); err != nil {
			return fmt.Errorf("write usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update usage: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) GetUsage(ctx context.Context, userID int64, service string) (*UsageRecord, error) {
	const q = `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = ? AND service_name = ?;
`
	var rec UsageRecord
	if err := r.db.QueryRowContext(ctx, q, userID, service).Scan(&rec.UserID, &rec.Service, &rec.Count, &rec.LastReset); err != nil {
		return nil, fmt.Errorf("get usage: %w", mapSQLErr(err))
	}
	return &rec, nil
}

func (r *SQLiteRepository) ListUsage(ctx context.Context, userID int64) ([]UsageRecord, error) {
	const q = `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = ?
ORDER BY service_name;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		if err := rows.Scan(&rec.UserID, &rec.Service, &rec.Count, &rec.LastReset); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage: %w", err)
	}
	return records, nil
}

// -- Payments --

func (r *SQLiteRepository) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	const q = `
INSERT INTO payments (id, user_id, package_key, list_price, amount, promo_code, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
	if _, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.UserID,
		p.PackageKey,
		p.ListPrice,
		p.Amount,
		p.PromoCode,
		p.Status,
		p.CreatedAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return r.GetPayment(ctx, p.ID)
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? LIMIT 1;`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", mapSQLErr(err))
	}
	return p, nil
}

func (r *SQLiteRepository) ListPaymentsByStatus(ctx context.Context, status string) ([]Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status = ? ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q, status)
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

func (r *SQLiteRepository) ConfirmPayment(ctx context.Context, id string, adminID int64, now time.Time, fn ActivateFunc) (*Confirmation, error) {
	now = now.UTC()
	var out Confirmation
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?;`, id))
		if err != nil {
			return mapSQLErr(err)
		}
		if p.Status != PaymentPending {
			return ErrNotPending
		}

		act, err := fn(*p)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE payments SET status = 'confirmed', confirmed_at = ?, confirmed_by = ?
WHERE id = ? AND status = 'pending';
`, now, adminID, id); err != nil {
			return fmt.Errorf("mark confirmed: %w", err)
		}
		p.Status = PaymentConfirmed
		p.ConfirmedAt = &now
		p.ConfirmedBy = &adminID

		if p.PromoCode != nil {
			res, err := tx.ExecContext(ctx, `
UPDATE promo_codes SET current_uses = current_uses + 1
WHERE code = ? AND (max_uses = 0 OR current_uses < max_uses);
`, *p.PromoCode)
			if err != nil {
				return fmt.Errorf("redeem promo: %w", err)
			}
			n, _ := res.RowsAffected()
			out.PromoRedeemed = n > 0
		}

		if err := activateUserSQLite(ctx, tx, p.UserID, act, now); err != nil {
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

func (r *SQLiteRepository) GrantPremium(ctx context.Context, userID int64, now time.Time, fn GrantFunc) error {
	now = now.UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?;`, userID))
		if err != nil {
			return mapSQLErr(err)
		}
		act, err := fn(*u)
		if err != nil {
			return err
		}
		return activateUserSQLite(ctx, tx, userID, act, now)
	})
	if err != nil {
		return fmt.Errorf("grant premium %d: %w", userID, err)
	}
	return nil
}

func activateUserSQLite(ctx context.Context, tx *sql.Tx, userID int64, act Activation, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
UPDATE users SET is_premium = 1, premium_expiry = ?, package_key = ?
WHERE id = ?;
`, utcPtr(act.PremiumExpiry), act.PackageKey, userID)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activate user %d: %w", userID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM service_usage WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear usage: %w", err)
	}
	for _, svc := range act.ResetServices {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO service_usage (user_id, service_name, request_count, last_reset)
VALUES (?, ?, 0, ?);
`, userID, svc, now); err != nil {
			return fmt.Errorf("reset usage %s: %w", svc, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) FailPayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET status = 'failed' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetPayment(ctx, id); err != nil {
		return fmt.Errorf("fail payment %s: %w", id, err)
	}
	return fmt.Errorf("fail payment %s: %w", id, ErrNotPending)
}

// -- Promo codes --

func (r *SQLiteRepository) InsertPromoCode(ctx context.Context, code PromoCode) (bool, error) {
	const q = `
INSERT INTO promo_codes (code, discount_percent, bonus_days, max_uses, current_uses, is_active, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (code) DO NOTHING;
`
	res, err := r.db.ExecContext(ctx, q,
		code.Code,
		code.DiscountPercent,
		code.BonusDays,
		code.MaxUses,
		code.CurrentUses,
		code.Active,
		utcPtr(code.ExpiresAt),
		code.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert promo code: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLiteRepository) GetPromoCode(ctx context.Context, code string) (*PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = ? LIMIT 1;`
	pc, err := scanPromo(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, fmt.Errorf("get promo code: %w", mapSQLErr(err))
	}
	return pc, nil
}

func (r *SQLiteRepository) ListPromoCodes(ctx context.Context) ([]PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list promo codes: %w", err)
	}
	defer rows.Close()

	var codes []PromoCode
	for rows.Next() {
		pc, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo code: %w", err)
		}
		codes = append(codes, *pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo codes: %w", err)
	}
	return codes, nil
}

// -- Request logs --

func (r *SQLiteRepository) InsertRequestLog(ctx context.Context, log RequestLog) error {
	const q = `
INSERT INTO request_logs (id, user_id, service_name, status, error_message, processing_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	_, err := r.db.ExecContext(ctx, q, log.ID, log.UserID, log.Service, log.Status, log.ErrorMessage, log.ProcessingMS, log.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetStats(ctx context.Context, activeSince time.Time) (*Stats, error) {
	const q = `
SELECT
    (SELECT COUNT(*) FROM users),
    (SELECT COUNT(*) FROM users WHERE last_active >= ?),
    (SELECT COUNT(*) FROM users WHERE is_premium = 1),
    (SELECT COUNT(*) FROM payments WHERE status = 'pending'),
    (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'confirmed');
`
	stats := &Stats{ServiceUsage: map[string]int64{}}
	if err := r.db.QueryRowContext(ctx, q, activeSince.UTC()).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.PremiumUsers,
		&stats.PendingPayments,
		&stats.ConfirmedAmount,
	); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT service_name, COALESCE(SUM(request_count), 0) FROM service_usage GROUP BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("get service stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var total int64
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("scan service stats: %w", err)
		}
		stats.ServiceUsage[name] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service stats: %w", err)
	}
	return stats, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
