package repo

import (
	"context"
	"fmt"
)

const promoColumns = `code, discount_percent, bonus_days, max_uses, current_uses, is_active, expires_at, created_at`

// InsertPromoCode stores a promo code; false means the code already exists.
func (r *PostgresRepository) InsertPromoCode(ctx context.Context, code PromoCode) (bool, error) {
	const q = `
INSERT INTO promo_codes (code, discount_percent, bonus_days, max_uses, current_uses, is_active, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (code) DO NOTHING;
`
	ct, err := r.pool.Exec(ctx, q,
		code.Code,
		code.DiscountPercent,
		code.BonusDays,
		code.MaxUses,
		code.CurrentUses,
		code.Active,
		code.ExpiresAt,
		code.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert promo code: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// GetPromoCode looks a code up by its normalized value.
func (r *PostgresRepository) GetPromoCode(ctx context.Context, code string) (*PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1 LIMIT 1;`
	pc, err := scanPromo(r.pool.QueryRow(ctx, q, code))
	if err != nil {
		return nil, fmt.Errorf("get promo code: %w", mapPgErr(err))
	}
	return pc, nil
}

// ListPromoCodes returns all codes, newest first.
func (r *PostgresRepository) ListPromoCodes(ctx context.Context) ([]PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q)
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

func scanPromo(row rowScanner) (*PromoCode, error) {
	var pc PromoCode
	if err := row.Scan(&pc.Code, &pc.DiscountPercent, &pc.BonusDays, &pc.MaxUses, &pc.CurrentUses, &pc.Active, &pc.ExpiresAt, &pc.CreatedAt); err != nil {
		return nil, err
	}
	return &pc, nil
}
