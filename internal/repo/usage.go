package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// UpdateUsage locks the (user, service) counter, creating it at zero when
// missing, and lets fn mutate it within one transaction.
func (r *PostgresRepository) UpdateUsage(ctx context.Context, userID int64, service string, now time.Time, fn UsageFunc) (*UsageRecord, error) {
	var rec UsageRecord
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO service_usage (user_id, service_name, request_count, last_reset)
VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id, service_name) DO NOTHING;
`, userID, service, now); err != nil {
			return fmt.Errorf("init usage: %w", err)
		}

		row := tx.QueryRow(ctx, `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = $1 AND service_name = $2
FOR UPDATE;
`, userID, service)
		if err := row.Scan(&rec.UserID, &rec.Service, &rec.Count, &rec.LastReset); err != nil {
			return fmt.Errorf("lock usage: %w", err)
		}

		changed, err := fn(&rec)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if _, err := tx.Exec(ctx, `
UPDATE service_usage SET request_count = $3, last_reset = $4
WHERE user_id = $1 AND service_name = $2;
`, userID, service, rec.Count, rec.LastReset); err != nil {
			return fmt.Errorf("write usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update usage: %w", err)
	}
	return &rec, nil
}

// GetUsage returns the stored counter without applying resets.
func (r *PostgresRepository) GetUsage(ctx context.Context, userID int64, service string) (*UsageRecord, error) {
	const q = `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = $1 AND service_name = $2;
`
	var rec UsageRecord
	if err := r.pool.QueryRow(ctx, q, userID, service).Scan(&rec.UserID, &rec.Service, &rec.Count, &rec.LastReset); err != nil {
		return nil, fmt.Errorf("get usage: %w", mapPgErr(err))
	}
	return &rec, nil
}

// ListUsage returns all counters of a user.
func (r *PostgresRepository) ListUsage(ctx context.Context, userID int64) ([]UsageRecord, error) {
	const q = `
SELECT user_id, service_name, request_count, last_reset
FROM service_usage
WHERE user_id = $1
ORDER BY service_name;
`
	rows, err := r.pool.Query(ctx, q, userID)
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
