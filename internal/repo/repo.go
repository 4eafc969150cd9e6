package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository provides typed access to Postgres resources.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema string
}

var _ Repository = (*PostgresRepository)(nil)

// New opens a new connection pool to the database with the desired search_path.
func New(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		logger: logger.With("component", "repo"),
		schema: schema,
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx executes fn within a database transaction.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// RunMigrations applies schema migrations on the connected database.
func (r *PostgresRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.pool, filesystem)
}

const userColumns = `id, display_name, language, is_premium, premium_expiry, package_key, created_at, last_active`

// EnsureUser creates the user on first contact and refreshes last_active afterwards.
func (r *PostgresRepository) EnsureUser(ctx context.Context, profile UserProfile, now time.Time) (*User, error) {
	const q = `
INSERT INTO users (id, display_name, language, created_at, last_active)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (id) DO UPDATE SET
    display_name = COALESCE(EXCLUDED.display_name, users.display_name),
    last_active = EXCLUDED.last_active
RETURNING ` + userColumns + `;
`
	row := r.pool.QueryRow(ctx, q, profile.ID, profile.DisplayName, profile.Language, now)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

// GetUser returns the user by id.
func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapPgErr(err))
	}
	return u, nil
}

// SetUserLanguage stores the language preference.
func (r *PostgresRepository) SetUserLanguage(ctx context.Context, id int64, lang string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE users SET language = $2 WHERE id = $1`, id, lang)
	if err != nil {
		return fmt.Errorf("set user language: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set user language %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetUserPackage assigns a package without touching premium state.
func (r *PostgresRepository) SetUserPackage(ctx context.Context, id int64, packageKey string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE users SET package_key = $2 WHERE id = $1`, id, packageKey)
	if err != nil {
		return fmt.Errorf("set user package: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set user package %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdatePremium overwrites premium flag, expiry and package.
func (r *PostgresRepository) UpdatePremium(ctx context.Context, id int64, upd PremiumUpdate) error {
	const q = `UPDATE users SET is_premium = $2, premium_expiry = $3, package_key = $4 WHERE id = $1`
	ct, err := r.pool.Exec(ctx, q, id, upd.IsPremium, upd.PremiumExpiry, upd.PackageKey)
	if err != nil {
		return fmt.Errorf("update premium: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update premium %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExpirePremium clears the premium flag when the expiry has passed.
func (r *PostgresRepository) ExpirePremium(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `
UPDATE users SET is_premium = FALSE
WHERE id = $1 AND is_premium AND premium_expiry IS NOT NULL AND premium_expiry <= $2;
`
	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, fmt.Errorf("expire premium: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListUsers returns the most recently created users.
func (r *PostgresRepository) ListUsers(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1;`
	rows, err := r.pool.Query(ctx, q, limit)
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

// InsertRequestLog stores a request log for admin analytics.
func (r *PostgresRepository) InsertRequestLog(ctx context.Context, log RequestLog) error {
	const q = `
INSERT INTO request_logs (id, user_id, service_name, status, error_message, processing_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, q, log.ID, log.UserID, log.Service, log.Status, log.ErrorMessage, log.ProcessingMS, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// GetStats aggregates admin statistics.
func (r *PostgresRepository) GetStats(ctx context.Context, activeSince time.Time) (*Stats, error) {
	const q = `
SELECT
    (SELECT COUNT(*) FROM users),
    (SELECT COUNT(*) FROM users WHERE last_active >= $1),
    (SELECT COUNT(*) FROM users WHERE is_premium),
    (SELECT COUNT(*) FROM payments WHERE status = 'pending'),
    (SELECT COALESCE(SUM(amount), 0)::BIGINT FROM payments WHERE status = 'confirmed');
`
	stats := &Stats{ServiceUsage: map[string]int64{}}
	if err := r.pool.QueryRow(ctx, q, activeSince).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.PremiumUsers,
		&stats.PendingPayments,
		&stats.ConfirmedAmount,
	); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT service_name, COALESCE(SUM(request_count), 0)::BIGINT FROM service_usage GROUP BY service_name`)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.DisplayName, &u.Language, &u.IsPremium, &u.PremiumExpiry, &u.PackageKey, &u.CreatedAt, &u.LastActive); err != nil {
		return nil, err
	}
	return &u, nil
}

func mapPgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
