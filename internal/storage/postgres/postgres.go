// Package postgres stores transactions in PostgreSQL, such as a Supabase
// project database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gastos/internal/core"
	"gastos/internal/repository"
)

const transactionColumns = `id, user_id, type, amount_cents, category, description, date, created_at, updated_at`

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Repository)(nil)

// New migrates the schema and opens a connection pool.
func New(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Connected to PostgreSQL",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, category, description, date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		tx.UserID, string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description, tx.Date)
	out, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET type = $1, amount_cents = $2, category = $3, description = $4, date = $5, updated_at = now()
		 WHERE id = $6 AND user_id = $7
		 RETURNING `+transactionColumns,
		string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description, tx.Date, tx.ID, tx.UserID)
	out, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return out, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, f repository.Filter) ([]core.Transaction, error) {
	where, args := filterClause(userID, f)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *Repository) CountTransactions(ctx context.Context, userID int64, f repository.Filter) (int, error) {
	where, args := filterClause(userID, f)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *Repository) Categories(ctx context.Context, userID int64, typ core.TransactionType) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT category FROM transactions WHERE user_id = $1 AND type = $2 ORDER BY category`,
		userID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, repository.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `lower(email) = lower($1)`, email)
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `id = $1`, id)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, repository.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) SaveSnapshot(ctx context.Context, s core.Snapshot) (core.Snapshot, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO insight_snapshots (user_id, period, policy, payload) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.UserID, s.Period, s.Policy, string(s.Payload)).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return s, nil
}

func (r *Repository) LatestSnapshot(ctx context.Context, userID int64) (core.Snapshot, error) {
	var (
		s       core.Snapshot
		payload string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, period, policy, payload::text, created_at FROM insight_snapshots
		 WHERE user_id = $1 ORDER BY id DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.UserID, &s.Period, &s.Policy, &payload, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Snapshot{}, repository.ErrNotFound
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	s.Payload = []byte(payload)
	return s, nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan user ids: %w", err)
	}
	return ids, nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		tx  core.Transaction
		typ string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &typ, &tx.Amount.Cents, &tx.Category, &tx.Description,
		&tx.Date, &tx.CreatedAt, &tx.UpdatedAt)
	tx.Type = core.TransactionType(typ)
	return tx, err
}

func filterClause(userID int64, f repository.Filter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}
	add := func(expr string, v any) {
		args = append(args, v)
		clauses = append(clauses, expr+" $"+strconv.Itoa(len(args)))
	}
	if f.Type != "" {
		add("type =", string(f.Type))
	}
	if f.Category != "" {
		add("category =", f.Category)
	}
	if !f.Start.IsZero() {
		add("date >=", f.Start)
	}
	if !f.End.IsZero() {
		add("date <", f.End)
	}
	return strings.Join(clauses, " AND "), args
}
