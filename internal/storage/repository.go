package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensia/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record does not exist or is not
	// owned by the requesting user.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when registering an already-used email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is the persisted account record. The password hash never leaves
// this package except through the auth service.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Timestamps are stored as unix milliseconds so range comparisons and
// ordering stay integer-based.
func toMillis(t time.Time) int64    { return t.UnixMilli() }
func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

// ---- users ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, toMillis(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "email", u.Email)
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// ---- incomes ----

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in *core.Income) error {
	in.ID = uuid.NewString()
	in.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, user_id, source, icon, description, amount_cents, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Source, in.Icon, in.Description,
		in.Amount.Cents, toMillis(in.Date), toMillis(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID, "user_id", in.UserID, "source", in.Source, "amount_cents", in.Amount.Cents)
	return nil
}

// DeleteIncome removes the record only when it belongs to userID.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIncomes returns the user's incomes ordered by date descending.
// Zero from/to bounds are ignored.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string, from, to time.Time) ([]core.Income, error) {
	query := `SELECT id, user_id, source, icon, description, amount_cents, date, created_at
		 FROM incomes WHERE user_id = ?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, toMillis(to))
	}
	query += ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()
	return scanIncomes(rows)
}

// RecentIncomes returns the user's most recent incomes by date.
func (r *SQLiteRepository) RecentIncomes(ctx context.Context, userID string, limit int) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, source, icon, description, amount_cents, date, created_at
		 FROM incomes WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent incomes: %w", err)
	}
	defer rows.Close()
	return scanIncomes(rows)
}

// SumIncomes totals the user's income in cents. A zero since bound sums
// everything.
func (r *SQLiteRepository) SumIncomes(ctx context.Context, userID string, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND date >= ?`
		args = append(args, toMillis(since))
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum incomes: %w", err)
	}
	return total, nil
}

func scanIncomes(rows *sql.Rows) ([]core.Income, error) {
	var out []core.Income
	for rows.Next() {
		var in core.Income
		var date, created int64
		if err := rows.Scan(&in.ID, &in.UserID, &in.Source, &in.Icon, &in.Description,
			&in.Amount.Cents, &date, &created); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Date = fromMillis(date)
		in.CreatedAt = fromMillis(created)
		out = append(out, in)
	}
	return out, rows.Err()
}

// ---- expenses ----

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()

	var tripID any
	if e.TripID != "" {
		tripID = e.TripID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category, icon, description, amount_cents, date, trip_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Category, e.Icon, e.Description,
		e.Amount.Cents, toMillis(e.Date), tripID, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID, "user_id", e.UserID, "category", e.Category, "amount_cents", e.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses returns the user's expenses ordered by date descending,
// optionally bounded by date and scoped to a trip.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string, from, to time.Time, tripID string) ([]core.Expense, error) {
	query := `SELECT id, user_id, category, icon, description, amount_cents, date, trip_id, created_at
		 FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, toMillis(to))
	}
	if tripID != "" {
		query += ` AND trip_id = ?`
		args = append(args, tripID)
	}
	query += ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, icon, description, amount_cents, date, trip_id, created_at
		 FROM expenses WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID string, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND date >= ?`
		args = append(args, toMillis(since))
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date, created int64
		var tripID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Icon, &e.Description,
			&e.Amount.Cents, &date, &tripID, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = fromMillis(date)
		e.CreatedAt = fromMillis(created)
		e.TripID = tripID.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- trips ----

func (r *SQLiteRepository) CreateTrip(ctx context.Context, t *core.Trip) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, user_id, name, visibility, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, string(t.Visibility), toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	for _, p := range t.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO trip_participants (trip_id, user_id) VALUES (?, ?)`, t.ID, p); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trip: %w", err)
	}

	slog.InfoContext(ctx, "Trip created",
		"id", t.ID, "user_id", t.UserID, "participants", len(t.Participants), "visibility", t.Visibility)
	return nil
}

func (r *SQLiteRepository) GetTrip(ctx context.Context, id string) (*core.Trip, error) {
	var t core.Trip
	var created int64
	var visibility string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, visibility, created_at FROM trips WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Name, &visibility, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	t.Visibility = core.Visibility(visibility)
	t.CreatedAt = fromMillis(created)

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM trip_participants WHERE trip_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("trip participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		t.Participants = append(t.Participants, p)
	}
	return &t, rows.Err()
}

// ListTripsForUser returns trips the user created or participates in,
// newest first.
func (r *SQLiteRepository) ListTripsForUser(ctx context.Context, userID string) ([]core.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT t.id FROM trips t
		 LEFT JOIN trip_participants tp ON tp.trip_id = t.id
		 WHERE t.user_id = ? OR tp.user_id = ?
		 ORDER BY t.created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trips := make([]core.Trip, 0, len(ids))
	for _, id := range ids {
		t, err := r.GetTrip(ctx, id)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, nil
}

// ---- trip messages ----

func (r *SQLiteRepository) CreateTripMessage(ctx context.Context, m *core.TripMessage) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trip_messages (id, trip_id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.TripID, m.UserID, m.Text, toMillis(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert trip message: %w", err)
	}
	return nil
}

// ListTripMessages returns the trip's messages in creation order with
// the author's display name attached.
func (r *SQLiteRepository) ListTripMessages(ctx context.Context, tripID string) ([]core.TripMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.trip_id, m.user_id, u.full_name, m.text, m.created_at
		 FROM trip_messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.trip_id = ?
		 ORDER BY m.created_at ASC, m.id ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip messages: %w", err)
	}
	defer rows.Close()

	var out []core.TripMessage
	for rows.Next() {
		var m core.TripMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.TripID, &m.UserID, &m.AuthorName, &m.Text, &created); err != nil {
			return nil, fmt.Errorf("scan trip message: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
