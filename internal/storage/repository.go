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

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"hogar/internal/core"
)

var _ Store = (*SQLiteRepository)(nil)

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

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
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

// retryAttempts bounds how often a transient store failure is retried. The
// operation runs at most this many times in total.
const retryAttempts = 2

// withRetry re-runs fn once after a transient failure. Business errors
// (not found, conflict, validation) are never retried.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !transient(err) {
			return err
		}
		if attempt < retryAttempts {
			slog.WarnContext(ctx, "Retrying store operation",
				"operation", op, "attempt", attempt, "error", err)
			time.Sleep(50 * time.Millisecond)
		}
	}
	return err
}

func transient(err error) bool {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrValidation) {
		return false
	}
	return errors.Is(err, core.ErrStoreUnavailable) || strings.Contains(err.Error(), "database is locked")
}

// mapErr normalizes driver errors into the domain taxonomy.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	case errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%s: %w: %v", op, core.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, user *core.User, passwordHash string) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, "create user", func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
			user.ID, user.Email, user.Name, passwordHash, user.CreatedAt.UnixNano(),
		)
		return mapErr("create user", err)
	})
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (*core.User, error) {
	var (
		u  core.User
		ts int64
	)
	err := withRetry(ctx, "get user", func() error {
		return mapErr("get user", r.db.QueryRowContext(ctx,
			"SELECT id, email, name, created_at FROM users WHERE id = ?", id,
		).Scan(&u.ID, &u.Email, &u.Name, &ts))
	})
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(0, ts).UTC()
	return &u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var (
		u  core.User
		ts int64
	)
	err := withRetry(ctx, "get user by email", func() error {
		return mapErr("get user by email", r.db.QueryRowContext(ctx,
			"SELECT id, email, name, created_at FROM users WHERE email = ?", email,
		).Scan(&u.ID, &u.Email, &u.Name, &ts))
	})
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(0, ts).UTC()
	return &u, nil
}

func (r *SQLiteRepository) GetUserCredentials(ctx context.Context, email string) (*core.User, string, error) {
	var (
		u    core.User
		hash string
		ts   int64
	)
	err := withRetry(ctx, "get user credentials", func() error {
		return mapErr("get user credentials", r.db.QueryRowContext(ctx,
			"SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", email,
		).Scan(&u.ID, &u.Email, &u.Name, &hash, &ts))
	})
	if err != nil {
		return nil, "", err
	}
	u.CreatedAt = time.Unix(0, ts).UTC()
	return &u, hash, nil
}

// Households and memberships

func (r *SQLiteRepository) CreateHousehold(ctx context.Context, h *core.Household) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, "create household", func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO households (id, name, created_by, created_at) VALUES (?, ?, ?, ?)",
			h.ID, h.Name, h.CreatedBy, h.CreatedAt.UnixNano(),
		)
		return mapErr("create household", err)
	})
}

func (r *SQLiteRepository) GetHousehold(ctx context.Context, id string) (*core.Household, error) {
	var (
		h  core.Household
		ts int64
	)
	err := withRetry(ctx, "get household", func() error {
		return mapErr("get household", r.db.QueryRowContext(ctx,
			"SELECT id, name, created_by, created_at FROM households WHERE id = ?", id,
		).Scan(&h.ID, &h.Name, &h.CreatedBy, &ts))
	})
	if err != nil {
		return nil, err
	}
	h.CreatedAt = time.Unix(0, ts).UTC()
	return &h, nil
}

func (r *SQLiteRepository) CreateMembership(ctx context.Context, m *core.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, "create membership", func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO household_members (id, household_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)",
			m.ID, m.HouseholdID, m.UserID, string(m.Role), m.CreatedAt.UnixNano(),
		)
		return mapErr("create membership", err)
	})
}

func (r *SQLiteRepository) GetMembershipByUser(ctx context.Context, userID string) (*core.Membership, error) {
	var (
		m    core.Membership
		role string
		ts   int64
	)
	// The unique index keeps this a single row; the ORDER BY is the
	// deterministic fallback should duplicates ever appear.
	err := withRetry(ctx, "get membership", func() error {
		return mapErr("get membership", r.db.QueryRowContext(ctx,
			`SELECT id, household_id, user_id, role, created_at
			 FROM household_members WHERE user_id = ?
			 ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
		).Scan(&m.ID, &m.HouseholdID, &m.UserID, &role, &ts))
	})
	if err != nil {
		return nil, err
	}
	m.Role = core.Role(role)
	m.CreatedAt = time.Unix(0, ts).UTC()
	return &m, nil
}

func (r *SQLiteRepository) ListMemberships(ctx context.Context, householdID string) ([]core.Membership, error) {
	var members []core.Membership
	err := withRetry(ctx, "list memberships", func() error {
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, household_id, user_id, role, created_at
			 FROM household_members WHERE household_id = ?
			 ORDER BY created_at ASC`, householdID,
		)
		if err != nil {
			return mapErr("list memberships", err)
		}
		defer rows.Close()

		members = members[:0]
		for rows.Next() {
			var (
				m    core.Membership
				role string
				ts   int64
			)
			if err := rows.Scan(&m.ID, &m.HouseholdID, &m.UserID, &role, &ts); err != nil {
				return mapErr("scan membership", err)
			}
			m.Role = core.Role(role)
			m.CreatedAt = time.Unix(0, ts).UTC()
			members = append(members, m)
		}
		return mapErr("list memberships", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *SQLiteRepository) DeleteMembershipByUser(ctx context.Context, userID string) error {
	return withRetry(ctx, "delete membership", func() error {
		res, err := r.db.ExecContext(ctx,
			"DELETE FROM household_members WHERE user_id = ?", userID,
		)
		if err != nil {
			return mapErr("delete membership", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete membership: %w", core.ErrNotFound)
		}
		return nil
	})
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, "create expense", func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO expenses (id, description, amount, category, date, person, user_id, household_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Description, e.Amount.String(), e.Category, e.Date.String(),
			e.Person, e.UserID, nullable(e.HouseholdID), e.CreatedAt.UnixNano(),
		)
		return mapErr("create expense", err)
	})
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	var e core.Expense
	err := withRetry(ctx, "get expense", func() error {
		row := r.db.QueryRowContext(ctx,
			`SELECT id, description, amount, category, date, person, user_id, household_id, created_at
			 FROM expenses WHERE id = ?`, id,
		)
		exp, err := scanExpense(row)
		if err != nil {
			return mapErr("get expense", err)
		}
		e = *exp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e *core.Expense) error {
	return withRetry(ctx, "update expense", func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE expenses SET description = ?, amount = ?, category = ?, date = ?, person = ?
			 WHERE id = ?`,
			e.Description, e.Amount.String(), e.Category, e.Date.String(), e.Person, e.ID,
		)
		if err != nil {
			return mapErr("update expense", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update expense: %w", core.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return withRetry(ctx, "delete expense", func() error {
		res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
		if err != nil {
			return mapErr("delete expense", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete expense: %w", core.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListExpensesByOwners(ctx context.Context, userIDs []string) ([]core.Expense, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(userIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, description, amount, category, date, person, user_id, household_id, created_at
		 FROM expenses WHERE user_id IN (%s)
		 ORDER BY created_at DESC, id DESC`, placeholders)

	return r.listExpenses(ctx, "list expenses by owners", query, args...)
}

func (r *SQLiteRepository) ListPersonalExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return r.listExpenses(ctx, "list personal expenses",
		`SELECT id, description, amount, category, date, person, user_id, household_id, created_at
		 FROM expenses WHERE user_id = ? AND household_id IS NULL
		 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLiteRepository) ClearHouseholdRefs(ctx context.Context, userID string) (int64, error) {
	var cleared int64
	err := withRetry(ctx, "clear household refs", func() error {
		res, err := r.db.ExecContext(ctx,
			"UPDATE expenses SET household_id = NULL WHERE user_id = ? AND household_id IS NOT NULL",
			userID,
		)
		if err != nil {
			return mapErr("clear household refs", err)
		}
		cleared, _ = res.RowsAffected()
		return nil
	})
	return cleared, err
}

func (r *SQLiteRepository) listExpenses(ctx context.Context, op, query string, args ...any) ([]core.Expense, error) {
	var expenses []core.Expense
	err := withRetry(ctx, op, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return mapErr(op, err)
		}
		defer rows.Close()

		expenses = expenses[:0]
		for rows.Next() {
			e, err := scanExpense(rows)
			if err != nil {
				return mapErr(op, err)
			}
			expenses = append(expenses, *e)
		}
		return mapErr(op, rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context, householdID, userID string) ([]core.Category, error) {
	// Defaults have neither scope; private rows match exactly one of the
	// selectors.
	query := `SELECT id, value, label, emoji, household_id, user_id, created_at
	          FROM categories WHERE (household_id IS NULL AND user_id IS NULL)`
	args := []any{}
	if householdID != "" {
		query += " OR household_id = ?"
		args = append(args, householdID)
	}
	if userID != "" {
		query += " OR user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	var cats []core.Category
	err := withRetry(ctx, "list categories", func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return mapErr("list categories", err)
		}
		defer rows.Close()

		cats = cats[:0]
		for rows.Next() {
			c, err := scanCategory(rows)
			if err != nil {
				return mapErr("scan category", err)
			}
			cats = append(cats, *c)
		}
		return mapErr("list categories", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	err := withRetry(ctx, "get category", func() error {
		row := r.db.QueryRowContext(ctx,
			`SELECT id, value, label, emoji, household_id, user_id, created_at
			 FROM categories WHERE id = ?`, id,
		)
		cat, err := scanCategory(row)
		if err != nil {
			return mapErr("get category", err)
		}
		c = *cat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, "create category", func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO categories (id, value, label, emoji, household_id, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			c.ID, c.Value, c.Label, c.Emoji, nullable(c.HouseholdID), nullable(c.UserID), c.CreatedAt.UnixNano(),
		)
		return mapErr("create category", err)
	})
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c *core.Category) error {
	return withRetry(ctx, "update category", func() error {
		res, err := r.db.ExecContext(ctx,
			"UPDATE categories SET value = ?, label = ?, emoji = ? WHERE id = ?",
			c.Value, c.Label, c.Emoji, c.ID,
		)
		if err != nil {
			return mapErr("update category", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update category: %w", core.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return withRetry(ctx, "delete category", func() error {
		res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return mapErr("delete category", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete category: %w", core.ErrNotFound)
		}
		return nil
	})
}

func scanCategory(row rowScanner) (*core.Category, error) {
	var (
		c      core.Category
		hh, uu sql.NullString
		ts     int64
	)
	if err := row.Scan(&c.ID, &c.Value, &c.Label, &c.Emoji, &hh, &uu, &ts); err != nil {
		return nil, err
	}
	c.HouseholdID = hh.String
	c.UserID = uu.String
	c.CreatedAt = time.Unix(0, ts).UTC()
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		e      core.Expense
		amount string
		date   string
		hh     sql.NullString
		ts     int64
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &e.Category, &date,
		&e.Person, &e.UserID, &hh, &ts); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Amount = d

	parsed, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Date = parsed

	e.HouseholdID = hh.String
	e.CreatedAt = time.Unix(0, ts).UTC()
	return &e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
