// Package storage persists the record store entities: users, households,
// memberships, expenses and categories.
package storage

import (
	"context"

	"hogar/internal/core"
)

// Store is the record store contract. The SQLite repository is the real
// implementation; the memory package backs tests and the memory backend.
//
// Lookup misses return core.ErrNotFound; uniqueness violations return
// core.ErrConflict; transport failures return core.ErrStoreUnavailable.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *core.User, passwordHash string) error
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	GetUserCredentials(ctx context.Context, email string) (*core.User, string, error)

	// Households and memberships
	CreateHousehold(ctx context.Context, h *core.Household) error
	GetHousehold(ctx context.Context, id string) (*core.Household, error)
	CreateMembership(ctx context.Context, m *core.Membership) error
	// GetMembershipByUser returns the user's single membership row. If the
	// uniqueness guarantee is ever violated it picks the most recently
	// created row rather than failing.
	GetMembershipByUser(ctx context.Context, userID string) (*core.Membership, error)
	ListMemberships(ctx context.Context, householdID string) ([]core.Membership, error)
	DeleteMembershipByUser(ctx context.Context, userID string) error

	// Expenses. List results are ordered most recent first.
	CreateExpense(ctx context.Context, e *core.Expense) error
	GetExpense(ctx context.Context, id string) (*core.Expense, error)
	UpdateExpense(ctx context.Context, e *core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpensesByOwners(ctx context.Context, userIDs []string) ([]core.Expense, error)
	ListPersonalExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	// ClearHouseholdRefs nulls the household reference on every expense
	// owned by the user, returning how many rows changed. Idempotent.
	ClearHouseholdRefs(ctx context.Context, userID string) (int64, error)

	// Categories. The system defaults are always included; householdID
	// adds one household's rows, userID one solo user's rows. Empty
	// selectors add nothing.
	ListCategories(ctx context.Context, householdID, userID string) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (*core.Category, error)
	CreateCategory(ctx context.Context, c *core.Category) error
	UpdateCategory(ctx context.Context, c *core.Category) error
	DeleteCategory(ctx context.Context, id string) error

	Close() error
}
