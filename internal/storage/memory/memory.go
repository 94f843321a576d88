// Package memory is an in-process implementation of storage.Store used by
// tests and the memory data backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hogar/internal/core"
	"hogar/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	users      map[string]core.User
	passwords  map[string]string // email -> hash
	households map[string]core.Household
	members    map[string]core.Membership // membership id -> row
	expenses   map[string]core.Expense
	categories map[string]core.Category

	base time.Time
	seq  int64
}

func New() *Store {
	s := &Store{
		users:      make(map[string]core.User),
		passwords:  make(map[string]string),
		households: make(map[string]core.Household),
		members:    make(map[string]core.Membership),
		expenses:   make(map[string]core.Expense),
		categories: make(map[string]core.Category),
		base:       time.Now().UTC(),
	}
	for i, c := range core.DefaultCategories() {
		c.ID = fmt.Sprintf("cat-%s", c.Value)
		c.CreatedAt = s.base.Add(time.Duration(i))
		s.categories[c.ID] = c
	}
	return s
}

// tick returns a strictly increasing timestamp so insertion order survives
// the created_at sort even within one nanosecond.
func (s *Store) tick() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq))
}

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, user *core.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", core.ErrConflict)
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.tick()
	}
	s.users[user.ID] = *user
	s.passwords[strings.ToLower(user.Email)] = passwordHash
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (s *Store) GetUserCredentials(ctx context.Context, email string) (*core.User, string, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return u, s.passwords[strings.ToLower(u.Email)], nil
}

// Households and memberships

func (s *Store) CreateHousehold(_ context.Context, h *core.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.tick()
	}
	s.households[h.ID] = *h
	return nil
}

func (s *Store) GetHousehold(_ context.Context, id string) (*core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[id]
	if !ok {
		return nil, fmt.Errorf("get household: %w", core.ErrNotFound)
	}
	return &h, nil
}

func (s *Store) CreateMembership(_ context.Context, m *core.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.UserID == m.UserID {
			return fmt.Errorf("create membership: %w", core.ErrConflict)
		}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.tick()
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) GetMembershipByUser(_ context.Context, userID string) (*core.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *core.Membership
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		m := m
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = &m
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("get membership: %w", core.ErrNotFound)
	}
	return latest, nil
}

func (s *Store) ListMemberships(_ context.Context, householdID string) ([]core.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Membership
	for _, m := range s.members {
		if m.HouseholdID == householdID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteMembershipByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := false
	for id, m := range s.members {
		if m.UserID == userID {
			delete(s.members, id)
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("delete membership: %w", core.ErrNotFound)
	}
	return nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.tick()
	}
	stored := *e
	stored.Owner = nil
	s.expenses[e.ID] = stored
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("get expense: %w", core.ErrNotFound)
	}
	return &e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok {
		return fmt.Errorf("update expense: %w", core.ErrNotFound)
	}
	existing.Description = e.Description
	existing.Amount = e.Amount
	existing.Category = e.Category
	existing.Date = e.Date
	existing.Person = e.Person
	s.expenses[e.ID] = existing
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("delete expense: %w", core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpensesByOwners(_ context.Context, userIDs []string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		owners[id] = true
	}
	var out []core.Expense
	for _, e := range s.expenses {
		if owners[e.UserID] {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListPersonalExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && e.Personal() {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ClearHouseholdRefs(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cleared int64
	for id, e := range s.expenses {
		if e.UserID == userID && e.HouseholdID != "" {
			e.HouseholdID = ""
			s.expenses[id] = e
			cleared++
		}
	}
	return cleared, nil
}

// Categories

func (s *Store) ListCategories(_ context.Context, householdID, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		visible := c.System() ||
			(householdID != "" && c.HouseholdID == householdID) ||
			(userID != "" && c.UserID == userID)
		if visible {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Value == c.Value && existing.HouseholdID == c.HouseholdID && existing.UserID == c.UserID {
			return fmt.Errorf("create category: %w", core.ErrConflict)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.tick()
	}
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return fmt.Errorf("update category: %w", core.ErrNotFound)
	}
	for id, other := range s.categories {
		if id != c.ID && other.Value == c.Value && other.HouseholdID == existing.HouseholdID && other.UserID == existing.UserID {
			return fmt.Errorf("update category: %w", core.ErrConflict)
		}
	}
	existing.Value = c.Value
	existing.Label = c.Label
	existing.Emoji = c.Emoji
	s.categories[c.ID] = existing
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("delete category: %w", core.ErrNotFound)
	}
	delete(s.categories, id)
	return nil
}

func sortNewestFirst(expenses []core.Expense) {
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].CreatedAt.Equal(expenses[j].CreatedAt) {
			return expenses[i].ID > expenses[j].ID
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
}
