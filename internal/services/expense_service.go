// Package services orchestrates expense mutations and data repair on top of
// the record store.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hogar/internal/core"
	"hogar/internal/household"
	"hogar/internal/log"
	"hogar/internal/storage"
)

// ExpenseInput carries the caller-editable expense fields.
type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Category    string
	Date        core.Date
	Person      string
}

// ExpenseService owns expense command paths. Reads go through the
// visibility engine; this type only writes.
type ExpenseService struct {
	store    storage.Store
	resolver *household.Resolver
	logger   *log.Logger
}

func NewExpenseService(store storage.Store, resolver *household.Resolver, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		store:    store,
		resolver: resolver,
		logger:   logger.WithComponent(log.ComponentExpense),
	}
}

// Add creates an expense owned by the user. The household stamp is copied
// from the creator's membership at creation time: in a household now means
// stamped with that household, solo means personal. Later joins and leaves
// never rewrite the stamp.
func (s *ExpenseService) Add(ctx context.Context, userID string, input ExpenseInput) (*core.Expense, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add expense: %w", err)
	}

	person := strings.TrimSpace(input.Person)
	if person == "" {
		person = user.Name
	}

	e := &core.Expense{
		ID:          uuid.New().String(),
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Category:    input.Category,
		Date:        input.Date,
		Person:      person,
		UserID:      userID,
	}

	info, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add expense: %w", err)
	}
	if info != nil {
		e.HouseholdID = info.Household.ID
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldExpenseID, e.ID,
		log.FieldUserID, userID,
		log.FieldHouseholdID, e.HouseholdID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category)

	e.Owner = user
	return e, nil
}

// Update edits an expense's fields. Allowed for the owner, and for current
// members of the household the expense is stamped with.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, input ExpenseInput) (*core.Expense, error) {
	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if err := s.canEdit(ctx, userID, existing); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Description = strings.TrimSpace(input.Description)
	updated.Amount = input.Amount
	updated.Category = input.Category
	updated.Date = input.Date
	if p := strings.TrimSpace(input.Person); p != "" {
		updated.Person = p
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateExpense(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldExpenseID, expenseID,
		log.FieldUserID, userID)
	return &updated, nil
}

// Delete removes an expense. Owner only.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if existing.UserID != userID {
		s.logger.WarnContext(ctx, "Delete refused, caller is not the owner",
			log.FieldExpenseID, expenseID,
			log.FieldUserID, userID)
		return fmt.Errorf("delete expense: %w", core.ErrNotFound)
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldExpenseID, expenseID,
		log.FieldUserID, userID)
	return nil
}

// ListCategories returns the shared defaults plus the caller's own scope:
// their household's additions when they belong to one, their private
// additions when they are solo.
func (s *ExpenseService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	householdID, soloID, err := s.categoryScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	cats, err := s.store.ListCategories(ctx, householdID, soloID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// AddCategory persists a new category scoped to the caller's household, or
// to the caller alone when they are solo.
func (s *ExpenseService) AddCategory(ctx context.Context, userID string, c core.Category) (*core.Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	householdID, soloID, err := s.categoryScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}
	c.HouseholdID = householdID
	c.UserID = soloID

	c.ID = uuid.New().String()
	c.Value = strings.TrimSpace(strings.ToLower(c.Value))
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category created",
		log.FieldCategory, c.Value,
		log.FieldHouseholdID, c.HouseholdID)
	return &c, nil
}

// UpdateCategory edits a category's value, label and emoji. The shared
// defaults are immutable; categories outside the caller's scope answer as
// missing.
func (s *ExpenseService) UpdateCategory(ctx context.Context, userID, categoryID string, in core.Category) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.authorizeCategory(ctx, userID, categoryID, "update category")
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Value = strings.TrimSpace(strings.ToLower(in.Value))
	updated.Label = strings.TrimSpace(in.Label)
	updated.Emoji = in.Emoji
	if err := s.store.UpdateCategory(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category updated",
		log.FieldCategory, updated.Value,
		log.FieldUserID, userID)
	return &updated, nil
}

// DeleteCategory removes a category from the caller's scope. The shared
// defaults cannot be removed.
func (s *ExpenseService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	existing, err := s.authorizeCategory(ctx, userID, categoryID, "delete category")
	if err != nil {
		return err
	}

	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldCategory, existing.Value,
		log.FieldUserID, userID)
	return nil
}

// categoryScope resolves the caller's category visibility: household
// members read and write through the household, solo users through their
// own id. Exactly one of the returned selectors is non-empty.
func (s *ExpenseService) categoryScope(ctx context.Context, userID string) (householdID, soloID string, err error) {
	info, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if info != nil {
		return info.Household.ID, "", nil
	}
	return "", userID, nil
}

// authorizeCategory loads the category and checks the caller may modify it.
// System defaults are refused outright; a category belonging to somebody
// else's scope is reported as missing, not as forbidden.
func (s *ExpenseService) authorizeCategory(ctx context.Context, userID, categoryID, op string) (*core.Category, error) {
	existing, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing.System() {
		return nil, fmt.Errorf("%s: %w", op, core.ErrSystemCategory)
	}

	householdID, soloID, err := s.categoryScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inScope := (existing.HouseholdID != "" && existing.HouseholdID == householdID) ||
		(existing.UserID != "" && existing.UserID == soloID)
	if !inScope {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return existing, nil
}

// canEdit returns nil when the caller may edit the expense: the owner
// always can, a fellow current member of the stamped household can too.
func (s *ExpenseService) canEdit(ctx context.Context, userID string, e *core.Expense) error {
	if e.UserID == userID {
		return nil
	}
	if e.HouseholdID == "" {
		return fmt.Errorf("edit expense: %w", core.ErrNotFound)
	}
	info, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("edit expense: %w", err)
	}
	if info == nil || info.Household.ID != e.HouseholdID {
		return fmt.Errorf("edit expense: %w", core.ErrNotFound)
	}
	return nil
}
