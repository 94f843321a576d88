// Package visibility decides which expense records are in scope for a user
// at a given moment.
package visibility

import (
	"context"
	"fmt"

	"hogar/internal/core"
	"hogar/internal/household"
	"hogar/internal/log"
	"hogar/internal/storage"
)

// Engine scopes expenses by the caller's membership state.
type Engine struct {
	store    storage.Store
	resolver *household.Resolver
	logger   *log.Logger
}

func NewEngine(store storage.Store, resolver *household.Resolver, logger *log.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
		logger:   logger.WithComponent(log.ComponentVisibility),
	}
}

// ScopedExpenses returns the expenses visible to the user, newest first,
// each annotated with its owner, plus the membership the scope was derived
// from (nil when solo).
//
// Solo users (and members who set personalOnly, the session-scoped soft
// leave) see only their own expenses with no household reference. Members
// see every expense owned by any current member of their household,
// personal and household-stamped alike: the combined ledger is the point of
// pooling. Reads never mutate; repairing orphaned household references is
// the reconciler's job.
func (e *Engine) ScopedExpenses(ctx context.Context, userID string, personalOnly bool) ([]core.Expense, *core.MembershipInfo, error) {
	info, err := e.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("scope expenses: %w", err)
	}

	if info == nil || personalOnly {
		expenses, err := e.personal(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		return expenses, info, nil
	}

	memberIDs := make([]string, 0, len(info.Members))
	owners := make(map[string]core.User, len(info.Members))
	for _, m := range info.Members {
		memberIDs = append(memberIDs, m.UserID)
		owners[m.UserID] = m.User
	}

	expenses, err := e.store.ListExpensesByOwners(ctx, memberIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("scope expenses: %w", err)
	}
	for i := range expenses {
		if owner, ok := owners[expenses[i].UserID]; ok {
			o := owner
			expenses[i].Owner = &o
		}
	}

	e.logger.DebugContext(ctx, "Scoped household expenses",
		log.FieldUserID, userID,
		log.FieldHouseholdID, info.Household.ID,
		"members", len(memberIDs),
		"count", len(expenses))

	return expenses, info, nil
}

func (e *Engine) personal(ctx context.Context, userID string) ([]core.Expense, error) {
	expenses, err := e.store.ListPersonalExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list personal expenses: %w", err)
	}

	if user, err := e.store.GetUser(ctx, userID); err == nil {
		for i := range expenses {
			u := *user
			expenses[i].Owner = &u
		}
	}

	e.logger.DebugContext(ctx, "Scoped personal expenses",
		log.FieldUserID, userID,
		"count", len(expenses))
	return expenses, nil
}
