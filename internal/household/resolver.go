// Package household resolves membership state and mutates it: create, join,
// invite, leave and return.
package household

import (
	"context"
	"errors"
	"fmt"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage"
)

// Resolver answers "which household is this user in right now". It never
// caches: membership is mutated from several entry points and a stale
// answer would scope the wrong expenses.
type Resolver struct {
	store  storage.Store
	logger *log.Logger
}

func NewResolver(store storage.Store, logger *log.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.WithComponent(log.ComponentHousehold),
	}
}

// Resolve returns the user's membership with its household and member list,
// or nil when the user has none. Missing user rows and memberships pointing
// at deleted households also resolve to nil: both are expected transient
// states, not errors, though the first is logged as anomalous.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*core.MembershipInfo, error) {
	if _, err := r.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			r.logger.WarnContext(ctx, "Resolving membership for unknown user",
				log.FieldUserID, userID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	membership, err := r.store.GetMembershipByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve membership: %w", err)
	}

	hh, err := r.store.GetHousehold(ctx, membership.HouseholdID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Orphaned membership row; treat as no membership.
			r.logger.WarnContext(ctx, "Membership references missing household",
				log.FieldUserID, userID,
				log.FieldHouseholdID, membership.HouseholdID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve household: %w", err)
	}

	members, err := r.members(ctx, membership.HouseholdID)
	if err != nil {
		return nil, err
	}

	return &core.MembershipInfo{
		Membership: *membership,
		Household:  *hh,
		Members:    members,
	}, nil
}

func (r *Resolver) members(ctx context.Context, householdID string) ([]core.HouseholdMember, error) {
	rows, err := r.store.ListMemberships(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]core.HouseholdMember, 0, len(rows))
	for _, m := range rows {
		member := core.HouseholdMember{Membership: m}
		user, err := r.store.GetUser(ctx, m.UserID)
		switch {
		case err == nil:
			member.User = *user
		case errors.Is(err, core.ErrNotFound):
			// Keep the row; attribution falls back to the bare id.
			member.User = core.User{ID: m.UserID}
		default:
			return nil, fmt.Errorf("annotate member: %w", err)
		}
		members = append(members, member)
	}
	return members, nil
}
