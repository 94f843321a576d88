package household

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage"
)

// Reconciler repairs expenses left stamped with a household the owner no
// longer belongs to.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (int64, error)
}

// EventPublisher hands membership changes to the async reconcile queue.
type EventPublisher interface {
	PublishMembershipChange(ctx context.Context, userID, reason string) error
}

// Lifecycle mutates membership rows. Every operation is fail-fast: no
// multi-write chains, so single-row atomicity from the store is enough.
type Lifecycle struct {
	store      storage.Store
	resolver   *Resolver
	reconciler Reconciler
	events     EventPublisher // optional; nil runs reconcile inline
	logger     *log.Logger
}

func NewLifecycle(store storage.Store, resolver *Resolver, reconciler Reconciler, events EventPublisher, logger *log.Logger) *Lifecycle {
	return &Lifecycle{
		store:      store,
		resolver:   resolver,
		reconciler: reconciler,
		events:     events,
		logger:     logger.WithComponent(log.ComponentHousehold),
	}
}

// Create inserts a new household owned by the user and memberships for any
// invite emails that resolve to registered, not-yet-pooled users. Unknown
// or already-pooled invitees are skipped, never fatal.
func (l *Lifecycle) Create(ctx context.Context, userID, name string, inviteEmails []string) (*core.MembershipInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty household name", core.ErrValidation)
	}
	if _, err := l.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}
	if _, err := l.store.GetMembershipByUser(ctx, userID); err == nil {
		return nil, fmt.Errorf("create household: already a member: %w", core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("create household: %w", err)
	}

	hh := &core.Household{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		CreatedBy: userID,
	}
	if err := l.store.CreateHousehold(ctx, hh); err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}

	owner := &core.Membership{
		ID:          uuid.New().String(),
		HouseholdID: hh.ID,
		UserID:      userID,
		Role:        core.RoleOwner,
	}
	if err := l.store.CreateMembership(ctx, owner); err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	l.logger.InfoContext(ctx, "Household created",
		log.FieldHouseholdID, hh.ID,
		log.FieldUserID, userID,
		"name", hh.Name)

	for _, email := range inviteEmails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if err := l.addMemberByEmail(ctx, hh.ID, email); err != nil {
			l.logger.WarnContext(ctx, "Skipping invite",
				log.FieldHouseholdID, hh.ID,
				log.FieldEmail, email,
				log.FieldError, err)
		}
	}

	return l.resolver.Resolve(ctx, userID)
}

// Join adds the user to the household owned by the given email's user.
func (l *Lifecycle) Join(ctx context.Context, userID, ownerEmail string) (*core.MembershipInfo, error) {
	owner, err := l.store.GetUserByEmail(ctx, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("join household: owner lookup: %w", err)
	}

	ownerMembership, err := l.store.GetMembershipByUser(ctx, owner.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("join household: owner has no household: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("join household: %w", err)
	}

	if _, err := l.store.GetMembershipByUser(ctx, userID); err == nil {
		return nil, fmt.Errorf("join household: already a member: %w", core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("join household: %w", err)
	}

	m := &core.Membership{
		ID:          uuid.New().String(),
		HouseholdID: ownerMembership.HouseholdID,
		UserID:      userID,
		Role:        core.RoleMember,
	}
	if err := l.store.CreateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("join household: %w", err)
	}

	l.logger.InfoContext(ctx, "User joined household",
		log.FieldUserID, userID,
		log.FieldHouseholdID, m.HouseholdID)

	return l.resolver.Resolve(ctx, userID)
}

// Invite adds a registered user to the caller's household as a member.
func (l *Lifecycle) Invite(ctx context.Context, userID, inviteeEmail string) error {
	invitee, err := l.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		return fmt.Errorf("invite: invitee lookup: %w", err)
	}

	membership, err := l.store.GetMembershipByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("invite: caller has no household: %w", core.ErrNotFound)
		}
		return fmt.Errorf("invite: %w", err)
	}

	if existing, err := l.store.GetMembershipByUser(ctx, invitee.ID); err == nil {
		if existing.HouseholdID == membership.HouseholdID {
			return fmt.Errorf("invite: already a member: %w", core.ErrConflict)
		}
		return fmt.Errorf("invite: invitee belongs to another household: %w", core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("invite: %w", err)
	}

	m := &core.Membership{
		ID:          uuid.New().String(),
		HouseholdID: membership.HouseholdID,
		UserID:      invitee.ID,
		Role:        core.RoleMember,
	}
	if err := l.store.CreateMembership(ctx, m); err != nil {
		return fmt.Errorf("invite: %w", err)
	}

	l.logger.InfoContext(ctx, "User invited to household",
		log.FieldHouseholdID, membership.HouseholdID,
		log.FieldEmail, inviteeEmail)
	return nil
}

// LeavePermanently deletes the user's membership row and schedules the
// repair that reclassifies their household-stamped expenses as personal.
// Irreversible without a fresh join.
func (l *Lifecycle) LeavePermanently(ctx context.Context, userID string) error {
	if err := l.store.DeleteMembershipByUser(ctx, userID); err != nil {
		return fmt.Errorf("leave household: %w", err)
	}

	l.logger.InfoContext(ctx, "User left household permanently", log.FieldUserID, userID)

	if l.events != nil {
		err := l.events.PublishMembershipChange(ctx, userID, "leave_permanent")
		if err == nil {
			return nil
		}
		l.logger.WarnContext(ctx, "Publish membership change failed, reconciling inline",
			log.FieldUserID, userID,
			log.FieldError, err)
	}

	if _, err := l.reconciler.Reconcile(ctx, userID); err != nil {
		// The membership row is already gone; a failed repair only delays
		// reclassification until the next reconcile.
		l.logger.ErrorContext(ctx, "Inline reconcile failed",
			log.FieldUserID, userID,
			log.FieldError, err)
	}
	return nil
}

// Return re-resolves membership after a soft leave. The soft leave itself
// never touches the store, so this fails only when the row is really gone.
func (l *Lifecycle) Return(ctx context.Context, userID string) (*core.MembershipInfo, error) {
	info, err := l.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("return to household: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("return to household: no household configured: %w", core.ErrNotFound)
	}
	return info, nil
}

func (l *Lifecycle) addMemberByEmail(ctx context.Context, householdID, email string) error {
	user, err := l.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	if _, err := l.store.GetMembershipByUser(ctx, user.ID); err == nil {
		return fmt.Errorf("%s already has a household: %w", email, core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return l.store.CreateMembership(ctx, &core.Membership{
		ID:          uuid.New().String(),
		HouseholdID: householdID,
		UserID:      user.ID,
		Role:        core.RoleMember,
	})
}
