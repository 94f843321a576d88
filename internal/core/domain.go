package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type (
	// Role is the position a user holds inside a household.
	Role string

	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	// User is a registered account. Immutable after registration except
	// for the display name.
	User struct {
		ID        string
		Email     string
		Name      string
		CreatedAt time.Time
	}

	// Household is a named group of users sharing expense visibility.
	Household struct {
		ID        string
		Name      string
		CreatedBy string
		CreatedAt time.Time
	}

	// Membership links one user to one household. A user holds at most
	// one membership at a time; the store enforces uniqueness on UserID.
	Membership struct {
		ID          string
		HouseholdID string
		UserID      string
		Role        Role
		CreatedAt   time.Time
	}

	// HouseholdMember is a membership annotated with its user row for
	// attribution display.
	HouseholdMember struct {
		Membership
		User User
	}

	// MembershipInfo is the resolver's answer for a user that belongs to
	// a household: their membership row, the household, and every
	// current member.
	MembershipInfo struct {
		Membership Membership
		Household  Household
		Members    []HouseholdMember
	}

	// Expense is a single spending record. An empty HouseholdID means
	// the expense is personal and visible only to its owner.
	Expense struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Category    string
		Date        Date
		Person      string
		UserID      string
		HouseholdID string
		CreatedAt   time.Time

		// Owner annotates the record with the owning user for display.
		// Populated on reads, never persisted on the expense itself.
		Owner *User
	}

	// Category is a persisted expense category. Rows with neither a
	// household nor a user scope are the seeded system defaults; user
	// additions carry the creator's household, or the creator's user id
	// when they have none.
	Category struct {
		ID          string
		Value       string
		Label       string
		Emoji       string
		HouseholdID string
		UserID      string
		CreatedAt   time.Time
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation error")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrLongDescription  = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: empty category", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrSystemCategory   = fmt.Errorf("%w: system categories cannot be modified", ErrValidation)
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// SameMonth reports whether the date falls in the same calendar year and
// month as t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Time.Month() == t.Month()
}

// Personal reports whether the expense has no household association.
func (e Expense) Personal() bool {
	return e.HouseholdID == ""
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrLongDescription
	}
	if e.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return e.Date.Validate()
}

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Value) == "" {
		return fmt.Errorf("%w: empty category value", ErrValidation)
	}
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: empty category label", ErrValidation)
	}
	return nil
}

// System reports whether the category is one of the shared defaults. System
// categories belong to every scope and cannot be edited or deleted.
func (c Category) System() bool {
	return c.HouseholdID == "" && c.UserID == ""
}

// FirstName returns the leading word of the user's display name, used by
// presentation layers when labelling per-member totals.
func (u User) FirstName() string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return "Usuario"
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// DefaultCategories is the seed taxonomy every installation starts with.
func DefaultCategories() []Category {
	return []Category{
		{Value: "comida", Label: "🍽️ Comida", Emoji: "🍽️"},
		{Value: "super", Label: "🛒 Super", Emoji: "🛒"},
		{Value: "auto", Label: "🚗 Auto", Emoji: "🚗"},
		{Value: "entretenimiento", Label: "🎮 Entretenimiento", Emoji: "🎮"},
		{Value: "salud", Label: "💊 Salud", Emoji: "💊"},
		{Value: "ropa", Label: "👕 Ropa", Emoji: "👕"},
		{Value: "hogar", Label: "🏠 Hogar", Emoji: "🏠"},
		{Value: "otros", Label: "📦 Otros", Emoji: "📦"},
	}
}
