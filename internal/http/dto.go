package http

import (
	"github.com/shopspring/decimal"

	"hogar/internal/core"
)

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	User  userDTO `json:"user"`
	Token string  `json:"token"`
}

type expenseDTO struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Display     string  `json:"display_amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Person      string  `json:"person"`
	Personal    bool    `json:"personal"`
	Owner       userDTO `json:"owner"`
}

type memberDTO struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type householdDTO struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Role    string      `json:"role"`
	Members []memberDTO `json:"members"`
}

type categoryDTO struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	// System marks the shared defaults, which cannot be edited or removed.
	System bool `json:"system"`
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Value: c.Value, Label: c.Label, Emoji: c.Emoji, System: c.System()}
}

type totalDTO struct {
	Label   string `json:"label"`
	Total   string `json:"total"`
	Display string `json:"display_total"`
	Percent string `json:"percent"`
}

type summaryDTO struct {
	GrandTotal   string     `json:"grand_total"`
	DisplayTotal string     `json:"display_total"`
	MonthTotal   string     `json:"month_total"`
	DisplayMonth string     `json:"display_month_total"`
	Count        int        `json:"count"`
	TopCategory  string     `json:"top_category"`
	ByCategory   []totalDTO `json:"by_category"`
	ByPerson     []totalDTO `json:"by_person"`
}

func toUserDTO(u core.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name}
}

func toExpenseDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Display:     core.FormatCurrency(e.Amount),
		Category:    e.Category,
		Date:        e.Date.String(),
		Person:      e.Person,
		Personal:    e.Personal(),
	}
	if e.Owner != nil {
		dto.Owner = toUserDTO(*e.Owner)
	} else {
		dto.Owner = userDTO{ID: e.UserID}
	}
	return dto
}

func toHouseholdDTO(info core.MembershipInfo) householdDTO {
	dto := householdDTO{
		ID:   info.Household.ID,
		Name: info.Household.Name,
		Role: string(info.Membership.Role),
	}
	for _, m := range info.Members {
		dto.Members = append(dto.Members, memberDTO{
			UserID: m.UserID,
			Name:   m.User.Name,
			Email:  m.User.Email,
			Role:   string(m.Role),
		})
	}
	return dto
}

func toSummaryDTO(s core.Summary) summaryDTO {
	dto := summaryDTO{
		GrandTotal:   s.GrandTotal.String(),
		DisplayTotal: core.FormatCurrency(s.GrandTotal),
		MonthTotal:   s.MonthTotal.String(),
		DisplayMonth: core.FormatCurrency(s.MonthTotal),
		Count:        s.Count,
		TopCategory:  s.TopCategory,
	}
	for _, c := range s.ByCategory {
		dto.ByCategory = append(dto.ByCategory, totalDTO{
			Label:   c.Category,
			Total:   c.Total.String(),
			Display: core.FormatCurrency(c.Total),
			Percent: percent(c.Percent),
		})
	}
	for _, p := range s.ByPerson {
		dto.ByPerson = append(dto.ByPerson, totalDTO{
			Label:   p.Person,
			Total:   p.Total.String(),
			Display: core.FormatCurrency(p.Total),
			Percent: percent(p.Percent),
		})
	}
	return dto
}

// percent renders a fraction as a percentage with one decimal place.
func percent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).Round(1).String()
}
