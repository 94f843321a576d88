package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// CategoryTotal is an aggregated amount for one category.
	CategoryTotal struct {
		Category string
		Total    decimal.Decimal
		Percent  decimal.Decimal
	}

	// PersonTotal is an aggregated amount for one person label. Labels
	// are the raw case-sensitive strings stored on the expenses; alias
	// mapping is a presentation concern.
	PersonTotal struct {
		Person  string
		Total   decimal.Decimal
		Percent decimal.Decimal
	}

	// Summary is the aggregate view over a scoped expense list.
	Summary struct {
		GrandTotal  decimal.Decimal
		MonthTotal  decimal.Decimal
		Count       int
		TopCategory string
		ByCategory  []CategoryTotal
		ByPerson    []PersonTotal
	}
)

// Summarize computes totals over the given expenses. It is a pure function:
// no I/O, no hidden state, identical input yields identical output.
//
// MonthTotal covers expenses whose date falls in asOf's calendar year and
// month. Categories are ordered by total descending; equal totals keep the
// order in which the categories were first encountered, and TopCategory is
// the first entry. Percentages are fractions of GrandTotal and are zero
// when GrandTotal is zero.
func Summarize(expenses []Expense, asOf time.Time) Summary {
	s := Summary{
		GrandTotal: decimal.Zero,
		MonthTotal: decimal.Zero,
		Count:      len(expenses),
	}

	catTotals := make(map[string]decimal.Decimal)
	personTotals := make(map[string]decimal.Decimal)
	var catOrder, personOrder []string

	for _, e := range expenses {
		s.GrandTotal = s.GrandTotal.Add(e.Amount)
		if e.Date.SameMonth(asOf) {
			s.MonthTotal = s.MonthTotal.Add(e.Amount)
		}
		if _, ok := catTotals[e.Category]; !ok {
			catOrder = append(catOrder, e.Category)
		}
		catTotals[e.Category] = catTotals[e.Category].Add(e.Amount)

		if _, ok := personTotals[e.Person]; !ok {
			personOrder = append(personOrder, e.Person)
		}
		personTotals[e.Person] = personTotals[e.Person].Add(e.Amount)
	}

	for _, c := range catOrder {
		s.ByCategory = append(s.ByCategory, CategoryTotal{
			Category: c,
			Total:    catTotals[c],
			Percent:  fraction(catTotals[c], s.GrandTotal),
		})
	}
	// Stable sort keeps first-encounter order on ties.
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Total.GreaterThan(s.ByCategory[j].Total)
	})
	if len(s.ByCategory) > 0 {
		s.TopCategory = s.ByCategory[0].Category
	}

	for _, p := range personOrder {
		s.ByPerson = append(s.ByPerson, PersonTotal{
			Person:  p,
			Total:   personTotals[p],
			Percent: fraction(personTotals[p], s.GrandTotal),
		})
	}
	sort.SliceStable(s.ByPerson, func(i, j int) bool {
		return s.ByPerson[i].Total.GreaterThan(s.ByPerson[j].Total)
	})

	return s
}

func fraction(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole)
}
