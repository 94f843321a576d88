package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hogar/internal/core"
	"hogar/internal/services"
)

type expenseRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Person      string `json:"person,omitempty"`
}

func (req expenseRequest) toInput() (services.ExpenseInput, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Description: req.Description,
		Amount:      amount,
		Category:    req.Category,
		Date:        date,
		Person:      req.Person,
	}, nil
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, _, err := h.scoped(r)
	if err != nil {
		respondError(w, err)
		return
	}

	dtos := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, toExpenseDTO(e))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(w, err)
		return
	}

	expense, err := h.expenses.Add(r.Context(), currentUser(r.Context()).ID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toExpenseDTO(*expense))
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(w, err)
		return
	}

	expense, err := h.expenses.Update(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id"), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseDTO(*expense))
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	err := h.expenses.Delete(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) summarizeExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, _, err := h.scoped(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary := core.Summarize(expenses, time.Now())
	respondJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// exportExpenses streams the scoped ledger as CSV, newest first.
func (h *Handler) exportExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, _, err := h.scoped(r)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="gastos-%s.csv"`, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "description", "category", "amount", "person"})
	for _, e := range expenses {
		_ = cw.Write([]string{
			e.Date.String(),
			e.Description,
			e.Category,
			e.Amount.String(),
			e.Person,
		})
	}
	cw.Flush()
}

// scoped runs the visibility engine for the authenticated user, honouring
// the session's personal-only flag.
func (h *Handler) scoped(r *http.Request) ([]core.Expense, *core.MembershipInfo, error) {
	user := currentUser(r.Context())
	personalOnly := h.views.PersonalOnly(user.ID)
	return h.engine.ScopedExpenses(r.Context(), user.ID, personalOnly)
}
