package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hogar/internal/core"
)

type categoryRequest struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Emoji string `json:"emoji,omitempty"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.expenses.ListCategories(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}

	dtos := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		dtos = append(dtos, toCategoryDTO(c))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	cat, err := h.expenses.AddCategory(r.Context(), currentUser(r.Context()).ID, core.Category{
		Value: req.Value,
		Label: req.Label,
		Emoji: req.Emoji,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryDTO(*cat))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	cat, err := h.expenses.UpdateCategory(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id"), core.Category{
		Value: req.Value,
		Label: req.Label,
		Emoji: req.Emoji,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCategoryDTO(*cat))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.DeleteCategory(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
