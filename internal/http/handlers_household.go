package http

import (
	"net/http"
)

type createHouseholdRequest struct {
	Name    string   `json:"name"`
	Invites []string `json:"invites,omitempty"`
}

type joinHouseholdRequest struct {
	OwnerEmail string `json:"owner_email"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type householdStateDTO struct {
	Household    *householdDTO `json:"household"`
	PersonalOnly bool          `json:"personal_only"`
}

// getHousehold reports the caller's current membership state plus whether
// the session is in the personal-only view.
func (h *Handler) getHousehold(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	info, err := h.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	state := householdStateDTO{PersonalOnly: h.views.PersonalOnly(user.ID)}
	if info != nil {
		dto := toHouseholdDTO(*info)
		state.Household = &dto
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handler) createHousehold(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user := currentUser(r.Context())
	info, err := h.lifecycle.Create(r.Context(), user.ID, req.Name, req.Invites)
	if err != nil {
		respondError(w, err)
		return
	}

	h.views.SetPersonalOnly(user.ID, false)
	respondJSON(w, http.StatusCreated, toHouseholdDTO(*info))
}

func (h *Handler) joinHousehold(w http.ResponseWriter, r *http.Request) {
	var req joinHouseholdRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user := currentUser(r.Context())
	info, err := h.lifecycle.Join(r.Context(), user.ID, req.OwnerEmail)
	if err != nil {
		respondError(w, err)
		return
	}

	h.views.SetPersonalOnly(user.ID, false)
	respondJSON(w, http.StatusOK, toHouseholdDTO(*info))
}

func (h *Handler) inviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.lifecycle.Invite(r.Context(), currentUser(r.Context()).ID, req.Email); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// leaveHousehold is the soft leave: it flips the session to the personal
// view without touching membership rows.
func (h *Handler) leaveHousehold(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	h.views.SetPersonalOnly(user.ID, true)
	respondJSON(w, http.StatusOK, householdStateDTO{PersonalOnly: true})
}

// returnToHousehold undoes a soft leave.
func (h *Handler) returnToHousehold(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	info, err := h.lifecycle.Return(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.views.SetPersonalOnly(user.ID, false)
	dto := toHouseholdDTO(*info)
	respondJSON(w, http.StatusOK, householdStateDTO{Household: &dto})
}

// leavePermanently removes the membership row and schedules expense
// reclassification.
func (h *Handler) leavePermanently(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if err := h.lifecycle.LeavePermanently(r.Context(), user.ID); err != nil {
		respondError(w, err)
		return
	}

	h.views.SetPersonalOnly(user.ID, false)
	respondJSON(w, http.StatusNoContent, nil)
}
