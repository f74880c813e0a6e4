// internal/changerequest/handler.go
package changerequest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubhouse/internal/membership"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the change-request endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/memberships/{id}/change-requests", h.handleSubmit)
	r.Post("/memberships/{id}/change-requests/manager", h.handleCreateAndApprove)
	r.Post("/change-requests/{id}/approve", h.handleApprove)
	r.Post("/change-requests/{id}/reject", h.handleReject)
	r.Get("/change-requests", h.handleList)
}

type submitRequest struct {
	Type            Type       `json:"type"`
	MemberReason    string     `json:"member_reason"`
	ManagerNotes    string     `json:"manager_notes"`
	ChangeStartDate time.Time  `json:"change_start_date"`
	ChangeEndDate   *time.Time `json:"change_end_date"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	membershipID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var created *ChangeRequest
	var err error
	switch req.Type {
	case TypeSuspension:
		created, err = h.service.SubmitSuspension(r.Context(), membershipID, req.MemberReason, req.ChangeStartDate, req.ChangeEndDate)
	case TypeDisaffiliation:
		created, err = h.service.SubmitDisaffiliation(r.Context(), membershipID, req.MemberReason, req.ChangeStartDate)
	default:
		http.Error(w, "unknown request type", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) handleCreateAndApprove(w http.ResponseWriter, r *http.Request) {
	membershipID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateAndApprove(r.Context(), membershipID, req.Type, req.ManagerNotes, req.ChangeStartDate, req.ChangeEndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.service.Reject)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, id uuid.UUID, notes string) (*ChangeRequest, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		ManagerNotes string `json:"manager_notes"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	resolved, err := resolve(r.Context(), id, req.ManagerNotes)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(resolved)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter Filter

	if v := r.URL.Query().Get("membership_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid membership_id", http.StatusBadRequest)
			return
		}
		filter.MembershipID = &id
	}
	if v := r.URL.Query().Get("state"); v != "" {
		state := RequestState(v)
		filter.State = &state
	}
	if v := r.URL.Query().Get("type"); v != "" {
		reqType := Type(v)
		filter.Type = &reqType
	}

	requests, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(requests)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, membership.ErrMembershipNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrRequestNotPending), errors.Is(err, membership.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
