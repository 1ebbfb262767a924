package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shodesh/auth"
	"shodesh/donation"
	"shodesh/event"
	"shodesh/verification"
)

// AuthService is the slice of auth.Service the handlers need.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// EventService covers campaign submission and browsing.
type EventService interface {
	Submit(ctx context.Context, params event.SubmitParams) (event.Event, error)
	List(ctx context.Context, filters event.Filters) (event.ListResult, error)
	Get(ctx context.Context, id string) (event.Event, error)
}

// VerificationService covers the review workflow operations.
type VerificationService interface {
	AdminTransition(ctx context.Context, params verification.AdminTransitionParams) (verification.Decision, error)
	AssignStaff(ctx context.Context, params verification.AssignStaffParams) (verification.Assignment, error)
	StaffTransition(ctx context.Context, params verification.StaffTransitionParams) (verification.Decision, error)
	ListEligibleStaff(ctx context.Context, eventID string) ([]verification.StaffProfile, error)
	ListAssignedEvents(ctx context.Context, staffID string) ([]event.Event, error)
}

// DonationService covers donor contributions.
type DonationService interface {
	Donate(ctx context.Context, eventID string, donorID *string, amount int64, note string) (donation.Record, error)
	ListForEvent(ctx context.Context, eventID string) ([]donation.Record, error)
}

type Handlers struct {
	Auth         AuthService
	Events       EventService
	Verification VerificationService
	Donations    DonationService
}

func NewHandlers(authSvc AuthService, events EventService, review VerificationService, donations DonationService) *Handlers {
	return &Handlers{
		Auth:         authSvc,
		Events:       events,
		Verification: review,
		Donations:    donations,
	}
}

func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}

func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user": map[string]any{
			"id":        result.User.ID,
			"full_name": result.User.FullName,
			"role":      result.User.Role,
		},
	})
}

// MeHandler returns the authenticated account's own profile.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	user, err := h.Auth.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
		"division":  user.Division,
	})
}

type submitEventRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Division     string `json:"division"`
	AmountNeeded int64  `json:"amount_needed"`
}

func (h *Handlers) SubmitEventHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	if actor.Role != auth.RoleIndividual && actor.Role != auth.RoleFoundation {
		respondError(w, http.StatusForbidden, "only creators can submit events")
		return
	}

	var req submitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creatorType := event.CreatorIndividual
	if actor.Role == auth.RoleFoundation {
		creatorType = event.CreatorFoundation
	}

	created, err := h.Events.Submit(r.Context(), event.SubmitParams{
		CreatorID:    actor.ID,
		CreatorType:  creatorType,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Division:     req.Division,
		AmountNeeded: req.AmountNeeded,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := event.Filters{
		Status:      event.VerificationStatus(q.Get("status")),
		Category:    q.Get("category"),
		Division:    q.Get("division"),
		CreatorType: event.CreatorType(q.Get("creator_type")),
		CreatorID:   q.Get("creator_id"),
		SortKey:     q.Get("sort"),
		SortOrder:   q.Get("order"),
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.Events.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": result.Items,
		"total": result.Total,
	})
}

func (h *Handlers) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	ev, err := h.Events.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

type adminActionRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handlers) adminTransition(w http.ResponseWriter, r *http.Request, action verification.AdminAction) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req adminActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	decision, err := h.Verification.AdminTransition(r.Context(), verification.AdminTransitionParams{
		EventID: chi.URLParam(r, "eventID"),
		Action:  action,
		Actor:   actor,
		Reason:  req.Reason,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":                       decision.Status,
		"second_verification_required": decision.SecondVerificationRequired,
	})
}

func (h *Handlers) AdminApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, verification.AdminApprove)
}

func (h *Handlers) AdminRejectHandler(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, verification.AdminReject)
}

func (h *Handlers) AdminRequestStaffHandler(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, verification.AdminRequestStaff)
}

type assignStaffRequest struct {
	StaffID string `json:"staff_id"`
}

func (h *Handlers) AssignStaffHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req assignStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.Verification.AssignStaff(r.Context(), verification.AssignStaffParams{
		EventID: chi.URLParam(r, "eventID"),
		StaffID: req.StaffID,
		Actor:   actor,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"assignment_id": assignment.ID,
		"staff_id":      assignment.StaffID,
		"assigned_at":   assignment.AssignedAt,
	})
}

func (h *Handlers) ListEligibleStaffHandler(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Verification.ListEligibleStaff(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": staff})
}

type staffActionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) staffTransition(w http.ResponseWriter, r *http.Request, action verification.StaffAction) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req staffActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	decision, err := h.Verification.StaffTransition(r.Context(), verification.StaffTransitionParams{
		EventID: chi.URLParam(r, "eventID"),
		Action:  action,
		Reason:  req.Reason,
		Actor:   actor,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":                       decision.Status,
		"second_verification_required": decision.SecondVerificationRequired,
	})
}

func (h *Handlers) StaffApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.staffTransition(w, r, verification.StaffApprove)
}

func (h *Handlers) StaffRejectHandler(w http.ResponseWriter, r *http.Request) {
	h.staffTransition(w, r, verification.StaffReject)
}

func (h *Handlers) ListAssignedEventsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	events, err := h.Verification.ListAssignedEvents(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": events})
}

type donateRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

func (h *Handlers) DonateHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donorID := actor.ID
	rec, err := h.Donations.Donate(r.Context(), chi.URLParam(r, "eventID"), &donorID, req.Amount, req.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) ListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.Donations.ListForEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": records})
}
