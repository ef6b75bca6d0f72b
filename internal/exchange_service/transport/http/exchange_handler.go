package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/app"
	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/draw"
	"github.com/giftring/backend/internal/exchange_service/middleware"
)

// GroupOperations is the slice of the group service the handler needs.
type GroupOperations interface {
	CreateGroup(ctx context.Context, ownerPersonID uuid.UUID, name string) (*domain.Group, error)
	GetGroup(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*domain.Group, []*domain.Participant, error)
	JoinGroup(ctx context.Context, personID, groupID uuid.UUID) (*domain.Participant, error)
	RemoveParticipant(ctx context.Context, requesterPersonID, groupID, participantID uuid.UUID) error
	SetBudgetSuggestion(ctx context.Context, personID, groupID uuid.UUID, amount float64) error
	AddExclusionRule(ctx context.Context, requesterPersonID, groupID, personA, personB uuid.UUID) (*domain.ExclusionRule, error)
	RemoveExclusionRule(ctx context.Context, requesterPersonID, groupID, ruleID uuid.UUID) error
}

// DrawOperations is the slice of the draw service the handler needs.
type DrawOperations interface {
	ValidateDraw(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*draw.ValidationResult, error)
	TriggerDraw(ctx context.Context, requesterPersonID, groupID uuid.UUID, budget float64) (*app.DrawSummary, error)
	MyAssignment(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*app.AssignmentView, error)
}

// WishOperations is the slice of the wish service the handler needs.
type WishOperations interface {
	UpdateWish(ctx context.Context, personID, groupID uuid.UUID, content string) error
}

// ExchangeHandler handles the HTTP surface of the exchange service.
type ExchangeHandler struct {
	groups   GroupOperations
	draws    DrawOperations
	wishes   WishOperations
	logger   *slog.Logger
	validate *validator.Validate
}

func NewExchangeHandler(groups GroupOperations, draws DrawOperations, wishes WishOperations, logger *slog.Logger, validate *validator.Validate) *ExchangeHandler {
	return &ExchangeHandler{
		groups:   groups,
		draws:    draws,
		wishes:   wishes,
		logger:   logger,
		validate: validate,
	}
}

// RegisterRoutes sets up the routing for groups, rules, draws and wishes.
func (h *ExchangeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/groups", h.CreateGroup)
	r.Get("/groups/{groupID}", h.GetGroup)

	r.Post("/groups/{groupID}/participants", h.JoinGroup)
	r.Delete("/groups/{groupID}/participants/{participantID}", h.RemoveParticipant)
	r.Put("/groups/{groupID}/budget-suggestion", h.SetBudgetSuggestion)

	r.Post("/groups/{groupID}/exclusions", h.AddExclusionRule)
	r.Delete("/groups/{groupID}/exclusions/{ruleID}", h.RemoveExclusionRule)

	r.Get("/groups/{groupID}/draw/validate", h.ValidateDraw)
	r.Post("/groups/{groupID}/draw", h.TriggerDraw)
	r.Get("/groups/{groupID}/assignment", h.MyAssignment)

	r.Put("/groups/{groupID}/wish", h.UpdateWish)
}

// Helper to respond with JSON.
func (h *ExchangeHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error.
func (h *ExchangeHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, GenericErrorResponse{Error: message})
}

// respondWithDomainError maps domain sentinels to HTTP statuses. Infeasible
// draws carry the enumerated violations so the owner can adjust rules.
func (h *ExchangeHandler) respondWithDomainError(w http.ResponseWriter, err error) {
	var infeasible *domain.InfeasibleError
	if errors.As(err, &infeasible) {
		h.respondWithJSON(w, http.StatusUnprocessableEntity, GenericErrorResponse{
			Error:      "draw is not feasible with the current participants and exclusion rules",
			Violations: infeasible.Violations,
		})
		return
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		h.respondWithError(w, http.StatusBadRequest, validation.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		h.respondWithError(w, http.StatusForbidden, "not allowed to perform this action")
	case errors.Is(err, domain.ErrAlreadyDrawn):
		h.respondWithError(w, http.StatusConflict, "group has already been drawn")
	case errors.Is(err, domain.ErrGroupDrawn):
		h.respondWithError(w, http.StatusConflict, "group is drawn; this change is no longer allowed")
	case errors.Is(err, domain.ErrNotDrawn):
		h.respondWithError(w, http.StatusConflict, "group has not been drawn yet")
	case errors.Is(err, domain.ErrDuplicateRule):
		h.respondWithError(w, http.StatusConflict, "an exclusion rule for this pair already exists")
	case errors.Is(err, domain.ErrDuplicateParticipant):
		h.respondWithError(w, http.StatusConflict, "person is already a participant of this group")
	case errors.Is(err, domain.ErrValidation):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *ExchangeHandler) requester(w http.ResponseWriter, r *http.Request) (middleware.AuthenticatedPerson, bool) {
	person, ok := middleware.PersonFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "AuthenticatedPerson not found in context. AuthMiddleware must run first.")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
	return person, ok
}

func (h *ExchangeHandler) groupIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return h.uuidParam(w, r, "groupID", "Invalid group ID format")
}

func (h *ExchangeHandler) uuidParam(w http.ResponseWriter, r *http.Request, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

// --- Group handler methods ---

func (h *ExchangeHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}

	var reqDTO CreateGroupRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	group, err := h.groups.CreateGroup(ctx, person.PersonID, reqDTO.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "CreateGroup failed", "error", err)
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, groupToResponseDTO(group))
}

func (h *ExchangeHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	group, participants, err := h.groups.GetGroup(ctx, person.PersonID, groupID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	participantDTOs := make([]ParticipantResponseDTO, len(participants))
	for i, p := range participants {
		participantDTOs[i] = participantToResponseDTO(p)
	}
	h.respondWithJSON(w, http.StatusOK, GroupDetailResponseDTO{
		Group:        groupToResponseDTO(group),
		Participants: participantDTOs,
	})
}

func (h *ExchangeHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	participant, err := h.groups.JoinGroup(ctx, person.PersonID, groupID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, participantToResponseDTO(participant))
}

func (h *ExchangeHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}
	participantID, ok := h.uuidParam(w, r, "participantID", "Invalid participant ID format")
	if !ok {
		return
	}

	if err := h.groups.RemoveParticipant(ctx, person.PersonID, groupID, participantID); err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *ExchangeHandler) SetBudgetSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	var reqDTO BudgetSuggestionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.groups.SetBudgetSuggestion(ctx, person.PersonID, groupID, reqDTO.Amount); err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Exclusion rule handler methods ---

func (h *ExchangeHandler) AddExclusionRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	var reqDTO AddExclusionRuleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	rule, err := h.groups.AddExclusionRule(ctx, person.PersonID, groupID, reqDTO.PersonA, reqDTO.PersonB)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, ruleToResponseDTO(rule))
}

func (h *ExchangeHandler) RemoveExclusionRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}
	ruleID, ok := h.uuidParam(w, r, "ruleID", "Invalid rule ID format")
	if !ok {
		return
	}

	if err := h.groups.RemoveExclusionRule(ctx, person.PersonID, groupID, ruleID); err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Draw handler methods ---

func (h *ExchangeHandler) ValidateDraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.draws.ValidateDraw(ctx, person.PersonID, groupID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

func (h *ExchangeHandler) TriggerDraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	var reqDTO TriggerDrawRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	summary, err := h.draws.TriggerDraw(ctx, person.PersonID, groupID, reqDTO.Budget)
	if err != nil {
		h.logger.WarnContext(ctx, "TriggerDraw rejected", "group_id", groupID, "error", err)
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, summary)
}

func (h *ExchangeHandler) MyAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	assignment, err := h.draws.MyAssignment(ctx, person.PersonID, groupID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, assignment)
}

// --- Wish handler methods ---

func (h *ExchangeHandler) UpdateWish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, ok := h.requester(w, r)
	if !ok {
		return
	}
	groupID, ok := h.groupIDParam(w, r)
	if !ok {
		return
	}

	var reqDTO UpdateWishRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.wishes.UpdateWish(ctx, person.PersonID, groupID, reqDTO.Content); err != nil {
		h.respondWithDomainError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}
