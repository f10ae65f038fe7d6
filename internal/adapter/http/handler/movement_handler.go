package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pocketledger/internal/adapter/http/dto"
	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

// MovementService defines the movement operations used by the handler.
type MovementService interface {
	CreateMovement(ctx context.Context, userID string, input usecase.CreateMovementInput) (*domain.MovementDetail, error)
	GetMovement(ctx context.Context, id, userID string) (*domain.MovementDetail, error)
	UpdateMovement(ctx context.Context, id, userID string, input usecase.UpdateMovementInput) (*domain.MovementDetail, error)
	DeleteMovement(ctx context.Context, id, userID string) error
}

// MovementHandler handles movement HTTP requests.
type MovementHandler struct {
	movementUC MovementService
}

// NewMovementHandler creates a new MovementHandler.
func NewMovementHandler(movementUC MovementService) *MovementHandler {
	return &MovementHandler{movementUC: movementUC}
}

// Create handles POST /movements.
func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	detail, err := h.movementUC.CreateMovement(r.Context(), userID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MovementDetailFromDomain(detail))
}

// Get handles GET /movements/{id}.
func (h *MovementHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	detail, err := h.movementUC.GetMovement(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MovementDetailFromDomain(detail))
}

// Update handles PATCH /movements/{id}.
func (h *MovementHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	detail, err := h.movementUC.UpdateMovement(r.Context(), chi.URLParam(r, "id"), userID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MovementDetailFromDomain(detail))
}

// Delete handles DELETE /movements/{id}. Deleting a transfer leg removes
// the whole transfer.
func (h *MovementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.movementUC.DeleteMovement(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
