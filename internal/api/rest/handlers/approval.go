package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusbook/scheduling-engine/internal/api/rest/middleware"
	"github.com/campusbook/scheduling-engine/internal/approval"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ApprovalHandler handles approval workflow HTTP requests
type ApprovalHandler struct {
	logger          *logger.Logger
	approvalService *services.ApprovalService
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(log *logger.Logger, approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		logger:          log,
		approvalService: approvalService,
	}
}

// ApprovalActionRequest is the request body for POST /approvals/{id}/actions
type ApprovalActionRequest struct {
	Action          models.ApprovalAction `json:"action" validate:"required,oneof=approve reject request_changes resubmit delegate cancel"`
	Comments        *string               `json:"comments,omitempty"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	DelegateTo      *uuid.UUID            `json:"delegate_to,omitempty"`
}

// List handles GET /api/v1/approvals
func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.ApprovalStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		s := models.ApprovalStatus(statusStr)
		status = &s
	}

	limit, offset := parsePagination(r)

	approvals, total, err := h.approvalService.ListRequests(r.Context(), status, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list approvals: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve approvals")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"total":     total,
		"page":      offset / limit,
		"page_size": limit,
	})
}

// Get handles GET /api/v1/approvals/{id}
func (h *ApprovalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid approval ID")
		return
	}

	request, err := h.approvalService.GetRequest(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Approval request not found")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}

// GetByReservation handles GET /api/v1/reservations/{id}/approval
func (h *ApprovalHandler) GetByReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid reservation ID")
		return
	}

	request, err := h.approvalService.GetByReservation(r.Context(), reservationID)
	if err != nil {
		RespondError(w, http.StatusNotFound, "No approval request for this reservation")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}

// Act handles POST /api/v1/approvals/{id}/actions. The acting user comes
// from the auth context; authorization against the flow's approver roles is
// the workflow engine's job.
func (h *ApprovalHandler) Act(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid approval ID")
		return
	}

	var req ApprovalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Validate(&req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	request, err := h.approvalService.Act(r.Context(), id, approval.ActionInput{
		Action:          req.Action,
		ActorID:         userID,
		Comments:        req.Comments,
		RejectionReason: req.RejectionReason,
		DelegateTo:      req.DelegateTo,
	})
	if err != nil {
		if RespondDomainError(w, err) {
			return
		}
		h.logger.Errorf("Approval action %s on %s failed: %v", req.Action, id, err)
		RespondError(w, http.StatusInternalServerError, "Failed to apply approval action")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}
