package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusbook/scheduling-engine/internal/approval"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FlowHandler handles approval flow configuration HTTP requests
type FlowHandler struct {
	logger *logger.Logger
	flows  *services.FlowCacheService
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(log *logger.Logger, flows *services.FlowCacheService) *FlowHandler {
	return &FlowHandler{
		logger: log,
		flows:  flows,
	}
}

// List handles GET /api/v1/flows
func (h *FlowHandler) List(w http.ResponseWriter, r *http.Request) {
	flows, err := h.flows.ListFlows(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list flows: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve flows")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"flows": flows,
		"total": len(flows),
	})
}

// Get handles GET /api/v1/flows/{id}
func (h *FlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid flow ID")
		return
	}

	flow, err := h.flows.GetFlow(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Flow not found")
		return
	}

	RespondJSON(w, http.StatusOK, flow)
}

// Create handles POST /api/v1/flows. The flow definition is validated for
// contiguous step ordering before it is persisted.
func (h *FlowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var flow models.ApprovalFlowConfig
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := approval.ValidateFlow(&flow); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.flows.CreateFlow(r.Context(), &flow); err != nil {
		h.logger.Errorf("Failed to create flow: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to create flow")
		return
	}

	RespondJSON(w, http.StatusCreated, flow)
}

// Delete handles DELETE /api/v1/flows/{id}
func (h *FlowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid flow ID")
		return
	}

	if err := h.flows.DeleteFlow(r.Context(), id); err != nil {
		h.logger.Errorf("Failed to delete flow %s: %v", id, err)
		RespondError(w, http.StatusNotFound, "Flow not found")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Flow deleted"})
}
