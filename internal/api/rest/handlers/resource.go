package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/repository/postgres"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ResourceHandler handles resource catalog HTTP requests
type ResourceHandler struct {
	logger         *logger.Logger
	resourceRepo   *postgres.ResourceRepository
	bookingService *services.BookingService
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(log *logger.Logger, resourceRepo *postgres.ResourceRepository, bookingService *services.BookingService) *ResourceHandler {
	return &ResourceHandler{
		logger:         log,
		resourceRepo:   resourceRepo,
		bookingService: bookingService,
	}
}

// CreateResourceRequest is the request body for POST /resources
type CreateResourceRequest struct {
	Name         string                    `json:"name" validate:"required,min=1,max=255"`
	ResourceType string                    `json:"resource_type" validate:"required,min=1,max=100"`
	Rules        models.AvailabilityRules  `json:"rules"`
	Maintenance  models.MaintenanceWindows `json:"maintenance,omitempty"`
}

// Create handles POST /api/v1/resources
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Validate(&req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, mw := range req.Maintenance {
		if err := validator.ValidateVar(mw.CronExpression, "required,cron"); err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid maintenance cron expression: "+mw.CronExpression)
			return
		}
	}

	resource := &models.Resource{
		Name:         req.Name,
		ResourceType: req.ResourceType,
		Rules:        req.Rules,
		Maintenance:  req.Maintenance,
		Enabled:      true,
	}

	if err := h.resourceRepo.CreateResource(r.Context(), resource); err != nil {
		h.logger.Errorf("Failed to create resource: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to create resource")
		return
	}

	RespondJSON(w, http.StatusCreated, resource)
}

// Get handles GET /api/v1/resources/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	resource, err := h.resourceRepo.GetResource(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Resource not found")
		return
	}

	RespondJSON(w, http.StatusOK, resource)
}

// List handles GET /api/v1/resources
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	var resourceType *string
	if t := r.URL.Query().Get("type"); t != "" {
		resourceType = &t
	}
	limit, offset := parsePagination(r)

	resources, total, err := h.resourceRepo.ListResources(r.Context(), resourceType, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list resources: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve resources")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": resources,
		"total":     total,
		"page":      offset / limit,
		"page_size": limit,
	})
}

// Update handles PUT /api/v1/resources/{id}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	resource, err := h.resourceRepo.GetResource(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Resource not found")
		return
	}

	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Validate(&req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resource.Name = req.Name
	resource.ResourceType = req.ResourceType
	resource.Rules = req.Rules
	resource.Maintenance = req.Maintenance

	if err := h.resourceRepo.UpdateResource(r.Context(), resource); err != nil {
		h.logger.Errorf("Failed to update resource %s: %v", id, err)
		RespondError(w, http.StatusInternalServerError, "Failed to update resource")
		return
	}

	RespondJSON(w, http.StatusOK, resource)
}

// Delete handles DELETE /api/v1/resources/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	if err := h.resourceRepo.DeleteResource(r.Context(), id); err != nil {
		h.logger.Errorf("Failed to delete resource %s: %v", id, err)
		RespondError(w, http.StatusNotFound, "Resource not found")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Resource deleted"})
}

// SetEnabled handles POST /api/v1/resources/{id}/enable and /disable
func (h *ResourceHandler) SetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid resource ID")
			return
		}

		if err := h.resourceRepo.SetEnabled(r.Context(), []uuid.UUID{id}, enabled); err != nil {
			h.logger.Errorf("Failed to toggle resource %s: %v", id, err)
			RespondError(w, http.StatusInternalServerError, "Failed to update resource")
			return
		}

		RespondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "enabled": enabled})
	}
}

// CheckAvailability handles GET /api/v1/resources/{id}/availability?from=&to=
func (h *ResourceHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "from and to must be RFC 3339 timestamps")
		return
	}

	decision, err := h.bookingService.CheckAvailability(r.Context(), id, window)
	if err != nil {
		if RespondDomainError(w, err) {
			return
		}
		h.logger.Errorf("Availability check failed for %s: %v", id, err)
		RespondError(w, http.StatusInternalServerError, "Availability check failed")
		return
	}

	RespondJSON(w, http.StatusOK, decision)
}

// ListReservations handles GET /api/v1/resources/{id}/reservations?from=&to=
func (h *ResourceHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid resource ID")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "from and to must be RFC 3339 timestamps")
		return
	}

	reservations, err := h.bookingService.ListBookingsForResource(r.Context(), id, window)
	if err != nil {
		if RespondDomainError(w, err) {
			return
		}
		h.logger.Errorf("Failed to list reservations for resource %s: %v", id, err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve reservations")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"resource_id":  id,
		"reservations": reservations,
	})
}

// ListTypes handles GET /api/v1/resources/types
func (h *ResourceHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.resourceRepo.ListResourceTypes(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list resource types: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve resource types")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"types": types})
}
