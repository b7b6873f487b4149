package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/campusbook/scheduling-engine/internal/api/rest/middleware"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/scheduling"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReservationHandler handles booking-related HTTP requests
type ReservationHandler struct {
	logger         *logger.Logger
	bookingService *services.BookingService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(log *logger.Logger, bookingService *services.BookingService) *ReservationHandler {
	return &ReservationHandler{
		logger:         log,
		bookingService: bookingService,
	}
}

// CreateReservationRequest is the request body for POST /reservations. When
// Recurrence is present the whole series is booked in one batch call.
type CreateReservationRequest struct {
	ResourceID uuid.UUID         `json:"resource_id" validate:"required"`
	Start      time.Time         `json:"start" validate:"required"`
	End        time.Time         `json:"end" validate:"required"`
	Title      *string           `json:"title,omitempty"`
	Priority   *models.ApprovalPriority  `json:"priority,omitempty"`
	Recurrence *models.RecurrencePattern `json:"recurrence,omitempty"`
	// SkipConflicts applies to recurring requests only: conflicting
	// instances are recorded as failures instead of failing the batch.
	SkipConflicts bool `json:"skip_conflicts,omitempty"`
}

// Create handles POST /api/v1/reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Validate(&req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking := &models.BookingRequest{
		ResourceID:  req.ResourceID,
		RequesterID: userID,
		Window:      models.TimeWindow{Start: req.Start, End: req.End},
		Title:       req.Title,
	}

	priority := models.PriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}

	if req.Recurrence != nil {
		result, err := h.bookingService.CreateRecurringBooking(r.Context(), booking, *req.Recurrence, scheduling.BatchOptions{
			SkipConflicts: req.SkipConflicts,
		})
		if err != nil {
			if RespondDomainError(w, err) {
				return
			}
			h.logger.Errorf("Failed to create recurring booking: %v", err)
			RespondError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}
		RespondJSON(w, http.StatusCreated, result)
		return
	}

	outcome, err := h.bookingService.CreateBooking(r.Context(), booking, priority)
	if err != nil {
		if RespondDomainError(w, err) {
			return
		}
		h.logger.Errorf("Failed to create booking: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to create booking")
		return
	}

	RespondJSON(w, http.StatusCreated, outcome)
}

// Get handles GET /api/v1/reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid reservation ID")
		return
	}

	reservation, err := h.bookingService.GetBooking(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Reservation not found")
		return
	}

	RespondJSON(w, http.StatusOK, reservation)
}

// Cancel handles DELETE /api/v1/reservations/{id}
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid reservation ID")
		return
	}

	// Admins may cancel on behalf of others
	force := false
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		for _, role := range claims.Roles {
			if role == "admin" {
				force = true
				break
			}
		}
	}

	if err := h.bookingService.CancelBooking(r.Context(), id, userID, force); err != nil {
		if RespondDomainError(w, err) {
			return
		}
		h.logger.Errorf("Failed to cancel reservation %s: %v", id, err)
		RespondError(w, http.StatusInternalServerError, "Failed to cancel reservation")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Reservation cancelled"})
}

// ListMine handles GET /api/v1/reservations
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, offset := parsePagination(r)

	reservations, total, err := h.bookingService.ListBookingsForUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list reservations: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve reservations")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"reservations": reservations,
		"total":        total,
		"page":         offset / limit,
		"page_size":    limit,
	})
}

// ListSeries handles GET /api/v1/reservations/series/{id}
func (h *ReservationHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid series ID")
		return
	}

	reservations, err := h.bookingService.ListSeries(r.Context(), seriesID)
	if err != nil {
		h.logger.Errorf("Failed to list series %s: %v", seriesID, err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve series")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"series_id":    seriesID,
		"reservations": reservations,
	})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset = 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

// parseWindow reads from/to query parameters as RFC 3339 timestamps.
func parseWindow(r *http.Request) (models.TimeWindow, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return models.TimeWindow{}, err
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return models.TimeWindow{}, err
	}
	return models.TimeWindow{Start: from, End: to}, nil
}
