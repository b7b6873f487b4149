package handlers

import (
	"github.com/campusbook/scheduling-engine/internal/repository/postgres"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	Health      *HealthHandler
	Reservation *ReservationHandler
	Resource    *ResourceHandler
	Approval    *ApprovalHandler
	Flow        *FlowHandler
	Auth        *AuthHandler
	Admin       *AdminHandler
}

// HealthCheckers holds all health check dependencies
type HealthCheckers struct {
	DB    HealthChecker
	Redis HealthChecker
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	log *logger.Logger,
	bookingService *services.BookingService,
	approvalService *services.ApprovalService,
	flowService *services.FlowCacheService,
	authService *services.AuthService,
	resourceRepo *postgres.ResourceRepository,
	userRepo *postgres.UserRepository,
	roleRepo *postgres.RoleRepository,
	permissionRepo *postgres.PermissionRepository,
	healthCheckers *HealthCheckers,
	version string,
) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(log, healthCheckers.DB, healthCheckers.Redis, version),
		Reservation: NewReservationHandler(log, bookingService),
		Resource:    NewResourceHandler(log, resourceRepo, bookingService),
		Approval:    NewApprovalHandler(log, approvalService),
		Flow:        NewFlowHandler(log, flowService),
		Auth:        NewAuthHandler(log, authService),
		Admin:       NewAdminHandler(log, userRepo, roleRepo, permissionRepo),
	}
}
