package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusbook/scheduling-engine/internal/api/rest/middleware"
	"github.com/campusbook/scheduling-engine/internal/repository/postgres"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminHandler serves the role and permission management endpoints
type AdminHandler struct {
	logger      *logger.Logger
	users       *postgres.UserRepository
	roles       *postgres.RoleRepository
	permissions *postgres.PermissionRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(log *logger.Logger, users *postgres.UserRepository, roles *postgres.RoleRepository, permissions *postgres.PermissionRepository) *AdminHandler {
	return &AdminHandler{
		logger:      log,
		users:       users,
		roles:       roles,
		permissions: permissions,
	}
}

// ListRoles handles GET /api/v1/roles
func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list roles: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve roles")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

// GetRole handles GET /api/v1/roles/{id}, returning the role with its
// granted permissions.
func (h *AdminHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid role ID")
		return
	}

	role, err := h.roles.GetByID(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Role not found")
		return
	}

	permissions, err := h.roles.GetRolePermissions(r.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to get permissions for role %s: %v", id, err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve role permissions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"role":        role,
		"permissions": permissions,
	})
}

// ListPermissions handles GET /api/v1/permissions
func (h *AdminHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.permissions.List(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list permissions: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve permissions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"permissions": permissions})
}

// ListUsers handles GET /api/v1/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list users: %v", err)
		RespondError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// AssignRoleRequest is the body for role assignment
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AssignRole handles POST /api/v1/users/{id}/roles
func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, err := h.roles.GetByName(r.Context(), req.Role)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Role not found")
		return
	}

	assignedBy := middleware.GetUserID(r.Context())
	if err := h.users.AssignRole(r.Context(), userID, role.ID, assignedBy); err != nil {
		h.logger.Errorf("Failed to assign role %s to user %s: %v", role.Name, userID, err)
		RespondError(w, http.StatusInternalServerError, "Failed to assign role")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"role":    role.Name,
	})
}

// RemoveRole handles DELETE /api/v1/users/{id}/roles/{role}
func (h *AdminHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	role, err := h.roles.GetByName(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		RespondError(w, http.StatusNotFound, "Role not found")
		return
	}

	if err := h.users.RemoveRole(r.Context(), userID, role.ID); err != nil {
		RespondError(w, http.StatusNotFound, "Role assignment not found")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Role removed"})
}
