package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"
)

// AdminHandler serves the super-admin surface: the organization approval
// queue and global role assignment.
type AdminHandler struct {
	db        database.DatabaseInterface
	resolver  *policy.Resolver
	lifecycle *policy.Lifecycle
}

func NewAdminHandler(db database.DatabaseInterface, resolver *policy.Resolver, lifecycle *policy.Lifecycle) *AdminHandler {
	return &AdminHandler{db: db, resolver: resolver, lifecycle: lifecycle}
}

type setGlobalRoleRequest struct {
	Role models.GlobalRole `json:"role"`
}

// ListPendingOrganizations returns the approval queue, newest first, with
// creator identity attached so the reviewer knows who is asking.
func (h *AdminHandler) ListPendingOrganizations(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())

	pending, err := h.lifecycle.ListPending(actor)
	if err != nil {
		if errors.Is(err, policy.ErrPermissionDenied) {
			utils.WriteForbiddenResponse(w, "Super admin access required")
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to list pending organizations")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"organizations": pending,
		"total":         len(pending),
	})
}

// ApproveOrganization approves a pending organization and grants its creator
// org_admin membership. Re-approving is a harmless no-op.
func (h *AdminHandler) ApproveOrganization(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	if err := h.lifecycle.Approve(actor, orgID); err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	org, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load organization")
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// RejectOrganization rejects a pending organization. Rejecting a non-pending
// one is a no-op; in particular an approval is never reverted.
func (h *AdminHandler) RejectOrganization(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	if err := h.lifecycle.Reject(actor, orgID); err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	org, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load organization")
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// SetGlobalRole changes a user's site-wide role. The change takes effect on
// the user's next request because roles are read from the user record, not
// from tokens.
func (h *AdminHandler) SetGlobalRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	if !h.resolver.IsSuperAdmin(actor) {
		utils.WriteForbiddenResponse(w, "Super admin access required")
		return
	}
	userID := chi.URLParam(r, "userID")

	var req setGlobalRoleRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	switch req.Role {
	case models.GlobalRoleSuperAdmin, models.GlobalRoleStandardUser:
	default:
		utils.WriteBadRequestResponse(w, "Role must be super_admin or standard_user")
		return
	}

	if err := h.db.SetUserGlobalRole(userID, req.Role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "User not found")
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to update role")
		return
	}

	user, err := h.db.GetUserByID(userID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load user")
		return
	}
	utils.WriteSuccessResponse(w, user)
}

func (h *AdminHandler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrPermissionDenied):
		utils.WriteForbiddenResponse(w, "Super admin access required")
	case errors.Is(err, policy.ErrNotFound):
		utils.WriteNotFoundResponse(w, "Organization not found")
	default:
		utils.WriteInternalServerErrorResponse(w, "Operation failed")
	}
}
