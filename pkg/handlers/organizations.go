package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"
)

// OrganizationsHandler serves organization self-service: registration,
// listing the actor's own organizations and membership management by
// organization admins. Approval and rejection live on the admin surface.
type OrganizationsHandler struct {
	db        database.DatabaseInterface
	resolver  *policy.Resolver
	lifecycle *policy.Lifecycle
}

func NewOrganizationsHandler(db database.DatabaseInterface, resolver *policy.Resolver, lifecycle *policy.Lifecycle) *OrganizationsHandler {
	return &OrganizationsHandler{db: db, resolver: resolver, lifecycle: lifecycle}
}

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateOrganizationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type upsertMemberRequest struct {
	UserID string                `json:"user_id"`
	Role   models.MembershipRole `json:"role"`
}

// CreateOrganization registers a new organization in pending status. The
// actor becomes its creator but gains no membership until approval.
func (h *OrganizationsHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req createOrganizationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteBadRequestResponse(w, "Name is required")
		return
	}

	org := &models.Organization{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.lifecycle.Create(actor, org); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create organization")
		return
	}

	utils.WriteCreatedResponse(w, org)
}

// ListMyOrganizations returns the organizations the actor belongs to, plus
// the pending ones they created (so a creator can watch their application).
func (h *OrganizationsHandler) ListMyOrganizations(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	orgs, err := h.db.ListUserOrganizations(actor.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list organizations")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"organizations": orgs,
		"total":         len(orgs),
	})
}

// GetOrganization returns one organization. Visible to members, to the
// creator (even while pending) and to super admins; invisible to everyone
// else.
func (h *OrganizationsHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if !h.canSeeOrg(org, actor) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	utils.WriteSuccessResponse(w, org)
}

// UpdateOrganization changes organization metadata. Admin-level access only;
// status is never writable here.
func (h *OrganizationsHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, err := h.db.GetOrganization(orgID)
	if err != nil || !h.canSeeOrg(org, actor) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if !h.resolver.CanManageOrg(org, actor) {
		utils.WriteForbiddenResponse(w, "Not allowed to manage this organization")
		return
	}

	var req updateOrganizationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.WriteBadRequestResponse(w, "Name cannot be empty")
			return
		}
		org.Name = name
	}
	if req.Description != nil {
		org.Description = *req.Description
	}

	if err := h.db.UpdateOrganization(org); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update organization")
		return
	}

	utils.WriteSuccessResponse(w, org)
}

// ListMembers returns the organization's memberships. Any member may see the
// roster.
func (h *OrganizationsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, err := h.db.GetOrganization(orgID)
	if err != nil || !h.canSeeOrg(org, actor) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if !h.resolver.HasOrgAccess(org, actor) {
		utils.WriteForbiddenResponse(w, "Not a member of this organization")
		return
	}

	members, err := h.db.ListOrganizationMembers(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"members": members,
		"total":   len(members),
	})
}

// UpsertMember adds a user to the organization or changes their role. The
// unique (organization, user) pair means re-adding is always a role update,
// never a duplicate row.
func (h *OrganizationsHandler) UpsertMember(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, err := h.db.GetOrganization(orgID)
	if err != nil || !h.canSeeOrg(org, actor) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if !h.resolver.CanManageOrg(org, actor) {
		utils.WriteForbiddenResponse(w, "Not allowed to manage memberships")
		return
	}

	var req upsertMemberRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.UserID == "" {
		utils.WriteBadRequestResponse(w, "user_id is required")
		return
	}
	switch req.Role {
	case models.RoleOrgAdmin, models.RoleOrgEditor, models.RoleOrgViewer:
	default:
		utils.WriteBadRequestResponse(w, "Role must be org_admin, org_editor or org_viewer")
		return
	}
	if _, err := h.db.GetUserByID(req.UserID); err != nil {
		utils.WriteBadRequestResponse(w, "User does not exist")
		return
	}

	m := &models.OrganizationMembership{
		OrganizationID: orgID,
		UserID:         req.UserID,
		Role:           req.Role,
	}
	if err := h.db.UpsertMembership(m); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update membership")
		return
	}

	utils.WriteSuccessResponse(w, m)
}

// RemoveMember deletes a membership. Organization admins may remove anyone;
// every member may remove themselves.
func (h *OrganizationsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	org, err := h.db.GetOrganization(orgID)
	if err != nil || !h.canSeeOrg(org, actor) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if userID != actor.ID && !h.resolver.CanManageOrg(org, actor) {
		utils.WriteForbiddenResponse(w, "Not allowed to remove this member")
		return
	}

	if err := h.db.DeleteMembership(orgID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Membership not found")
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to remove member")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Member removed",
	})
}

// canSeeOrg reports whether the organization exists from the actor's point of
// view: super admins, members of an approved organization and the creator of
// a pending or rejected one.
func (h *OrganizationsHandler) canSeeOrg(org *models.Organization, actor *models.User) bool {
	if h.resolver.HasOrgAccess(org, actor) {
		return true
	}
	return org.CreatedBy != nil && actor != nil && *org.CreatedBy == actor.ID
}
