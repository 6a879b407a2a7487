package policy

import (
	"timeline-hub-backend/pkg/models"
)

// Role is an actor's effective role with respect to one organization.
// RoleSuperAdmin is a pseudo-role: it is not stored on any membership row but
// outranks every organization role and satisfies every organization-role
// check.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOrgAdmin   Role = "org_admin"
	RoleOrgEditor  Role = "org_editor"
	RoleOrgViewer  Role = "org_viewer"
	RoleNone       Role = "none"
)

// MembershipReader is the single data access the resolver is allowed.
// It must be a raw row lookup: implementations must not filter the result
// through any policy check, otherwise role resolution becomes recursive.
type MembershipReader interface {
	GetMembership(orgID, userID string) (*models.OrganizationMembership, error)
}

// Resolver answers role questions for an actor. All methods are pure over the
// store's current state, total (absent data maps to false/none, never an
// error) and safe for unbounded concurrent use.
type Resolver struct {
	memberships MembershipReader
}

func NewResolver(memberships MembershipReader) *Resolver {
	return &Resolver{memberships: memberships}
}

// IsSuperAdmin reports whether the actor's global role is super_admin.
// A nil (anonymous) actor is never a super admin.
func (r *Resolver) IsSuperAdmin(actor *models.User) bool {
	return actor != nil && actor.Role == models.GlobalRoleSuperAdmin
}

// HasOrgAccess reports whether the actor can see the organization's content:
// super admins always, otherwise any membership in an approved organization.
// Memberships of pending/rejected organizations are latent and grant nothing.
func (r *Resolver) HasOrgAccess(org *models.Organization, actor *models.User) bool {
	if r.IsSuperAdmin(actor) {
		return true
	}
	if org == nil || actor == nil || org.Status != models.OrgStatusApproved {
		return false
	}
	m, err := r.memberships.GetMembership(org.ID, actor.ID)
	return err == nil && m != nil
}

// OrgRole returns the actor's effective role in the organization. Store
// errors and absent memberships both resolve to RoleNone.
func (r *Resolver) OrgRole(org *models.Organization, actor *models.User) Role {
	if r.IsSuperAdmin(actor) {
		return RoleSuperAdmin
	}
	if org == nil || actor == nil || org.Status != models.OrgStatusApproved {
		return RoleNone
	}
	m, err := r.memberships.GetMembership(org.ID, actor.ID)
	if err != nil || m == nil {
		return RoleNone
	}
	switch m.Role {
	case models.RoleOrgAdmin:
		return RoleOrgAdmin
	case models.RoleOrgEditor:
		return RoleOrgEditor
	case models.RoleOrgViewer:
		return RoleOrgViewer
	}
	return RoleNone
}

// CanEditOrg reports whether the actor may write content owned by the
// organization.
func (r *Resolver) CanEditOrg(org *models.Organization, actor *models.User) bool {
	switch r.OrgRole(org, actor) {
	case RoleSuperAdmin, RoleOrgAdmin, RoleOrgEditor:
		return true
	}
	return false
}

// CanManageOrg reports whether the actor may administer the organization
// itself (memberships, metadata).
func (r *Resolver) CanManageOrg(org *models.Organization, actor *models.User) bool {
	switch r.OrgRole(org, actor) {
	case RoleSuperAdmin, RoleOrgAdmin:
		return true
	}
	return false
}
