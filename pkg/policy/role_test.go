package policy

import (
	"errors"
	"testing"

	"timeline-hub-backend/pkg/models"
)

func TestIsSuperAdmin(t *testing.T) {
	r := NewResolver(newFakeStore())

	if r.IsSuperAdmin(nil) {
		t.Error("anonymous actor must not be super admin")
	}
	if r.IsSuperAdmin(standardUser("u1")) {
		t.Error("standard user must not be super admin")
	}
	if !r.IsSuperAdmin(superAdmin("root")) {
		t.Error("super admin not recognized")
	}
}

func TestHasOrgAccess(t *testing.T) {
	store := newFakeStore()
	store.addOrg("approved", models.OrgStatusApproved, nil)
	store.addOrg("pending", models.OrgStatusPending, nil)
	store.addOrg("rejected", models.OrgStatusRejected, nil)
	store.addMember("approved", "member", models.RoleOrgViewer)
	store.addMember("pending", "member", models.RoleOrgAdmin)
	store.addMember("rejected", "member", models.RoleOrgAdmin)
	r := NewResolver(store)

	tests := []struct {
		name  string
		org   *models.Organization
		actor *models.User
		want  bool
	}{
		{"member of approved org", store.orgs["approved"], standardUser("member"), true},
		{"non-member of approved org", store.orgs["approved"], standardUser("other"), false},
		{"membership in pending org is latent", store.orgs["pending"], standardUser("member"), false},
		{"membership in rejected org is latent", store.orgs["rejected"], standardUser("member"), false},
		{"anonymous", store.orgs["approved"], nil, false},
		{"nil org", nil, standardUser("member"), false},
		{"super admin bypasses membership", store.orgs["approved"], superAdmin("root"), true},
		{"super admin bypasses pending status", store.orgs["pending"], superAdmin("root"), true},
		{"super admin with nil org", nil, superAdmin("root"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.HasOrgAccess(tt.org, tt.actor); got != tt.want {
				t.Errorf("HasOrgAccess = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrgRole(t *testing.T) {
	store := newFakeStore()
	store.addOrg("o1", models.OrgStatusApproved, nil)
	store.addOrg("pending", models.OrgStatusPending, nil)
	store.addMember("o1", "admin", models.RoleOrgAdmin)
	store.addMember("o1", "editor", models.RoleOrgEditor)
	store.addMember("o1", "viewer", models.RoleOrgViewer)
	store.addMember("pending", "admin", models.RoleOrgAdmin)
	r := NewResolver(store)

	tests := []struct {
		name  string
		org   *models.Organization
		actor *models.User
		want  Role
	}{
		{"org admin", store.orgs["o1"], standardUser("admin"), RoleOrgAdmin},
		{"org editor", store.orgs["o1"], standardUser("editor"), RoleOrgEditor},
		{"org viewer", store.orgs["o1"], standardUser("viewer"), RoleOrgViewer},
		{"no membership", store.orgs["o1"], standardUser("stranger"), RoleNone},
		{"anonymous", store.orgs["o1"], nil, RoleNone},
		{"pending org yields none", store.orgs["pending"], standardUser("admin"), RoleNone},
		{"super admin pseudo-role", store.orgs["o1"], superAdmin("root"), RoleSuperAdmin},
		{"nil org", nil, standardUser("admin"), RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.OrgRole(tt.org, tt.actor); got != tt.want {
				t.Errorf("OrgRole = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrgRoleStoreErrorDegradesToNone(t *testing.T) {
	store := newFakeStore()
	org := store.addOrg("o1", models.OrgStatusApproved, nil)
	store.addMember("o1", "admin", models.RoleOrgAdmin)
	store.getMembershipErr = errors.New("connection refused")
	r := NewResolver(store)

	if got := r.OrgRole(org, standardUser("admin")); got != RoleNone {
		t.Errorf("OrgRole with failing store = %q, want none", got)
	}
	if r.HasOrgAccess(org, standardUser("admin")) {
		t.Error("HasOrgAccess with failing store must deny")
	}
	// Super admin answers never touch the membership store.
	if got := r.OrgRole(org, superAdmin("root")); got != RoleSuperAdmin {
		t.Errorf("OrgRole for super admin = %q, want super_admin", got)
	}
}

func TestCanEditOrg(t *testing.T) {
	store := newFakeStore()
	org := store.addOrg("o1", models.OrgStatusApproved, nil)
	store.addMember("o1", "admin", models.RoleOrgAdmin)
	store.addMember("o1", "editor", models.RoleOrgEditor)
	store.addMember("o1", "viewer", models.RoleOrgViewer)
	r := NewResolver(store)

	if !r.CanEditOrg(org, standardUser("admin")) {
		t.Error("org_admin must be able to edit")
	}
	if !r.CanEditOrg(org, standardUser("editor")) {
		t.Error("org_editor must be able to edit")
	}
	if r.CanEditOrg(org, standardUser("viewer")) {
		t.Error("org_viewer must not be able to edit")
	}
	if r.CanEditOrg(org, nil) {
		t.Error("anonymous must not be able to edit")
	}
	if !r.CanEditOrg(org, superAdmin("root")) {
		t.Error("super admin must be able to edit")
	}
}

func TestCanManageOrg(t *testing.T) {
	store := newFakeStore()
	org := store.addOrg("o1", models.OrgStatusApproved, nil)
	store.addMember("o1", "admin", models.RoleOrgAdmin)
	store.addMember("o1", "editor", models.RoleOrgEditor)
	r := NewResolver(store)

	if !r.CanManageOrg(org, standardUser("admin")) {
		t.Error("org_admin must be able to manage")
	}
	if r.CanManageOrg(org, standardUser("editor")) {
		t.Error("org_editor must not be able to manage")
	}
	if !r.CanManageOrg(org, superAdmin("root")) {
		t.Error("super admin must be able to manage")
	}
}

// Role resolution must be referentially transparent: repeated calls in any
// order yield identical answers for identical inputs.
func TestResolverReferentialTransparency(t *testing.T) {
	store := newFakeStore()
	org := store.addOrg("o1", models.OrgStatusApproved, nil)
	store.addMember("o1", "editor", models.RoleOrgEditor)
	r := NewResolver(store)
	actor := standardUser("editor")

	first := r.OrgRole(org, actor)
	r.CanEditOrg(org, actor)
	r.HasOrgAccess(org, actor)
	second := r.OrgRole(org, actor)
	if first != second {
		t.Errorf("OrgRole changed between calls: %q then %q", first, second)
	}
}
