package models

import "time"

// OrgStatus is the approval state of an organization. New organizations start
// as pending and move to approved or rejected exactly once; re-applying the
// same transition is a no-op.
type OrgStatus string

const (
	OrgStatusPending  OrgStatus = "pending"
	OrgStatusApproved OrgStatus = "approved"
	OrgStatusRejected OrgStatus = "rejected"
)

// Organization is a tenant boundary grouping topics and memberships.
// CreatedBy is nullable: the creating account may have been deleted.
type Organization struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Status      OrgStatus `json:"status" db:"status"`
	CreatedBy   *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type MembershipRole string

const (
	RoleOrgAdmin  MembershipRole = "org_admin"
	RoleOrgEditor MembershipRole = "org_editor"
	RoleOrgViewer MembershipRole = "org_viewer"
)

// OrganizationMembership relates users to organizations with a role.
// The (organization_id, user_id) pair is unique. Memberships of a pending or
// rejected organization are latent: they grant nothing until approval.
type OrganizationMembership struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	UserID         string         `json:"user_id" db:"user_id"`
	Role           MembershipRole `json:"role" db:"role"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// PendingOrganization is a pending organization with its creator attached,
// as listed on the admin approval queue.
type PendingOrganization struct {
	Organization
	Creator *User `json:"creator,omitempty"`
}
