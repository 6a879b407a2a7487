package policy

import (
	"fmt"

	"timeline-hub-backend/pkg/models"
)

// LifecycleStore is the storage the organization lifecycle mutates.
// ApproveOrganization must apply the status change and the creator membership
// upsert as a single atomic unit: a half-approved organization (approved
// status, no admin membership) must be impossible.
type LifecycleStore interface {
	CreateOrganization(org *models.Organization) error
	GetOrganization(id string) (*models.Organization, error)
	ListPendingOrganizations() ([]models.PendingOrganization, error)
	ApproveOrganization(orgID string, creatorID *string) error
	RejectOrganization(orgID string) error
}

// Lifecycle drives the organization approval state machine:
// pending → approved | rejected. Transitions re-applied to a non-pending
// organization are idempotent no-ops, never hard failures.
type Lifecycle struct {
	store    LifecycleStore
	resolver *Resolver
}

func NewLifecycle(store LifecycleStore, resolver *Resolver) *Lifecycle {
	return &Lifecycle{store: store, resolver: resolver}
}

// Create registers a new organization in pending status with the actor as
// creator. Any authenticated actor may create one; no membership is granted
// until approval, so the creator has no edit rights yet.
func (l *Lifecycle) Create(actor *models.User, org *models.Organization) error {
	if actor == nil {
		return ErrPermissionDenied
	}
	creatorID := actor.ID
	org.Status = models.OrgStatusPending
	org.CreatedBy = &creatorID
	if err := l.store.CreateOrganization(org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// Approve moves a pending organization to approved and grants its creator an
// org_admin membership (upsert: an existing membership is upgraded). Only a
// super admin may approve. Approving an already-approved organization is a
// no-op; so is approving a rejected one — the state machine never leaves a
// terminal state.
func (l *Lifecycle) Approve(actor *models.User, orgID string) error {
	if !l.resolver.IsSuperAdmin(actor) {
		return ErrPermissionDenied
	}
	org, err := l.store.GetOrganization(orgID)
	if err != nil {
		return ErrNotFound
	}
	if org.Status != models.OrgStatusPending {
		return nil
	}
	if err := l.store.ApproveOrganization(org.ID, org.CreatedBy); err != nil {
		return fmt.Errorf("approve organization %s: %w", org.ID, err)
	}
	return nil
}

// Reject moves a pending organization to rejected. Memberships are left
// untouched (they stay latent). Only a super admin may reject. Rejecting a
// non-pending organization is a no-op: in particular, reject never reverts an
// approval.
func (l *Lifecycle) Reject(actor *models.User, orgID string) error {
	if !l.resolver.IsSuperAdmin(actor) {
		return ErrPermissionDenied
	}
	org, err := l.store.GetOrganization(orgID)
	if err != nil {
		return ErrNotFound
	}
	if org.Status != models.OrgStatusPending {
		return nil
	}
	if err := l.store.RejectOrganization(org.ID); err != nil {
		return fmt.Errorf("reject organization %s: %w", org.ID, err)
	}
	return nil
}

// ListPending returns all pending organizations with their creator identity
// attached, newest first. Super admin only.
func (l *Lifecycle) ListPending(actor *models.User) ([]models.PendingOrganization, error) {
	if !l.resolver.IsSuperAdmin(actor) {
		return nil, ErrPermissionDenied
	}
	pending, err := l.store.ListPendingOrganizations()
	if err != nil {
		return nil, fmt.Errorf("list pending organizations: %w", err)
	}
	return pending, nil
}
