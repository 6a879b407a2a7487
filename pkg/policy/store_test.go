package policy

import (
	"errors"
	"fmt"
	"time"

	"timeline-hub-backend/pkg/models"
)

// fakeStore is an in-memory LifecycleStore / MembershipReader /
// OrganizationReader for tests. Error fields force failure paths.
type fakeStore struct {
	orgs        map[string]*models.Organization
	memberships map[string]*models.OrganizationMembership

	getMembershipErr error
	getOrgErr        error
	approveErr       error
	listPendingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:        make(map[string]*models.Organization),
		memberships: make(map[string]*models.OrganizationMembership),
	}
}

func membershipKey(orgID, userID string) string {
	return orgID + "/" + userID
}

func (f *fakeStore) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	if f.getMembershipErr != nil {
		return nil, f.getMembershipErr
	}
	m, ok := f.memberships[membershipKey(orgID, userID)]
	if !ok {
		return nil, errors.New("membership not found")
	}
	return m, nil
}

func (f *fakeStore) GetOrganization(id string) (*models.Organization, error) {
	if f.getOrgErr != nil {
		return nil, f.getOrgErr
	}
	org, ok := f.orgs[id]
	if !ok {
		return nil, errors.New("organization not found")
	}
	return org, nil
}

func (f *fakeStore) CreateOrganization(org *models.Organization) error {
	if org.ID == "" {
		org.ID = fmt.Sprintf("org-%d", len(f.orgs)+1)
	}
	org.CreatedAt = time.Now()
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) ListPendingOrganizations() ([]models.PendingOrganization, error) {
	if f.listPendingErr != nil {
		return nil, f.listPendingErr
	}
	var out []models.PendingOrganization
	for _, org := range f.orgs {
		if org.Status == models.OrgStatusPending {
			out = append(out, models.PendingOrganization{Organization: *org})
		}
	}
	return out, nil
}

func (f *fakeStore) ApproveOrganization(orgID string, creatorID *string) error {
	if f.approveErr != nil {
		return f.approveErr
	}
	org, ok := f.orgs[orgID]
	if !ok {
		return errors.New("organization not found")
	}
	org.Status = models.OrgStatusApproved
	if creatorID != nil {
		key := membershipKey(orgID, *creatorID)
		if m, ok := f.memberships[key]; ok {
			m.Role = models.RoleOrgAdmin
		} else {
			f.memberships[key] = &models.OrganizationMembership{
				OrganizationID: orgID,
				UserID:         *creatorID,
				Role:           models.RoleOrgAdmin,
			}
		}
	}
	return nil
}

func (f *fakeStore) RejectOrganization(orgID string) error {
	org, ok := f.orgs[orgID]
	if !ok {
		return errors.New("organization not found")
	}
	org.Status = models.OrgStatusRejected
	return nil
}

// addOrg registers an organization in the given status.
func (f *fakeStore) addOrg(id string, status models.OrgStatus, createdBy *string) *models.Organization {
	org := &models.Organization{ID: id, Name: id, Status: status, CreatedBy: createdBy}
	f.orgs[id] = org
	return org
}

// addMember registers a membership row directly.
func (f *fakeStore) addMember(orgID, userID string, role models.MembershipRole) {
	f.memberships[membershipKey(orgID, userID)] = &models.OrganizationMembership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
}

func superAdmin(id string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", Role: models.GlobalRoleSuperAdmin}
}

func standardUser(id string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", Role: models.GlobalRoleStandardUser}
}

func strptr(s string) *string {
	return &s
}
