package policy

import "timeline-hub-backend/pkg/models"

// OrganizationReader is the raw organization row lookup the engine needs to
// evaluate org-owned topics. Like MembershipReader, implementations must not
// apply policy of their own.
type OrganizationReader interface {
	GetOrganization(id string) (*models.Organization, error)
}

// Engine decides, for an (actor, resource, operation) triple, whether the
// operation is permitted. It is stateless and side-effect-free: every method
// reads the injected stores and returns a plain bool, so concurrent use
// needs no coordination.
//
// Checks are stratified: global role first, then organization membership
// (through the Resolver), then resource attributes. No layer reaches back
// into its own layer's data, which keeps evaluation non-recursive.
type Engine struct {
	resolver *Resolver
	orgs     OrganizationReader
}

func NewEngine(resolver *Resolver, orgs OrganizationReader) *Engine {
	return &Engine{resolver: resolver, orgs: orgs}
}

// Resolver exposes the role resolver the engine was built with, for callers
// that need role answers directly (admin surfaces, membership management).
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// lookupOrg resolves an owning organization. Lookup failures deny: a topic
// pointing at a missing organization is treated as inaccessible rather than
// erroring mid-decision.
func (e *Engine) lookupOrg(id string) *models.Organization {
	org, err := e.orgs.GetOrganization(id)
	if err != nil {
		return nil
	}
	return org
}

// CanReadTopic reports whether the actor may view the topic and its events.
func (e *Engine) CanReadTopic(actor *models.User, t *models.Topic) bool {
	if t == nil {
		return false
	}
	if e.resolver.IsSuperAdmin(actor) {
		return true
	}
	own := TopicOwnership(t)
	switch own.Mode {
	case OwnedByOrganization:
		if t.IsPublic {
			return true
		}
		return e.resolver.HasOrgAccess(e.lookupOrg(own.OrgID), actor)
	case OwnedPublic, OwnedLegacy:
		return true
	case OwnedPersonal:
		return actor != nil && actor.ID == own.OwnerID
	}
	return false
}

// CanCreateTopic reports whether the actor may create a topic under the given
// organization (nil for a personal topic). Personal creation only requires
// authentication; the new topic's created_by is set to the actor by the
// caller.
func (e *Engine) CanCreateTopic(actor *models.User, organizationID *string) bool {
	if e.resolver.IsSuperAdmin(actor) {
		return true
	}
	if organizationID != nil && *organizationID != "" {
		return e.resolver.CanEditOrg(e.lookupOrg(*organizationID), actor)
	}
	return actor != nil
}

// CanUpdateTopic reports whether the actor may modify the topic.
//
// A public topic without an organization is deliberately not editable by its
// nominal creator: once content is shared as public reference material, only
// a super admin may change it. Private personal topics remain fully owned by
// their creator.
func (e *Engine) CanUpdateTopic(actor *models.User, t *models.Topic) bool {
	if t == nil {
		return false
	}
	if e.resolver.IsSuperAdmin(actor) {
		return true
	}
	own := TopicOwnership(t)
	switch own.Mode {
	case OwnedByOrganization:
		return e.resolver.CanEditOrg(e.lookupOrg(own.OrgID), actor)
	case OwnedPersonal:
		return actor != nil && actor.ID == own.OwnerID
	}
	// OwnedPublic, OwnedLegacy: nobody below super admin.
	return false
}

// CanDeleteTopic uses the same condition as update.
func (e *Engine) CanDeleteTopic(actor *models.User, t *models.Topic) bool {
	return e.CanUpdateTopic(actor, t)
}
