package policy

import "timeline-hub-backend/pkg/models"

// OwnershipMode classifies who, if anyone, owns a topic. The source data
// encodes this in two nullable columns plus a public flag; classifying once
// up front keeps the decision tables free of nested null checks.
type OwnershipMode int

const (
	// OwnedByOrganization: organization_id is set. The public flag only
	// widens read access; writes go through organization roles.
	OwnedByOrganization OwnershipMode = iota

	// OwnedPublic: no organization and marked public. Readable by everyone,
	// writable only by a super admin — a nominal creator deliberately loses
	// write access once the topic is shared reference content.
	OwnedPublic

	// OwnedPersonal: no organization, private, with a creator. Fully owned
	// by that creator.
	OwnedPersonal

	// OwnedLegacy: no organization, private, no creator. Imported rows that
	// predate ownership. Readable by everyone, writable only by a super
	// admin since there is no creator to match against.
	OwnedLegacy
)

// Ownership is the classified owner of a topic.
type Ownership struct {
	Mode    OwnershipMode
	OrgID   string // set when Mode == OwnedByOrganization
	OwnerID string // set when Mode == OwnedPersonal
}

// TopicOwnership classifies a topic. Exactly one mode holds for any
// combination of the underlying columns.
func TopicOwnership(t *models.Topic) Ownership {
	switch {
	case t.OrganizationID != nil && *t.OrganizationID != "":
		return Ownership{Mode: OwnedByOrganization, OrgID: *t.OrganizationID}
	case t.IsPublic:
		return Ownership{Mode: OwnedPublic}
	case t.CreatedBy != nil && *t.CreatedBy != "":
		return Ownership{Mode: OwnedPersonal, OwnerID: *t.CreatedBy}
	default:
		return Ownership{Mode: OwnedLegacy}
	}
}
