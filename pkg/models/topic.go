package models

import "time"

// Topic is the top-level content unit: a titled timeline owning events.
// Ownership is encoded in two nullable columns. At most one of
// OrganizationID / CreatedBy identifies an owner; legacy rows imported from
// before organizations existed may have neither. See pkg/policy for how the
// combinations are interpreted.
type Topic struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description,omitempty" db:"description"`
	IsPublic       bool      `json:"is_public" db:"is_public"`
	OrganizationID *string   `json:"organization_id,omitempty" db:"organization_id"`
	CreatedBy      *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
