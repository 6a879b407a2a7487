package policy

import "errors"

// Sentinel errors returned by lifecycle mutations. Decision functions never
// return errors: missing or malformed input degrades to the most restrictive
// answer instead.
var (
	// ErrPermissionDenied means the actor lacks the role or ownership the
	// operation requires. Never downgraded to a different outcome.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means a referenced organization, topic or event does not
	// exist. Callers should usually present this identically to
	// ErrPermissionDenied so that probing cannot reveal whether a private
	// resource exists.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks a lifecycle transition applied to an organization
	// that is not in the expected state. The lifecycle treats these as
	// idempotent no-ops, so this error is informational and rarely surfaces.
	ErrInvalidState = errors.New("invalid state")
)
