package policy

import "timeline-hub-backend/pkg/models"

// Events have no policy of their own: every decision is a projection of the
// parent topic's decision. Callers look the parent topic up first and pass it
// here; an event whose parent cannot be read must be presented exactly like
// an event that does not exist.
//
// The one asymmetry: event writes always require an authenticated actor, on
// top of the parent topic's write permission. This closes the anonymous-write
// hole that would otherwise open through topics with no organization.

// CanReadEvent reports whether the actor may view an event of the parent
// topic. No requirement beyond reading the parent.
func (e *Engine) CanReadEvent(actor *models.User, parent *models.Topic) bool {
	return e.CanReadTopic(actor, parent)
}

// CanCreateEvent reports whether the actor may add an event to the parent
// topic.
func (e *Engine) CanCreateEvent(actor *models.User, parent *models.Topic) bool {
	return actor != nil && e.CanUpdateTopic(actor, parent)
}

// CanUpdateEvent reports whether the actor may modify an event of the parent
// topic. Changing an event's related_topic_id never changes the event's own
// access evaluation.
func (e *Engine) CanUpdateEvent(actor *models.User, parent *models.Topic) bool {
	return actor != nil && e.CanUpdateTopic(actor, parent)
}

// CanDeleteEvent reports whether the actor may delete an event of the parent
// topic.
func (e *Engine) CanDeleteEvent(actor *models.User, parent *models.Topic) bool {
	return actor != nil && e.CanDeleteTopic(actor, parent)
}
