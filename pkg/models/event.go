package models

import "time"

// Event is a dated entry on a topic's timeline, ordered by Year (years are
// not unique within a topic). Events carry no access rules of their own;
// every decision derives from the parent topic.
//
// RelatedTopicID is a weak cross-reference used for navigation only. It never
// widens or narrows access: following the link re-evaluates visibility
// against the linked topic.
type Event struct {
	ID             string    `json:"id" db:"id"`
	TopicID        string    `json:"topic_id" db:"topic_id"`
	Year           int       `json:"year" db:"year"`
	Title          string    `json:"title" db:"title"`
	Body           string    `json:"body,omitempty" db:"body"`
	RelatedTopicID *string   `json:"related_topic_id,omitempty" db:"related_topic_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
