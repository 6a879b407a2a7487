package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"
)

// EventsHandler serves event CRUD. Events have no access rules of their own:
// every decision is derived from the parent topic, so an event is exactly as
// visible and as editable as the topic it belongs to.
type EventsHandler struct {
	db     database.DatabaseInterface
	engine *policy.Engine
}

func NewEventsHandler(db database.DatabaseInterface, engine *policy.Engine) *EventsHandler {
	return &EventsHandler{db: db, engine: engine}
}

type createEventRequest struct {
	Year           int     `json:"year"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	RelatedTopicID *string `json:"related_topic_id"`
}

type updateEventRequest struct {
	Year           *int    `json:"year"`
	Title          *string `json:"title"`
	Body           *string `json:"body"`
	RelatedTopicID *string `json:"related_topic_id"`
}

// ListTopicEvents returns the topic's events ordered by year.
func (h *EventsHandler) ListTopicEvents(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.db.GetTopic(topicID)
	if err != nil || !h.engine.CanReadTopic(actor, topic) {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}

	events, err := h.db.ListEventsByTopic(topicID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list events")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

// CreateEvent adds an event to a topic.
func (h *EventsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.db.GetTopic(topicID)
	if err != nil || !h.engine.CanReadTopic(actor, topic) {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}
	if actor == nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if !h.engine.CanCreateEvent(actor, topic) {
		utils.WriteForbiddenResponse(w, "Not allowed to add events to this topic")
		return
	}

	var req createEventRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteBadRequestResponse(w, "Title is required")
		return
	}
	if req.RelatedTopicID != nil && *req.RelatedTopicID != "" {
		// The link must point at a real topic, but it carries no access: a
		// reader of this event does not thereby gain read access to the
		// related topic.
		if _, err := h.db.GetTopic(*req.RelatedTopicID); err != nil {
			utils.WriteBadRequestResponse(w, "Related topic does not exist")
			return
		}
	}

	event := &models.Event{
		TopicID:        topicID,
		Year:           req.Year,
		Title:          req.Title,
		Body:           req.Body,
		RelatedTopicID: req.RelatedTopicID,
	}
	if err := h.db.CreateEvent(event); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create event")
		return
	}

	utils.WriteCreatedResponse(w, event)
}

// GetEvent returns a single event.
func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	eventID := chi.URLParam(r, "eventID")

	event, topic, ok := h.loadEventWithTopic(eventID)
	if !ok || !h.engine.CanReadEvent(actor, topic) {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}

	utils.WriteSuccessResponse(w, event)
}

// UpdateEvent applies a partial update to an event.
func (h *EventsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	eventID := chi.URLParam(r, "eventID")

	event, topic, ok := h.loadEventWithTopic(eventID)
	if !ok || !h.engine.CanReadEvent(actor, topic) {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}
	if actor == nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if !h.engine.CanUpdateEvent(actor, topic) {
		utils.WriteForbiddenResponse(w, "Not allowed to modify this event")
		return
	}

	var req updateEventRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			utils.WriteBadRequestResponse(w, "Title cannot be empty")
			return
		}
		event.Title = title
	}
	if req.Year != nil {
		event.Year = *req.Year
	}
	if req.Body != nil {
		event.Body = *req.Body
	}
	if req.RelatedTopicID != nil {
		if *req.RelatedTopicID == "" {
			event.RelatedTopicID = nil
		} else {
			if _, err := h.db.GetTopic(*req.RelatedTopicID); err != nil {
				utils.WriteBadRequestResponse(w, "Related topic does not exist")
				return
			}
			event.RelatedTopicID = req.RelatedTopicID
		}
	}

	if err := h.db.UpdateEvent(event); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update event")
		return
	}

	utils.WriteSuccessResponse(w, event)
}

// DeleteEvent removes an event.
func (h *EventsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	eventID := chi.URLParam(r, "eventID")

	_, topic, ok := h.loadEventWithTopic(eventID)
	if !ok || !h.engine.CanReadEvent(actor, topic) {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}
	if actor == nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if !h.engine.CanDeleteEvent(actor, topic) {
		utils.WriteForbiddenResponse(w, "Not allowed to delete this event")
		return
	}

	if err := h.db.DeleteEvent(eventID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete event")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Event deleted",
	})
}

// loadEventWithTopic fetches an event together with its parent topic. An
// event whose topic is gone is treated as nonexistent.
func (h *EventsHandler) loadEventWithTopic(eventID string) (*models.Event, *models.Topic, bool) {
	event, err := h.db.GetEvent(eventID)
	if err != nil {
		return nil, nil, false
	}
	topic, err := h.db.GetTopic(event.TopicID)
	if err != nil {
		return nil, nil, false
	}
	return event, topic, true
}
