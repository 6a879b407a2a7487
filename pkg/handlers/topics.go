package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"
)

// TopicsHandler serves topic CRUD. Every operation runs through the policy
// engine; a topic the actor may not read is reported as 404 so that probing
// IDs reveals nothing.
type TopicsHandler struct {
	db     database.DatabaseInterface
	engine *policy.Engine
}

func NewTopicsHandler(db database.DatabaseInterface, engine *policy.Engine) *TopicsHandler {
	return &TopicsHandler{db: db, engine: engine}
}

type createTopicRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	IsPublic       bool    `json:"is_public"`
	OrganizationID *string `json:"organization_id"`
}

type updateTopicRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// ListTopics returns every topic the actor may read. Filtering happens here,
// in Go, against the full listing; the store never applies permission logic.
func (h *TopicsHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())

	topics, err := h.db.ListTopics()
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list topics")
		return
	}

	visible := make([]models.Topic, 0, len(topics))
	for i := range topics {
		if h.engine.CanReadTopic(actor, &topics[i]) {
			visible = append(visible, topics[i])
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"topics": visible,
		"total":  len(visible),
	})
}

// GetTopic returns a single topic.
func (h *TopicsHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.db.GetTopic(topicID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}
	if !h.engine.CanReadTopic(actor, topic) {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}

	utils.WriteSuccessResponse(w, topic)
}

// CreateTopic creates a topic, personal or organization-owned.
func (h *TopicsHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req createTopicRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteBadRequestResponse(w, "Title is required")
		return
	}

	if !h.engine.CanCreateTopic(actor, req.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Not allowed to create topics in this organization")
		return
	}

	creatorID := actor.ID
	topic := &models.Topic{
		Title:          req.Title,
		Description:    req.Description,
		IsPublic:       req.IsPublic,
		OrganizationID: req.OrganizationID,
		CreatedBy:      &creatorID,
	}
	if err := h.db.CreateTopic(topic); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create topic")
		return
	}

	utils.WriteCreatedResponse(w, topic)
}

// UpdateTopic applies a partial update. The owning organization is fixed at
// creation and cannot be changed here.
func (h *TopicsHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.db.GetTopic(topicID)
	if err != nil || !h.engine.CanReadTopic(actor, topic) {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}
	if !h.engine.CanUpdateTopic(actor, topic) {
		utils.WriteForbiddenResponse(w, "Not allowed to modify this topic")
		return
	}

	var req updateTopicRequest
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
		topic.Title = title
	}
	if req.Description != nil {
		topic.Description = *req.Description
	}
	if req.IsPublic != nil {
		topic.IsPublic = *req.IsPublic
	}

	if err := h.db.UpdateTopic(topic); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Topic not found")
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to update topic")
		return
	}

	utils.WriteSuccessResponse(w, topic)
}

// DeleteTopic removes a topic and, through the store, all of its events.
func (h *TopicsHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.db.GetTopic(topicID)
	if err != nil || !h.engine.CanReadTopic(actor, topic) {
		utils.WriteNotFoundResponse(w, "Topic not found")
		return
	}
	if !h.engine.CanDeleteTopic(actor, topic) {
		utils.WriteForbiddenResponse(w, "Not allowed to delete this topic")
		return
	}

	if err := h.db.DeleteTopic(topicID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete topic")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Topic deleted",
	})
}
