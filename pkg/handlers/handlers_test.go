package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"timeline-hub-backend/pkg/config"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"
)

// testEnv is a full HTTP stack over the in-memory store: real router, real
// auth middleware, real policy engine.
type testEnv struct {
	router *chi.Mux
	db     database.DatabaseInterface
	jwt    *utils.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		JWTSecret:   "test-secret",
	}
	db := database.NewMemoryDatabase()

	resolver := policy.NewResolver(db)
	engine := policy.NewEngine(resolver, db)
	lifecycle := policy.NewLifecycle(db, resolver)

	topicsHandler := NewTopicsHandler(db, engine)
	eventsHandler := NewEventsHandler(db, engine)
	orgsHandler := NewOrganizationsHandler(db, resolver, lifecycle)
	adminHandler := NewAdminHandler(db, resolver, lifecycle)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(cfg, db))
			r.Get("/topics", topicsHandler.ListTopics)
			r.Get("/topics/{topicID}", topicsHandler.GetTopic)
			r.Get("/topics/{topicID}/events", eventsHandler.ListTopicEvents)
			r.Get("/events/{eventID}", eventsHandler.GetEvent)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg, db))
			r.Post("/topics", topicsHandler.CreateTopic)
			r.Put("/topics/{topicID}", topicsHandler.UpdateTopic)
			r.Delete("/topics/{topicID}", topicsHandler.DeleteTopic)
			r.Post("/topics/{topicID}/events", eventsHandler.CreateEvent)
			r.Put("/events/{eventID}", eventsHandler.UpdateEvent)
			r.Delete("/events/{eventID}", eventsHandler.DeleteEvent)
			r.Get("/orgs", orgsHandler.ListMyOrganizations)
			r.Post("/orgs", orgsHandler.CreateOrganization)
			r.Get("/orgs/{orgID}", orgsHandler.GetOrganization)
			r.Put("/orgs/{orgID}", orgsHandler.UpdateOrganization)
			r.Get("/orgs/{orgID}/members", orgsHandler.ListMembers)
			r.Put("/orgs/{orgID}/members", orgsHandler.UpsertMember)
			r.Delete("/orgs/{orgID}/members/{userID}", orgsHandler.RemoveMember)
			r.Get("/admin/orgs/pending", adminHandler.ListPendingOrganizations)
			r.Post("/admin/orgs/{orgID}/approve", adminHandler.ApproveOrganization)
			r.Post("/admin/orgs/{orgID}/reject", adminHandler.RejectOrganization)
			r.Put("/admin/users/{userID}/role", adminHandler.SetGlobalRole)
		})
	})

	return &testEnv{
		router: router,
		db:     db,
		jwt:    utils.NewJWTService(cfg.JWTSecret),
	}
}

// addUser creates a user directly in the store and returns it.
func (e *testEnv) addUser(t *testing.T, email string, role models.GlobalRole) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role}
	if err := e.db.CreateUser(user); err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// do performs a request. A nil user means anonymous.
func (e *testEnv) do(t *testing.T, user *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.tokenFor(t, user))
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("decode data: %v (body: %s)", err, rec.Body.String())
		}
	}
}

func (e *testEnv) addTopic(t *testing.T, topic *models.Topic) *models.Topic {
	t.Helper()
	if err := e.db.CreateTopic(topic); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return topic
}

// ---- topics ----

func TestListTopicsAnonymousSeesOnlyPublic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", models.GlobalRoleStandardUser)

	env.addTopic(t, &models.Topic{Title: "Public history", IsPublic: true})
	env.addTopic(t, &models.Topic{Title: "Private notes", CreatedBy: &owner.ID})
	env.addTopic(t, &models.Topic{Title: "Legacy import"})

	rec := env.do(t, nil, http.MethodGet, "/api/topics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data struct {
		Topics []models.Topic `json:"topics"`
		Total  int            `json:"total"`
	}
	decodeData(t, rec, &data)

	if data.Total != 2 {
		t.Fatalf("total = %d, want 2 (public + legacy)", data.Total)
	}
	for _, topic := range data.Topics {
		if topic.Title == "Private notes" {
			t.Fatal("anonymous listing included a private personal topic")
		}
	}
}

func TestGetPrivateTopicPresentsAs404(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", models.GlobalRoleStandardUser)
	stranger := env.addUser(t, "stranger@example.com", models.GlobalRoleStandardUser)

	topic := env.addTopic(t, &models.Topic{Title: "Private", CreatedBy: &owner.ID})

	// Anonymous and stranger both get 404, indistinguishable from a missing
	// topic.
	for _, actor := range []*models.User{nil, stranger} {
		rec := env.do(t, actor, http.MethodGet, "/api/topics/"+topic.ID, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	}

	rec := env.do(t, owner, http.MethodGet, "/api/topics/"+topic.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
}

func TestCreateTopicRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, nil, http.MethodPost, "/api/topics", map[string]interface{}{
		"title": "New topic",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	user := env.addUser(t, "user@example.com", models.GlobalRoleStandardUser)
	rec = env.do(t, user, http.MethodPost, "/api/topics", map[string]interface{}{
		"title": "New topic",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var topic models.Topic
	decodeData(t, rec, &topic)
	if topic.CreatedBy == nil || *topic.CreatedBy != user.ID {
		t.Fatal("created topic not attributed to the actor")
	}
}

func TestPublicTopicLockedToSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	creator := env.addUser(t, "creator@example.com", models.GlobalRoleStandardUser)
	super := env.addUser(t, "admin@example.com", models.GlobalRoleSuperAdmin)

	topic := env.addTopic(t, &models.Topic{Title: "Shared reference", IsPublic: true, CreatedBy: &creator.ID})

	// The nominal creator can read but no longer modify.
	rec := env.do(t, creator, http.MethodPut, "/api/topics/"+topic.ID, map[string]interface{}{
		"title": "Renamed",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("creator update status = %d, want 403", rec.Code)
	}

	rec = env.do(t, super, http.MethodPut, "/api/topics/"+topic.ID, map[string]interface{}{
		"title": "Renamed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin update status = %d, want 200", rec.Code)
	}
}

func TestOrgTopicRoles(t *testing.T) {
	env := newTestEnv(t)
	editor := env.addUser(t, "editor@example.com", models.GlobalRoleStandardUser)
	viewer := env.addUser(t, "viewer@example.com", models.GlobalRoleStandardUser)
	outsider := env.addUser(t, "outsider@example.com", models.GlobalRoleStandardUser)

	org := &models.Organization{Name: "Museum", Status: models.OrgStatusApproved}
	if err := env.db.CreateOrganization(org); err != nil {
		t.Fatal(err)
	}
	for _, m := range []*models.OrganizationMembership{
		{OrganizationID: org.ID, UserID: editor.ID, Role: models.RoleOrgEditor},
		{OrganizationID: org.ID, UserID: viewer.ID, Role: models.RoleOrgViewer},
	} {
		if err := env.db.UpsertMembership(m); err != nil {
			t.Fatal(err)
		}
	}

	topic := env.addTopic(t, &models.Topic{Title: "Exhibits", OrganizationID: &org.ID})

	// Members read, outsiders see nothing.
	if rec := env.do(t, viewer, http.MethodGet, "/api/topics/"+topic.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("viewer read = %d, want 200", rec.Code)
	}
	if rec := env.do(t, outsider, http.MethodGet, "/api/topics/"+topic.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("outsider read = %d, want 404", rec.Code)
	}

	// Editors write, viewers do not.
	update := map[string]interface{}{"description": "updated"}
	if rec := env.do(t, editor, http.MethodPut, "/api/topics/"+topic.ID, update); rec.Code != http.StatusOK {
		t.Fatalf("editor update = %d, want 200", rec.Code)
	}
	if rec := env.do(t, viewer, http.MethodPut, "/api/topics/"+topic.ID, update); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer update = %d, want 403", rec.Code)
	}
}

// ---- events ----

func TestEventAccessFollowsTopic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", models.GlobalRoleStandardUser)
	stranger := env.addUser(t, "stranger@example.com", models.GlobalRoleStandardUser)

	topic := env.addTopic(t, &models.Topic{Title: "Private timeline", CreatedBy: &owner.ID})

	rec := env.do(t, owner, http.MethodPost, fmt.Sprintf("/api/topics/%s/events", topic.ID), map[string]interface{}{
		"year":  1969,
		"title": "Moon landing",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("owner create event = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	var event models.Event
	decodeData(t, rec, &event)

	// The event is exactly as hidden as its topic.
	if rec := env.do(t, stranger, http.MethodGet, "/api/events/"+event.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger read event = %d, want 404", rec.Code)
	}
	if rec := env.do(t, owner, http.MethodGet, "/api/events/"+event.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("owner read event = %d, want 200", rec.Code)
	}
}

func TestAnonymousCannotWriteEventsToPublicTopic(t *testing.T) {
	env := newTestEnv(t)
	topic := env.addTopic(t, &models.Topic{Title: "Open history", IsPublic: true})

	rec := env.do(t, nil, http.MethodPost, fmt.Sprintf("/api/topics/%s/events", topic.ID), map[string]interface{}{
		"year":  1900,
		"title": "Something",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRelatedTopicLinkGrantsNoAccess(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", models.GlobalRoleStandardUser)
	super := env.addUser(t, "admin@example.com", models.GlobalRoleSuperAdmin)
	reader := env.addUser(t, "reader@example.com", models.GlobalRoleStandardUser)

	private := env.addTopic(t, &models.Topic{Title: "Private", CreatedBy: &owner.ID})
	public := env.addTopic(t, &models.Topic{Title: "Public", IsPublic: true})

	rec := env.do(t, super, http.MethodPost, fmt.Sprintf("/api/topics/%s/events", public.ID), map[string]interface{}{
		"year":             2000,
		"title":            "Crossover",
		"related_topic_id": private.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create linked event = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	var event models.Event
	decodeData(t, rec, &event)

	// Reading the event is fine; following the link is not.
	if rec := env.do(t, reader, http.MethodGet, "/api/events/"+event.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("read linked event = %d, want 200", rec.Code)
	}
	if rec := env.do(t, reader, http.MethodGet, "/api/topics/"+private.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("read linked private topic = %d, want 404", rec.Code)
	}
}

// ---- organization lifecycle ----

func TestOrganizationApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	creator := env.addUser(t, "founder@example.com", models.GlobalRoleStandardUser)
	super := env.addUser(t, "admin@example.com", models.GlobalRoleSuperAdmin)

	rec := env.do(t, creator, http.MethodPost, "/api/orgs", map[string]interface{}{
		"name": "Historical Society",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create org = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	var org models.Organization
	decodeData(t, rec, &org)
	if org.Status != models.OrgStatusPending {
		t.Fatalf("new org status = %q, want pending", org.Status)
	}

	// While pending, the creator has no membership and cannot create org
	// topics.
	rec = env.do(t, creator, http.MethodPost, "/api/topics", map[string]interface{}{
		"title":           "Archive",
		"organization_id": org.ID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending-org topic create = %d, want 403", rec.Code)
	}

	// Only super admins see the queue.
	if rec := env.do(t, creator, http.MethodGet, "/api/admin/orgs/pending", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("creator list pending = %d, want 403", rec.Code)
	}
	rec = env.do(t, super, http.MethodGet, "/api/admin/orgs/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("super list pending = %d, want 200", rec.Code)
	}
	var queue struct {
		Organizations []models.PendingOrganization `json:"organizations"`
	}
	decodeData(t, rec, &queue)
	if len(queue.Organizations) != 1 || queue.Organizations[0].Creator == nil ||
		queue.Organizations[0].Creator.Email != creator.Email {
		t.Fatalf("queue missing org or creator: %+v", queue.Organizations)
	}

	// Non-admin approval is rejected.
	if rec := env.do(t, creator, http.MethodPost, "/api/admin/orgs/"+org.ID+"/approve", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("creator approve = %d, want 403", rec.Code)
	}

	rec = env.do(t, super, http.MethodPost, "/api/admin/orgs/"+org.ID+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("super approve = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	// Approval grants the creator org_admin: they can now create org topics.
	rec = env.do(t, creator, http.MethodPost, "/api/topics", map[string]interface{}{
		"title":           "Archive",
		"organization_id": org.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("approved-org topic create = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	// Re-approval and late rejection are no-ops.
	if rec := env.do(t, super, http.MethodPost, "/api/admin/orgs/"+org.ID+"/approve", nil); rec.Code != http.StatusOK {
		t.Fatalf("re-approve = %d, want 200", rec.Code)
	}
	if rec := env.do(t, super, http.MethodPost, "/api/admin/orgs/"+org.ID+"/reject", nil); rec.Code != http.StatusOK {
		t.Fatalf("late reject = %d, want 200", rec.Code)
	}
	got, err := env.db.GetOrganization(org.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.OrgStatusApproved {
		t.Fatalf("status after late reject = %q, want approved", got.Status)
	}
}

func TestMembershipManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "orgadmin@example.com", models.GlobalRoleStandardUser)
	member := env.addUser(t, "member@example.com", models.GlobalRoleStandardUser)

	org := &models.Organization{Name: "Guild", Status: models.OrgStatusApproved}
	if err := env.db.CreateOrganization(org); err != nil {
		t.Fatal(err)
	}
	if err := env.db.UpsertMembership(&models.OrganizationMembership{
		OrganizationID: org.ID, UserID: admin.ID, Role: models.RoleOrgAdmin,
	}); err != nil {
		t.Fatal(err)
	}

	// Admin adds a viewer, then upgrades them to editor: same row, new role.
	rec := env.do(t, admin, http.MethodPut, "/api/orgs/"+org.ID+"/members", map[string]interface{}{
		"user_id": member.ID,
		"role":    "org_viewer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add member = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	rec = env.do(t, admin, http.MethodPut, "/api/orgs/"+org.ID+"/members", map[string]interface{}{
		"user_id": member.ID,
		"role":    "org_editor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upgrade member = %d, want 200", rec.Code)
	}

	members, err := env.db.ListOrganizationMembers(org.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}

	// A plain member cannot manage others but may leave.
	rec = env.do(t, member, http.MethodDelete, fmt.Sprintf("/api/orgs/%s/members/%s", org.ID, admin.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member removing admin = %d, want 403", rec.Code)
	}
	rec = env.do(t, member, http.MethodDelete, fmt.Sprintf("/api/orgs/%s/members/%s", org.ID, member.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("self removal = %d, want 200", rec.Code)
	}
}

// ---- admin ----

func TestSetGlobalRole(t *testing.T) {
	env := newTestEnv(t)
	super := env.addUser(t, "admin@example.com", models.GlobalRoleSuperAdmin)
	user := env.addUser(t, "user@example.com", models.GlobalRoleStandardUser)

	// Non-admins cannot grant roles.
	rec := env.do(t, user, http.MethodPut, "/api/admin/users/"+user.ID+"/role", map[string]interface{}{
		"role": "super_admin",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("self promotion = %d, want 403", rec.Code)
	}

	rec = env.do(t, super, http.MethodPut, "/api/admin/users/"+user.ID+"/role", map[string]interface{}{
		"role": "super_admin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("promote = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	// The promotion is effective on the user's very next request.
	promoted, err := env.db.GetUserByID(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	rec = env.do(t, promoted, http.MethodGet, "/api/admin/orgs/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("promoted user list pending = %d, want 200", rec.Code)
	}

	rec = env.do(t, super, http.MethodPut, "/api/admin/users/nonexistent/role", map[string]interface{}{
		"role": "standard_user",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user = %d, want 404", rec.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/topics", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
