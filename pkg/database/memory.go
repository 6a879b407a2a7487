package database

import (
	"sort"
	"sync"
	"time"

	"timeline-hub-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase is a mutex-guarded in-memory implementation. It backs local
// development and the test suites; a single lock makes every mutation atomic,
// including the approve transition's status change plus membership upsert.
type MemoryDatabase struct {
	mu sync.RWMutex

	users         map[string]models.User
	organizations map[string]models.Organization
	memberships   map[string]models.OrganizationMembership // orgID + "/" + userID
	topics        map[string]models.Topic
	events        map[string]models.Event
}

// NewMemoryDatabase creates an empty in-memory database.
func NewMemoryDatabase() DatabaseInterface {
	return &MemoryDatabase{
		users:         make(map[string]models.User),
		organizations: make(map[string]models.Organization),
		memberships:   make(map[string]models.OrganizationMembership),
		topics:        make(map[string]models.Topic),
		events:        make(map[string]models.Event),
	}
}

func memberKey(orgID, userID string) string {
	return orgID + "/" + userID
}

// ==== users ====

func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.GlobalRoleStandardUser
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, user := range db.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDatabase) UpdateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) DeleteUser(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return ErrNotFound
	}
	delete(db.users, id)
	// Organizations keep a null creator once the account is gone.
	for orgID, org := range db.organizations {
		if org.CreatedBy != nil && *org.CreatedBy == id {
			org.CreatedBy = nil
			db.organizations[orgID] = org
		}
	}
	for key, m := range db.memberships {
		if m.UserID == id {
			delete(db.memberships, key)
		}
	}
	return nil
}

func (db *MemoryDatabase) SetUserGlobalRole(id string, role models.GlobalRole) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	db.users[id] = user
	return nil
}

// ==== organizations ====

func (db *MemoryDatabase) CreateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.Status == "" {
		org.Status = models.OrgStatusPending
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	db.organizations[org.ID] = *org
	return nil
}

func (db *MemoryDatabase) GetOrganization(id string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	org, ok := db.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (db *MemoryDatabase) UpdateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.organizations[org.ID]; !ok {
		return ErrNotFound
	}
	org.UpdatedAt = time.Now()
	db.organizations[org.ID] = *org
	return nil
}

func (db *MemoryDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var orgs []models.Organization
	for _, m := range db.memberships {
		if m.UserID != userID {
			continue
		}
		if org, ok := db.organizations[m.OrganizationID]; ok {
			orgs = append(orgs, org)
		}
	}
	// Organizations the user created but that are still pending show up on
	// their dashboard as well.
	for _, org := range db.organizations {
		if org.Status == models.OrgStatusPending && org.CreatedBy != nil && *org.CreatedBy == userID {
			orgs = append(orgs, org)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

func (db *MemoryDatabase) ListPendingOrganizations() ([]models.PendingOrganization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var pending []models.PendingOrganization
	for _, org := range db.organizations {
		if org.Status != models.OrgStatusPending {
			continue
		}
		p := models.PendingOrganization{Organization: org}
		if org.CreatedBy != nil {
			if creator, ok := db.users[*org.CreatedBy]; ok {
				c := creator
				p.Creator = &c
			}
		}
		pending = append(pending, p)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (db *MemoryDatabase) ApproveOrganization(orgID string, creatorID *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	org, ok := db.organizations[orgID]
	if !ok {
		return ErrNotFound
	}
	org.Status = models.OrgStatusApproved
	org.UpdatedAt = time.Now()
	db.organizations[orgID] = org

	if creatorID != nil {
		key := memberKey(orgID, *creatorID)
		if m, ok := db.memberships[key]; ok {
			m.Role = models.RoleOrgAdmin
			m.UpdatedAt = time.Now()
			db.memberships[key] = m
		} else {
			now := time.Now()
			db.memberships[key] = models.OrganizationMembership{
				ID:             uuid.New().String(),
				OrganizationID: orgID,
				UserID:         *creatorID,
				Role:           models.RoleOrgAdmin,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
		}
	}
	return nil
}

func (db *MemoryDatabase) RejectOrganization(orgID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	org, ok := db.organizations[orgID]
	if !ok {
		return ErrNotFound
	}
	org.Status = models.OrgStatusRejected
	org.UpdatedAt = time.Now()
	db.organizations[orgID] = org
	return nil
}

// ==== memberships ====

func (db *MemoryDatabase) UpsertMembership(m *models.OrganizationMembership) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := memberKey(m.OrganizationID, m.UserID)
	now := time.Now()
	if existing, ok := db.memberships[key]; ok {
		existing.Role = m.Role
		existing.UpdatedAt = now
		db.memberships[key] = existing
		*m = existing
		return nil
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	db.memberships[key] = *m
	return nil
}

func (db *MemoryDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.memberships[memberKey(orgID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (db *MemoryDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var members []models.OrganizationMembership
	for _, m := range db.memberships {
		if m.OrganizationID == orgID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (db *MemoryDatabase) DeleteMembership(orgID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := memberKey(orgID, userID)
	if _, ok := db.memberships[key]; !ok {
		return ErrNotFound
	}
	delete(db.memberships, key)
	return nil
}

// ==== topics ====

func (db *MemoryDatabase) CreateTopic(topic *models.Topic) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	topic.CreatedAt = time.Now()
	topic.UpdatedAt = topic.CreatedAt
	db.topics[topic.ID] = *topic
	return nil
}

func (db *MemoryDatabase) GetTopic(id string) (*models.Topic, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	topic, ok := db.topics[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &topic, nil
}

func (db *MemoryDatabase) UpdateTopic(topic *models.Topic) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.topics[topic.ID]; !ok {
		return ErrNotFound
	}
	topic.UpdatedAt = time.Now()
	db.topics[topic.ID] = *topic
	return nil
}

func (db *MemoryDatabase) DeleteTopic(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.topics[id]; !ok {
		return ErrNotFound
	}
	delete(db.topics, id)
	// Cascade: events cannot outlive their topic.
	for eventID, event := range db.events {
		if event.TopicID == id {
			delete(db.events, eventID)
		}
	}
	// Dangling related_topic_id links are cleared, not followed.
	for eventID, event := range db.events {
		if event.RelatedTopicID != nil && *event.RelatedTopicID == id {
			event.RelatedTopicID = nil
			db.events[eventID] = event
		}
	}
	return nil
}

func (db *MemoryDatabase) ListTopics() ([]models.Topic, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	topics := make([]models.Topic, 0, len(db.topics))
	for _, topic := range db.topics {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Title < topics[j].Title })
	return topics, nil
}

// ==== events ====

func (db *MemoryDatabase) CreateEvent(event *models.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.topics[event.TopicID]; !ok {
		return ErrNotFound
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	db.events[event.ID] = *event
	return nil
}

func (db *MemoryDatabase) GetEvent(id string) (*models.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	event, ok := db.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &event, nil
}

func (db *MemoryDatabase) UpdateEvent(event *models.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.events[event.ID]; !ok {
		return ErrNotFound
	}
	event.UpdatedAt = time.Now()
	db.events[event.ID] = *event
	return nil
}

func (db *MemoryDatabase) DeleteEvent(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.events[id]; !ok {
		return ErrNotFound
	}
	delete(db.events, id)
	return nil
}

func (db *MemoryDatabase) ListEventsByTopic(topicID string) ([]models.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var events []models.Event
	for _, event := range db.events {
		if event.TopicID == topicID {
			events = append(events, event)
		}
	}
	// Years are not unique; ties break on creation time for a stable order.
	sort.Slice(events, func(i, j int) bool {
		if events[i].Year != events[j].Year {
			return events[i].Year < events[j].Year
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// ==== misc ====

func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

func (db *MemoryDatabase) Close() error {
	return nil
}
