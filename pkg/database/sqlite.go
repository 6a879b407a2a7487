package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"timeline-hub-backend/pkg/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDatabase implements DatabaseInterface on an embedded SQLite file via
// the pure-Go modernc.org/sqlite driver, for single-instance deployments that
// do not warrant an external PostgreSQL.
type SQLiteDatabase struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'standard_user',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS organizations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS organization_memberships (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (organization_id, user_id)
);

CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_public INTEGER NOT NULL DEFAULT 0,
	organization_id TEXT REFERENCES organizations(id) ON DELETE CASCADE,
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	topic_id TEXT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	related_topic_id TEXT REFERENCES topics(id) ON DELETE SET NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_topic_year ON events(topic_id, year);
CREATE INDEX IF NOT EXISTS idx_topics_org ON topics(organization_id);
`

// NewSQLiteDatabase opens (creating if needed) the database file and ensures
// the schema exists.
func NewSQLiteDatabase(path string) DatabaseInterface {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(fmt.Sprintf("Failed to create SQLite directory %s: %v", dir, err))
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to open SQLite database: %v", err))
	}
	// The driver is single-writer; more connections just queue on the lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		panic(fmt.Sprintf("Failed to apply SQLite schema: %v", err))
	}

	return &SQLiteDatabase{db: db}
}

// ==== users ====

func (db *SQLiteDatabase) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.GlobalRoleStandardUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := db.db.Exec(
		`INSERT INTO users (id, email, name, avatar, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.Avatar, user.Role, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *SQLiteDatabase) GetUserByID(id string) (*models.User, error) {
	return db.scanUser(db.db.QueryRow(
		`SELECT id, email, name, avatar, role, created_at, updated_at FROM users WHERE id = ?`, id))
}

func (db *SQLiteDatabase) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.db.QueryRow(
		`SELECT id, email, name, avatar, role, created_at, updated_at FROM users WHERE email = ?`, email))
}

func (db *SQLiteDatabase) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Avatar, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return user, nil
}

func (db *SQLiteDatabase) UpdateUser(user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := db.db.Exec(
		`UPDATE users SET email = ?, name = ?, avatar = ?, role = ?, updated_at = ? WHERE id = ?`,
		user.Email, user.Name, user.Avatar, user.Role, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) DeleteUser(id string) error {
	result, err := db.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) SetUserGlobalRole(id string, role models.GlobalRole) error {
	result, err := db.db.Exec(
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set global role: %w", err)
	}
	return requireRowAffected(result)
}

// ==== organizations ====

func (db *SQLiteDatabase) CreateOrganization(org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.Status == "" {
		org.Status = models.OrgStatusPending
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	_, err := db.db.Exec(
		`INSERT INTO organizations (id, name, description, status, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Description, org.Status, org.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (db *SQLiteDatabase) GetOrganization(id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := db.db.QueryRow(
		`SELECT id, name, description, status, created_by, created_at, updated_at FROM organizations WHERE id = ?`, id).
		Scan(&org.ID, &org.Name, &org.Description, &org.Status, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return org, nil
}

func (db *SQLiteDatabase) UpdateOrganization(org *models.Organization) error {
	org.UpdatedAt = time.Now().UTC()
	result, err := db.db.Exec(
		`UPDATE organizations SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		org.Name, org.Description, org.UpdatedAt, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	rows, err := db.db.Query(`
		SELECT DISTINCT o.id, o.name, o.description, o.status, o.created_by, o.created_at, o.updated_at
		FROM organizations o
		LEFT JOIN organization_memberships m ON m.organization_id = o.id AND m.user_id = ?
		WHERE m.user_id IS NOT NULL
		   OR (o.status = 'pending' AND o.created_by = ?)
		ORDER BY o.name`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.Status, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (db *SQLiteDatabase) ListPendingOrganizations() ([]models.PendingOrganization, error) {
	rows, err := db.db.Query(`
		SELECT o.id, o.name, o.description, o.status, o.created_by, o.created_at, o.updated_at,
		       u.id, u.email, u.name, u.role
		FROM organizations o
		LEFT JOIN users u ON u.id = o.created_by
		WHERE o.status = 'pending'
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending organizations: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingOrganization
	for rows.Next() {
		var p models.PendingOrganization
		var creatorID, creatorEmail, creatorName, creatorRole sql.NullString
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
			&creatorID, &creatorEmail, &creatorName, &creatorRole)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending organization: %w", err)
		}
		if creatorID.Valid {
			p.Creator = &models.User{
				ID:    creatorID.String,
				Email: creatorEmail.String,
				Name:  creatorName.String,
				Role:  models.GlobalRole(creatorRole.String),
			}
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (db *SQLiteDatabase) ApproveOrganization(orgID string, creatorID *string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin approve transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(
		`UPDATE organizations SET status = 'approved', updated_at = ? WHERE id = ?`, now, orgID)
	if err != nil {
		return fmt.Errorf("failed to approve organization: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	if creatorID != nil {
		_, err = tx.Exec(`
			INSERT INTO organization_memberships (id, organization_id, user_id, role, created_at, updated_at)
			VALUES (?, ?, ?, 'org_admin', ?, ?)
			ON CONFLICT (organization_id, user_id)
			DO UPDATE SET role = 'org_admin', updated_at = excluded.updated_at`,
			uuid.New().String(), orgID, *creatorID, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert creator membership: %w", err)
		}
	}

	return tx.Commit()
}

func (db *SQLiteDatabase) RejectOrganization(orgID string) error {
	result, err := db.db.Exec(
		`UPDATE organizations SET status = 'rejected', updated_at = ? WHERE id = ?`, time.Now().UTC(), orgID)
	if err != nil {
		return fmt.Errorf("failed to reject organization: %w", err)
	}
	return requireRowAffected(result)
}

// ==== memberships ====

func (db *SQLiteDatabase) UpsertMembership(m *models.OrganizationMembership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := db.db.Exec(`
		INSERT INTO organization_memberships (id, organization_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, user_id)
		DO UPDATE SET role = excluded.role, updated_at = excluded.updated_at`,
		m.ID, m.OrganizationID, m.UserID, m.Role, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

func (db *SQLiteDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	m := &models.OrganizationMembership{}
	err := db.db.QueryRow(`
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM organization_memberships WHERE organization_id = ? AND user_id = ?`, orgID, userID).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return m, nil
}

func (db *SQLiteDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	rows, err := db.db.Query(`
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM organization_memberships WHERE organization_id = ? ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.OrganizationMembership
	for rows.Next() {
		var m models.OrganizationMembership
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (db *SQLiteDatabase) DeleteMembership(orgID, userID string) error {
	result, err := db.db.Exec(
		`DELETE FROM organization_memberships WHERE organization_id = ? AND user_id = ?`, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return requireRowAffected(result)
}

// ==== topics ====

func (db *SQLiteDatabase) CreateTopic(topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	topic.CreatedAt = now
	topic.UpdatedAt = now
	_, err := db.db.Exec(`
		INSERT INTO topics (id, title, description, is_public, organization_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		topic.ID, topic.Title, topic.Description, topic.IsPublic, topic.OrganizationID, topic.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

func (db *SQLiteDatabase) GetTopic(id string) (*models.Topic, error) {
	topic := &models.Topic{}
	err := db.db.QueryRow(`
		SELECT id, title, description, is_public, organization_id, created_by, created_at, updated_at
		FROM topics WHERE id = ?`, id).
		Scan(&topic.ID, &topic.Title, &topic.Description, &topic.IsPublic,
			&topic.OrganizationID, &topic.CreatedBy, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return topic, nil
}

func (db *SQLiteDatabase) UpdateTopic(topic *models.Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	result, err := db.db.Exec(`
		UPDATE topics SET title = ?, description = ?, is_public = ?, organization_id = ?, updated_at = ?
		WHERE id = ?`,
		topic.Title, topic.Description, topic.IsPublic, topic.OrganizationID, topic.UpdatedAt, topic.ID)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) DeleteTopic(id string) error {
	result, err := db.db.Exec(`DELETE FROM topics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) ListTopics() ([]models.Topic, error) {
	rows, err := db.db.Query(`
		SELECT id, title, description, is_public, organization_id, created_by, created_at, updated_at
		FROM topics ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var topic models.Topic
		err := rows.Scan(&topic.ID, &topic.Title, &topic.Description, &topic.IsPublic,
			&topic.OrganizationID, &topic.CreatedBy, &topic.CreatedAt, &topic.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// ==== events ====

func (db *SQLiteDatabase) CreateEvent(event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	_, err := db.db.Exec(`
		INSERT INTO events (id, topic_id, year, title, body, related_topic_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TopicID, event.Year, event.Title, event.Body, event.RelatedTopicID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (db *SQLiteDatabase) GetEvent(id string) (*models.Event, error) {
	event := &models.Event{}
	err := db.db.QueryRow(`
		SELECT id, topic_id, year, title, body, related_topic_id, created_at, updated_at
		FROM events WHERE id = ?`, id).
		Scan(&event.ID, &event.TopicID, &event.Year, &event.Title, &event.Body,
			&event.RelatedTopicID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return event, nil
}

func (db *SQLiteDatabase) UpdateEvent(event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	result, err := db.db.Exec(`
		UPDATE events SET year = ?, title = ?, body = ?, related_topic_id = ?, updated_at = ?
		WHERE id = ?`,
		event.Year, event.Title, event.Body, event.RelatedTopicID, event.UpdatedAt, event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) DeleteEvent(id string) error {
	result, err := db.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRowAffected(result)
}

func (db *SQLiteDatabase) ListEventsByTopic(topicID string) ([]models.Event, error) {
	rows, err := db.db.Query(`
		SELECT id, topic_id, year, title, body, related_topic_id, created_at, updated_at
		FROM events WHERE topic_id = ? ORDER BY year, created_at`, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(&event.ID, &event.TopicID, &event.Year, &event.Title, &event.Body,
			&event.RelatedTopicID, &event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ==== misc ====

func (db *SQLiteDatabase) HealthCheck() error {
	return db.db.Ping()
}

func (db *SQLiteDatabase) Close() error {
	return db.db.Close()
}
