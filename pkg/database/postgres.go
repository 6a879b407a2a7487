package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"timeline-hub-backend/pkg/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresDatabase implements DatabaseInterface on PostgreSQL via lib/pq.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a PostgreSQL connection with pool limits sized
// for serverless deployments (few, short-lived connections).
func NewPostgresDatabase(dsn string) DatabaseInterface {
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to open PostgreSQL connection: %v", err))
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		panic(fmt.Sprintf("Failed to ping PostgreSQL: %v", err))
	}

	return &PostgresDatabase{db: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ==== users ====

func (db *PostgresDatabase) CreateUser(user *models.User) error {
	// The ID may come from the identity provider's subject; generate one only
	// when the caller left it empty.
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.GlobalRoleStandardUser
	}
	query := `
		INSERT INTO users (id, email, name, avatar, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, user.ID, user.Email, user.Name, user.Avatar, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(name,''), COALESCE(avatar,''), role, created_at, updated_at
		FROM users WHERE id = $1
	`
	user := &models.User{}
	err := db.db.QueryRow(query, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.Avatar, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return user, nil
}

func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(name,''), COALESCE(avatar,''), role, created_at, updated_at
		FROM users WHERE email = $1
	`
	user := &models.User{}
	err := db.db.QueryRow(query, email).
		Scan(&user.ID, &user.Email, &user.Name, &user.Avatar, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return user, nil
}

func (db *PostgresDatabase) UpdateUser(user *models.User) error {
	query := `
		UPDATE users SET email = $2, name = $3, avatar = $4, role = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, user.ID, user.Email, user.Name, user.Avatar, user.Role).
		Scan(&user.UpdatedAt)
	if err != nil {
		return wrapNotFound(err)
	}
	return nil
}

func (db *PostgresDatabase) DeleteUser(id string) error {
	// organizations.created_by and memberships are handled by the schema
	// (ON DELETE SET NULL / ON DELETE CASCADE respectively).
	result, err := db.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

func (db *PostgresDatabase) SetUserGlobalRole(id string, role models.GlobalRole) error {
	result, err := db.db.Exec(`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to set global role: %w", err)
	}
	return requireRowAffected(result)
}

// ==== organizations ====

func (db *PostgresDatabase) CreateOrganization(org *models.Organization) error {
	if org.Status == "" {
		org.Status = models.OrgStatusPending
	}
	query := `
		INSERT INTO organizations (name, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, org.Name, org.Description, org.Status, org.CreatedBy).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetOrganization(id string) (*models.Organization, error) {
	query := `
		SELECT id, name, COALESCE(description,''), status, created_by, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	org := &models.Organization{}
	err := db.db.QueryRow(query, id).
		Scan(&org.ID, &org.Name, &org.Description, &org.Status, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return org, nil
}

func (db *PostgresDatabase) UpdateOrganization(org *models.Organization) error {
	query := `
		UPDATE organizations SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, org.ID, org.Name, org.Description).Scan(&org.UpdatedAt)
	if err != nil {
		return wrapNotFound(err)
	}
	return nil
}

func (db *PostgresDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	// Member organizations plus the user's own still-pending applications.
	query := `
		SELECT DISTINCT o.id, o.name, COALESCE(o.description,''), o.status, o.created_by, o.created_at, o.updated_at
		FROM organizations o
		LEFT JOIN organization_memberships m ON m.organization_id = o.id AND m.user_id = $1
		WHERE m.user_id IS NOT NULL
		   OR (o.status = 'pending' AND o.created_by = $1)
		ORDER BY o.name
	`
	rows, err := db.db.Query(query, userID)
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

func (db *PostgresDatabase) ListPendingOrganizations() ([]models.PendingOrganization, error) {
	query := `
		SELECT o.id, o.name, COALESCE(o.description,''), o.status, o.created_by, o.created_at, o.updated_at,
		       u.id, u.email, COALESCE(u.name,''), u.role
		FROM organizations o
		LEFT JOIN users u ON u.id = o.created_by
		WHERE o.status = 'pending'
		ORDER BY o.created_at DESC
	`
	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending organizations: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingOrganization
	for rows.Next() {
		var p models.PendingOrganization
		var creatorID, creatorEmail, creatorName sql.NullString
		var creatorRole sql.NullString
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

func (db *PostgresDatabase) ApproveOrganization(orgID string, creatorID *string) error {
	// Status change and creator membership upsert are one unit: a
	// half-approved organization must never be observable.
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin approve transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE organizations SET status = 'approved', updated_at = NOW() WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to approve organization: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	if creatorID != nil {
		upsert := `
			INSERT INTO organization_memberships (organization_id, user_id, role, created_at, updated_at)
			VALUES ($1, $2, 'org_admin', NOW(), NOW())
			ON CONFLICT (organization_id, user_id)
			DO UPDATE SET role = 'org_admin', updated_at = NOW()
		`
		if _, err := tx.Exec(upsert, orgID, *creatorID); err != nil {
			return fmt.Errorf("failed to upsert creator membership: %w", err)
		}
	}

	return tx.Commit()
}

func (db *PostgresDatabase) RejectOrganization(orgID string) error {
	result, err := db.db.Exec(`UPDATE organizations SET status = 'rejected', updated_at = NOW() WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to reject organization: %w", err)
	}
	return requireRowAffected(result)
}

// ==== memberships ====

func (db *PostgresDatabase) UpsertMembership(m *models.OrganizationMembership) error {
	query := `
		INSERT INTO organization_memberships (organization_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (organization_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, m.OrganizationID, m.UserID, m.Role).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM organization_memberships
		WHERE organization_id = $1 AND user_id = $2
	`
	m := &models.OrganizationMembership{}
	err := db.db.QueryRow(query, orgID, userID).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return m, nil
}

func (db *PostgresDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM organization_memberships
		WHERE organization_id = $1
		ORDER BY created_at
	`
	rows, err := db.db.Query(query, orgID)
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

func (db *PostgresDatabase) DeleteMembership(orgID, userID string) error {
	result, err := db.db.Exec(
		`DELETE FROM organization_memberships WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return requireRowAffected(result)
}

// ==== topics ====

func (db *PostgresDatabase) CreateTopic(topic *models.Topic) error {
	query := `
		INSERT INTO topics (title, description, is_public, organization_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, topic.Title, topic.Description, topic.IsPublic, topic.OrganizationID, topic.CreatedBy).
		Scan(&topic.ID, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetTopic(id string) (*models.Topic, error) {
	query := `
		SELECT id, title, COALESCE(description,''), is_public, organization_id, created_by, created_at, updated_at
		FROM topics WHERE id = $1
	`
	topic := &models.Topic{}
	err := db.db.QueryRow(query, id).
		Scan(&topic.ID, &topic.Title, &topic.Description, &topic.IsPublic,
			&topic.OrganizationID, &topic.CreatedBy, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return topic, nil
}

func (db *PostgresDatabase) UpdateTopic(topic *models.Topic) error {
	query := `
		UPDATE topics
		SET title = $2, description = $3, is_public = $4, organization_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, topic.ID, topic.Title, topic.Description, topic.IsPublic, topic.OrganizationID).
		Scan(&topic.UpdatedAt)
	if err != nil {
		return wrapNotFound(err)
	}
	return nil
}

func (db *PostgresDatabase) DeleteTopic(id string) error {
	// events.topic_id cascades; events.related_topic_id is set null by the
	// schema.
	result, err := db.db.Exec(`DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return requireRowAffected(result)
}

func (db *PostgresDatabase) ListTopics() ([]models.Topic, error) {
	query := `
		SELECT id, title, COALESCE(description,''), is_public, organization_id, created_by, created_at, updated_at
		FROM topics ORDER BY title
	`
	rows, err := db.db.Query(query)
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

func (db *PostgresDatabase) CreateEvent(event *models.Event) error {
	query := `
		INSERT INTO events (topic_id, year, title, body, related_topic_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, event.TopicID, event.Year, event.Title, event.Body, event.RelatedTopicID).
		Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetEvent(id string) (*models.Event, error) {
	query := `
		SELECT id, topic_id, year, title, COALESCE(body,''), related_topic_id, created_at, updated_at
		FROM events WHERE id = $1
	`
	event := &models.Event{}
	err := db.db.QueryRow(query, id).
		Scan(&event.ID, &event.TopicID, &event.Year, &event.Title, &event.Body,
			&event.RelatedTopicID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return event, nil
}

func (db *PostgresDatabase) UpdateEvent(event *models.Event) error {
	query := `
		UPDATE events
		SET year = $2, title = $3, body = $4, related_topic_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, event.ID, event.Year, event.Title, event.Body, event.RelatedTopicID).
		Scan(&event.UpdatedAt)
	if err != nil {
		return wrapNotFound(err)
	}
	return nil
}

func (db *PostgresDatabase) DeleteEvent(id string) error {
	result, err := db.db.Exec(`DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRowAffected(result)
}

func (db *PostgresDatabase) ListEventsByTopic(topicID string) ([]models.Event, error) {
	query := `
		SELECT id, topic_id, year, title, COALESCE(body,''), related_topic_id, created_at, updated_at
		FROM events
		WHERE topic_id = $1
		ORDER BY year, created_at
	`
	rows, err := db.db.Query(query, topicID)
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

func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
