package database

import (
	"errors"
	"fmt"

	"timeline-hub-backend/pkg/models"
)

// ErrNotFound is returned for lookups of records that do not exist. Handlers
// generally present it the same way as a permission denial so that probing
// cannot reveal private resources.
var ErrNotFound = errors.New("record not found")

// DatabaseInterface is the storage contract shared by all backends.
//
// Reads used by policy evaluation (GetMembership, GetOrganization) are raw
// row lookups: they must not filter through any permission logic themselves.
// Policy filtering of listings happens in Go, in pkg/policy, never in SQL.
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id string) error
	SetUserGlobalRole(id string, role models.GlobalRole) error

	// Organizations
	CreateOrganization(org *models.Organization) error
	GetOrganization(id string) (*models.Organization, error)
	UpdateOrganization(org *models.Organization) error
	ListUserOrganizations(userID string) ([]models.Organization, error)
	// ListPendingOrganizations returns pending organizations newest-first
	// with creator identity attached.
	ListPendingOrganizations() ([]models.PendingOrganization, error)
	// ApproveOrganization sets the status to approved and upserts the
	// creator's membership to org_admin in one transaction. A nil creator
	// (deleted account) updates the status only.
	ApproveOrganization(orgID string, creatorID *string) error
	RejectOrganization(orgID string) error

	// Memberships
	UpsertMembership(m *models.OrganizationMembership) error
	GetMembership(orgID, userID string) (*models.OrganizationMembership, error)
	ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error)
	DeleteMembership(orgID, userID string) error

	// Topics
	CreateTopic(topic *models.Topic) error
	GetTopic(id string) (*models.Topic, error)
	UpdateTopic(topic *models.Topic) error
	DeleteTopic(id string) error
	ListTopics() ([]models.Topic, error)

	// Events
	CreateEvent(event *models.Event) error
	GetEvent(id string) (*models.Event, error)
	UpdateEvent(event *models.Event) error
	DeleteEvent(id string) error
	// ListEventsByTopic returns the topic's events ordered by year ascending.
	ListEventsByTopic(topicID string) ([]models.Event, error)

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures a backend.
type DatabaseConfig struct {
	Driver      string // "postgres", "sqlite" or "memory"
	PostgresDSN string
	SQLitePath  string
	Debug       bool
}

// NewDatabase picks a backend from the configuration. Invalid configuration
// fails fast: a content service silently falling back to an empty store would
// look like mass data loss.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	switch config.Driver {
	case "postgres":
		if config.PostgresDSN == "" {
			panic("DATABASE_DRIVER=postgres requires POSTGRES_DSN")
		}
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	case "sqlite":
		if config.SQLitePath == "" {
			panic("DATABASE_DRIVER=sqlite requires SQLITE_PATH")
		}
		fmt.Printf("🗄️  Using SQLite database at %s\n", config.SQLitePath)
		return NewSQLiteDatabase(config.SQLitePath)
	case "memory", "":
		fmt.Printf("🧰  Using in-memory database (data is not persisted)\n")
		return NewMemoryDatabase()
	}
	panic(fmt.Sprintf("unknown DATABASE_DRIVER %q (want postgres, sqlite or memory)", config.Driver))
}
