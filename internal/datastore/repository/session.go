package repository

import (
	"context"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
)

// SessionRepository reads session trees and seeds the hierarchy.
type SessionRepository interface {
	// GetSessionTree loads a session with its features and cases, both ordered by
	// sort order, creation time and ID.
	GetSessionTree(ctx context.Context, sessionID uint) (*entities.Session, error)
	// GetCase loads a single case.
	GetCase(ctx context.Context, caseID uint) (*entities.TestCase, error)
	// SessionForCase returns the ID of the session a case belongs to.
	SessionForCase(ctx context.Context, caseID uint) (uint, error)
	// ListSessions lists sessions of an organization, newest first.
	ListSessions(ctx context.Context, organizationID uint) ([]entities.Session, error)

	// EnsureOrganization returns the organization with the given name, creating it if needed.
	EnsureOrganization(ctx context.Context, name string) (*entities.Organization, error)
	// CreateSession inserts a session together with nested features and cases.
	CreateSession(ctx context.Context, session *entities.Session) error
	// AssignTester records a tester as assignee of a session. Repeated calls are no-ops.
	AssignTester(ctx context.Context, sessionID, testerID uint) error
}
