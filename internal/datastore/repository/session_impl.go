package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/errors"
)

const childOrder = "sort_order ASC, created_at ASC, id ASC"

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func orderedChildren(db *gorm.DB) *gorm.DB {
	return db.Order(childOrder)
}

func (r *sessionRepository) GetSessionTree(ctx context.Context, sessionID uint) (*entities.Session, error) {
	var session entities.Session
	err := r.db.WithContext(ctx).
		Preload("Features", orderedChildren).
		Preload("Features.Cases", orderedChildren).
		Preload("Assignees").
		First(&session, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) GetCase(ctx context.Context, caseID uint) (*entities.TestCase, error) {
	var tc entities.TestCase
	err := r.db.WithContext(ctx).First(&tc, caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

func (r *sessionRepository) SessionForCase(ctx context.Context, caseID uint) (uint, error) {
	return sessionIDForCase(r.db.WithContext(ctx), caseID)
}

func sessionIDForCase(db *gorm.DB, caseID uint) (uint, error) {
	var ids []uint
	err := db.Model(&entities.TestCase{}).
		Joins("JOIN features ON features.id = test_cases.feature_id").
		Where("test_cases.id = ?", caseID).
		Pluck("features.session_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrCaseNotFound
	}
	return ids[0], nil
}

func (r *sessionRepository) ListSessions(ctx context.Context, organizationID uint) ([]entities.Session, error) {
	var sessions []entities.Session
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) EnsureOrganization(ctx context.Context, name string) (*entities.Organization, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	org := entities.Organization{Name: name}
	if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *entities.Session) error {
	if session == nil || session.OrganizationID == 0 || session.Title == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) AssignTester(ctx context.Context, sessionID, testerID uint) error {
	if sessionID == 0 || testerID == 0 {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.SessionAssignee{SessionID: sessionID, TesterID: testerID}).Error
}
