package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
)

// ChangelogRepository reads the audit trail written alongside feedback changes.
type ChangelogRepository interface {
	// List returns entries newest first. An empty entityType lists everything;
	// a zero entityID lists every entity of that type.
	List(ctx context.Context, entityType string, entityID uint, page Page) ([]entities.ChangelogEntry, PageMeta, error)
}

type changelogRepository struct {
	db *gorm.DB
}

// NewChangelogRepository creates a ChangelogRepository.
func NewChangelogRepository(db *gorm.DB) ChangelogRepository {
	return &changelogRepository{db: db}
}

func (r *changelogRepository) List(ctx context.Context, entityType string, entityID uint, page Page) ([]entities.ChangelogEntry, PageMeta, error) {
	page = page.normalize()
	query := r.db.WithContext(ctx).Model(&entities.ChangelogEntry{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
		if entityID != 0 {
			query = query.Where("entity_id = ?", entityID)
		}
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PageMeta{}, err
	}

	items := make([]entities.ChangelogEntry, 0, page.Limit)
	err := query.
		Order("created_at DESC, id DESC").
		Offset(page.offset()).
		Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, PageMeta{}, err
	}
	return items, newPageMeta(page, total), nil
}
