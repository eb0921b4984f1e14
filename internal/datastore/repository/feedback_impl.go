package repository

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/status"
)

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a FeedbackRepository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, caseID, testerID uint, result status.Result, comment string) (*WriteResult, error) {
	if caseID == 0 || testerID == 0 || !result.Valid() {
		return nil, ErrInvalidInput
	}

	var out *WriteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCase(tx, caseID); err != nil {
			return err
		}

		fb := entities.Feedback{CaseID: caseID, TesterID: testerID, Result: result, Comment: comment}
		if err := tx.Create(&fb).Error; err != nil {
			return err
		}

		changes := map[string]entities.FieldChange{
			"result":  {New: result},
			"comment": {New: comment},
		}
		if err := appendChangelog(tx, entities.ActionCreated, &fb, testerID, changes); err != nil {
			return err
		}

		var err error
		out, err = finishWrite(tx, entities.ActionCreated, fb)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepository) Update(ctx context.Context, feedbackID, testerID uint, result status.Result, comment string) (*WriteResult, error) {
	if feedbackID == 0 || testerID == 0 || !result.Valid() {
		return nil, ErrInvalidInput
	}

	var out *WriteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fb, err := ownedFeedback(tx, feedbackID, testerID)
		if err != nil {
			return err
		}
		if err := lockCase(tx, fb.CaseID); err != nil {
			return err
		}

		changes := make(map[string]entities.FieldChange, 2)
		if fb.Result != result {
			changes["result"] = entities.FieldChange{Old: fb.Result, New: result}
		}
		if fb.Comment != comment {
			changes["comment"] = entities.FieldChange{Old: fb.Comment, New: comment}
		}

		// Only result and comment change; created_at keeps the entry's place in history.
		if err := tx.Model(fb).Updates(map[string]any{"result": result, "comment": comment}).Error; err != nil {
			return err
		}
		fb.Result = result
		fb.Comment = comment

		if err := appendChangelog(tx, entities.ActionUpdated, fb, testerID, changes); err != nil {
			return err
		}

		out, err = finishWrite(tx, entities.ActionUpdated, *fb)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepository) Delete(ctx context.Context, feedbackID, testerID uint) (*WriteResult, error) {
	if feedbackID == 0 || testerID == 0 {
		return nil, ErrInvalidInput
	}

	var out *WriteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fb, err := ownedFeedback(tx, feedbackID, testerID)
		if err != nil {
			return err
		}
		if err := lockCase(tx, fb.CaseID); err != nil {
			return err
		}

		if err := tx.Delete(&entities.Feedback{}, fb.ID).Error; err != nil {
			return err
		}

		changes := map[string]entities.FieldChange{
			"result":  {Old: fb.Result},
			"comment": {Old: fb.Comment},
		}
		if err := appendChangelog(tx, entities.ActionDeleted, fb, testerID, changes); err != nil {
			return err
		}

		out, err = finishWrite(tx, entities.ActionDeleted, *fb)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepository) Get(ctx context.Context, feedbackID uint) (*entities.Feedback, error) {
	var fb entities.Feedback
	err := r.db.WithContext(ctx).First(&fb, feedbackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) ListByCase(ctx context.Context, caseID uint, page Page) ([]entities.Feedback, PageMeta, error) {
	page = page.normalize()
	query := r.db.WithContext(ctx).Model(&entities.Feedback{}).Where("case_id = ?", caseID)
	// Session lets the same conditions back both the count and the page query.
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PageMeta{}, err
	}

	items := make([]entities.Feedback, 0, page.Limit)
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

func (r *feedbackRepository) LatestForTester(ctx context.Context, caseID, testerID uint) (*entities.Feedback, error) {
	var fb entities.Feedback
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND tester_id = ?", caseID, testerID).
		Order("created_at DESC, id DESC").
		First(&fb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) ListForCases(ctx context.Context, caseIDs []uint) ([]entities.Feedback, error) {
	if len(caseIDs) == 0 {
		return nil, nil
	}
	var items []entities.Feedback
	err := r.db.WithContext(ctx).
		Where("case_id IN ?", caseIDs).
		Order("case_id ASC, created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *feedbackRepository) RecomputeStatus(ctx context.Context, caseID uint) (status.Status, error) {
	var s status.Status
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCase(tx, caseID); err != nil {
			return err
		}
		var err error
		s, err = recomputeCaseStatus(tx, caseID)
		return err
	})
	return s, err
}

// lockCase takes a row lock on the case so concurrent writes recompute in order.
// SQLite ignores the locking clause; its writer lock already serializes transactions.
func lockCase(tx *gorm.DB, caseID uint) error {
	var tc entities.TestCase
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		First(&tc, caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCaseNotFound
	}
	return err
}

func ownedFeedback(tx *gorm.DB, feedbackID, testerID uint) (*entities.Feedback, error) {
	var fb entities.Feedback
	err := tx.First(&fb, feedbackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}
	if fb.TesterID != testerID {
		return nil, ErrNotFeedbackOwner
	}
	return &fb, nil
}

func recomputeCaseStatus(tx *gorm.DB, caseID uint) (status.Status, error) {
	var rows []entities.Feedback
	err := tx.Select("id", "tester_id", "result", "created_at").
		Where("case_id = ?", caseID).
		Find(&rows).Error
	if err != nil {
		return "", err
	}

	history := make([]status.Entry, len(rows))
	for i := range rows {
		history[i] = rows[i].Entry()
	}
	derived := status.Derive(history)

	err = tx.Model(&entities.TestCase{}).
		Where("id = ?", caseID).
		Update("status", derived).Error
	if err != nil {
		return "", err
	}
	return derived, nil
}

func finishWrite(tx *gorm.DB, action string, fb entities.Feedback) (*WriteResult, error) {
	derived, err := recomputeCaseStatus(tx, fb.CaseID)
	if err != nil {
		return nil, err
	}
	sessionID, err := sessionIDForCase(tx, fb.CaseID)
	if err != nil {
		return nil, err
	}
	return &WriteResult{Action: action, Feedback: fb, SessionID: sessionID, CaseStatus: derived}, nil
}

func appendChangelog(tx *gorm.DB, action string, fb *entities.Feedback, testerID uint, changes map[string]entities.FieldChange) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	return tx.Create(&entities.ChangelogEntry{
		EntityType: entities.EntityFeedback,
		EntityID:   fb.ID,
		TesterID:   testerID,
		Action:     action,
		Changes:    datatypes.JSON(raw),
	}).Error
}
