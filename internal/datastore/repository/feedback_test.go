package repository_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/datastore/testutil"
	"github.com/quicktest-hq/quicktest/internal/status"
)

const (
	alice uint = 1
	bob   uint = 2
)

func setupFeedbackRepo(t *testing.T, casesPerFeature ...int) (repository.FeedbackRepository, *entities.Session, func(caseID uint) status.Status) {
	t.Helper()
	mgr := testutil.NewSQLite(t)
	session := testutil.SeedSession(t, mgr.DB(), casesPerFeature...)

	caseStatus := func(caseID uint) status.Status {
		var tc entities.TestCase
		require.NoError(t, mgr.DB().First(&tc, caseID).Error)
		return tc.Status
	}
	return repository.NewFeedbackRepository(mgr.DB()), session, caseStatus
}

func TestFeedbackCreateRecomputesStatus(t *testing.T) {
	repo, session, caseStatus := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	assert.Equal(t, status.Untested, caseStatus(caseID))

	res, err := repo.Create(ctx, caseID, alice, status.ResultFail, "crashes on save")
	require.NoError(t, err)
	assert.Equal(t, entities.ActionCreated, res.Action)
	assert.Equal(t, status.Fail, res.CaseStatus)
	assert.Equal(t, session.ID, res.SessionID)
	assert.NotZero(t, res.Feedback.ID)
	assert.False(t, res.Feedback.CreatedAt.IsZero())
	assert.Equal(t, status.Fail, caseStatus(caseID))

	res, err = repo.Create(ctx, caseID, bob, status.ResultPass, "")
	require.NoError(t, err)
	assert.Equal(t, status.Pass, res.CaseStatus, "latest feedback across testers wins")
	assert.Equal(t, status.Pass, caseStatus(caseID))
}

func TestFeedbackUpdatePreservesIdentityAndCreatedAt(t *testing.T) {
	repo, session, caseStatus := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	created, err := repo.Create(ctx, caseID, alice, status.ResultFail, "broken")
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.Feedback.ID, alice, status.ResultPass, "fixed")
	require.NoError(t, err)

	stored, err := repo.Get(ctx, created.Feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Feedback.ID, stored.ID)
	assert.True(t, created.Feedback.CreatedAt.Equal(stored.CreatedAt))
	assert.Equal(t, status.ResultPass, stored.Result)
	assert.Equal(t, "fixed", stored.Comment)
	assert.Equal(t, status.Pass, updated.CaseStatus)
	assert.Equal(t, status.Pass, caseStatus(caseID))
}

func TestFeedbackUpdateOfOlderEntryKeepsNewerStatus(t *testing.T) {
	repo, session, caseStatus := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	older, err := repo.Create(ctx, caseID, alice, status.ResultPass, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, caseID, bob, status.ResultFail, "")
	require.NoError(t, err)

	// Updating alice's older entry does not move it ahead of bob's.
	res, err := repo.Update(ctx, older.Feedback.ID, alice, status.ResultPass, "still fine")
	require.NoError(t, err)
	assert.Equal(t, status.Fail, res.CaseStatus)
	assert.Equal(t, status.Fail, caseStatus(caseID))
}

func TestFeedbackOwnershipAndNotFound(t *testing.T) {
	repo, session, _ := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	res, err := repo.Create(ctx, caseID, alice, status.ResultPass, "")
	require.NoError(t, err)

	_, err = repo.Update(ctx, res.Feedback.ID, bob, status.ResultFail, "")
	require.ErrorIs(t, err, repository.ErrNotFeedbackOwner)

	_, err = repo.Delete(ctx, res.Feedback.ID, bob)
	require.ErrorIs(t, err, repository.ErrNotFeedbackOwner)

	_, err = repo.Update(ctx, 9999, alice, status.ResultFail, "")
	require.ErrorIs(t, err, repository.ErrFeedbackNotFound)

	_, err = repo.Create(ctx, 9999, alice, status.ResultFail, "")
	require.ErrorIs(t, err, repository.ErrCaseNotFound)

	_, err = repo.Create(ctx, caseID, alice, status.Result("maybe"), "")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestFeedbackDeleteRecomputesStatus(t *testing.T) {
	repo, session, caseStatus := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	first, err := repo.Create(ctx, caseID, alice, status.ResultPass, "")
	require.NoError(t, err)
	second, err := repo.Create(ctx, caseID, bob, status.ResultFail, "")
	require.NoError(t, err)
	require.Equal(t, status.Fail, caseStatus(caseID))

	res, err := repo.Delete(ctx, second.Feedback.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, entities.ActionDeleted, res.Action)
	assert.Equal(t, status.Pass, res.CaseStatus)

	_, err = repo.Delete(ctx, first.Feedback.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, status.Untested, caseStatus(caseID))

	_, err = repo.Get(ctx, first.Feedback.ID)
	assert.ErrorIs(t, err, repository.ErrFeedbackNotFound)
}

func TestFeedbackListByCasePaginatesNewestFirst(t *testing.T) {
	repo, session, _ := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	var ids []uint
	for i := range 5 {
		tester := alice
		if i%2 == 1 {
			tester = bob
		}
		res, err := repo.Create(ctx, caseID, tester, status.ResultPass, "")
		require.NoError(t, err)
		ids = append(ids, res.Feedback.ID)
	}

	items, meta, err := repo.ListByCase(ctx, caseID, repository.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ids[4], items[0].ID)
	assert.Equal(t, ids[3], items[1].ID)
	assert.Equal(t, repository.PageMeta{Total: 5, Page: 1, Limit: 2, TotalPages: 3}, meta)

	items, meta, err = repo.ListByCase(ctx, caseID, repository.Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, 3, meta.Page)

	_, meta, err = repo.ListByCase(ctx, caseID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultPageLimit, meta.Limit)
	assert.Equal(t, 1, meta.Page)
}

func TestFeedbackLatestForTester(t *testing.T) {
	repo, session, _ := setupFeedbackRepo(t, 1)
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	_, err := repo.LatestForTester(ctx, caseID, alice)
	require.ErrorIs(t, err, repository.ErrFeedbackNotFound)

	_, err = repo.Create(ctx, caseID, alice, status.ResultFail, "one")
	require.NoError(t, err)
	second, err := repo.Create(ctx, caseID, alice, status.ResultPass, "two")
	require.NoError(t, err)
	_, err = repo.Create(ctx, caseID, bob, status.ResultFail, "other")
	require.NoError(t, err)

	latest, err := repo.LatestForTester(ctx, caseID, alice)
	require.NoError(t, err)
	assert.Equal(t, second.Feedback.ID, latest.ID)
}

func TestFeedbackWritesAppendChangelog(t *testing.T) {
	mgr := testutil.NewSQLite(t)
	session := testutil.SeedSession(t, mgr.DB(), 1)
	repo := repository.NewFeedbackRepository(mgr.DB())
	changelog := repository.NewChangelogRepository(mgr.DB())
	ctx := context.Background()
	caseID := session.Features[0].Cases[0].ID

	res, err := repo.Create(ctx, caseID, alice, status.ResultFail, "bad")
	require.NoError(t, err)
	_, err = repo.Update(ctx, res.Feedback.ID, alice, status.ResultPass, "bad")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, res.Feedback.ID, alice)
	require.NoError(t, err)

	entries, meta, err := changelog.List(ctx, entities.EntityFeedback, res.Feedback.ID, repository.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, entities.ActionDeleted, entries[0].Action)
	assert.Equal(t, entities.ActionUpdated, entries[1].Action)
	assert.Equal(t, entities.ActionCreated, entries[2].Action)

	var changes map[string]entities.FieldChange
	require.NoError(t, json.Unmarshal(entries[1].Changes, &changes))
	assert.Equal(t, map[string]entities.FieldChange{"result": {Old: "fail", New: "pass"}}, changes)

	all, _, err := changelog.List(ctx, "", 0, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFeedbackConcurrentWritesConverge(t *testing.T) {
	repo, session, caseStatus := setupFeedbackRepo(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	caseID := session.Features[0].Cases[0].ID

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			result := status.ResultPass
			if i%2 == 0 {
				result = status.ResultFail
			}
			_, err := repo.Create(ctx, caseID, uint(i+1), result, "")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	all, err := repo.ListForCases(ctx, []uint{caseID})
	require.NoError(t, err)
	require.Len(t, all, 8)

	history := make([]status.Entry, len(all))
	for i := range all {
		history[i] = all[i].Entry()
	}
	assert.Equal(t, status.Derive(history), caseStatus(caseID))

	recomputed, err := repo.RecomputeStatus(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, caseStatus(caseID), recomputed)
}
