//go:build integration

// Run with: go test -tags=integration ./internal/datastore/...
// Requires a Docker daemon reachable by testcontainers.
package datastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/datastore/testutil"
	"github.com/quicktest-hq/quicktest/internal/status"
)

func TestMySQLFeedbackLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := mysql.Run(ctx, "mysql:8.4",
		mysql.WithDatabase("quicktest"),
		mysql.WithUsername("quicktest"),
		mysql.WithPassword("quicktest"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	mgr, err := datastore.NewManager(&conf.DatabaseSettings{Driver: conf.DriverMySQL, DSN: dsn}, nil)
	require.NoError(t, err)
	defer func() { _ = mgr.Close() }()
	require.NoError(t, mgr.Initialize())

	session := testutil.SeedSession(t, mgr.DB(), 2)
	repo := repository.NewFeedbackRepository(mgr.DB())
	caseID := session.Features[0].Cases[0].ID

	created, err := repo.Create(ctx, caseID, 1, status.ResultFail, "layout broken")
	require.NoError(t, err)
	assert.Equal(t, status.Fail, created.CaseStatus)

	updated, err := repo.Update(ctx, created.Feedback.ID, 1, status.ResultPass, "fixed")
	require.NoError(t, err)
	assert.Equal(t, status.Pass, updated.CaseStatus)

	stored, err := repo.Get(ctx, created.Feedback.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, created.Feedback.CreatedAt, stored.CreatedAt, time.Millisecond)

	deleted, err := repo.Delete(ctx, created.Feedback.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, status.Untested, deleted.CaseStatus)
}
