// Package testutil provides database fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore"
	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
)

// NewSQLite opens an initialized SQLite database under t.TempDir().
// The connection is closed when the test ends.
func NewSQLite(t *testing.T) datastore.Manager {
	t.Helper()

	mgr, err := datastore.NewManager(&conf.DatabaseSettings{
		Driver: conf.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "quicktest.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	t.Cleanup(func() { _ = mgr.Close() })

	return mgr
}

// SeedSession creates an organization and one session with a feature per entry
// of casesPerFeature, each holding that many cases. Features and cases get
// ascending sort orders so the returned tree matches the stored order.
func SeedSession(t *testing.T, db *gorm.DB, casesPerFeature ...int) *entities.Session {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewSessionRepository(db)

	org, err := repo.EnsureOrganization(ctx, "Demo Organization")
	require.NoError(t, err)

	session := &entities.Session{
		OrganizationID: org.ID,
		Title:          "Sprint 1 Testing",
		Status:         entities.SessionStatusActive,
	}
	for i, n := range casesPerFeature {
		feature := entities.Feature{
			Title:     fmt.Sprintf("Feature %d", i+1),
			SortOrder: i,
		}
		for j := range n {
			feature.Cases = append(feature.Cases, entities.TestCase{
				Title:     fmt.Sprintf("Case %d.%d", i+1, j+1),
				SortOrder: j,
			})
		}
		session.Features = append(session.Features, feature)
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	tree, err := repo.GetSessionTree(ctx, session.ID)
	require.NoError(t, err)
	return tree
}
