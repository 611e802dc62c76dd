package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
	"github.com/feedr-app/backend/pkg/database"
)

// Runs against a real database when FEEDR_TEST_DATABASE_URL is set.
func TestPostgresStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	dsn := os.Getenv("FEEDR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FEEDR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	require.NoError(t, err)

	d := New(NewPostgresStore(pool), zap.NewNop())
	doc, err := d.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, doc.Walls)

	wallID := uuid.New()
	require.NoError(t, d.Update(ctx, func(doc *models.Document) error {
		doc.Walls = append(doc.Walls, models.Wall{ID: wallID, Name: "Showroom", Slug: "showroom"})
		return nil
	}))

	doc, err = d.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, doc.WallBySlug("showroom"))
	require.Equal(t, wallID, doc.WallBySlug("showroom").ID)
}
