package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
)

func newTestDocuments(t *testing.T) *Documents {
	t.Helper()
	return New(NewFileStore(filepath.Join(t.TempDir(), "db.json")), zap.NewNop())
}

func TestUpdatePersistsOnlyOnSuccess(t *testing.T) {
	d := newTestDocuments(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := d.Update(ctx, func(doc *models.Document) error {
		doc.Orgs = append(doc.Orgs, models.Organization{ID: uuid.New(), Name: "discarded"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, d.Update(ctx, func(doc *models.Document) error {
		doc.Orgs = append(doc.Orgs, models.Organization{ID: uuid.New(), Name: "kept"})
		return nil
	}))

	doc, err := d.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Orgs, 1)
	assert.Equal(t, "kept", doc.Orgs[0].Name)
}

func TestUpdateSerializesWriters(t *testing.T) {
	d := newTestDocuments(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Update(ctx, func(doc *models.Document) error {
				doc.Walls = append(doc.Walls, models.Wall{ID: uuid.New()})
				return nil
			}))
		}()
	}
	wg.Wait()

	doc, err := d.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Walls, writers)
}

func TestViewDiscardsChanges(t *testing.T) {
	d := newTestDocuments(t)
	ctx := context.Background()
	require.NoError(t, d.View(ctx, func(doc *models.Document) error {
		doc.Users = append(doc.Users, models.User{ID: uuid.New()})
		return nil
	}))
	doc, err := d.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Users)
}

func TestPersistHookRunsAfterUpdate(t *testing.T) {
	d := newTestDocuments(t)
	ctx := context.Background()

	calls := 0
	d.OnPersist(func(context.Context) error {
		calls++
		return errors.New("hook failures are only logged")
	})

	require.NoError(t, d.Update(ctx, func(*models.Document) error { return nil }))
	require.Error(t, d.Update(ctx, func(*models.Document) error { return errors.New("no") }))
	assert.Equal(t, 1, calls)
}
