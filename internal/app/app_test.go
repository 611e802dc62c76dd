package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/config"
	"github.com/feedr-app/backend/internal/models"
)

func TestOpenStoreFile(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "file", DataPath: filepath.Join(t.TempDir(), "db.json")}}
	docs, closeFn, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, docs.Update(context.Background(), func(doc *models.Document) error {
		doc.Orgs = append(doc.Orgs, models.Organization{Name: "Acme"})
		return nil
	}))
	doc, err := docs.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Orgs, 1)
}

func TestConnectRedisDisabled(t *testing.T) {
	c, err := ConnectRedis(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := ConnectRedis(context.Background(), &config.Config{Redis: config.RedisConfig{Addr: mr.Addr()}}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	_ = c.Close()
}

func TestNewSnapshotUploaderDisabled(t *testing.T) {
	up, err := NewSnapshotUploader(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, up)
}
