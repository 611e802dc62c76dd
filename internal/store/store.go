// Package store keeps the whole feedr state in one JSON document.
//
// Every request loads the document, works on an in-memory copy and persists it
// again. Writers go through Documents.Update, which serializes read-modify-write
// cycles inside one process. Backends that implement Transactor (Postgres) also
// serialize across processes; the file backend does not, so two processes
// writing the same file still race and the last writer wins.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
)

// Store loads and persists the whole document.
type Store interface {
	// Load returns the current document, or a fresh empty one if nothing was persisted yet.
	Load(ctx context.Context) (*models.Document, error)
	// Persist overwrites the stored document.
	Persist(ctx context.Context, doc *models.Document) error
}

// Transactor is implemented by backends that run a read-modify-write cycle
// atomically on their own. fn's changes are persisted only when it returns nil.
type Transactor interface {
	Transact(ctx context.Context, fn func(doc *models.Document) error) error
}

// PersistHook runs after every successful persist.
type PersistHook func(ctx context.Context) error

// Documents serializes mutations against a Store.
type Documents struct {
	backend Store
	mu      sync.Mutex
	hooks   []PersistHook
	logger  *zap.Logger
}

// New wraps backend.
func New(backend Store, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{backend: backend, logger: logger}
}

// OnPersist registers a hook. Not safe to call concurrently with Update.
func (d *Documents) OnPersist(h PersistHook) {
	d.hooks = append(d.hooks, h)
}

// View loads the document and hands it to fn. Changes made by fn are discarded.
func (d *Documents) View(ctx context.Context, fn func(doc *models.Document) error) error {
	doc, err := d.backend.Load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update loads the document, applies fn and persists the result if fn returns nil.
func (d *Documents) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if tx, ok := d.backend.(Transactor); ok {
		if err := tx.Transact(ctx, fn); err != nil {
			return err
		}
	} else {
		doc, err := d.backend.Load(ctx)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		if err := d.backend.Persist(ctx, doc); err != nil {
			return err
		}
	}
	d.afterPersist(ctx)
	return nil
}

// Load returns the current document without taking the mutation lock.
func (d *Documents) Load(ctx context.Context) (*models.Document, error) {
	return d.backend.Load(ctx)
}

func (d *Documents) afterPersist(ctx context.Context) {
	for _, h := range d.hooks {
		if err := h(ctx); err != nil {
			d.logger.Warn("persist hook failed", zap.Error(err))
		}
	}
}
