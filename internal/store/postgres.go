package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedr-app/backend/internal/models"
)

// documentID is the primary key of the single row holding the document.
const documentID = "feedr"

// PostgresStore keeps the document as one JSONB row.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a Postgres-backed store. The documents table comes from pkg/database migrations.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// Load returns the stored document, or an empty one if the row does not exist.
func (s *PostgresStore) Load(ctx context.Context) (*models.Document, error) {
	const q = `SELECT body FROM documents WHERE id = $1`
	var body []byte
	err := s.pool.QueryRow(ctx, q, documentID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewDocument(s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return decodeDocument(body)
}

// Persist upserts the document row.
func (s *PostgresStore) Persist(ctx context.Context, doc *models.Document) error {
	body, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	const q = `INSERT INTO documents (id, body, version, updated_at)
		VALUES ($1, $2::jsonb, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, version = EXCLUDED.version, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q, documentID, body, doc.Meta.Version); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	return nil
}

// Transact locks the document row for the duration of fn, so writers in other processes wait.
func (s *PostgresStore) Transact(ctx context.Context, fn func(doc *models.Document) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	empty, err := encodeDocument(models.NewDocument(s.now()))
	if err != nil {
		return err
	}
	const seed = `INSERT INTO documents (id, body, version) VALUES ($1, $2::jsonb, $3) ON CONFLICT (id) DO NOTHING`
	if _, err := tx.Exec(ctx, seed, documentID, empty, models.SchemaVersion); err != nil {
		return fmt.Errorf("seed document: %w", err)
	}

	var body []byte
	if err := tx.QueryRow(ctx, `SELECT body FROM documents WHERE id = $1 FOR UPDATE`, documentID).Scan(&body); err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	doc, err := decodeDocument(body)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}

	updated, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	const q = `UPDATE documents SET body = $2::jsonb, version = $3, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, q, documentID, updated, doc.Meta.Version); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func encodeDocument(doc *models.Document) (string, error) {
	doc.Normalize()
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decodeDocument(body []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}
