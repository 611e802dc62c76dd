package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
	"github.com/feedr-app/backend/pkg/queue"
	"github.com/feedr-app/backend/pkg/storage"
)

var snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedr_snapshots_total",
	Help: "Document snapshot jobs by outcome",
}, []string{"outcome"})

// DocumentLoader reads the current document.
type DocumentLoader interface {
	Load(ctx context.Context) (*models.Document, error)
}

// Jobs is the queue side the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// SnapshotProcessor processes snapshot jobs: load the document, upload it as JSON.
type SnapshotProcessor struct {
	docs     DocumentLoader
	uploader storage.Uploader
	jobs     Jobs
	prefix   string
	backoff  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSnapshotProcessor creates a snapshot processor. Objects are written under prefix.
func NewSnapshotProcessor(docs DocumentLoader, uploader storage.Uploader, jobs Jobs, prefix string, logger *zap.Logger) *SnapshotProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotProcessor{
		docs:     docs,
		uploader: uploader,
		jobs:     jobs,
		prefix:   prefix,
		backoff:  queue.RetryBackoff,
		now:      time.Now,
		logger:   logger,
	}
}

// Process executes one snapshot job and returns the uploaded object's URL.
func (p *SnapshotProcessor) Process(ctx context.Context, job *queue.Job) (string, error) {
	if job.Type != queue.JobTypeSnapshot {
		return "", fmt.Errorf("unknown job type: %s", job.Type)
	}
	doc, err := p.docs.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	key := storage.SnapshotKey(p.prefix, p.now())
	url, err := p.uploader.Upload(ctx, key, storage.ContentTypeJSON, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	p.logger.Info("snapshot uploaded", zap.String("job_id", job.ID), zap.String("key", key), zap.Int("bytes", len(body)))
	return url, nil
}

// Run starts the worker loop: dequeue, process, retry on error. Returns when ctx is done.
func (p *SnapshotProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("snapshot worker stopping")
			return
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if _, err := p.Process(ctx, job); err != nil {
			snapshotsTotal.WithLabelValues("failed").Inc()
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
			continue
		}
		snapshotsTotal.WithLabelValues("ok").Inc()
	}
}

func (p *SnapshotProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
