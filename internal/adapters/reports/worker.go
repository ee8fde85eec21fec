package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ecoresiduos/internal/blob"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/observability"
)

// ExportStatus captures lifecycle of an export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// DefaultQueueSize bounds pending exports.
const DefaultQueueSize = 32

var (
	// ErrQueueFull is returned when no more exports can be queued.
	ErrQueueFull = errors.New("export queue full")
	// ErrWorkerStopped is returned by EnqueueExport once Stop was called, and
	// is the failure reason of exports still queued at that point.
	ErrWorkerStopped = errors.New("worker stopped")
)

// StoredArtifact is an export payload persisted in the blob store.
type StoredArtifact struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportRecord tracks the state of an asynchronous export.
type ExportRecord struct {
	ID          string          `json:"id"`
	Kind        ExportKind      `json:"kind"`
	Format      export.Format   `json:"format"`
	Status      ExportStatus    `json:"status"`
	Error       string          `json:"error,omitempty"`
	Artifact    *StoredArtifact `json:"artifact,omitempty"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ExportScheduler queues exports and reports their state.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	ExportID   string         `json:"export_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Kind       ExportKind     `json:"kind"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// LogAuditLogger writes audit entries to a structured logger.
type LogAuditLogger struct {
	Logger observability.Logger
}

func (l LogAuditLogger) Record(_ context.Context, e AuditEntry) {
	if l.Logger == nil {
		return
	}
	l.Logger.Info("export audit",
		"export_id", e.ExportID,
		"action", e.Action,
		"actor", e.Actor,
		"kind", e.Kind,
		"status", e.Status,
		"metadata", e.Metadata)
}

// Worker executes exports asynchronously and stores their artifacts.
type Worker struct {
	exporter *Exporter
	store    blob.Store
	audit    AuditLogger
	logger   observability.Logger
	metrics  observability.MetricsRecorder

	queue   chan exportTask
	mu      sync.RWMutex
	jobs    map[string]*ExportRecord
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// WorkerOptions carries the optional collaborators of a Worker.
type WorkerOptions struct {
	Audit     AuditLogger
	Logger    observability.Logger
	Metrics   observability.MetricsRecorder
	QueueSize int
}

// NewWorker constructs an export worker. A nil store keeps artifacts out of
// storage and only records their metadata.
func NewWorker(exporter *Exporter, store blob.Store, opts WorkerOptions) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NopMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		exporter: exporter,
		store:    store,
		audit:    opts.Audit,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		queue:    make(chan exportTask, opts.QueueSize),
		jobs:     make(map[string]*ExportRecord),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running export, if any.
// Exports still queued are marked failed and later enqueues are refused.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	w.drain()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			if w.ctx.Err() != nil {
				w.fail(task.id, ErrWorkerStopped.Error())
				continue
			}
			w.process(task)
		}
	}
}

// drain closes the queue to new work and fails whatever is still waiting.
func (w *Worker) drain() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	for {
		select {
		case task := <-w.queue:
			w.fail(task.id, ErrWorkerStopped.Error())
		default:
			return
		}
	}
}

// EnqueueExport validates input and schedules it. Invalid inputs, including
// empty report selections, are rejected before anything is queued.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.exporter == nil {
		return ExportRecord{}, fmt.Errorf("exporter not configured")
	}
	if err := input.Check(w.exporter.Catalog()); err != nil {
		return ExportRecord{}, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Kind:        input.Kind,
		Format:      input.Format,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()
	w.record(ctx, id, ExportStatusQueued, nil)

	if err := w.push(exportTask{id: id, input: input}); err != nil {
		w.record(ctx, id, ExportStatusFailed, map[string]any{"error": err.Error()})
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return ExportRecord{}, err
	}
	return queued, nil
}

// push queues task unless the worker is stopped or the queue is full. The
// lock orders it against drain, so nothing lands in the queue after Stop.
func (w *Worker) push(task exportTask) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	select {
	case w.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning, "")
	start := time.Now()

	artifact, err := w.exporter.Render(w.ctx, task.input)
	if err != nil {
		w.metrics.Observe(w.ctx, "export_"+string(task.input.Kind), false, time.Since(start))
		w.fail(task.id, fmt.Sprintf("render failed: %v", err))
		return
	}
	stored, err := w.persist(task.id, artifact)
	w.metrics.Observe(w.ctx, "export_"+string(task.input.Kind), err == nil, time.Since(start))
	if err != nil {
		w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
		return
	}
	w.complete(task.id, stored)
}

func (w *Worker) persist(id string, artifact export.Artifact) (StoredArtifact, error) {
	stored := StoredArtifact{
		Key:         id + "/" + artifact.Filename,
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		SizeBytes:   int64(len(artifact.Payload)),
		CreatedAt:   time.Now().UTC(),
	}
	if w.store == nil {
		return stored, nil
	}
	info, err := w.store.Put(w.ctx, stored.Key, bytes.NewReader(artifact.Payload), blob.PutOptions{
		ContentType: artifact.ContentType,
		Metadata:    map[string]string{"filename": artifact.Filename, "export_id": id},
	})
	if err != nil {
		return StoredArtifact{}, err
	}
	stored.SizeBytes = info.Size
	if !info.LastModified.IsZero() {
		stored.CreatedAt = info.LastModified
	}
	url, err := w.store.PresignURL(w.ctx, stored.Key, blob.SignedURLOptions{Method: "GET"})
	if err != nil && !errors.Is(err, blob.ErrUnsupported) {
		return StoredArtifact{}, fmt.Errorf("presign: %w", err)
	}
	stored.URL = url
	return stored, nil
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
	w.record(w.ctx, id, status, nil)
}

func (w *Worker) complete(id string, artifact StoredArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifact = &artifact
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("export succeeded", "id", id, "key", artifact.Key, "bytes", artifact.SizeBytes)
	w.record(w.ctx, id, ExportStatusSucceeded, map[string]any{"key": artifact.Key})
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Warn("export failed", "id", id, "error", reason)
	w.record(w.ctx, id, ExportStatusFailed, map[string]any{"error": reason})
}

func (w *Worker) record(ctx context.Context, id string, status ExportStatus, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, reason string
	var kind ExportKind
	if record, ok := w.jobs[id]; ok {
		actor, reason, kind = record.RequestedBy, record.Reason, record.Kind
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		ExportID:   id,
		Action:     "report_export",
		Actor:      actor,
		Kind:       kind,
		Status:     status,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	if r.Artifact != nil {
		a := *r.Artifact
		dup.Artifact = &a
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}
