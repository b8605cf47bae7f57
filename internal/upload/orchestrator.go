// Package upload drives batches of files through validation, object
// storage, and the metadata store, tracking per-file progress and outcome.
package upload

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"

	"github.com/google/uuid"

	"greenlens/internal/media"
	"greenlens/internal/models"
	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/storage"
)

// MetadataStore is the slice of the repository the orchestrator needs.
type MetadataStore interface {
	Insert(ctx context.Context, img models.Image) (models.Image, error)
}

// CleanupPublisher hands orphaned content ids to the janitor when inline
// compensation fails.
type CleanupPublisher interface {
	PublishCleanup(task rabbitmq.CleanupTask) error
}

type TaskStatus string

const (
	TaskUploading TaskStatus = "uploading"
	TaskSuccess   TaskStatus = "success"
	TaskError     TaskStatus = "error"
)

// Task tracks one file within a batch. Tasks are addressed by their stable
// ID, never by position.
type Task struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	Progress int        `json:"progress"`
	Status   TaskStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
}

// Batch owns the task list for one submission. Callers only ever see
// snapshots; tasks are mutated by the orchestrator alone and never removed
// or reordered while the batch runs.
type Batch struct {
	mu    sync.Mutex
	order []string
	tasks map[string]*Task
}

func newBatch(files []models.CaptureFile) *Batch {
	b := &Batch{tasks: make(map[string]*Task, len(files))}
	for _, f := range files {
		id := uuid.New().String()
		b.order = append(b.order, id)
		b.tasks[id] = &Task{ID: id, Filename: f.Filename, Status: TaskUploading}
	}
	return b
}

// Tasks returns a snapshot in submission order.
func (b *Batch) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.tasks[id])
	}
	return out
}

// setProgress clamps to 0-100 and never moves backwards.
func (b *Batch) setProgress(id string, pct int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok || t.Status != TaskUploading {
		return
	}
	if pct > 100 {
		pct = 100
	}
	if pct > t.Progress {
		t.Progress = pct
	}
}

func (b *Batch) succeed(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tasks[id]; ok {
		t.Status = TaskSuccess
		t.Progress = 100
	}
}

func (b *Batch) fail(id, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tasks[id]; ok {
		t.Status = TaskError
		t.Error = msg
	}
}

// Summary aggregates a finished batch.
type Summary struct {
	Tasks    []Task
	Created  []models.Image
	Rejected []media.Rejection
	Failed   int
}

// Clean reports whether the caller may reset its input state: true iff no
// accepted file ended in error.
func (s Summary) Clean() bool { return s.Failed == 0 }

type Orchestrator struct {
	backend storage.Backend
	store   MetadataStore
	cleanup CleanupPublisher // optional
	folder  string
}

func NewOrchestrator(backend storage.Backend, store MetadataStore, cleanup CleanupPublisher, folder string) *Orchestrator {
	return &Orchestrator{backend: backend, store: store, cleanup: cleanup, folder: folder}
}

// SubmitBatch processes files sequentially in submission order. Invalid
// files are rejected up front and never reach object storage; each accepted
// file gets its own task, and one file's failure never aborts the rest.
// onRecord, when non-nil, receives each created record immediately.
func (o *Orchestrator) SubmitBatch(ctx context.Context, files []models.CaptureFile, meta models.Metadata, onRecord func(models.Image)) Summary {
	accepted, rejected := media.Partition(files)
	batch := newBatch(accepted)

	summary := Summary{Rejected: rejected}
	ids := batch.order

	for i, f := range accepted {
		taskID := ids[i]

		name := meta.Name
		if len(accepted) > 1 {
			name = fmt.Sprintf("%s %d", meta.Name, i+1)
		}

		record, err := o.uploadOne(ctx, f, meta, name, taskID, batch)
		if err != nil {
			log.Printf("upload failed for %s: %v", f.Filename, err)
			batch.fail(taskID, err.Error())
			summary.Failed++
			continue
		}

		batch.succeed(taskID)
		summary.Created = append(summary.Created, record)
		if onRecord != nil {
			onRecord(record)
		}
	}

	summary.Tasks = batch.Tasks()
	return summary
}

func (o *Orchestrator) uploadOne(ctx context.Context, f models.CaptureFile, meta models.Metadata, name, taskID string, batch *Batch) (models.Image, error) {
	folder := path.Join(o.folder, string(meta.Category))

	ref, err := o.backend.Upload(ctx, f, folder, func(sent, total int64) {
		if total > 0 {
			batch.setProgress(taskID, int(sent*100/total))
		}
	})
	if err != nil {
		return models.Image{}, err
	}

	displayURL := o.backend.DisplayURL(ref.ContentID, storage.TransformOptions{
		Width:   1200,
		Quality: "auto",
		Format:  "auto",
	})

	record, err := o.store.Insert(ctx, models.Image{
		URL:         displayURL,
		Name:        name,
		Description: meta.Description,
		Category:    meta.Category,
		Location:    meta.Location,
		StorageRef:  ref.ContentID,
	})
	if err != nil {
		o.compensate(ctx, ref.ContentID)
		return models.Image{}, err
	}

	return record, nil
}

// compensate removes content whose metadata record was never written. If
// the inline delete also fails, the janitor gets it via the cleanup queue.
func (o *Orchestrator) compensate(ctx context.Context, contentID string) {
	rmErr := o.backend.Remove(ctx, contentID)
	if rmErr == nil {
		return
	}
	log.Printf("compensating delete failed for %s: %v", contentID, rmErr)
	if o.cleanup == nil {
		return
	}
	if pubErr := o.cleanup.PublishCleanup(rabbitmq.CleanupTask{
		ContentID: contentID,
		Reason:    "metadata insert failed",
	}); pubErr != nil {
		log.Printf("failed to enqueue cleanup for %s: %v", contentID, pubErr)
	}
}
