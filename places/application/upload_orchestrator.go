package application

import (
	"context"
	"time"

	"github.com/dfryer1193/goplaces/internal/metrics"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultUploadConcurrency = 4

// Resampler shrinks an image before upload.
type Resampler interface {
	Resample(data []byte) ([]byte, error)
}

// File is one local file submitted for upload.
type File struct {
	Name string
	Data []byte
}

// TaskListener is notified when a task is created and again when it reaches a terminal state.
// It is called from upload goroutines and must not block.
type TaskListener func(sessionID string, task domain.UploadTask)

type OrchestratorOption func(*UploadOrchestrator)

// WithConcurrency bounds the number of uploads running at once. Zero or less means unbounded.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *UploadOrchestrator) {
		o.concurrency = n
	}
}

// WithSubmissionOrder publishes references to the working list in the order the files
// were submitted rather than the order their uploads finish.
func WithSubmissionOrder() OrchestratorOption {
	return func(o *UploadOrchestrator) {
		o.inOrder = true
	}
}

func WithTaskListener(l TaskListener) OrchestratorOption {
	return func(o *UploadOrchestrator) {
		o.listener = l
	}
}

type UploadOrchestrator struct {
	uploader    domain.AssetUploader
	resampler   Resampler
	folder      string
	concurrency int
	inOrder     bool
	listener    TaskListener
}

func NewUploadOrchestrator(uploader domain.AssetUploader, resampler Resampler, folder string, opts ...OrchestratorOption) *UploadOrchestrator {
	o := &UploadOrchestrator{
		uploader:    uploader,
		resampler:   resampler,
		folder:      folder,
		concurrency: DefaultUploadConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetTaskListener replaces the task listener. It must be called before any batch starts.
func (o *UploadOrchestrator) SetTaskListener(l TaskListener) {
	o.listener = l
}

// UploadBatch uploads files into session and returns their tasks once every one is terminal.
// A failed file only fails its own task. The batch itself only fails, before any upload
// starts, when the session is closing.
func (o *UploadOrchestrator) UploadBatch(ctx context.Context, session *EditSession, files []File) ([]domain.UploadTask, error) {
	if len(files) == 0 {
		return []domain.UploadTask{}, nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	base, err := session.appendTasks(names)
	if err != nil {
		return nil, err
	}
	for i := range files {
		o.notify(session, base+i)
	}

	// A plain Group: sibling uploads must keep running when one fails.
	g := new(errgroup.Group)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, f := range files {
		index := base + i
		g.Go(func() error {
			o.uploadOne(ctx, session, index, f)
			return nil
		})
	}
	_ = g.Wait()

	tasks := session.Tasks()
	return tasks[base : base+len(files)], nil
}

func (o *UploadOrchestrator) uploadOne(ctx context.Context, session *EditSession, index int, f File) {
	start := time.Now()
	defer func() {
		metrics.UploadDurationMs.Observe(float64(time.Since(start).Milliseconds()))
		o.notify(session, index)
	}()

	data := o.resample(session.ID, f)

	ref, err := o.uploader.Upload(ctx, data, f.Name, o.folder)
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Str("file", f.Name).Int("task", index).Msg("Failed to upload image")
		metrics.UploadsTotal.WithLabelValues(domain.TaskFailed.String()).Inc()
		if err := session.failTask(index, err.Error(), o.inOrder); err != nil {
			log.Error().Err(err).Int("task", index).Msg("Failed to record upload failure")
		}
		return
	}

	metrics.UploadsTotal.WithLabelValues(domain.TaskSucceeded.String()).Inc()
	if err := session.completeTask(index, ref, o.inOrder); err != nil {
		log.Error().Err(err).Int("task", index).Msg("Failed to record upload success")
	}
}

// resample returns the resampled bytes, or the original bytes if resampling fails.
func (o *UploadOrchestrator) resample(sessionID string, f File) []byte {
	if o.resampler == nil {
		return f.Data
	}
	out, err := o.resampler.Resample(f.Data)
	if err != nil {
		log.Warn().Err(err).Str("sessionID", sessionID).Str("file", f.Name).Msg("Resample failed, uploading original")
		metrics.ResampleFallbacksTotal.Inc()
		return f.Data
	}
	return out
}

func (o *UploadOrchestrator) notify(session *EditSession, index int) {
	if o.listener == nil {
		return
	}
	task, err := session.Task(index)
	if err != nil {
		return
	}
	o.listener(session.ID, task)
}
