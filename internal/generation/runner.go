package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/events"
	"saun/internal/imageconv"
	"saun/internal/prompt"
	"saun/internal/providers/genai"
	"saun/internal/queue"
	"saun/internal/storage"
)

const (
	defaultWorkers    = 2
	defaultJobTimeout = 5 * time.Minute
	maxDiagnosticText = 400
)

// Generator is the image-capable model client.
type Generator interface {
	GenerateStructured(ctx context.Context, model string, parts []genai.Part, schema map[string]any) (*genai.Result, error)
}

// Outcome is the explicit result of one job execution. Kind is empty on
// success and for skipped jobs.
type Outcome struct {
	JobID   string
	Status  domain.JobStatus
	URLs    []string
	Kind    domain.ErrorKind
	Err     error
	Skipped bool
}

type RunnerOptions struct {
	Workers    int
	JobTimeout time.Duration
	Logger     zerolog.Logger
}

// Runner executes queued jobs on a fixed pool of workers.
type Runner struct {
	store      Store
	blobs      storage.Blob
	gen        Generator
	queue      queue.Queue
	publisher  events.Publisher
	workers    int
	jobTimeout time.Duration
	logger     zerolog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

func NewRunner(store Store, blobs storage.Blob, gen Generator, q queue.Queue, publisher events.Publisher, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	return &Runner{
		store:      store,
		blobs:      blobs,
		gen:        gen,
		queue:      q,
		publisher:  publisher,
		workers:    opts.Workers,
		jobTimeout: opts.JobTimeout,
		logger:     opts.Logger,
	}
}

// Start launches the workers. They stop when ctx ends or the queue closes.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}
	r.logger.Info().Int("workers", r.workers).Msg("generation runner started")
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	for {
		jobID, err := r.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			r.logger.Error().Err(err).Int("worker", id).Msg("queue pop")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// in-flight jobs outlive ctx so Shutdown can drain them
		out := r.Process(context.WithoutCancel(ctx), jobID)
		r.logOutcome(id, out)
	}
}

// Shutdown closes intake and waits for workers to finish in-flight and
// buffered jobs, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() { _ = r.queue.Close() })
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process runs one job to a terminal state. Missing jobs or sessions and jobs
// that already left queued are skipped without writes.
func (r *Runner) Process(ctx context.Context, jobID string) Outcome {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("job_id", jobID).Msg("job vanished before start")
			return Outcome{JobID: jobID, Skipped: true}
		}
		return Outcome{JobID: jobID, Kind: domain.KindOf(err), Err: err}
	}
	if job.Status != domain.JobStatusQueued {
		return Outcome{JobID: jobID, Status: job.Status, Skipped: true}
	}
	session, err := r.store.GetSession(ctx, job.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("job_id", jobID).Str("session_id", job.SessionID).Msg("session vanished before start")
			return Outcome{JobID: jobID, Skipped: true}
		}
		return Outcome{JobID: jobID, Kind: domain.KindOf(err), Err: err}
	}

	if err := r.store.UpdateJobStatus(ctx, job.ID, domain.JobStatusRunning); err != nil {
		return Outcome{JobID: jobID, Kind: domain.KindOf(err), Err: err}
	}
	r.emit(ctx, events.Event{JobID: job.ID, SessionID: job.SessionID, Status: domain.JobStatusRunning})

	runCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()
	urls, err := r.execute(runCtx, job, session)
	if err != nil {
		return r.fail(ctx, job, err)
	}
	r.emit(ctx, events.Event{JobID: job.ID, SessionID: job.SessionID, Status: domain.JobStatusDone, Images: urls})
	return Outcome{JobID: job.ID, Status: domain.JobStatusDone, URLs: urls}
}

// execute covers source resolution through the final store write. Panics are
// turned into errors so they never cross the worker boundary.
func (r *Runner) execute(ctx context.Context, job *domain.GenerationJob, session *domain.Session) (urls []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = domain.NewError(domain.KindInternal, "panic: %v", p)
		}
	}()

	source, err := r.resolveSource(ctx, session)
	if err != nil {
		return nil, err
	}
	instruction := prompt.BuildEditPromptFromSnapshot(job.RequestedEdits)
	parts := []genai.Part{source, genai.TextPart(instruction)}

	n := job.RequestedEdits.NumVariations
	if n <= 0 {
		n = 1
	}
	var (
		images []genai.InlineData
		texts  []string
	)
	for i := 0; i < n; i++ {
		result, err := r.gen.GenerateStructured(ctx, job.RequestedEdits.Model, parts, nil)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				return nil, err
			}
			return nil, domain.WrapError(domain.KindRemoteProvider, err, "image generation failed")
		}
		images = append(images, result.Images...)
		if t := strings.TrimSpace(result.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(images) == 0 {
		return nil, domain.NewError(domain.KindNoImageReturned, "model returned no image: %s", truncate(strings.Join(texts, " "), maxDiagnosticText))
	}

	assets := make([]domain.ImageAsset, 0, len(images))
	urls = make([]string, 0, len(images))
	for i, img := range images {
		mime := img.MIME
		if mime == "" {
			mime = imageconv.DetectMIME(img.Data)
		}
		key := storage.GeneratedKey(session.ID, job.ID, i+1, imageconv.Extension(mime))
		stored, err := r.blobs.Write(ctx, key, img.Data, mime)
		if err != nil {
			return nil, fmt.Errorf("store generated image: %w", err)
		}
		url := r.blobs.URL(stored)
		sum := sha256.Sum256(img.Data)
		w, h := imageconv.Dimensions(img.Data)
		assets = append(assets, domain.ImageAsset{
			ID:   uuid.NewString(),
			Kind: domain.AssetKindGenerated,
			Path: stored,
			URL:  url,
			Metadata: domain.AssetMetadata{
				MIME:     mime,
				Checksum: hex.EncodeToString(sum[:]),
				Bytes:    int64(len(img.Data)),
				Width:    w,
				Height:   h,
				Model:    job.RequestedEdits.Model,
				JobID:    job.ID,
			},
		})
		urls = append(urls, url)
	}

	if err := r.store.UpdateJobResult(ctx, domain.JobResult{
		JobID:     job.ID,
		SessionID: session.ID,
		URLs:      urls,
		Assets:    assets,
	}); err != nil {
		return nil, err
	}
	return urls, nil
}

// resolveSource makes edits compositional: the newest generated image is the
// base, then the provider-held original, then the original bytes.
func (r *Runner) resolveSource(ctx context.Context, session *domain.Session) (genai.Part, error) {
	latest, err := r.store.LatestGeneratedAsset(ctx, session.ID)
	if err != nil {
		return genai.Part{}, err
	}
	if latest != nil {
		data, err := r.blobs.Read(ctx, latest.Path)
		if err != nil {
			return genai.Part{}, err
		}
		mime := latest.Metadata.MIME
		if mime == "" {
			mime = imageconv.DetectMIME(data)
		}
		return genai.InlinePart(mime, data), nil
	}
	if session.HasRemoteRef() {
		return genai.FilePart(imageconv.MIME, session.OriginalRemoteRef), nil
	}
	data, err := r.blobs.Read(ctx, session.OriginalImagePath)
	if err != nil {
		return genai.Part{}, err
	}
	return genai.InlinePart(imageconv.MIME, data), nil
}

func (r *Runner) fail(ctx context.Context, job *domain.GenerationJob, cause error) Outcome {
	kind := domain.KindOf(cause)
	msg := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) && kind == domain.KindInternal {
		msg = "job timed out: " + msg
	}
	if err := r.store.UpdateJobError(ctx, job.ID, job.SessionID, msg); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("record job failure")
	}
	r.emit(ctx, events.Event{JobID: job.ID, SessionID: job.SessionID, Status: domain.JobStatusError, Error: msg})
	return Outcome{JobID: job.ID, Status: domain.JobStatusError, Kind: kind, Err: cause}
}

func (r *Runner) emit(ctx context.Context, e events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ctx, e)
	}
}

func (r *Runner) logOutcome(worker int, out Outcome) {
	switch {
	case out.Skipped:
		r.logger.Debug().Int("worker", worker).Str("job_id", out.JobID).Msg("job skipped")
	case out.Err != nil:
		r.logger.Warn().Int("worker", worker).Str("job_id", out.JobID).Str("kind", string(out.Kind)).Err(out.Err).Msg("job failed")
	default:
		r.logger.Info().Int("worker", worker).Str("job_id", out.JobID).Int("images", len(out.URLs)).Msg("job done")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
