// Package generation turns rated sessions into edited images: Service
// captures requests as queued jobs and Runner executes them on a worker pool.
package generation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/events"
	"saun/internal/queue"
)

// MaxVariations caps image calls per job.
const MaxVariations = 4

// GenerateRequest is the caller's edit selection.
type GenerateRequest struct {
	SuggestionIDs     []string `json:"selected_suggestion_ids"`
	Categories        []string `json:"selected_categories"`
	AdditionalChanges []string `json:"additional_changes"`
	UserExtra         string   `json:"user_prompt_extra"`
	NumVariations     int      `json:"num_variations"`
	Model             string   `json:"model"`
}

// Store is the persistence the service and runner need.
type Store interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	LatestGeneratedAsset(ctx context.Context, sessionID string) (*domain.ImageAsset, error)
	CreateJob(ctx context.Context, job *domain.GenerationJob) error
	GetJob(ctx context.Context, id string) (*domain.GenerationJob, error)
	UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus) error
	UpdateJobResult(ctx context.Context, result domain.JobResult) error
	UpdateJobError(ctx context.Context, jobID, sessionID, message string) error
}

type ServiceOptions struct {
	DefaultModel string
	Logger       zerolog.Logger
}

type Service struct {
	store        Store
	queue        queue.Queue
	publisher    events.Publisher
	defaultModel string
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(store Store, q queue.Queue, publisher events.Publisher, opts ServiceOptions) *Service {
	return &Service{
		store:        store,
		queue:        q,
		publisher:    publisher,
		defaultModel: opts.DefaultModel,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// Enqueue resolves the selection against the session's stored suggestions,
// snapshots it onto a new queued job and hands the job id to the runner.
func (s *Service) Enqueue(ctx context.Context, sessionID string, req GenerateRequest) (*domain.GenerationJob, error) {
	var categories []string
	if len(req.Categories) > 0 {
		var err error
		if categories, err = domain.NormalizeCategories(req.Categories); err != nil {
			return nil, err
		}
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stored, err := session.Suggestions()
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "decode stored suggestions")
	}

	edits := snapshot(stored, categories, req)
	if len(edits.Suggestions) == 0 && len(edits.AdditionalChanges) == 0 && edits.UserExtra == "" {
		return nil, domain.NewError(domain.KindBadState, "session %s has no suggestions to apply; rate it first or describe the changes", sessionID)
	}
	if edits.Model == "" {
		edits.Model = s.defaultModel
	}

	job := &domain.GenerationJob{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		RequestedEdits: edits,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := s.queue.Push(ctx, job.ID); err != nil {
		msg := "enqueue failed: " + err.Error()
		if uerr := s.store.UpdateJobError(context.WithoutCancel(ctx), job.ID, sessionID, msg); uerr != nil {
			s.logger.Error().Err(uerr).Str("job_id", job.ID).Msg("record enqueue failure")
		}
		return nil, domain.WrapError(domain.KindInternal, err, "enqueue job %s", job.ID)
	}
	s.publish(ctx, job)
	s.logger.Info().
		Str("job_id", job.ID).
		Str("session_id", sessionID).
		Int("suggestions", len(edits.Suggestions)).
		Int("variations", edits.NumVariations).
		Msg("generation job queued")
	return job, nil
}

func (s *Service) publish(ctx context.Context, job *domain.GenerationJob) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.Event{
		JobID:     job.ID,
		SessionID: job.SessionID,
		Status:    job.Status,
		At:        s.now().UTC(),
	})
}

// snapshot builds the immutable copy stored on the job.
func snapshot(stored []domain.Suggestion, categories []string, req GenerateRequest) domain.RequestedEdits {
	picked := ResolveSelection(stored, req.SuggestionIDs, categories)
	if picked == nil {
		picked = []domain.Suggestion{}
	}
	cats := append([]string(nil), categories...)
	if len(cats) == 0 {
		cats = categoriesOf(picked)
	}
	if cats == nil {
		cats = []string{}
	}
	changes := make([]string, 0, len(req.AdditionalChanges))
	for _, c := range req.AdditionalChanges {
		if c = strings.TrimSpace(c); c != "" {
			changes = append(changes, c)
		}
	}
	n := req.NumVariations
	if n <= 0 {
		n = 1
	}
	if n > MaxVariations {
		n = MaxVariations
	}
	return domain.RequestedEdits{
		Suggestions:       picked,
		Categories:        cats,
		AdditionalChanges: changes,
		UserExtra:         strings.TrimSpace(req.UserExtra),
		Model:             strings.TrimSpace(req.Model),
		NumVariations:     n,
	}
}
