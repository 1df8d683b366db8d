package domain

import (
	"context"
	"encoding/json"
)

// SessionRepository persists sessions.
type SessionRepository interface {
	// CreateSession inserts the session and its original asset in one transaction.
	CreateSession(ctx context.Context, session *Session, original *ImageAsset) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// UpdateSessionStatus is an unconditional last-writer-wins write.
	UpdateSessionStatus(ctx context.Context, id string, status SessionStatus) error
	// UpdateSessionRating stores rating and suggestions and flips status to rated.
	UpdateSessionRating(ctx context.Context, id string, rating, suggestions json.RawMessage) error
	SetSessionRemoteRef(ctx context.Context, id, ref string) error
	DeleteSession(ctx context.Context, id string) error
}

// AssetRepository handles append-only image assets.
type AssetRepository interface {
	AddImageAsset(ctx context.Context, asset *ImageAsset) error
	// LatestGeneratedAsset returns nil, nil when the session has no generated asset.
	LatestGeneratedAsset(ctx context.Context, sessionID string) (*ImageAsset, error)
	// ListAssets is ordered by creation ascending.
	ListAssets(ctx context.Context, sessionID string) ([]ImageAsset, error)
}

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	// CreateJob inserts a queued job and marks its session generating.
	CreateJob(ctx context.Context, job *GenerationJob) error
	GetJob(ctx context.Context, id string) (*GenerationJob, error)
	UpdateJobStatus(ctx context.Context, id string, status JobStatus) error
	// UpdateJobResult inserts generated assets, marks the job done with its URLs
	// and marks the session done, atomically.
	UpdateJobResult(ctx context.Context, result JobResult) error
	// UpdateJobError marks the job and its session as error, atomically.
	UpdateJobError(ctx context.Context, jobID, sessionID, message string) error
	// ListJobs is ordered by creation descending.
	ListJobs(ctx context.Context, sessionID string) ([]GenerationJob, error)
}

// Store is the full persistence contract used by the engine.
type Store interface {
	SessionRepository
	AssetRepository
	JobRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
