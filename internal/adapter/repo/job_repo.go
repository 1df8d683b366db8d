package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/sqlinline"
)

// CreateJob inserts a queued job and flips its session to generating.
func (s *PGStore) CreateJob(ctx context.Context, job *domain.GenerationJob) error {
	edits, err := json.Marshal(job.RequestedEdits)
	if err != nil {
		return fmt.Errorf("encode requested edits: %w", err)
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	job.Status = domain.JobStatusQueued

	return s.runner.InTx(ctx, func(tx *infra.SQLRunner) error {
		tag, err := tx.Exec(ctx, sqlinline.QUpdateSessionStatus, job.SessionID, string(domain.SessionStatusGenerating), now)
		if err != nil {
			return err
		}
		if err := requireAffected(tag, "session", job.SessionID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sqlinline.QInsertJob, job.ID, job.SessionID, string(edits), job.CreatedAt)
		return err
	})
}

// GetJob fetches a job by id.
func (s *PGStore) GetJob(ctx context.Context, id string) (*domain.GenerationJob, error) {
	job, err := scanJob(s.runner.QueryRow(ctx, sqlinline.QSelectJob, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "job", id)
	}
	return job, nil
}

func (s *PGStore) UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QUpdateJobStatus, id, string(status), s.now())
	if err != nil {
		return err
	}
	return requireAffected(tag, "job", id)
}

// UpdateJobResult stores generated assets, completes the job and marks the
// session done in a single transaction.
func (s *PGStore) UpdateJobResult(ctx context.Context, result domain.JobResult) error {
	urls := result.URLs
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("encode result urls: %w", err)
	}
	now := s.now()
	return s.runner.InTx(ctx, func(tx *infra.SQLRunner) error {
		for i := range result.Assets {
			asset := &result.Assets[i]
			asset.SessionID = result.SessionID
			if err := insertAsset(ctx, tx, asset, variationStamp(now, i)); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, sqlinline.QUpdateJobDone, result.JobID, string(encoded), now)
		if err != nil {
			return err
		}
		if err := requireAffected(tag, "job", result.JobID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sqlinline.QUpdateSessionStatus, result.SessionID, string(domain.SessionStatusDone), now)
		return err
	})
}

// variationStamp spaces a job's assets one microsecond apart, the
// timestamptz resolution, so the last variation is the latest asset.
func variationStamp(base time.Time, i int) time.Time {
	return base.Add(time.Duration(i) * time.Microsecond)
}

// UpdateJobError records the failure on both the job and its session.
func (s *PGStore) UpdateJobError(ctx context.Context, jobID, sessionID, message string) error {
	now := s.now()
	return s.runner.InTx(ctx, func(tx *infra.SQLRunner) error {
		tag, err := tx.Exec(ctx, sqlinline.QUpdateJobFailed, jobID, message, now)
		if err != nil {
			return err
		}
		if err := requireAffected(tag, "job", jobID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sqlinline.QUpdateSessionStatus, sessionID, string(domain.SessionStatusError), now)
		return err
	})
}

// ListJobs returns the session's jobs, newest first.
func (s *PGStore) ListJobs(ctx context.Context, sessionID string) ([]domain.GenerationJob, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QListJobsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var (
		job    domain.GenerationJob
		status string
		edits  []byte
		urls   []byte
	)
	if err := row.Scan(&job.ID, &job.SessionID, &status, &edits, &urls, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal(edits, &job.RequestedEdits); err != nil {
		return nil, fmt.Errorf("decode requested edits: %w", err)
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &job.ResultImageURLs); err != nil {
			return nil, fmt.Errorf("decode result urls: %w", err)
		}
	}
	return &job, nil
}
