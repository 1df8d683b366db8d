package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"saun/internal/domain"
	"saun/internal/sqlinline"
)

func (s *Store) CreateJob(ctx context.Context, job *domain.GenerationJob) error {
	edits, err := json.Marshal(job.RequestedEdits)
	if err != nil {
		return fmt.Errorf("encode requested edits: %w", err)
	}
	ts := s.tick()
	job.CreatedAt = fromNanos(ts)
	job.UpdatedAt = job.CreatedAt
	job.Status = domain.JobStatusQueued

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, sqlinline.QLiteUpdateSessionStatus, string(domain.SessionStatusGenerating), ts, job.SessionID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "session", job.SessionID); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, sqlinline.QLiteInsertJob, job.ID, job.SessionID, string(edits), ts, ts)
		return err
	})
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.GenerationJob, error) {
	row, err := s.queryRow(ctx, s.db, sqlinline.QLiteSelectJob, id)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "job", id)
	}
	return job, nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus) error {
	res, err := s.exec(ctx, s.db, sqlinline.QLiteUpdateJobStatus, string(status), s.tick(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "job", id)
}

func (s *Store) UpdateJobResult(ctx context.Context, result domain.JobResult) error {
	urls := result.URLs
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("encode result urls: %w", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range result.Assets {
			asset := &result.Assets[i]
			asset.SessionID = result.SessionID
			if err := s.insertAsset(ctx, tx, asset, s.tick()); err != nil {
				return err
			}
		}
		ts := s.tick()
		res, err := s.exec(ctx, tx, sqlinline.QLiteUpdateJobDone, string(encoded), ts, result.JobID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "job", result.JobID); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, sqlinline.QLiteUpdateSessionStatus, string(domain.SessionStatusDone), ts, result.SessionID)
		return err
	})
}

func (s *Store) UpdateJobError(ctx context.Context, jobID, sessionID, message string) error {
	ts := s.tick()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, sqlinline.QLiteUpdateJobFailed, message, ts, jobID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "job", jobID); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, sqlinline.QLiteUpdateSessionStatus, string(domain.SessionStatusError), ts, sessionID)
		return err
	})
}

func (s *Store) ListJobs(ctx context.Context, sessionID string) ([]domain.GenerationJob, error) {
	rows, err := s.query(ctx, s.db, sqlinline.QLiteListJobsBySession, sessionID)
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

func scanJob(row scanner) (*domain.GenerationJob, error) {
	var (
		job                  domain.GenerationJob
		status, edits, urls  string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&job.ID, &job.SessionID, &status, &edits, &urls, &job.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.CreatedAt = fromNanos(createdAt)
	job.UpdatedAt = fromNanos(updatedAt)
	if err := json.Unmarshal([]byte(edits), &job.RequestedEdits); err != nil {
		return nil, fmt.Errorf("decode requested edits: %w", err)
	}
	if urls != "" {
		if err := json.Unmarshal([]byte(urls), &job.ResultImageURLs); err != nil {
			return nil, fmt.Errorf("decode result urls: %w", err)
		}
	}
	return &job, nil
}
