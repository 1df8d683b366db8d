package repo

import (
	"context"
	"encoding/json"

	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/sqlinline"
)

// CreateSession inserts the session and its original asset in one transaction.
func (s *PGStore) CreateSession(ctx context.Context, session *domain.Session, original *domain.ImageAsset) error {
	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt
	if session.Status == "" {
		session.Status = domain.SessionStatusUploaded
	}
	return s.runner.InTx(ctx, func(tx *infra.SQLRunner) error {
		if _, err := tx.Exec(ctx, sqlinline.QInsertSession,
			session.ID,
			string(session.Status),
			session.OriginalImagePath,
			session.OriginalImageURL,
			session.OriginalRemoteRef,
			session.CreatedAt,
		); err != nil {
			return err
		}
		if original == nil {
			return nil
		}
		original.SessionID = session.ID
		return insertAsset(ctx, tx, original, session.CreatedAt)
	})
}

// GetSession fetches a session by id.
func (s *PGStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var (
		session     domain.Session
		status      string
		rating      []byte
		suggestions []byte
	)
	err := s.runner.QueryRow(ctx, sqlinline.QSelectSession, id).Scan(
		&session.ID,
		&status,
		&session.OriginalImagePath,
		&session.OriginalImageURL,
		&session.OriginalRemoteRef,
		&rating,
		&suggestions,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundIfNoRows(err, "session", id)
	}
	session.Status = domain.SessionStatus(status)
	if len(rating) > 0 {
		session.RatingJSON = json.RawMessage(rating)
	}
	if len(suggestions) > 0 {
		session.SuggestionsJSON = json.RawMessage(suggestions)
	}
	return &session, nil
}

func (s *PGStore) UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QUpdateSessionStatus, id, string(status), s.now())
	if err != nil {
		return err
	}
	return requireAffected(tag, "session", id)
}

func (s *PGStore) UpdateSessionRating(ctx context.Context, id string, rating, suggestions json.RawMessage) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QUpdateSessionRating, id, nullableJSON(rating), nullableJSON(suggestions), s.now())
	if err != nil {
		return err
	}
	return requireAffected(tag, "session", id)
}

func (s *PGStore) SetSessionRemoteRef(ctx context.Context, id, ref string) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QUpdateSessionRemoteRef, id, ref, s.now())
	if err != nil {
		return err
	}
	return requireAffected(tag, "session", id)
}

// DeleteSession removes the session; assets and jobs go with it through the
// foreign key cascade.
func (s *PGStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QDeleteSession, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "session", id)
}
