package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"saun/internal/domain"
	"saun/internal/sqlinline"
)

func (s *Store) CreateSession(ctx context.Context, session *domain.Session, original *domain.ImageAsset) error {
	ts := s.tick()
	session.CreatedAt = fromNanos(ts)
	session.UpdatedAt = session.CreatedAt
	if session.Status == "" {
		session.Status = domain.SessionStatusUploaded
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, sqlinline.QLiteInsertSession,
			session.ID,
			string(session.Status),
			session.OriginalImagePath,
			session.OriginalImageURL,
			session.OriginalRemoteRef,
			ts,
			ts,
		); err != nil {
			return err
		}
		if original == nil {
			return nil
		}
		original.SessionID = session.ID
		return s.insertAsset(ctx, tx, original, ts)
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row, err := s.queryRow(ctx, s.db, sqlinline.QLiteSelectSession, id)
	if err != nil {
		return nil, err
	}
	var (
		session              domain.Session
		status               string
		rating, suggestions  sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&session.ID,
		&status,
		&session.OriginalImagePath,
		&session.OriginalImageURL,
		&session.OriginalRemoteRef,
		&rating,
		&suggestions,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, notFoundIfNoRows(err, "session", id)
	}
	session.Status = domain.SessionStatus(status)
	session.CreatedAt = fromNanos(createdAt)
	session.UpdatedAt = fromNanos(updatedAt)
	if rating.Valid {
		session.RatingJSON = json.RawMessage(rating.String)
	}
	if suggestions.Valid {
		session.SuggestionsJSON = json.RawMessage(suggestions.String)
	}
	return &session, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	res, err := s.exec(ctx, s.db, sqlinline.QLiteUpdateSessionStatus, string(status), s.tick(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "session", id)
}

func (s *Store) UpdateSessionRating(ctx context.Context, id string, rating, suggestions json.RawMessage) error {
	res, err := s.exec(ctx, s.db, sqlinline.QLiteUpdateSessionRating, nullableJSON(rating), nullableJSON(suggestions), s.tick(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "session", id)
}

func (s *Store) SetSessionRemoteRef(ctx context.Context, id, ref string) error {
	res, err := s.exec(ctx, s.db, sqlinline.QLiteUpdateSessionRemoteRef, ref, s.tick(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "session", id)
}

// DeleteSession removes children explicitly; SQLite only cascades when the
// foreign_keys pragma is on for the connection.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, sqlinline.QLiteDeleteAssetsBySession, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, sqlinline.QLiteDeleteJobsBySession, id); err != nil {
			return err
		}
		res, err := s.exec(ctx, tx, sqlinline.QLiteDeleteSession, id)
		if err != nil {
			return err
		}
		return requireAffected(res, "session", id)
	})
}
