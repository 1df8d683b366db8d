package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"saun/internal/domain"
	"saun/internal/sqlinline"
)

func (s *Store) AddImageAsset(ctx context.Context, asset *domain.ImageAsset) error {
	return s.insertAsset(ctx, s.db, asset, s.tick())
}

func (s *Store) insertAsset(ctx context.Context, db execer, asset *domain.ImageAsset, ts int64) error {
	asset.CreatedAt = fromNanos(ts)
	meta, err := json.Marshal(asset.Metadata)
	if err != nil {
		return fmt.Errorf("encode asset metadata: %w", err)
	}
	_, err = s.exec(ctx, db, sqlinline.QLiteInsertImageAsset,
		asset.ID,
		asset.SessionID,
		string(asset.Kind),
		asset.Path,
		asset.URL,
		string(meta),
		ts,
	)
	return err
}

func (s *Store) LatestGeneratedAsset(ctx context.Context, sessionID string) (*domain.ImageAsset, error) {
	row, err := s.queryRow(ctx, s.db, sqlinline.QLiteSelectLatestGeneratedAsset, sessionID)
	if err != nil {
		return nil, err
	}
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return asset, err
}

func (s *Store) ListAssets(ctx context.Context, sessionID string) ([]domain.ImageAsset, error) {
	rows, err := s.query(ctx, s.db, sqlinline.QLiteListAssetsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.ImageAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*domain.ImageAsset, error) {
	var (
		asset     domain.ImageAsset
		kind      string
		meta      string
		createdAt int64
	)
	if err := row.Scan(&asset.ID, &asset.SessionID, &kind, &asset.Path, &asset.URL, &meta, &createdAt); err != nil {
		return nil, err
	}
	asset.Kind = domain.AssetKind(kind)
	asset.CreatedAt = fromNanos(createdAt)
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &asset.Metadata); err != nil {
			return nil, fmt.Errorf("decode asset metadata: %w", err)
		}
	}
	return &asset, nil
}
