package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/sqlinline"
)

// AddImageAsset appends an asset. Assets are never updated afterwards.
func (s *PGStore) AddImageAsset(ctx context.Context, asset *domain.ImageAsset) error {
	return insertAsset(ctx, s.runner, asset, s.now())
}

func insertAsset(ctx context.Context, db infra.SQLExecutor, asset *domain.ImageAsset, now time.Time) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	meta, err := json.Marshal(asset.Metadata)
	if err != nil {
		return fmt.Errorf("encode asset metadata: %w", err)
	}
	_, err = db.Exec(ctx, sqlinline.QInsertImageAsset,
		asset.ID,
		asset.SessionID,
		string(asset.Kind),
		asset.Path,
		asset.URL,
		string(meta),
		asset.CreatedAt,
	)
	return err
}

// LatestGeneratedAsset returns the newest generated asset, or nil when the
// session has none.
func (s *PGStore) LatestGeneratedAsset(ctx context.Context, sessionID string) (*domain.ImageAsset, error) {
	asset, err := scanAsset(s.runner.QueryRow(ctx, sqlinline.QSelectLatestGeneratedAsset, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns every asset of the session, oldest first.
func (s *PGStore) ListAssets(ctx context.Context, sessionID string) ([]domain.ImageAsset, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QListAssetsBySession, sessionID)
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

func scanAsset(row pgx.Row) (*domain.ImageAsset, error) {
	var (
		asset domain.ImageAsset
		kind  string
		meta  []byte
	)
	if err := row.Scan(&asset.ID, &asset.SessionID, &kind, &asset.Path, &asset.URL, &meta, &asset.CreatedAt); err != nil {
		return nil, err
	}
	asset.Kind = domain.AssetKind(kind)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &asset.Metadata); err != nil {
			return nil, fmt.Errorf("decode asset metadata: %w", err)
		}
	}
	return &asset, nil
}
