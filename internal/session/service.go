// Package session handles photo uploads and the read side of a session:
// its view, its archive and its deletion.
package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/imageconv"
	"saun/internal/storage"
	"saun/pkg/zip"
)

const defaultMaxBytes = 10 << 20

// RemoteUploader hands a copy of the original to the model provider so later
// calls can reference it instead of resending bytes.
type RemoteUploader interface {
	UploadFile(ctx context.Context, data []byte, mime, displayName string) (string, error)
}

// Store is the persistence the session service needs.
type Store interface {
	CreateSession(ctx context.Context, session *domain.Session, original *domain.ImageAsset) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SetSessionRemoteRef(ctx context.Context, id, ref string) error
	DeleteSession(ctx context.Context, id string) error
	ListAssets(ctx context.Context, sessionID string) ([]domain.ImageAsset, error)
	ListJobs(ctx context.Context, sessionID string) ([]domain.GenerationJob, error)
}

type Options struct {
	MaxBytes int64
	Logger   zerolog.Logger
}

type Service struct {
	store    Store
	blobs    storage.Blob
	uploader RemoteUploader
	maxBytes int64
	logger   zerolog.Logger
}

// NewService builds the service. uploader may be nil, which keeps every
// session in inline-bytes mode.
func NewService(store Store, blobs storage.Blob, uploader RemoteUploader, opts Options) *Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &Service{store: store, blobs: blobs, uploader: uploader, maxBytes: opts.MaxBytes, logger: opts.Logger}
}

// MaxBytes is the largest accepted upload.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Create normalizes the upload to JPEG, stores it and records the session
// with its original asset. A failed remote upload only downgrades the
// session to inline mode.
func (s *Service) Create(ctx context.Context, data []byte) (*domain.Session, error) {
	if len(data) == 0 {
		return nil, domain.NewError(domain.KindValidation, "image is required")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.NewError(domain.KindValidation, "image exceeds %d bytes", s.maxBytes)
	}
	img, err := imageconv.NormalizeImage(data)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "unsupported image")
	}

	id := uuid.NewString()
	key, err := s.blobs.Write(ctx, storage.OriginalKey(id), img.Data, imageconv.MIME)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	url := s.blobs.URL(key)

	session := &domain.Session{
		ID:                id,
		Status:            domain.SessionStatusUploaded,
		OriginalImagePath: key,
		OriginalImageURL:  url,
		OriginalRemoteRef: s.uploadRemote(ctx, id, img.Data),
	}
	sum := sha256.Sum256(img.Data)
	original := &domain.ImageAsset{
		ID:   uuid.NewString(),
		Kind: domain.AssetKindOriginal,
		Path: key,
		URL:  url,
		Metadata: domain.AssetMetadata{
			MIME:     imageconv.MIME,
			Checksum: hex.EncodeToString(sum[:]),
			Bytes:    int64(len(img.Data)),
			Width:    img.Width,
			Height:   img.Height,
		},
	}
	if err := s.store.CreateSession(ctx, session, original); err != nil {
		if derr := s.blobs.DeletePrefix(context.WithoutCancel(ctx), storage.SessionPrefix(id)); derr != nil {
			s.logger.Warn().Err(derr).Str("session_id", id).Msg("remove orphaned original")
		}
		return nil, err
	}
	s.logger.Info().
		Str("session_id", id).
		Int("width", img.Width).
		Int("height", img.Height).
		Bool("remote_ref", session.HasRemoteRef()).
		Msg("session created")
	return session, nil
}

func (s *Service) uploadRemote(ctx context.Context, id string, data []byte) string {
	if s.uploader == nil {
		return ""
	}
	ref, err := s.uploader.UploadFile(ctx, data, imageconv.MIME, "session-"+id)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("remote upload failed; using inline image bytes")
		return ""
	}
	return ref
}

// View is the read model returned for a session.
type View struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	OriginalImageURL  string          `json:"original_image_url"`
	OriginalRemoteRef *string         `json:"original_remote_ref"`
	RatingResult      json.RawMessage `json:"rating_result"`
	Assets            []AssetView     `json:"assets"`
	Jobs              []JobView       `json:"jobs"`
}

type AssetView struct {
	ID        string               `json:"id"`
	Kind      string               `json:"kind"`
	URL       string               `json:"url"`
	Metadata  domain.AssetMetadata `json:"metadata"`
	CreatedAt time.Time            `json:"created_at"`
}

type JobView struct {
	JobID           string                `json:"job_id"`
	SessionID       string                `json:"session_id"`
	Status          string                `json:"status"`
	GeneratedImages []string              `json:"generated_images"`
	Error           *string               `json:"error"`
	RequestedEdits  domain.RequestedEdits `json:"requested_edits"`
	CreatedAt       time.Time             `json:"created_at"`
}

// NewJobView renders a job the way every endpoint returns it.
func NewJobView(job *domain.GenerationJob) JobView {
	images := job.ResultImageURLs
	if images == nil {
		images = []string{}
	}
	v := JobView{
		JobID:           job.ID,
		SessionID:       job.SessionID,
		Status:          string(job.Status),
		GeneratedImages: images,
		RequestedEdits:  job.RequestedEdits,
		CreatedAt:       job.CreatedAt,
	}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		v.Error = &msg
	}
	return v
}

// Get assembles the session with its assets (oldest first) and jobs
// (newest first).
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	assets, err := s.store.ListAssets(ctx, id)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.ListJobs(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &View{
		ID:               session.ID,
		Status:           string(session.Status),
		CreatedAt:        session.CreatedAt,
		OriginalImageURL: session.OriginalImageURL,
		RatingResult:     json.RawMessage("null"),
		Assets:           make([]AssetView, 0, len(assets)),
		Jobs:             make([]JobView, 0, len(jobs)),
	}
	if session.HasRemoteRef() {
		ref := session.OriginalRemoteRef
		view.OriginalRemoteRef = &ref
	}
	if len(session.RatingJSON) > 0 {
		view.RatingResult = session.RatingJSON
	}
	for _, a := range assets {
		view.Assets = append(view.Assets, AssetView{ID: a.ID, Kind: string(a.Kind), URL: a.URL, Metadata: a.Metadata, CreatedAt: a.CreatedAt})
	}
	for i := range jobs {
		view.Jobs = append(view.Jobs, NewJobView(&jobs[i]))
	}
	return view, nil
}

// Archive zips every stored image of the session. Assets whose bytes are
// gone are skipped.
func (s *Service) Archive(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	assets, err := s.store.ListAssets(ctx, id)
	if err != nil {
		return nil, err
	}
	files := make([]zip.Asset, 0, len(assets))
	for i, a := range assets {
		data, err := s.blobs.Read(ctx, a.Path)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Str("session_id", id).Str("path", a.Path).Msg("asset bytes missing from archive")
			continue
		}
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%02d-%s%s", i+1, a.Kind, path.Ext(a.Path))
		files = append(files, zip.Asset{Filename: name, MIME: a.Metadata.MIME, Data: data, Modified: a.CreatedAt})
	}
	var buf bytes.Buffer
	if err := zip.Write(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Delete removes the session rows, then its blobs.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.DeletePrefix(ctx, storage.SessionPrefix(id)); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("delete session blobs")
	}
	return nil
}
