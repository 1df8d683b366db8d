// Package rating runs the synchronous photo rating pipeline: prompt, remote
// model call, strict validation and persistence.
package rating

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/imageconv"
	"saun/internal/prompt"
	"saun/internal/providers/genai"
	"saun/internal/schema"
	"saun/internal/storage"
)

const defaultTimeout = 90 * time.Second

// Generator is the subset of the model client the pipeline calls.
type Generator interface {
	GenerateStructured(ctx context.Context, model string, parts []genai.Part, schema map[string]any) (*genai.Result, error)
}

// Store is the persistence the pipeline needs.
type Store interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error
	UpdateSessionRating(ctx context.Context, id string, rating, suggestions json.RawMessage) error
}

type Options struct {
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type Service struct {
	store   Store
	blobs   storage.Blob
	gen     Generator
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewService(store Store, blobs storage.Blob, gen Generator, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Service{
		store:   store,
		blobs:   blobs,
		gen:     gen,
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Rate rates the session's original photo. On success the rating and its
// suggestions are stored and the session becomes rated; on any failure after
// the session is found, the session becomes error and rating fields are left
// untouched.
func (s *Service) Rate(ctx context.Context, sessionID string, categories []string) (*domain.Rating, error) {
	cats := domain.DefaultCategories()
	if len(categories) > 0 {
		var err error
		if cats, err = domain.NormalizeCategories(categories); err != nil {
			return nil, err
		}
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rating, err := s.rate(ctx, session, cats)
	if err != nil {
		s.markError(ctx, sessionID, err)
		return nil, err
	}
	return rating, nil
}

func (s *Service) rate(ctx context.Context, session *domain.Session, categories []string) (*domain.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	imagePart, err := s.canonicalImage(ctx, session)
	if err != nil {
		return nil, err
	}
	parts := []genai.Part{imagePart, genai.TextPart(prompt.BuildRatingPrompt(categories))}

	result, err := s.gen.GenerateStructured(ctx, s.model, parts, schema.RatingResponseSchema(categories))
	if err != nil {
		return nil, classifyRemote(err)
	}
	parsed, err := parseModelJSON(result)
	if err != nil {
		return nil, err
	}
	rating, err := schema.DecodeRating(parsed, categories)
	if err != nil {
		return nil, err
	}

	ratingJSON, err := json.Marshal(rating)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "encode rating")
	}
	suggestionsJSON, err := json.Marshal(rating.Suggestions)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "encode suggestions")
	}
	if err := s.store.UpdateSessionRating(ctx, session.ID, ratingJSON, suggestionsJSON); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("session_id", session.ID).
		Float64("overall_score", rating.OverallScore).
		Int("suggestions", len(rating.Suggestions)).
		Msg("session rated")
	return rating, nil
}

// canonicalImage prefers the provider-held copy over re-sending bytes.
func (s *Service) canonicalImage(ctx context.Context, session *domain.Session) (genai.Part, error) {
	if session.HasRemoteRef() {
		return genai.FilePart(imageconv.MIME, session.OriginalRemoteRef), nil
	}
	data, err := s.blobs.Read(ctx, session.OriginalImagePath)
	if err != nil {
		return genai.Part{}, err
	}
	return genai.InlinePart(imageconv.MIME, data), nil
}

func (s *Service) markError(ctx context.Context, sessionID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateSessionStatus(ctx, sessionID, domain.SessionStatusError); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("mark session error")
	}
	s.logger.Warn().Err(cause).Str("session_id", sessionID).Str("kind", string(domain.KindOf(cause))).Msg("rating failed")
}

// Analyze is the single-call photo analysis. Nothing is persisted.
func (s *Service) Analyze(ctx context.Context, image []byte, mime, customPrompt string) (*domain.PhotoAnalysis, error) {
	if len(image) == 0 {
		return nil, domain.NewError(domain.KindValidation, "image is required")
	}
	if mime == "" {
		mime = imageconv.DetectMIME(image)
	}
	text := strings.TrimSpace(customPrompt)
	if text == "" {
		text = prompt.PhotoAnalysisPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	parts := []genai.Part{genai.TextPart(text), genai.InlinePart(mime, image)}
	result, err := s.gen.GenerateStructured(ctx, s.model, parts, schema.PhotoAnalysisResponseSchema())
	if err != nil {
		return nil, classifyRemote(err)
	}
	parsed, err := parseModelJSON(result)
	if err != nil {
		return nil, err
	}
	return schema.DecodePhotoAnalysis(parsed)
}

func parseModelJSON(result *genai.Result) (any, error) {
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil, domain.NewError(domain.KindEmptyOutput, "model returned no text")
	}
	var parsed any
	if err := json.Unmarshal([]byte(stripCodeFence(result.Text)), &parsed); err != nil {
		return nil, domain.WrapError(domain.KindMalformedOutput, err, "model output is not valid JSON")
	}
	return parsed, nil
}

// stripCodeFence removes one surrounding markdown fence such as ```json ... ```.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(text[3:], "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

func classifyRemote(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindRemoteProvider, err, "model call timed out")
	}
	return domain.WrapError(domain.KindRemoteProvider, err, "model call failed")
}
