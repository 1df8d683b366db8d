// Package genai talks to the Gemini REST API: structured generateContent
// calls and resumable file uploads.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/infra"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.2
	maxErrorBody       = 2048
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Client wraps the subset of the Gemini API used by rating and generation.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *infra.Logger
}

// Part is one element of a request prompt. Exactly one field is set.
type Part struct {
	Text     string
	Inline   *InlineData
	FileURI  string
	FileMIME string
}

// InlineData is raw bytes sent or received alongside text.
type InlineData struct {
	MIME string
	Data []byte
}

func TextPart(text string) Part { return Part{Text: text} }

func InlinePart(mime string, data []byte) Part {
	return Part{Inline: &InlineData{MIME: mime, Data: data}}
}

func FilePart(mime, uri string) Part { return Part{FileURI: uri, FileMIME: mime} }

// Result is the flattened first candidate of a response.
type Result struct {
	Text         string
	Images       []InlineData
	FinishReason string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        *float64       `json:"temperature,omitempty"`
	CandidateCount     int            `json:"candidateCount,omitempty"`
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

// NewClient constructs a Gemini client. Callers may provide a nil HTTP client;
// one with a generous timeout is created for image generation.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient:  client,
		logger:      logger,
	}, nil
}

// Model returns the configured default model identifier.
func (c *Client) Model() string {
	return c.model
}

// IsImageModel reports whether model answers with image parts.
func IsImageModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "image")
}

// GenerateStructured calls generateContent. With a schema the response is
// constrained to JSON; image models are asked for TEXT and IMAGE modalities.
// An empty model selects the client default.
func (c *Client) GenerateStructured(ctx context.Context, model string, parts []Part, schema map[string]any) (*Result, error) {
	if c.apiKey == "" {
		return nil, domain.NewError(domain.KindRemoteProvider, "genai: api key not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = c.model
	}

	temperature := c.temperature
	cfg := &geminiGenerationConfig{Temperature: &temperature, CandidateCount: 1}
	if schema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = schema
	}
	if IsImageModel(model) {
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: encodeParts(parts)}},
		GenerationConfig: cfg,
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &response); err != nil {
		return nil, err
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, domain.NewError(domain.KindRemoteProvider, "genai: prompt blocked: %s", response.PromptFeedback.BlockReason)
	}

	result, err := decodeResult(response)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", model).
		Int("text_len", len(result.Text)).
		Int("images", len(result.Images)).
		Str("finish_reason", result.FinishReason).
		Msg("genai: generateContent completed")
	return result, nil
}

func encodeParts(parts []Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Inline != nil:
			out = append(out, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.Inline.MIME,
				Data:     base64.StdEncoding.EncodeToString(p.Inline.Data),
			}})
		case p.FileURI != "":
			out = append(out, geminiPart{FileData: &geminiFileData{MimeType: p.FileMIME, FileURI: p.FileURI}})
		default:
			out = append(out, geminiPart{Text: p.Text})
		}
	}
	return out
}

func decodeResult(resp geminiGenerateContentResponse) (*Result, error) {
	result := &Result{}
	if len(resp.Candidates) == 0 {
		return result, nil
	}
	candidate := resp.Candidates[0]
	result.FinishReason = candidate.FinishReason

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, domain.WrapError(domain.KindRemoteProvider, err, "genai: decode inline image")
			}
			result.Images = append(result.Images, InlineData{MIME: firstNonEmpty(part.InlineData.MimeType, "image/png"), Data: data})
		}
	}
	result.Text = strings.TrimSpace(text.String())
	return result, nil
}

// UploadFile pushes data through the Files API resumable protocol and returns
// the file URI usable in later fileData parts.
func (c *Client) UploadFile(ctx context.Context, data []byte, mime, displayName string) (string, error) {
	if c.apiKey == "" {
		return "", domain.NewError(domain.KindRemoteProvider, "genai: api key not configured")
	}
	meta, err := json.Marshal(map[string]any{"file": map[string]string{"display_name": displayName}})
	if err != nil {
		return "", fmt.Errorf("marshal upload metadata: %w", err)
	}

	start, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadEndpoint(), bytes.NewReader(meta))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	start.Header.Set("Content-Type", "application/json")
	start.Header.Set("x-goog-api-key", c.apiKey)
	start.Header.Set("X-Goog-Upload-Protocol", "resumable")
	start.Header.Set("X-Goog-Upload-Command", "start")
	start.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
	start.Header.Set("X-Goog-Upload-Header-Content-Type", mime)

	resp, err := c.httpClient.Do(start)
	if err != nil {
		return "", domain.WrapError(domain.KindRemoteProvider, err, "genai: start upload")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", domain.NewError(domain.KindRemoteProvider, "genai: start upload status %d", resp.StatusCode)
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return "", domain.NewError(domain.KindRemoteProvider, "genai: upload url missing from response")
	}

	finalize, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create finalize request: %w", err)
	}
	finalize.Header.Set("X-Goog-Upload-Offset", "0")
	finalize.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	var out struct {
		File geminiFile `json:"file"`
	}
	if err := c.do(finalize, &out); err != nil {
		return "", err
	}
	if out.File.URI == "" {
		return "", domain.NewError(domain.KindRemoteProvider, "genai: upload returned no file uri")
	}
	c.logger.Debug().Str("file", out.File.Name).Str("state", out.File.State).Msg("genai: file uploaded")
	return out.File.URI, nil
}

func (c *Client) uploadEndpoint() string {
	root := strings.TrimSuffix(c.baseURL, "/v1beta")
	return root + "/upload/v1beta/files"
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindRemoteProvider, err, "invoke gemini")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return domain.NewError(domain.KindRemoteProvider, "gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return domain.NewError(domain.KindRemoteProvider, "gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return domain.NewError(domain.KindRemoteProvider, "gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(domain.KindRemoteProvider, err, "decode gemini response")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
