package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"saun/internal/adapter/sqlstore"
	"saun/internal/domain"
	"saun/internal/events"
	"saun/internal/generation"
	"saun/internal/http/handlers"
	"saun/internal/infra"
	"saun/internal/middleware"
	"saun/internal/providers/genai"
	"saun/internal/queue"
	"saun/internal/rating"
	"saun/internal/search"
	"saun/internal/session"
	"saun/internal/storage"
)

// fakeModel answers structured calls with text and image calls (nil schema)
// with a PNG.
type fakeModel struct {
	mu      sync.Mutex
	text    string
	textErr error
	image   []byte
}

func (f *fakeModel) GenerateStructured(ctx context.Context, model string, parts []genai.Part, schema map[string]any) (*genai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if schema == nil {
		return &genai.Result{Images: []genai.InlineData{{MIME: "image/png", Data: f.image}}}, nil
	}
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &genai.Result{Text: f.text}, nil
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeSearcher) SearchTopResult(ctx context.Context, query, market string) (*domain.ProductHit, error) {
	f.mu.Lock()
	f.calls[query+"|"+market]++
	f.mu.Unlock()
	if strings.Contains(query, "broken") {
		return nil, errors.New("upstream 500")
	}
	return &domain.ProductHit{Title: "Top " + query, Link: "https://shop.example/" + market}, nil
}

type testServer struct {
	handler  http.Handler
	store    *sqlstore.Store
	runner   *generation.Runner
	model    *fakeModel
	searcher *fakeSearcher
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	logger := zerolog.Nop()

	store, err := sqlstore.Open(ctx, infra.DBDriverSQLite, filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	staticDir := filepath.Join(dir, "static")
	blobs, err := storage.NewFileStore(staticDir, "/static")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	model := &fakeModel{text: ratingJSON(), image: pngBytes(t, 6, 4)}
	searcher := &fakeSearcher{calls: map[string]int{}}
	q := queue.NewMemoryQueue(16)
	hub := events.NewHub(logger)

	app := &handlers.App{
		Sessions:   session.NewService(store, blobs, nil, session.Options{MaxBytes: 1 << 20, Logger: logger}),
		Rating:     rating.NewService(store, blobs, model, rating.Options{Model: "text-model", Logger: logger}),
		Generation: generation.NewService(store, q, hub, generation.ServiceOptions{DefaultModel: "image-model", Logger: logger}),
		Jobs:       store,
		Search:     search.NewAggregator(search.NewCache(nil), searcher, search.Options{TTL: time.Minute}),
		Hub:        hub,
		Logger:     logger,
	}
	var limiter *middleware.RateLimiter
	if limit > 0 {
		limiter = middleware.NewRateLimiter(limit, time.Minute)
	}
	h := NewRouter(app, Options{Logger: logger, CORSOrigins: []string{"*"}, Limiter: limiter, StaticDir: staticDir})
	return &testServer{
		handler:  h,
		store:    store,
		runner:   generation.NewRunner(store, blobs, model, q, hub, generation.RunnerOptions{Logger: logger}),
		model:    model,
		searcher: searcher,
	}
}

func ratingJSON() string {
	breakdown := map[string]float64{}
	var suggestions []map[string]any
	for i, c := range domain.DefaultCategories() {
		breakdown[c] = 7
		suggestions = append(suggestions, map[string]any{
			"id":       fmt.Sprintf("s%d", i+1),
			"category": c,
			"title":    "Improve " + c,
			"why":      "Because",
			"steps":    []string{"step one"},
			"impact":   "high",
			"effort":   "low",
		})
	}
	b, _ := json.Marshal(map[string]any{
		"overall_score": 7,
		"breakdown":     breakdown,
		"summary":       "Bright and tidy.",
		"suggestions":   suggestions,
	})
	return string(b)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x * 20), B: uint8(y * 20), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("image", "room.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, 0)
	ctx := context.Background()

	rec := srv.do(uploadRequest(t, "/api/sessions", pngBytes(t, 8, 8), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		SessionID        string         `json:"session_id"`
		Status           string         `json:"status"`
		OriginalImageURL string         `json:"original_image_url"`
		RatingResult     *domain.Rating `json:"rating_result"`
	}
	decode(t, rec, &created)
	if created.Status != "rated" || created.RatingResult == nil || len(created.RatingResult.Suggestions) != 6 {
		t.Fatalf("unexpected upload response %+v", created)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, created.OriginalImageURL, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("static original: got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/generate", `{"selected_categories":["lighting"],"num_variations":1}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate: expected 202, got %d %s", rec.Code, rec.Body.String())
	}
	var enqueued struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decode(t, rec, &enqueued)
	if enqueued.Status != "queued" || enqueued.JobID == "" {
		t.Fatalf("unexpected enqueue response %+v", enqueued)
	}

	if out := srv.runner.Process(ctx, enqueued.JobID); out.Status != domain.JobStatusDone {
		t.Fatalf("expected job done, got %+v", out)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+enqueued.JobID, nil))
	var job session.JobView
	decode(t, rec, &job)
	if job.Status != "done" || len(job.GeneratedImages) != 1 || job.Error != nil {
		t.Fatalf("unexpected job view %+v", job)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID, nil))
	var view session.View
	decode(t, rec, &view)
	if view.Status != "done" || len(view.Assets) != 2 || len(view.Jobs) != 1 {
		t.Fatalf("unexpected session view %+v", view)
	}
	if view.Jobs[0].RequestedEdits.Suggestions[0].Category != domain.CategoryLighting {
		t.Fatalf("expected lighting suggestion in snapshot, got %+v", view.Jobs[0].RequestedEdits)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/assets.zip", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("archive: got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = srv.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created.SessionID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID, nil))
	var env errorEnvelope
	decode(t, rec, &env)
	if rec.Code != http.StatusNotFound || env.Error.Code != "NotFoundError" {
		t.Fatalf("expected not found after delete, got %d %+v", rec.Code, env)
	}
}

func TestUploadRatingFailureKeepsSession(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.model.text = `{"overall_score": 7}`

	rec := srv.do(uploadRequest(t, "/api/sessions", pngBytes(t, 4, 4), nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d %s", rec.Code, rec.Body.String())
	}
	var env errorEnvelope
	decode(t, rec, &env)
	if env.Error.Code != string(domain.KindSchemaViolation) || env.Error.SessionID == "" {
		t.Fatalf("unexpected error envelope %+v", env)
	}
	sess, err := srv.store.GetSession(context.Background(), env.Error.SessionID)
	if err != nil {
		t.Fatalf("session should survive: %v", err)
	}
	if sess.Status != domain.SessionStatusError || len(sess.RatingJSON) != 0 {
		t.Fatalf("expected error status without rating, got %s %s", sess.Status, sess.RatingJSON)
	}
}

func TestGenerateWithoutSelectionIsConflict(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := srv.do(uploadRequest(t, "/api/sessions", pngBytes(t, 4, 4), map[string]string{"auto_rate": "false"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	decode(t, rec, &created)
	if created.Status != "uploaded" {
		t.Fatalf("expected uploaded, got %s", created.Status)
	}

	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/generate", `{}`))
	var env errorEnvelope
	decode(t, rec, &env)
	if rec.Code != http.StatusConflict || env.Error.Code != string(domain.KindBadState) {
		t.Fatalf("expected 409 BadStateError, got %d %+v", rec.Code, env)
	}
}

func TestRateRejectsUnknownCategory(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(uploadRequest(t, "/api/sessions", pngBytes(t, 4, 4), map[string]string{"auto_rate": "false"}))
	var created struct {
		SessionID string `json:"session_id"`
	}
	decode(t, rec, &created)

	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/rate", `{"categories":["vibes"]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/rate", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected rating with default categories, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUploadValidation(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := srv.do(uploadRequest(t, "/api/sessions", []byte("not an image"), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage upload, got %d", rec.Code)
	}
	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without multipart, got %d", rec.Code)
	}
	rec = srv.do(uploadRequest(t, "/api/analyze-photo", []byte("not an image"), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for analyze garbage, got %d", rec.Code)
	}
}

func TestAnalyzePhoto(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.model.text = `{"summary":"A reading nook","labels":["chair","lamp"],"confidence":0.8,"safety_notes":[]}`

	rec := srv.do(uploadRequest(t, "/api/analyze-photo", pngBytes(t, 4, 4), map[string]string{"prompt": "what furniture is here?"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Summary string   `json:"summary"`
			Labels  []string `json:"labels"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	if body.Data.Summary != "A reading nook" || len(body.Data.Labels) != 2 {
		t.Fatalf("unexpected analysis body %s", rec.Body.String())
	}

	big := bytes.Repeat([]byte{0xff}, (1<<20)+1)
	rec = srv.do(uploadRequest(t, "/api/analyze-photo", big, nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized analyze upload, got %d %s", rec.Code, rec.Body.String())
	}
	rec = srv.do(uploadRequest(t, "/api/sessions", big, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized session upload, got %d", rec.Code)
	}
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, 1)

	first := srv.do(jsonRequest(http.MethodPost, "/api/search/batch", `{"queries":["lamp"]}`))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}
	second := srv.do(jsonRequest(http.MethodPost, "/api/search/batch", `{"queries":["lamp"]}`))
	if second.Code != http.StatusTooManyRequests || second.Header().Get("Retry-After") == "" {
		t.Fatalf("second request: expected 429 with Retry-After, got %d", second.Code)
	}
	read := srv.do(httptest.NewRequest(http.MethodGet, "/api/search?q=lamp", nil))
	if read.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", read.Code)
	}
}

func TestSearchBatch(t *testing.T) {
	srv := newTestServer(t, 0)

	req := jsonRequest(http.MethodPost, "/api/search/batch", `{"queries":["Lamp","lamp","broken rug","sofa"],"max_items":2}`)
	req.Header.Set("X-Country-Code", "de")
	rec := srv.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Results []domain.QueryResult `json:"results"`
	}
	decode(t, rec, &out)
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results after dedupe and truncation, got %+v", out.Results)
	}
	if out.Results[0].Query != "Lamp" || out.Results[0].Item == nil {
		t.Fatalf("unexpected first result %+v", out.Results[0])
	}
	if out.Results[1].Query != "broken rug" || out.Results[1].Error == "" {
		t.Fatalf("expected isolated failure for second query, got %+v", out.Results[1])
	}

	rec = srv.do(jsonRequest(http.MethodPost, "/api/search/batch", `{"queries":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty queries, got %d", rec.Code)
	}
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rec.Code)
	}
}

func TestJobEventsWebsocket(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(uploadRequest(t, "/api/sessions", pngBytes(t, 4, 4), nil))
	var created struct {
		SessionID string `json:"session_id"`
	}
	decode(t, rec, &created)
	rec = srv.do(jsonRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/generate", `{"selected_suggestion_ids":["s2"]}`))
	var enqueued struct {
		JobID string `json:"job_id"`
	}
	decode(t, rec, &enqueued)

	ts := httptest.NewServer(srv.handler)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/jobs/" + enqueued.JobID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot events.Event
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued snapshot, got %s", snapshot.Status)
	}

	go srv.runner.Process(context.Background(), enqueued.JobID)

	var last events.Event
	for !last.Status.Terminal() {
		if err := conn.ReadJSON(&last); err != nil {
			t.Fatalf("read event: %v", err)
		}
	}
	if last.Status != domain.JobStatusDone || len(last.Images) != 1 {
		t.Fatalf("unexpected terminal event %+v", last)
	}

	resp, err := http.Get(ts.URL + "/api/jobs/missing/events")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", resp.StatusCode)
	}
}
