package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"saun/internal/domain"
)

func TestHubDeliversOnlyToJobSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, cancelA := hub.Subscribe("job-a")
	defer cancelA()
	b, cancelB := hub.Subscribe("job-b")
	defer cancelB()

	hub.Publish(context.Background(), Event{JobID: "job-a", Status: domain.JobStatusRunning})

	select {
	case e := <-a:
		if e.Status != domain.JobStatusRunning || e.At.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber a got nothing")
	}
	select {
	case e := <-b:
		t.Fatalf("subscriber b should not receive %+v", e)
	default:
	}
}

func TestHubCancelReleasesSubscription(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe("job")
	if hub.Subscribers("job") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if hub.Subscribers("job") != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	hub.Publish(context.Background(), Event{JobID: "job"})
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe("job")
	defer cancel()
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(context.Background(), Event{JobID: "job", Status: domain.JobStatusRunning})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to be full at %d, got %d", subscriberBuffer, len(ch))
	}
}

func TestMultiPublishesToAll(t *testing.T) {
	h1 := NewHub(zerolog.Nop())
	h2 := NewHub(zerolog.Nop())
	c1, cancel1 := h1.Subscribe("j")
	defer cancel1()
	c2, cancel2 := h2.Subscribe("j")
	defer cancel2()
	Multi{h1, nil, h2}.Publish(context.Background(), Event{JobID: "j", Status: domain.JobStatusDone})
	if len(c1) != 1 || len(c2) != 1 {
		t.Fatalf("expected both hubs to receive the event")
	}
}

func TestServeJobStreamsUntilTerminal(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeJob(w, r, "job-1", func() (Event, error) {
			return Event{JobID: "job-1", Status: domain.JobStatusQueued}, nil
		})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued snapshot, got %s", first.Status)
	}

	hub.Publish(context.Background(), Event{JobID: "job-1", Status: domain.JobStatusRunning})
	hub.Publish(context.Background(), Event{JobID: "job-1", Status: domain.JobStatusDone, Images: []string{"http://x/1.png"}})

	var running, done Event
	if err := conn.ReadJSON(&running); err != nil {
		t.Fatalf("read running: %v", err)
	}
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read done: %v", err)
	}
	if running.Status != domain.JobStatusRunning || done.Status != domain.JobStatusDone || len(done.Images) != 1 {
		t.Fatalf("unexpected stream %+v %+v", running, done)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}
