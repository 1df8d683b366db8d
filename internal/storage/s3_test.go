package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestS3StoreWriteRead(t *testing.T) {
	var mu sync.Mutex
	objects := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), S3Options{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "rooms",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}

	key, err := store.Write(context.Background(), OriginalKey("abc"), []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := objects["/rooms/sessions/abc/original.jpg"]; !ok {
		t.Fatalf("expected path-style object, have %v", objects)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if url := store.URL(key); !strings.HasPrefix(url, srv.URL+"/rooms/") {
		t.Fatalf("unexpected url %q", url)
	}
}
