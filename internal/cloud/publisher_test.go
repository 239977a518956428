package cloud

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type capturedPut struct {
	mu          sync.Mutex
	method      string
	path        string
	body        string
	contentType string
	auth        string
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, *capturedPut) {
	t.Helper()
	got := &capturedPut{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.mu.Lock()
		got.method, got.path, got.body = r.Method, r.URL.Path, string(b)
		got.contentType = r.Header.Get("Content-Type")
		got.auth = r.Header.Get("Authorization")
		got.mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func testPublisher(t *testing.T, endpoint string) *S3Publisher {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	p, err := NewS3Publisher(context.Background(), Options{
		Bucket:    "decks",
		Endpoint:  endpoint,
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Prefix:    "/slidex/",
	}, nil)
	if err != nil {
		t.Fatalf("NewS3Publisher: %v", err)
	}
	return p
}

func TestS3Publisher_PutObject(t *testing.T) {
	srv, got := newFakeS3(t, http.StatusOK)
	p := testPublisher(t, srv.URL)

	artifact := filepath.Join(t.TempDir(), "lecture_slides.pdf")
	if err := os.WriteFile(artifact, []byte("%PDF-1.3 fake"), 0644); err != nil {
		t.Fatal(err)
	}

	loc, err := p.Publish(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if loc != "s3://decks/slidex/lecture_slides.pdf" {
		t.Errorf("location = %q", loc)
	}

	got.mu.Lock()
	defer got.mu.Unlock()
	if got.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", got.method)
	}
	if got.path != "/decks/slidex/lecture_slides.pdf" {
		t.Errorf("path = %s, want path-style bucket/key", got.path)
	}
	if got.body != "%PDF-1.3 fake" {
		t.Errorf("body = %q", got.body)
	}
	if got.contentType != "application/pdf" {
		t.Errorf("content type = %q", got.contentType)
	}
	if !strings.Contains(got.auth, "AKIDEXAMPLE") {
		t.Errorf("request not signed with static credentials: %q", got.auth)
	}
}

func TestS3Publisher_ServerError(t *testing.T) {
	srv, _ := newFakeS3(t, http.StatusForbidden)
	p := testPublisher(t, srv.URL)

	artifact := filepath.Join(t.TempDir(), "deck.pptx")
	os.WriteFile(artifact, []byte("pk"), 0644)

	if _, err := p.Publish(context.Background(), artifact); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestS3Publisher_DisabledWithoutBucket(t *testing.T) {
	p := &S3Publisher{}
	if p.Enabled() {
		t.Error("publisher without bucket should be disabled")
	}
	loc, err := p.Publish(context.Background(), "/nonexistent")
	if err != nil || loc != "" {
		t.Errorf("Publish() = %q, %v; want no-op", loc, err)
	}

	var d Publisher = Disabled{}
	if d.Enabled() {
		t.Error("Disabled.Enabled() = true")
	}
}

func TestS3Publisher_Key(t *testing.T) {
	p := &S3Publisher{bucket: "b"}
	if got := p.Key("/x/y/deck.pdf"); got != "deck.pdf" {
		t.Errorf("Key() = %q", got)
	}
	p.prefix = "team"
	if got := p.Key("/x/y/deck.pdf"); got != "team/deck.pdf" {
		t.Errorf("Key() = %q", got)
	}
}
