package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want %v", storage.bucket, "test-bucket")
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v, want %v", storage.region, "us-east-1")
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	outputDir := t.TempDir()
	storage, err := NewS3Storage(outputDir, testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	runDir, err := storage.RunDir()
	if err != nil {
		t.Fatalf("RunDir() error = %v", err)
	}

	scratch := filepath.Join(runDir, "transcoded.mp4")
	if err := os.WriteFile(scratch, []byte("video"), 0644); err != nil {
		t.Fatalf("failed to write scratch file: %v", err)
	}

	final, err := storage.Keep(scratch)
	if err != nil {
		t.Fatalf("Keep() error = %v", err)
	}
	if final != filepath.Join(outputDir, "transcoded.mp4") {
		t.Errorf("Keep() = %v", final)
	}
}

func TestS3Storage_Publish_MockServer(t *testing.T) {
	var uploaded []string

	// Mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if len(body) == 0 {
			t.Error("expected non-empty body")
		}

		uploaded = append(uploaded, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	runDir, err := storage.RunDir()
	if err != nil {
		t.Fatalf("RunDir() error = %v", err)
	}

	comment := filepath.Join(runDir, "comment.mp3")
	video := filepath.Join(runDir, "transcoded.mp4")
	if err := os.WriteFile(comment, []byte("audio"), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	urls, err := storage.Publish(context.Background(), []string{comment, video})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}

	runID := storage.RunID()
	wantComment := "https://test-bucket.s3.us-east-1.amazonaws.com/runs/" + runID + "/comment.mp3"
	wantVideo := "https://test-bucket.s3.us-east-1.amazonaws.com/runs/" + runID + "/transcoded.mp4"
	if urls[0] != wantComment {
		t.Errorf("urls[0] = %v, want %v", urls[0], wantComment)
	}
	if urls[1] != wantVideo {
		t.Errorf("urls[1] = %v, want %v", urls[1], wantVideo)
	}

	if len(uploaded) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploaded))
	}
	for _, p := range uploaded {
		if !strings.Contains(p, "runs/"+runID+"/") {
			t.Errorf("upload path %s missing run prefix", p)
		}
	}
}

func TestS3Storage_Publish_MissingArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if _, err := storage.Publish(context.Background(), []string{"/does/not/exist.mp4"}); err == nil {
		t.Error("expected error for missing artifact")
	}
}
