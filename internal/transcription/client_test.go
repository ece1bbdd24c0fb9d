package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func createTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		Endpoint:      endpoint,
		Timeout:       5 * time.Second,
		MaxRetries:    0,
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return client
}

func successResponse() map[string]interface{} {
	return map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transcription": "hello world",
			"timestamps": []map[string]interface{}{
				{"text": "hello", "timestamp": []interface{}{0.0, 1.0}},
				{"text": "world", "timestamp": []interface{}{1.0, nil}},
			},
		},
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	client, err := NewClient(Config{Endpoint: "http://localhost:9999/transcribe"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}
	if client.config.MaxConcurrent != 10 {
		t.Errorf("Expected default max concurrent 10, got %d", client.config.MaxConcurrent)
	}
}

func TestTranscribe(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected X-Request-ID header")
		}
		json.NewEncoder(w).Encode(successResponse())
	}))
	defer server.Close()

	client := createTestClient(t, server.URL)

	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.1
	}

	result, err := client.Transcribe(context.Background(), samples, 16000, "en")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Text != "hello world" {
		t.Errorf("Expected 'hello world', got %q", result.Text)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(result.Chunks))
	}
	if result.Chunks[0].Start != 0 || result.Chunks[0].End == nil || *result.Chunks[0].End != 1.0 {
		t.Errorf("Unexpected first chunk: %+v", result.Chunks[0])
	}
	if result.Chunks[1].End != nil {
		t.Error("Expected nil end for open-ended final chunk")
	}

	if gotContentType == "" || gotContentType[:19] != "multipart/form-data" {
		t.Errorf("Expected multipart upload, got content type %q", gotContentType)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestTranscribeEmptySamples(t *testing.T) {
	client := createTestClient(t, "http://localhost:9999/transcribe")

	_, err := client.Transcribe(context.Background(), nil, 16000, "en")
	if err == nil {
		t.Fatal("Expected error for empty samples")
	}

	var trErr *Error
	if !errors.As(err, &trErr) {
		t.Errorf("Expected typed transcription error, got %T", err)
	}
}

func TestTranscribeFile(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(successResponse())
	}))
	defer server.Close()

	client := createTestClient(t, server.URL)

	result, err := client.TranscribeFile(context.Background(), "/tmp/recording.wav", "en")
	if err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}

	if gotBody["audio_path"] != "/tmp/recording.wav" {
		t.Errorf("Expected audio_path in body, got %v", gotBody)
	}
	if result.Text != "hello world" {
		t.Errorf("Expected 'hello world', got %q", result.Text)
	}
}

func TestTranscribeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "model_error",
			"message": "model unavailable",
		})
	}))
	defer server.Close()

	client := createTestClient(t, server.URL)

	_, err := client.TranscribeFile(context.Background(), "/tmp/x.wav", "en")
	if err == nil {
		t.Fatal("Expected error for success=false response")
	}

	var trErr *Error
	if !errors.As(err, &trErr) {
		t.Errorf("Expected typed transcription error, got %T", err)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(successResponse())
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:      server.URL,
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	result, err := client.TranscribeFile(context.Background(), "/tmp/x.wav", "en")
	if err != nil {
		t.Fatalf("Expected retry to eventually succeed: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("Unexpected result: %q", result.Text)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
	if client.GetStats().TotalRetries != 1 {
		t.Errorf("Expected 1 retry recorded, got %d", client.GetStats().TotalRetries)
	}
}

func TestTranscribeDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:      server.URL,
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.TranscribeFile(context.Background(), "/tmp/x.wav", "en"); err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected exactly 1 attempt for a client error, got %d", attempts.Load())
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{errors.New("HTTP error 503: overloaded"), true},
		{errors.New("HTTP error 429: rate limited"), true},
		{errors.New("HTTP error 400: bad request"), false},
		{errors.New("connection refused"), true},
		{errors.New("request timeout"), true},
		{context.DeadlineExceeded, true},
		// A per-attempt timeout surfaces wrapped, not as the bare sentinel.
		{fmt.Errorf("HTTP request failed: %w", context.DeadlineExceeded), true},
		{errors.New("Post \"http://x/transcribe\": Client.Timeout exceeded while awaiting headers"), true},
		{errors.New("service error: bad input"), false},
	}

	for _, c := range cases {
		if got := isRetryable(c.err); got != c.retryable {
			t.Errorf("isRetryable(%q): expected %v, got %v", c.err, c.retryable, got)
		}
	}
}
