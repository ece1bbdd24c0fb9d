package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KyleGal/live-translation-api/internal/audio"
)

// Client provides HTTP client functionality for the transcription API.
// One Client is shared process-wide across sessions; it only issues
// read-only inference calls.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Rate limiting semaphore

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains transcription client configuration
type Config struct {
	Endpoint      string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// apiResponse mirrors the transcription service's JSON envelope.
type apiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Data    struct {
		Transcription string     `json:"transcription"`
		Timestamps    []apiChunk `json:"timestamps"`
	} `json:"data"`
}

// apiChunk is one timestamped chunk as the service reports it: the timestamp
// pair is [start, end] and end may be null for the trailing chunk.
type apiChunk struct {
	Text      string     `json:"text"`
	Timestamp []*float64 `json:"timestamp"`
}

// NewClient creates a new transcription HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Transcribe sends normalized float samples for transcription. The samples
// are re-encoded as a mono WAV upload; the service responds with text plus
// timestamped chunks.
func (c *Client) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (*Result, error) {
	if len(samples) == 0 {
		return nil, &Error{Message: "no audio samples provided"}
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		pcm[i] = int16(v)
	}

	wav, err := audio.EncodeWAV(audio.EncodeSamples(pcm), sampleRate)
	if err != nil {
		return nil, &Error{Message: "failed to encode audio", Cause: err}
	}

	body, contentType, err := c.createMultipartRequest(wav, language)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}

	return c.transcribeWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// TranscribeFile transcribes a finished audio artifact referenced by path.
// The service resolves the path locally; only the reference crosses the wire.
func (c *Client) TranscribeFile(ctx context.Context, audioPath string, language string) (*Result, error) {
	if audioPath == "" {
		return nil, &Error{Message: "audio path cannot be empty"}
	}

	payload, err := json.Marshal(map[string]string{
		"audio_path": audioPath,
		"language":   language,
	})
	if err != nil {
		return nil, &Error{Message: "failed to encode request", Cause: err}
	}

	return c.transcribeWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// transcribeWithRetry runs one logical transcription with the retry and
// rate-limiting policy shared by both entry points.
func (c *Client) transcribeWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) (*Result, error) {
	// Acquire semaphore for rate limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, &Error{Message: "request cancelled", Cause: ctx.Err()}
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()

			// Exponential backoff, capped
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{Message: "request cancelled", Cause: ctx.Err()}
			}
		}

		req, err := newRequest()
		if err != nil {
			c.incrementFailedRequests()
			return nil, &Error{Message: "failed to build HTTP request", Cause: err}
		}
		req.Header.Set("X-Request-ID", uuid.NewString())

		result, err := c.doRequest(req)
		if err == nil {
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(time.Since(startTime))
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			break
		}
	}

	c.incrementFailedRequests()
	return nil, &Error{
		Message: fmt.Sprintf("all %d attempts exhausted", c.config.MaxRetries+1),
		Cause:   lastErr,
	}
}

// doRequest performs a single HTTP request and decodes the response envelope.
func (c *Client) doRequest(req *http.Request) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if !envelope.Success {
		return nil, fmt.Errorf("service error: %s: %s", envelope.Error, envelope.Message)
	}

	result := &Result{
		Text:   strings.TrimSpace(envelope.Data.Transcription),
		Chunks: make([]Chunk, 0, len(envelope.Data.Timestamps)),
	}

	for _, tc := range envelope.Data.Timestamps {
		chunk := Chunk{Text: tc.Text}
		if len(tc.Timestamp) > 0 && tc.Timestamp[0] != nil {
			chunk.Start = *tc.Timestamp[0]
		}
		if len(tc.Timestamp) > 1 {
			chunk.End = tc.Timestamp[1]
		}
		result.Chunks = append(result.Chunks, chunk)
	}

	return result, nil
}

// createMultipartRequest builds a multipart/form-data body carrying the WAV
// upload and transcription parameters.
func (c *Client) createMultipartRequest(wav []byte, language string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "phrase.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(wav); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("failed to write language field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// isRetryable determines if an error is worth retrying
func isRetryable(err error) bool {
	// Matches through the url.Error wrapping a per-attempt timeout produces.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// 5xx server errors and rate limiting are retryable
	if strings.Contains(errStr, "http error 5") || strings.Contains(errStr, "http error 429") {
		return true
	}

	// Network/connection errors are typically retryable
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	activeRequests := len(c.semaphore)

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  activeRequests,
	}
}

// Close gracefully shuts down the client, waiting for active requests.
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
