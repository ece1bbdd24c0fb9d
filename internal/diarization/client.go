package diarization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// Client provides HTTP client functionality for the speaker diarization API.
// Diarization runs over complete recordings and can take minutes for long
// audio, so the timeout is configured far above the transcription client's.
type Client struct {
	config     Config
	httpClient *http.Client
	authToken  string

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains diarization client configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// apiResponse mirrors the diarization service's JSON envelope.
type apiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Data    struct {
		Speakers []SpeakerSegment `json:"speakers"`
	} `json:"data"`
}

// NewClient creates a new diarization HTTP client. The HF_TOKEN environment
// variable supplies the bearer token when the service requires one.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		authToken:  os.Getenv("HF_TOKEN"),
	}, nil
}

// Diarize submits raw WAV bytes and returns the identified speaker segments
// ordered as the service reports them.
func (c *Client) Diarize(ctx context.Context, wav []byte, sampleRate int, opts Options) ([]SpeakerSegment, error) {
	if len(wav) == 0 {
		return nil, &Error{Message: "no audio data provided"}
	}

	if opts.MinSpeakers <= 0 {
		opts.MinSpeakers = 1
	}
	if opts.MaxSpeakers < opts.MinSpeakers {
		opts.MaxSpeakers = opts.MinSpeakers
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(wav))
	if err != nil {
		c.incrementFailedRequests()
		return nil, &Error{Message: "failed to build HTTP request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Source-Language", opts.Language)
	req.Header.Set("X-Sample-Rate", strconv.Itoa(sampleRate))
	req.Header.Set("X-Min-Speakers", strconv.Itoa(opts.MinSpeakers))
	req.Header.Set("X-Max-Speakers", strconv.Itoa(opts.MaxSpeakers))
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.incrementFailedRequests()
		return nil, &Error{Message: "HTTP request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, &Error{Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return nil, &Error{Message: fmt.Sprintf("HTTP error %d: %s", resp.StatusCode, string(respBody))}
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		c.incrementFailedRequests()
		return nil, &Error{Message: "failed to parse response JSON", Cause: err}
	}

	if !envelope.Success {
		c.incrementFailedRequests()
		return nil, &Error{Message: fmt.Sprintf("service error: %s: %s", envelope.Error, envelope.Message)}
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	return envelope.Data.Speakers, nil
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

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

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

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
	}
}
