// Package ai talks to the content generation backend. Without a configured
// gateway it answers with placeholders.
package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ai-bot/internal/cache"
	"ai-bot/internal/catalog"
	"ai-bot/internal/metrics"
)

const (
	generatePath        = "/v1/generate"
	translationCacheTTL = time.Hour
	maxErrorBody        = 256
)

var (
	// ErrInvalidCredential indicates the gateway rejected the API key.
	ErrInvalidCredential = errors.New("ai gateway invalid credential")
	// ErrEmptyPrompt is returned when there is nothing to send.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// Request is one generation call.
type Request struct {
	UserID         int64  `json:"user_id"`
	Service        string `json:"service"`
	Prompt         string `json:"prompt"`
	Language       string `json:"language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// Response is the generated content. Placeholder is set when no backend
// produced it.
type Response struct {
	Text        string `json:"text"`
	MediaURL    string `json:"media_url,omitempty"`
	Placeholder bool   `json:"-"`
}

// Provider generates content for a gated service.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config holds gateway settings. An empty BaseURL selects placeholder mode.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls an HTTP generation gateway.
type Client struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
	cache   *cache.Redis
}

var _ Provider = (*Client)(nil)

// New creates a Client. metrics and redis may be nil.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics, redis *cache.Redis) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "ai"),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
		cache:   redis,
	}
}

// Placeholder reports whether the client runs without a backend.
func (c *Client) Placeholder() bool {
	return c.baseURL == ""
}

// Generate produces content for req.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return Response{}, ErrEmptyPrompt
	}
	if !catalog.ValidService(req.Service) {
		return Response{}, fmt.Errorf("%w: %s", catalog.ErrUnknownService, req.Service)
	}
	if c.Placeholder() {
		c.observe(req.Service, "placeholder", 0)
		return Response{Placeholder: true}, nil
	}

	cacheKey := ""
	if req.Service == catalog.ServiceTranslation && c.cache != nil {
		cacheKey = c.cache.Key("translation", translationDigest(req))
		var cached Response
		ok, err := c.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			c.logger.Warn("read translation cache failed", "error", err)
		} else if ok {
			c.observe(req.Service, "cached", 0)
			return cached, nil
		}
	}

	var resp Response
	if err := c.do(ctx, req, &resp); err != nil {
		return Response{}, err
	}

	if cacheKey != "" {
		if err := c.cache.SetJSON(ctx, cacheKey, resp, translationCacheTTL); err != nil {
			c.logger.Warn("write translation cache failed", "error", err)
		}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request, dest *Response) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "ai-bot/gateway-client")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Service, "error", time.Since(start))
		return fmt.Errorf("ai request: %w", err)
	}
	defer res.Body.Close()

	statusLabel := fmt.Sprintf("%d", res.StatusCode)
	c.observe(req.Service, statusLabel, time.Since(start))

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 400 {
		return classifyHTTPError(res.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(dest.Text) == "" && dest.MediaURL == "" {
		return fmt.Errorf("ai gateway returned empty result")
	}
	return nil
}

func (c *Client) observe(service, status string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.AIRequests.WithLabelValues(service, status).Inc()
	if elapsed > 0 {
		c.metrics.AILatency.WithLabelValues(service, status).Observe(elapsed.Seconds())
	}
}

func classifyHTTPError(status int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status=%d)", ErrInvalidCredential, status)
	default:
		return fmt.Errorf("ai gateway error: status=%d body=%s", status, body)
	}
}

func translationDigest(req Request) string {
	sum := sha256.Sum256([]byte(strings.ToLower(req.TargetLanguage) + "\x00" + req.Prompt))
	return hex.EncodeToString(sum[:])
}
