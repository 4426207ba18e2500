package openrouter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the public OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultRequestTimeout = 120 * time.Second
	defaultRetryInitial   = 250 * time.Millisecond
	defaultRetryMax       = 2
	appTitle              = "disqord"
	appReferer            = "https://github.com/router-for-me/disqord"
)

// Client talks to the OpenRouter API and tracks the account rate limit window.
type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client
	now     func() time.Time

	retryInitial time.Duration
	retryMax     uint64

	cooldown cooldown
}

// NewClient constructs a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := resty.New().
		SetTimeout(defaultRequestTimeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("HTTP-Referer", appReferer).
		SetHeader("X-Title", appTitle)
	return &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      base,
		http:         httpClient,
		now:          time.Now,
		retryInitial: defaultRetryInitial,
		retryMax:     defaultRetryMax,
	}
}

func (c *Client) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Client) request(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// IsRateLimited reports whether the account cooldown is active.
func (c *Client) IsRateLimited() bool {
	if c == nil {
		return false
	}
	return c.cooldown.active(c.clock())
}

// RateLimitResetAt returns the end of the active cooldown window.
func (c *Client) RateLimitResetAt() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	return c.cooldown.until(c.clock())
}

// Chat sends a chat completion request. While the cooldown is active it fails
// without issuing a request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("openrouter: nil client")
	}
	now := c.clock()
	if resetAt, limited := c.cooldown.until(now); limited {
		return nil, NewRateLimitedError("cooldown active", secondsUntil(resetAt, now))
	}

	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewTimeoutError(err.Error())
		}
		return nil, fmt.Errorf("openrouter: chat request: %w", err)
	}
	if !isSuccess(resp.StatusCode()) {
		return nil, c.handleErrorResponse(resp)
	}

	var out ChatResponse
	if errUnmarshal := json.Unmarshal(resp.Body(), &out); errUnmarshal != nil {
		return nil, fmt.Errorf("openrouter: decode chat response: %w", errUnmarshal)
	}
	return &out, nil
}

// handleErrorResponse classifies a failed response and updates the cooldown on 429.
func (c *Client) handleErrorResponse(resp *resty.Response) error {
	status := resp.StatusCode()
	if status != http.StatusTooManyRequests {
		apiErr := Classify(status, resp.Body())
		log.WithFields(log.Fields{
			"status": status,
			"kind":   apiErr.Kind,
		}).WithError(apiErr).Error("openrouter: api error")
		return apiErr
	}

	apiErr := Classify(status, resp.Body())
	resetAt, ok := parseResetHeader(resp.Header().Get("X-RateLimit-Reset"))
	if !ok {
		// Provider-level limit: surface it without blocking other requests.
		log.WithError(apiErr).Warn("openrouter: provider rate limited")
		return apiErr
	}
	now := c.clock()
	c.cooldown.extend(resetAt)
	apiErr.RetryAfterSeconds = secondsUntil(resetAt, now)
	log.WithField("reset_at", resetAt.UTC().Format(time.RFC3339)).Warn("openrouter: rate limited, cooldown set")
	return apiErr
}

// ListModels returns catalog model ids. Failures yield an empty slice.
func (c *Client) ListModels(ctx context.Context) []string {
	models := c.ListModelsWithPricing(ctx)
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids
}

// ListModelsWithPricing returns the catalog with pricing. Failures yield an empty slice.
func (c *Client) ListModelsWithPricing(ctx context.Context) []Model {
	if c == nil {
		return []Model{}
	}
	body, err := c.getWithRetry(ctx, "/models")
	if err != nil {
		log.WithError(err).Error("openrouter: fetch models failed")
		return []Model{}
	}
	var payload modelsResponse
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil {
		log.WithError(errUnmarshal).Error("openrouter: decode models failed")
		return []Model{}
	}
	if payload.Data == nil {
		return []Model{}
	}
	return payload.Data
}

// GetCredits returns the remaining key balance. Failures yield zero; keys
// without a limit report +Inf.
func (c *Client) GetCredits(ctx context.Context) Credits {
	if c == nil {
		return Credits{}
	}
	body, err := c.getWithRetry(ctx, "/key")
	if err != nil {
		log.WithError(err).Error("openrouter: fetch credits failed")
		return Credits{}
	}
	var payload keyResponse
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil {
		log.WithError(errUnmarshal).Error("openrouter: decode credits failed")
		return Credits{}
	}
	if payload.Data.LimitRemaining == nil {
		return Credits{Remaining: math.Inf(1)}
	}
	return Credits{Remaining: *payload.Data.LimitRemaining}
}

// getWithRetry performs a GET, retrying transport failures and 5xx responses.
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var body []byte
	op := func() error {
		resp, err := c.request(ctx).Get(c.endpoint(path))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		status := resp.StatusCode()
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("GET %s: status %d", path, status)
		}
		if !isSuccess(status) {
			return backoff.Permanent(fmt.Errorf("GET %s: status %d", path, status))
		}
		body = resp.Body()
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInitial
	if expo.InitialInterval <= 0 {
		expo.InitialInterval = defaultRetryInitial
	}
	expo.MaxElapsedTime = 10 * time.Second
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, c.retryMax), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
