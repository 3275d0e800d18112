package igdb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	perr "playdex/internal/platform/errors"
	"playdex/internal/platform/logger"
	"playdex/internal/platform/metrics"
)

const (
	baseURLDefault = "https://api.igdb.com/v4"
	defaultTimeout = 10 * time.Second
	defaultUA      = "playdex"

	// Only rate limiting is retried; anything else propagates immediately
	maxRetries = 3
	retryBase  = 1000 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL   string
	TokenURL  string
	ClientID  string
	Secret    string
	UserAgent string
	Timeout   time.Duration
}

// Client is the Apicalypse POST transport. Every call re-fetches auth
// headers per attempt so a token rotated between retries is picked up
type Client struct {
	http  *http.Client
	opts  Options
	auth  *TokenSource
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	httpc := &http.Client{Timeout: o.Timeout}
	return &Client{
		http:  httpc,
		opts:  o,
		auth:  NewTokenSource(httpc, o.TokenURL, o.ClientID, o.Secret),
		log:   *logger.Named("igdb"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Do posts an Apicalypse query to the given endpoint and returns the raw
// response body. 429 responses back off and retry up to maxRetries times;
// every other non-2xx status is terminal
func (c *Client) Do(ctx context.Context, endpoint, query string) ([]byte, error) {
	url := c.opts.BaseURL + "/" + endpoint
	corr := uuid.NewString()

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(query)))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "igdb request build failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("X-Correlation-ID", corr)
		if err := c.auth.Headers(ctx, req.Header); err != nil {
			return nil, err
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			metrics.ObserveUpstream(endpoint, 0, lat)
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "igdb %s unreachable", endpoint)
		}

		metrics.ObserveUpstream(endpoint, resp.StatusCode, lat)
		c.log.Debug().
			Str("endpoint", endpoint).
			Str("correlation_id", corr).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Msg("igdb http response")

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = drainAndClose(resp.Body)
			if attempt >= maxRetries {
				metrics.RateLimitExhausted.Inc()
				return nil, perr.UpstreamStatus(http.StatusTooManyRequests, "")
			}
			back := retryBase << uint(attempt)
			metrics.UpstreamRetries.WithLabelValues(endpoint).Inc()
			c.log.Warn().
				Str("endpoint", endpoint).
				Dur("retry_in", back).
				Int("attempt", attempt).
				Msg("igdb rate limited backing off")
			c.sleep(back)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.UpstreamStatus(resp.StatusCode, strings.TrimSpace(string(body)))
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "igdb %s body read failed", endpoint)
		}
		return body, nil
	}
}

// query posts to endpoint and decodes the JSON response into out
func (c *Client) query(ctx context.Context, endpoint, q string, out any) error {
	body, err := c.Do(ctx, endpoint, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "igdb %s decode failed", endpoint)
	}
	return nil
}

// count posts a count query and returns the reported total
func (c *Client) count(ctx context.Context, endpoint, q string) (int64, error) {
	var payload struct {
		Count int64 `json:"count"`
	}
	if err := c.query(ctx, endpoint+"/count", q, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}
