// Package igdb adapts the upstream IGDB catalog API: credential exchange,
// the Apicalypse POST transport with rate-limit retries, reference
// resolution, and facet aggregation
package igdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	perr "playdex/internal/platform/errors"
	"playdex/internal/platform/logger"
	"playdex/internal/platform/metrics"
)

const (
	tokenURLDefault = "https://id.twitch.tv/oauth2/token"

	// expirySkew refreshes slightly early so a token never dies mid-request
	expirySkew = 60 * time.Second

	tokenAttempts  = 3
	tokenRetryBase = 500 * time.Millisecond
)

// TokenSource exchanges client credentials for a bearer token and caches it
// until shortly before expiry. Concurrent refreshes collapse into one
// upstream exchange
type TokenSource struct {
	http     *http.Client
	tokenURL string
	clientID string
	secret   string
	log      logger.Logger

	mu      sync.RWMutex
	token   string
	expires time.Time

	group singleflight.Group
	now   func() time.Time
	sleep func(time.Duration)
}

// NewTokenSource creates a TokenSource. An empty tokenURL selects the
// Twitch identity endpoint
func NewTokenSource(httpc *http.Client, tokenURL, clientID, secret string) *TokenSource {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	if tokenURL == "" {
		tokenURL = tokenURLDefault
	}
	return &TokenSource{
		http:     httpc,
		tokenURL: tokenURL,
		clientID: clientID,
		secret:   secret,
		log:      *logger.Named("igdb.auth"),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Token returns a valid bearer token, refreshing if the cached one expired
// or is about to
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.RLock()
	tok, exp := t.token, t.expires
	t.mu.RUnlock()
	if tok != "" && t.now().Add(expirySkew).Before(exp) {
		return tok, nil
	}

	v, err, _ := t.group.Do("refresh", func() (any, error) {
		// a concurrent caller may have refreshed while we queued
		t.mu.RLock()
		tok, exp := t.token, t.expires
		t.mu.RUnlock()
		if tok != "" && t.now().Add(expirySkew).Before(exp) {
			return tok, nil
		}
		return t.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Headers sets the auth headers the upstream expects. Called fresh per
// transport attempt so retries pick up a rotated token
func (t *TokenSource) Headers(ctx context.Context, h http.Header) error {
	tok, err := t.Token(ctx)
	if err != nil {
		return err
	}
	h.Set("Client-ID", t.clientID)
	h.Set("Authorization", "Bearer "+tok)
	return nil
}

// Invalidate drops the cached token so the next call re-exchanges
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expires = time.Time{}
	t.mu.Unlock()
}

func (t *TokenSource) refresh(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		if attempt > 0 {
			back := tokenRetryBase << uint(attempt-1)
			t.log.Warn().Dur("retry_in", back).Int("attempt", attempt).Msg("credential exchange retrying")
			t.sleep(back)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		tok, ttl, err := t.exchange(ctx)
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			lastErr = err
			continue
		}
		metrics.TokenRefreshes.WithLabelValues("ok").Inc()

		t.mu.Lock()
		t.token = tok
		t.expires = t.now().Add(ttl)
		t.mu.Unlock()
		t.log.Debug().Dur("ttl", ttl).Msg("credential exchange ok")
		return tok, nil
	}
	return "", perr.Wrapf(lastErr, perr.ErrorCodeUpstreamAuth, "credential exchange failed after %d attempts", tokenAttempts)
}

func (t *TokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"client_id":     {t.clientID},
		"client_secret": {t.secret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, perr.Wrapf(err, perr.ErrorCodeUnknown, "token request build failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", 0, perr.Wrapf(err, perr.ErrorCodeUnavailable, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", 0, perr.UpstreamStatus(resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, perr.Wrapf(err, perr.ErrorCodeUpstreamAuth, "token response decode failed")
	}
	if payload.AccessToken == "" {
		return "", 0, perr.Newf(perr.ErrorCodeUpstreamAuth, "token response missing access_token")
	}
	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return payload.AccessToken, ttl, nil
}
