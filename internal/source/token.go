package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSource supplies bearer tokens for upstream calls. Invalidate drops
// any cached token so the next Token call fetches a fresh one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticTokenSource returns the same token forever. Useful for services
// authenticated with a long-lived API key.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) { return string(s), nil }
func (s StaticTokenSource) Invalidate()                           {}

// ClientCredentialsTokenSource fetches OAuth2 client-credentials tokens
// and caches them until shortly before expiry. Concurrent refreshes are
// collapsed into a single upstream request.
type ClientCredentialsTokenSource struct {
	tokenEndpoint string
	clientID      string
	clientSecret  string
	client        *http.Client

	group singleflight.Group

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClientCredentialsTokenSource creates a token source for the given
// client credentials.
func NewClientCredentialsTokenSource(tokenEndpoint, clientID, clientSecret string, client *http.Client) *ClientCredentialsTokenSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClientCredentialsTokenSource{
		tokenEndpoint: tokenEndpoint,
		clientID:      clientID,
		clientSecret:  clientSecret,
		client:        client,
	}
}

// Token returns a cached token while it is fresh, refreshing otherwise.
// When many requests hit an expired token at once, only one refresh call
// goes upstream; the rest share its result.
func (s *ClientCredentialsTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && time.Now().Before(s.expires) {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token.
func (s *ClientCredentialsTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expires = time.Time{}
	s.mu.Unlock()
}

func (s *ClientCredentialsTokenSource) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token: endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("token: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token: response carried no access_token")
	}

	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	// Refresh a little early so in-flight requests don't race expiry. Short
	// lifetimes keep at least half their window so the cache stays useful.
	margin := 10 * time.Second
	if half := ttl / 2; half < margin {
		margin = half
	}

	s.mu.Lock()
	s.token = body.AccessToken
	s.expires = time.Now().Add(ttl - margin)
	s.mu.Unlock()

	return body.AccessToken, nil
}
