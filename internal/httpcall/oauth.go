package httpcall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

// tokenSafety is subtracted from a token's lifetime so a cached token
// is never used when it could expire mid-flight.
const tokenSafety = 60 * time.Second

type cachedToken struct {
	token   string
	expires time.Time
}

// TokenCache holds OAuth2 client-credentials tokens keyed by
// backend-config identity. It is the one piece of engine state shared
// across runs, amortizing the token exchange; access is serialized so
// concurrent runs against the same config perform a single fetch.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

// Token returns a valid access token for the config, fetching a new one
// through the client-credentials exchange on a miss or after expiry.
func (c *TokenCache) Token(ctx context.Context, client *http.Client, cfg api.BackendConfig) (string, error) {
	key := cfg.Identity()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.tokens[key]; ok && c.now().Before(cached.expires) {
		return cached.token, nil
	}

	token, ttl, err := fetchToken(ctx, client, cfg.Auth)
	if err != nil {
		return "", err
	}

	if ttl > tokenSafety {
		c.tokens[key] = cachedToken{
			token:   token,
			expires: c.now().Add(ttl - tokenSafety),
		}
	}
	return token, nil
}

func fetchToken(ctx context.Context, client *http.Client, auth api.AuthParams) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", auth.ClientID)
	form.Set("client_secret", auth.ClientSecret)
	if auth.Scope != "" {
		form.Set("scope", auth.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("oauth2: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("oauth2: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("oauth2: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("oauth2: token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("oauth2: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("oauth2: token response carries no access_token")
	}

	return payload.AccessToken, time.Duration(payload.ExpiresIn) * time.Second, nil
}
