// Package clients contains the HTTP client for the Mercado Bitcoin REST v4
// API, including its OAuth2 client-credentials token lifecycle.
package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// tokenExpiryBuffer forces a refresh this long before the token actually
// expires so an in-flight request never races the expiry.
const tokenExpiryBuffer = 5 * time.Minute

const defaultTokenTTL = time.Hour

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticator obtains and refreshes bearer tokens via the OAuth2
// client-credentials grant. Safe for concurrent use.
type Authenticator struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenType   string
	expiresAt   time.Time
}

// NewAuthenticator creates an Authenticator for the given API credentials.
func NewAuthenticator(apiKey, apiSecret, baseURL string, timeout time.Duration) *Authenticator {
	return &Authenticator{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokenType:  "Bearer",
	}
}

// Authenticate requests a fresh access token from the token endpoint.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build token request")
	}
	req.SetBasicAuth(a.apiKey, a.apiSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return errors.Wrap(err, "failed to decode token response")
	}
	if tr.AccessToken == "" {
		return errors.New("token endpoint returned empty access token")
	}

	ttl := defaultTokenTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}
	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	a.mu.Lock()
	a.accessToken = tr.AccessToken
	a.tokenType = tokenType
	a.expiresAt = time.Now().Add(ttl - tokenExpiryBuffer)
	a.mu.Unlock()

	return nil
}

// EnsureAuthenticated refreshes the token if it is missing or inside the
// expiry buffer.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) error {
	a.mu.Lock()
	valid := a.accessToken != "" && time.Now().Before(a.expiresAt)
	a.mu.Unlock()

	if valid {
		return nil
	}
	return a.Authenticate(ctx)
}

// AuthorizationHeader returns the "Authorization" header value for
// authenticated requests, refreshing the token first when needed.
func (a *Authenticator) AuthorizationHeader(ctx context.Context) (string, error) {
	if err := a.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenType + " " + a.accessToken, nil
}

// Invalidate discards the current token so the next request re-authenticates.
// Called after the API answers 401 despite a locally valid token.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.accessToken = ""
	a.expiresAt = time.Time{}
	a.mu.Unlock()
}
