package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenKind selects which of the two cached bearer tokens a request uses.
type TokenKind string

const (
	// TokenUser is the refresh-token grant used for inventory and account
	// operations.
	TokenUser TokenKind = "user"
	// TokenApp is the client-credentials grant the Taxonomy API accepts
	// without user consent.
	TokenApp TokenKind = "app"
)

const (
	tokenURL = "https://api.ebay.com/identity/v1/oauth2/token"

	userScopes = "https://api.ebay.com/oauth/api_scope/sell.inventory " +
		"https://api.ebay.com/oauth/api_scope/sell.fulfillment " +
		"https://api.ebay.com/oauth/api_scope/sell.account"
	appScope = "https://api.ebay.com/oauth/api_scope"

	// expiryBuffer refreshes tokens slightly before eBay invalidates them.
	expiryBuffer = 60 * time.Second
)

// Credentials configures the token manager.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenManager owns the two cached bearer tokens. Concurrent callers that
// both observe an expired token share one in-flight refresh via singleflight
// instead of issuing duplicate round-trips.
type TokenManager struct {
	creds      Credentials
	httpClient *http.Client
	endpoint   string

	mu     sync.RWMutex
	tokens map[TokenKind]cachedToken

	refresh singleflight.Group
}

// NewTokenManager creates a TokenManager with empty caches.
func NewTokenManager(creds Credentials) *TokenManager {
	return &TokenManager{
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   tokenURL,
		tokens:     make(map[TokenKind]cachedToken),
	}
}

// NewTokenManagerWithEndpoint is used by tests to point at a stub server.
func NewTokenManagerWithEndpoint(creds Credentials, endpoint string) *TokenManager {
	m := NewTokenManager(creds)
	m.endpoint = endpoint
	return m
}

// GetValidToken returns a cached token or awaits a single shared refresh.
func (m *TokenManager) GetValidToken(ctx context.Context, kind TokenKind) (string, error) {
	m.mu.RLock()
	cached, ok := m.tokens[kind]
	m.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	v, err, _ := m.refresh.Do(string(kind), func() (interface{}, error) {
		// Re-check under the singleflight: a concurrent caller may have
		// already refreshed while we queued.
		m.mu.RLock()
		cached, ok := m.tokens[kind]
		m.mu.RUnlock()
		if ok && time.Now().Before(cached.expiresAt) {
			return cached.value, nil
		}

		token, expiresIn, err := m.fetchToken(ctx, kind)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.tokens[kind] = cachedToken{
			value:     token,
			expiresAt: time.Now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer),
		}
		m.mu.Unlock()

		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) fetchToken(ctx context.Context, kind TokenKind) (string, int, error) {
	if m.creds.ClientID == "" || m.creds.ClientSecret == "" {
		return "", 0, fmt.Errorf("eBay API credentials are not configured")
	}

	data := url.Values{}
	switch kind {
	case TokenUser:
		if m.creds.RefreshToken == "" {
			return "", 0, fmt.Errorf("eBay refresh token is not configured")
		}
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", m.creds.RefreshToken)
		data.Set("scope", userScopes)
	case TokenApp:
		data.Set("grant_type", "client_credentials")
		data.Set("scope", appScope)
	default:
		return "", 0, fmt.Errorf("unknown token kind %q", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("creating token request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(m.creds.ClientID + ":" + m.creds.ClientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("eBay auth failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("parsing token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	return payload.AccessToken, payload.ExpiresIn, nil
}
