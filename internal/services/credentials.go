package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenTimeout = 5 * time.Second

// TokenManager caches a client credentials bearer token until it expires.
type TokenManager struct {
	mu     sync.Mutex
	config *clientcredentials.Config
	client *http.Client
	token  *oauth2.Token
	now    func() time.Time
}

// NewTokenManager creates a TokenManager for the given client and token endpoint.
// A nil client uses a default one with the token exchange timeout.
func NewTokenManager(clientID, clientSecret, tokenURL string, client *http.Client) *TokenManager {
	if client == nil {
		client = newHTTPClient(tokenTimeout, nil)
	}
	return &TokenManager{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
		now:    time.Now,
	}
}

// Get returns the cached access token, exchanging credentials when it is missing or expired.
func (m *TokenManager) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && m.token.AccessToken != "" && (m.token.Expiry.IsZero() || m.now().Before(m.token.Expiry)) {
		return m.token.AccessToken, nil
	}

	if m.config.ClientID == "" || m.config.ClientSecret == "" {
		return "", errors.Wrap(shared.ErrMissingCredentials, "spotify client id and secret are required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	token, err := m.config.Token(ctx)
	if err != nil {
		return "", errors.Wrap(err, "client credentials exchange failed")
	}

	m.token = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next [TokenManager.Get] exchanges again.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}
