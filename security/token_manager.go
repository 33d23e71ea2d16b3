package security

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	zohoTokenEndpoint   = "https://accounts.zoho.com/oauth/v2/token"

	// Refresh this long before the stored expiry so a token never goes
	// stale mid-request.
	expirySafetyMargin = 60 * time.Second
)

var errCredentialsNotInitialized = errors.New("credentials are not initialized")

// TokenManager owns the credential set and hands out valid bearer tokens,
// refreshing them through the TokenRefresher when they are expired or about
// to expire. Refreshes are serialized; some providers issue single-use
// refresh tokens and a racing second refresh would burn one.
type TokenManager struct {
	mu        sync.Mutex
	store     CredentialStore
	refresher *TokenRefresher
	creds     *AppCredentials

	googleTokenURL string
	zohoTokenURL   string
	now            func() time.Time
}

// NewTokenManager loads the credential set once. A load failure is fatal to
// the caller; the pipeline cannot make progress without credentials.
func NewTokenManager(ctx context.Context, store CredentialStore, refresher *TokenRefresher) (*TokenManager, error) {
	creds, err := store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving credentials: %w", err)
	}
	return &TokenManager{
		store:          store,
		refresher:      refresher,
		creds:          creds,
		googleTokenURL: googleTokenEndpoint,
		zohoTokenURL:   zohoTokenEndpoint,
		now:            time.Now,
	}, nil
}

// AccessToken returns a valid bearer token for the provider, refreshing and
// persisting the credential set first when needed.
func (m *TokenManager) AccessToken(ctx context.Context, provider Provider) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oauth, endpoint, err := m.providerCredentials(provider)
	if err != nil {
		return "", err
	}

	if m.now().After(oauth.AccessTokenExpiry.Add(-expirySafetyMargin)) {
		log.Printf("Access token for %s expired or near expiry, refreshing", provider)
		token, err := m.refresher.Refresh(ctx, oauth.ClientID, oauth.ClientSecret, oauth.RefreshToken, endpoint)
		if err != nil {
			return "", err
		}
		oauth.AccessToken = token.Token
		oauth.AccessTokenExpiry = token.Expiry
		if err := m.store.Update(ctx, m.creds); err != nil {
			return "", fmt.Errorf("failed to persist refreshed credentials: %w", err)
		}
	}
	return oauth.AccessToken, nil
}

// MapsAPIKey returns the Distance Matrix API key.
func (m *TokenManager) MapsAPIKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds.Maps == nil {
		return "", fmt.Errorf("maps %w", errCredentialsNotInitialized)
	}
	return m.creds.Maps.APIKey, nil
}

// OrganizationID returns the Zoho organization the CRM calls are scoped to.
func (m *TokenManager) OrganizationID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds.Zoho == nil {
		return "", fmt.Errorf("zoho %w", errCredentialsNotInitialized)
	}
	return m.creds.Zoho.OrganizationID, nil
}

func (m *TokenManager) providerCredentials(provider Provider) (*OAuthCredentials, string, error) {
	switch provider {
	case ProviderCalendar:
		if m.creds.Calendar == nil {
			return nil, "", fmt.Errorf("calendar %w", errCredentialsNotInitialized)
		}
		return m.creds.Calendar, m.googleTokenURL, nil
	case ProviderZoho:
		if m.creds.Zoho == nil {
			return nil, "", fmt.Errorf("zoho %w", errCredentialsNotInitialized)
		}
		return &m.creds.Zoho.OAuthCredentials, m.zohoTokenURL, nil
	default:
		return nil, "", fmt.Errorf("unknown credential provider: %s", provider)
	}
}
