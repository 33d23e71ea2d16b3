package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Provider identifies which credential set an access token belongs to.
type Provider string

const (
	ProviderCalendar Provider = "calendar"
	ProviderZoho     Provider = "zoho"
)

// OAuthCredentials is the per-provider OAuth state. The access token and its
// expiry are the only mutable fields; both change together on a successful
// refresh.
type OAuthCredentials struct {
	ClientID          string    `json:"client_id"`
	ClientSecret      string    `json:"client_secret"`
	RefreshToken      string    `json:"refresh_token"`
	AccessToken       string    `json:"access_token"`
	AccessTokenExpiry time.Time `json:"access_token_expiry"`
}

// MapsCredentials holds the Distance Matrix API key.
type MapsCredentials struct {
	APIKey string `json:"api_key"`
}

// ZohoCredentials extends the OAuth set with the Zoho organization the
// contact and estimate calls are scoped to.
type ZohoCredentials struct {
	OAuthCredentials
	OrganizationID string `json:"organization_id"`
}

// AppCredentials is the full credential set the service runs with.
type AppCredentials struct {
	Calendar *OAuthCredentials `json:"calendar"`
	Maps     *MapsCredentials  `json:"maps"`
	Zoho     *ZohoCredentials  `json:"zoho"`
}

// CredentialStore reads and writes the full credential set. The backing
// store is opaque to the token manager.
type CredentialStore interface {
	Read(ctx context.Context) (*AppCredentials, error)
	Update(ctx context.Context, creds *AppCredentials) error
}

// RedisCredentialStore keeps the credential set as a JSON blob under a
// single key.
type RedisCredentialStore struct {
	client *redis.Client
	key    string
}

func NewRedisCredentialStore(client *redis.Client, key string) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, key: key}
}

func (s *RedisCredentialStore) Read(ctx context.Context) (*AppCredentials, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("no credentials found at key %s", s.key)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return decodeCredentials([]byte(raw))
}

func (s *RedisCredentialStore) Update(ctx context.Context, creds *AppCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// FileCredentialStore keeps the credential set in a local JSON file, for
// running outside the managed store.
type FileCredentialStore struct {
	path string
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

func (s *FileCredentialStore) Read(ctx context.Context) (*AppCredentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", s.path, err)
	}
	return decodeCredentials(data)
}

func (s *FileCredentialStore) Update(ctx context.Context, creds *AppCredentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file %s: %w", s.path, err)
	}
	return nil
}

func decodeCredentials(data []byte) (*AppCredentials, error) {
	if len(data) == 0 {
		return nil, errors.New("credentials payload is empty")
	}
	var creds AppCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &creds, nil
}
