// Package zoho posts synchronized customers and price quotes to the Zoho
// Invoice API.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"calsync-cloud/security"
)

const defaultBaseURL = "https://www.zohoapis.com/invoice/v3"

const (
	headerAuthorization = "Authorization"
	headerOrgID         = "X-com-zoho-invoice-organizationid"
	oauthTokenPrefix    = "Zoho-oauthtoken "
)

// CredentialSource supplies a valid bearer token and the organization scope
// for each outbound call. *security.TokenManager satisfies it.
type CredentialSource interface {
	AccessToken(ctx context.Context, provider security.Provider) (string, error)
	OrganizationID() (string, error)
}

// Client is the shared HTTP plumbing for the contact and estimate services.
type Client struct {
	httpClient  *http.Client
	credentials CredentialSource
	baseURL     string
}

func NewClient(httpClient *http.Client, credentials CredentialSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		credentials: credentials,
		baseURL:     defaultBaseURL,
	}
}

// postJSON sends an authenticated, organization-scoped POST and returns the
// raw status and body. Status classification is left to the callers.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	token, err := c.credentials.AccessToken(ctx, security.ProviderZoho)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get zoho access token: %w", err)
	}
	orgID, err := c.credentials.OrganizationID()
	if err != nil {
		return 0, nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to serialize zoho request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build zoho request: %w", err)
	}
	req.Header.Set(headerAuthorization, oauthTokenPrefix+token)
	req.Header.Set(headerOrgID, orgID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("zoho request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read zoho response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// classifyFailure maps a non-success Zoho response onto the error taxonomy.
func classifyFailure(status int, body []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthError{Status: status}
	}
	errResp := parseError(body)
	if status == http.StatusTooManyRequests || errResp.Code == codeRateLimited {
		return fmt.Errorf("%w (status %d)", ErrRateLimited, status)
	}
	return &APIError{Status: status, Code: errResp.Code, Message: errResp.Message}
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
