package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxRefreshAttempts = 3

// AuthError is a terminal authentication failure (401/403 from the token
// endpoint, or rejected credentials further downstream). It is never
// retried.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("access denied: invalid or missing credentials (status %d): %s", e.Status, e.Body)
}

// RefreshError is raised when the refresh exchange cannot produce a usable
// token: retries exhausted, or a success response missing required fields.
type RefreshError struct {
	Status int
	Body   string
	Reason string
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token refresh failed: %s (status %d): %s", e.Reason, e.Status, e.Body)
	}
	return fmt.Sprintf("token refresh failed: %s", e.Reason)
}

// AccessToken is the immutable result of a successful refresh.
type AccessToken struct {
	Token  string
	Expiry time.Time
}

// outcome classifies a single attempt of a retryable operation.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetry
	outcomeFatal
)

// retryWithBackoff runs op up to maxAttempts times, sleeping
// min(cap, base*2^(attempt-1)) between retryable attempts. Terminal
// outcomes stop the loop immediately; the last error is returned when
// attempts run out.
func retryWithBackoff(ctx context.Context, maxAttempts int, base, ceil time.Duration, op func(attempt int) (outcome, error)) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(attempt)
		switch result {
		case outcomeSuccess:
			return nil
		case outcomeFatal:
			return err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		delay := base << (attempt - 1)
		if delay > ceil {
			delay = ceil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// TokenRefresher performs the OAuth refresh-token exchange.
type TokenRefresher struct {
	httpClient *http.Client
}

func NewTokenRefresher(client *http.Client) *TokenRefresher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenRefresher{httpClient: client}
}

// Refresh posts the refresh-token grant to the given endpoint and returns
// the new access token. Transient failures are retried up to three times
// with exponential backoff; 401/403 and malformed success bodies are
// terminal.
func (r *TokenRefresher) Refresh(ctx context.Context, clientID, clientSecret, refreshToken, endpoint string) (AccessToken, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	body := form.Encode()

	var token AccessToken
	var lastStatus int
	var lastBody string
	var fatalErr error
	sawResponse := false

	err := retryWithBackoff(ctx, maxRefreshAttempts, 100*time.Millisecond, time.Second, func(attempt int) (outcome, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			fatalErr = fmt.Errorf("failed to build token refresh request: %w", err)
			return outcomeFatal, fatalErr
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			log.Printf("Token refresh attempt %d/%d failed: %v", attempt, maxRefreshAttempts, err)
			return outcomeRetry, fmt.Errorf("token refresh request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("Token refresh attempt %d/%d: failed to read response: %v", attempt, maxRefreshAttempts, err)
			return outcomeRetry, fmt.Errorf("failed to read token response: %w", err)
		}

		sawResponse = true
		lastStatus = resp.StatusCode
		lastBody = string(respBody)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			parsed, err := parseAccessToken(respBody)
			if err != nil {
				fatalErr = err
				return outcomeFatal, err
			}
			token = parsed
			return outcomeSuccess, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			log.Printf("Token refresh rejected with status %d", resp.StatusCode)
			fatalErr = &AuthError{Status: resp.StatusCode, Body: lastBody}
			return outcomeFatal, fatalErr
		default:
			log.Printf("Token refresh attempt %d/%d: unexpected status %d", attempt, maxRefreshAttempts, resp.StatusCode)
			return outcomeRetry, &RefreshError{Status: resp.StatusCode, Body: lastBody, Reason: "unexpected status"}
		}
	})
	if err != nil {
		if fatalErr != nil {
			return AccessToken{}, fatalErr
		}
		if !sawResponse {
			return AccessToken{}, &RefreshError{Reason: fmt.Sprintf("max retries %d reached, no response received: %v", maxRefreshAttempts, err)}
		}
		return AccessToken{}, &RefreshError{Status: lastStatus, Body: lastBody, Reason: fmt.Sprintf("max retries %d reached", maxRefreshAttempts)}
	}
	log.Println("Access token refreshed successfully")
	return token, nil
}

func parseAccessToken(body []byte) (AccessToken, error) {
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   *int64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return AccessToken{}, &RefreshError{Reason: fmt.Sprintf("error parsing token response: %v", err)}
	}
	if payload.AccessToken == "" {
		return AccessToken{}, &RefreshError{Reason: "access_token missing in response"}
	}
	if payload.ExpiresIn == nil {
		return AccessToken{}, &RefreshError{Reason: "expires_in missing in response"}
	}
	return AccessToken{
		Token:  payload.AccessToken,
		Expiry: time.Now().Add(time.Duration(*payload.ExpiresIn) * time.Second),
	}, nil
}
