package zoho

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Zoho error codes the pipeline reacts to.
const (
	codeBadToken         = 14
	codeMissingParameter = 1001
	codeInvalidParameter = 1002
	codeDuplicateLegacy  = 1005
	codeRateLimited      = 1038
	CodeDuplicateContact = 3062
)

// ErrRateLimited is returned when Zoho reports the API call limit was
// reached; callers can apply a different backoff policy than for generic
// failures.
var ErrRateLimited = errors.New("zoho api call limit reached")

// AuthError is a 401/403 from the Zoho API.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("zoho authentication error: status %d", e.Status)
}

// APIError wraps any other non-success Zoho response with a readable
// message derived from the provider error code.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoho request failed (status %d): %s", e.Status, friendlyMessage(e.Code, e.Message))
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func parseError(body []byte) errorResponse {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errorResponse{Code: -1, Message: "could not parse error response"}
	}
	return resp
}

func friendlyMessage(code int, message string) string {
	switch code {
	case codeBadToken:
		return "invalid or expired access token"
	case codeMissingParameter:
		return "mandatory parameter is missing, check the contact data"
	case codeInvalidParameter:
		return "invalid parameter value"
	case codeDuplicateLegacy, CodeDuplicateContact:
		return "contact already exists"
	case codeRateLimited:
		return "api call limit reached"
	default:
		return fmt.Sprintf("zoho error code %d: %s", code, message)
	}
}
