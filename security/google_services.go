package security

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleServiceClient builds authenticated Google API services on top of the
// token manager.
type GoogleServiceClient struct {
	tokens *TokenManager
}

func NewGoogleServiceClient(tokens *TokenManager) *GoogleServiceClient {
	return &GoogleServiceClient{tokens: tokens}
}

// CalendarService returns a Calendar service authenticated with a freshly
// validated bearer token.
func (g *GoogleServiceClient) CalendarService(ctx context.Context) (*calendar.Service, error) {
	token, err := g.tokens.AccessToken(ctx, ProviderCalendar)
	if err != nil {
		return nil, fmt.Errorf("failed to get valid Calendar token: %w", err)
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return service, nil
}
