// Package gcal fetches upcoming bookings from Google Calendar and extracts
// the customer data embedded in them.
package gcal

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"calsync-cloud/security"
)

const (
	defaultCalendarID = "primary"
	defaultLookahead  = 72 * time.Hour
)

// Source fetches the upcoming events of one calendar. The Calendar service
// is rebuilt per fetch so each run carries a freshly validated token.
type Source struct {
	google     *security.GoogleServiceClient
	calendarID string
	lookahead  time.Duration
	now        func() time.Time
}

func NewSource(google *security.GoogleServiceClient, calendarID string, lookahead time.Duration) *Source {
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	if lookahead <= 0 {
		lookahead = defaultLookahead
	}
	return &Source{
		google:     google,
		calendarID: calendarID,
		lookahead:  lookahead,
		now:        time.Now,
	}
}

// FetchUpcoming lists single events between now and now+lookahead, ordered
// by start time.
func (s *Source) FetchUpcoming(ctx context.Context) ([]*calendar.Event, error) {
	service, err := s.google.CalendarService(ctx)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	end := start.Add(s.lookahead)

	resp, err := service.Events.List(s.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar events %s to %s: %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	return resp.Items, nil
}
