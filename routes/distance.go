// Package routes estimates the driving distance from the office to a
// customer address through the Google Distance Matrix API.
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

	metersToMiles = 0.000621371
)

// TextValue is the Distance Matrix text + numeric pair (meters for
// distances, seconds for durations).
type TextValue struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

type Element struct {
	Status   string    `json:"status"`
	Distance TextValue `json:"distance"`
	Duration TextValue `json:"duration"`
}

type Row struct {
	Elements []Element `json:"elements"`
}

// Matrix is the Distance Matrix response for a single origin/destination
// pair.
type Matrix struct {
	Status string `json:"status"`
	Rows   []Row  `json:"rows"`
}

// FirstElement returns the single origin/destination element, when present
// and resolved.
func (m *Matrix) FirstElement() (Element, bool) {
	if m == nil || len(m.Rows) == 0 || len(m.Rows[0].Elements) == 0 {
		return Element{}, false
	}
	el := m.Rows[0].Elements[0]
	if el.Status != "" && el.Status != "OK" {
		return Element{}, false
	}
	return el, true
}

// FormatNote renders the note attached to a customer record, e.g.
// "Distance: 12.4 km, 7.70 mi, duration: 17 mins".
func FormatNote(el Element) string {
	miles := float64(el.Distance.Value) * metersToMiles
	return fmt.Sprintf("Distance: %s, %.2f mi, duration: %s", el.Distance.Text, miles, el.Duration.Text)
}

// Client calls the Distance Matrix API with a static API key.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewClient(httpClient *http.Client, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

// Estimate fetches the distance and duration between the two addresses.
func (c *Client) Estimate(ctx context.Context, origin, destination string) (*Matrix, error) {
	if origin == "" {
		return nil, errors.New("origin address is empty")
	}
	if destination == "" {
		return nil, errors.New("destination address is empty")
	}

	query := url.Values{
		"origins":      {origin},
		"destinations": {destination},
		"key":          {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build distance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read distance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Distance request failed with status %d: %s", resp.StatusCode, body)
		return nil, fmt.Errorf("distance request returned status %d", resp.StatusCode)
	}

	var matrix Matrix
	if err := json.Unmarshal(body, &matrix); err != nil {
		return nil, fmt.Errorf("failed to decode distance response: %w", err)
	}
	return &matrix, nil
}
