package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

const estimatesEndpoint = "estimates"

type LineItem struct {
	ItemID   string  `json:"item_id"`
	Rate     float64 `json:"rate"`
	Quantity float64 `json:"quantity"`
}

type EstimateRequest struct {
	CustomerID string     `json:"customer_id"`
	LineItems  []LineItem `json:"line_items"`
}

type Estimate struct {
	EstimateID string `json:"estimate_id"`
}

type EstimateResponse struct {
	Code     int       `json:"code"`
	Message  string    `json:"message"`
	Estimate *Estimate `json:"estimate"`
}

// CreateEstimate posts a price quote for an existing contact.
func (c *Client) CreateEstimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error) {
	log.Printf("Creating estimate for contact %s", req.CustomerID)

	status, body, err := c.postJSON(ctx, estimatesEndpoint, req)
	if err != nil {
		return nil, err
	}
	if !isSuccessStatus(status) {
		return nil, classifyFailure(status, body)
	}

	var resp EstimateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode estimate response: %w", err)
	}
	return &resp, nil
}
