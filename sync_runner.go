package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"

	"calsync-cloud/gcal"
	"calsync-cloud/routes"
	"calsync-cloud/zoho"
)

type eventSource interface {
	FetchUpcoming(ctx context.Context) ([]*calendar.Event, error)
}

type processedStore interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type distanceEstimator interface {
	Estimate(ctx context.Context, origin, destination string) (*routes.Matrix, error)
}

type contactService interface {
	AddContact(ctx context.Context, req zoho.ContactRequest) (*zoho.ContactResponse, error)
}

type estimateService interface {
	CreateEstimate(ctx context.Context, req zoho.EstimateRequest) (*zoho.EstimateResponse, error)
}

// RunSummary is the outcome of one full pass over the fetched events.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Fetched          int       `json:"fetched"`
	AlreadyProcessed int       `json:"already_processed"`
	Skipped          int       `json:"skipped"`
	Synced           int       `json:"synced"`
	Failed           int       `json:"failed"`
}

// SyncRunner drives the per-event pipeline: dedup check, customer
// extraction, distance enrichment, contact upsert, processed mark, estimate
// creation. One event failing never aborts the rest of the run.
type SyncRunner struct {
	events    eventSource
	dedup     processedStore
	distance  distanceEstimator
	contacts  contactService
	estimates estimateService

	sourceAddress string
	delimiter     string
	itemID        string
	itemRate      float64
	itemQuantity  float64
	interval      time.Duration
	enabled       bool

	mu      sync.Mutex
	lastRun *RunSummary
}

// SyncRunnerConfig carries the knobs main reads from the environment.
type SyncRunnerConfig struct {
	SourceAddress string
	Delimiter     string
	ItemID        string
	ItemRate      float64
	ItemQuantity  float64
	Interval      time.Duration
	Enabled       bool
}

func NewSyncRunner(events eventSource, dedup processedStore, distance distanceEstimator, contacts contactService, estimates estimateService, cfg SyncRunnerConfig) *SyncRunner {
	if cfg.Delimiter == "" {
		cfg.Delimiter = "#"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &SyncRunner{
		events:        events,
		dedup:         dedup,
		distance:      distance,
		contacts:      contacts,
		estimates:     estimates,
		sourceAddress: cfg.SourceAddress,
		delimiter:     cfg.Delimiter,
		itemID:        cfg.ItemID,
		itemRate:      cfg.ItemRate,
		itemQuantity:  cfg.ItemQuantity,
		interval:      cfg.Interval,
		enabled:       cfg.Enabled,
	}
}

// Start runs the pipeline on a ticker until the context is cancelled.
func (r *SyncRunner) Start(ctx context.Context) {
	if !r.enabled {
		log.Println("Calendar sync disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			if _, err := r.RunOnce(ctx); err != nil {
				log.Printf("Sync run failed: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// LastRun returns the summary of the most recent run, if any.
func (r *SyncRunner) LastRun() *RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRun == nil {
		return nil
	}
	summary := *r.lastRun
	return &summary
}

// RunOnce fetches the upcoming events and processes each one. A fetch
// failure fails the whole run; everything after that is isolated per event.
func (r *SyncRunner) RunOnce(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	events, err := r.events.FetchUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", summary.RunID, err)
	}
	summary.Fetched = len(events)
	log.Printf("Run %s: fetched %d upcoming events", summary.RunID, len(events))

	for _, event := range events {
		r.processEvent(ctx, event, summary)
	}

	summary.FinishedAt = time.Now().UTC()
	log.Printf("Run %s: synced=%d already_processed=%d skipped=%d failed=%d",
		summary.RunID, summary.Synced, summary.AlreadyProcessed, summary.Skipped, summary.Failed)

	r.mu.Lock()
	r.lastRun = summary
	r.mu.Unlock()
	return summary, nil
}

func (r *SyncRunner) processEvent(ctx context.Context, event *calendar.Event, summary *RunSummary) {
	processed, err := r.dedup.IsProcessed(ctx, event.Id)
	if err != nil {
		log.Printf("Dedup check failed for event %s: %v", event.Id, err)
		summary.Failed++
		return
	}
	if processed {
		log.Printf("Event %s already processed", event.Id)
		summary.AlreadyProcessed++
		return
	}

	customer, ok := gcal.RetrieveCustomer(event, r.delimiter)
	if !ok {
		log.Printf("No customer found in event %s", event.Id)
		summary.Skipped++
		return
	}

	if err := r.syncCustomer(ctx, event.Id, customer); err != nil {
		log.Printf("Failed to sync event %s: %v", event.Id, err)
		summary.Failed++
		return
	}
	summary.Synced++
}

// syncCustomer upserts the contact, marks the event processed and creates
// the estimate. The event stays unmarked on contact failure so a future run
// retries it.
func (r *SyncRunner) syncCustomer(ctx context.Context, eventID string, customer gcal.Customer) error {
	r.enrichWithDistance(ctx, &customer)

	resp, err := r.contacts.AddContact(ctx, zoho.NewContactRequest(customer))
	if err != nil {
		if errors.Is(err, zoho.ErrRateLimited) {
			log.Printf("Zoho rate limit hit while adding contact for event %s", eventID)
		}
		return err
	}
	if resp.Code != 0 && !resp.Duplicate() {
		return &zoho.APIError{Status: http.StatusOK, Code: resp.Code, Message: resp.Message}
	}

	if err := r.dedup.MarkProcessed(ctx, eventID); err != nil {
		return fmt.Errorf("contact created but event not marked: %w", err)
	}

	if resp.Duplicate() {
		// No contact id comes back on a duplicate, so there is nothing to
		// attach an estimate to.
		log.Printf("Contact for event %s already existed, skipping estimate", eventID)
		return nil
	}
	if resp.Contact == nil {
		log.Printf("Contact response for event %s has no contact id, skipping estimate", eventID)
		return nil
	}
	r.createEstimate(ctx, eventID, resp.Contact.ContactID)
	return nil
}

// enrichWithDistance attaches the travel note. Failures only cost the note.
func (r *SyncRunner) enrichWithDistance(ctx context.Context, customer *gcal.Customer) {
	if customer.Address == "" {
		return
	}
	matrix, err := r.distance.Estimate(ctx, r.sourceAddress, customer.Address)
	if err != nil {
		log.Printf("Could not calculate distance to %s: %v", customer.Address, err)
		return
	}
	element, ok := matrix.FirstElement()
	if !ok {
		log.Printf("Distance result for %s is empty", customer.Address)
		return
	}
	customer.Note = routes.FormatNote(element)
}

// createEstimate is best-effort: a failure is logged and never unwinds the
// already-marked event.
func (r *SyncRunner) createEstimate(ctx context.Context, eventID string, contactID int64) {
	req := zoho.EstimateRequest{
		CustomerID: strconv.FormatInt(contactID, 10),
		LineItems: []zoho.LineItem{{
			ItemID:   r.itemID,
			Rate:     r.itemRate,
			Quantity: r.itemQuantity,
		}},
	}
	resp, err := r.estimates.CreateEstimate(ctx, req)
	if err != nil {
		log.Printf("Estimate creation failed for event %s: %v", eventID, err)
		return
	}
	if resp.Code != 0 {
		log.Printf("Estimate rejected for event %s: %s", eventID, resp.Message)
		return
	}
	if resp.Estimate != nil {
		log.Printf("Estimate %s created for event %s", resp.Estimate.EstimateID, eventID)
	}
}
