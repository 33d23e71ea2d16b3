// Package dedup gives the sync pipeline at-most-once processing semantics
// across invocations. Processed event ids are recorded with a conditional
// insert so that concurrent runs racing on the same event agree on a single
// winner, and Redis evicts the records after the configured TTL.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxEventIDLength = 255
	defaultTTLDays   = 30
	secondsPerDay    = 24 * 60 * 60
)

// ErrInvalidEventID is returned before any store access when an event id is
// blank or longer than 255 characters.
var ErrInvalidEventID = errors.New("invalid event id")

// Store marks calendar event ids as processed, keyed under a configurable
// prefix (the "table" the records live in).
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttlDays   int64
	now       func() time.Time
}

func NewStore(client *redis.Client, keyPrefix string, ttlDays int64) *Store {
	if ttlDays <= 0 {
		ttlDays = defaultTTLDays
	}
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		ttlDays:   ttlDays,
		now:       time.Now,
	}
}

// IsProcessed reports whether the event id has already been marked. A
// missing record is a normal false result, not an error.
func (s *Store) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := validateEventID(eventID); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id with an expires_at timestamp. The
// insert is conditional on the key not existing; a lost race is a
// successful no-op, which is what makes the call idempotent.
func (s *Store) MarkProcessed(ctx context.Context, eventID string) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}
	expiresAt := s.now().Unix() + s.ttlDays*secondsPerDay
	ttl := time.Duration(s.ttlDays*secondsPerDay) * time.Second

	inserted, err := s.client.SetNX(ctx, s.key(eventID), strconv.FormatInt(expiresAt, 10), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to mark event %s as processed: %w", eventID, err)
	}
	if !inserted {
		log.Printf("Event %s already marked as processed, skipping", eventID)
		return nil
	}
	return nil
}

func (s *Store) key(eventID string) string {
	return s.keyPrefix + ":" + eventID
}

func validateEventID(eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("%w: must not be empty or blank", ErrInvalidEventID)
	}
	if len(eventID) > maxEventIDLength {
		return fmt.Errorf("%w: must not be longer than %d characters", ErrInvalidEventID, maxEventIDLength)
	}
	return nil
}
