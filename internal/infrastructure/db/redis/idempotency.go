package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyTTL = 24 * time.Hour
	// A reservation whose owner died frees itself after this long.
	reservationTTL = 30 * time.Second
	pendingMarker  = "pending"
)

// IdempotencyStore maps a client retry key to the booking it created.
// Key format: idem:booking:<employee_id>:<key>
type IdempotencyStore struct {
	client         *redis.Client
	ttl            time.Duration
	reservationTTL time.Duration
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL, reservationTTL: reservationTTL}
}

// Reserve claims the key with SET NX. A losing caller reads the current
// value: the booking id once recorded, or the pending marker.
func (s *IdempotencyStore) Reserve(ctx context.Context, employeeID, key string) (bool, string, error) {
	k := s.key(employeeID, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.reservationTTL).Result()
	if err != nil {
		return false, "", fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return true, "", nil
	}

	id, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two commands; report it as still in flight.
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("idempotency lookup: %w", err)
	}
	if id == pendingMarker {
		return false, "", nil
	}
	return false, id, nil
}

// Remember replaces the reservation with the booking id for the full TTL.
func (s *IdempotencyStore) Remember(ctx context.Context, employeeID, key, bookingID string) error {
	if err := s.client.Set(ctx, s.key(employeeID, key), bookingID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release deletes a reservation so the client can retry after a failed create.
func (s *IdempotencyStore) Release(ctx context.Context, employeeID, key string) error {
	if err := s.client.Del(ctx, s.key(employeeID, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(employeeID, key string) string {
	return fmt.Sprintf("idem:booking:%s:%s", employeeID, key)
}
