package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means the same request id was claimed but no result has been
// stored yet, i.e. the original request is (or died) mid-flight.
var ErrInFlight = errors.New("request already in progress")

const inFlightMarker = "__inflight__"

// IdempotencyStore dedupes retried mutations by client-generated request id
// (the X-Request-ID header on check-in). Claim wins the id with SetNX; the
// winner stores its serialized result so retries replay the original
// response instead of re-running the mutation.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func reqKey(id string) string { return fmt.Sprintf("fw:req:%s", id) }

// Claim returns (nil, nil) when this caller owns the id and should run the
// mutation, the stored result when a previous run finished, or ErrInFlight.
func (s *IdempotencyStore) Claim(ctx context.Context, id string) ([]byte, error) {
	ok, err := s.rdb.SetNX(ctx, reqKey(id), inFlightMarker, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	b, err := s.rdb.Get(ctx, reqKey(id)).Bytes()
	if err == redis.Nil {
		// key expired between SetNX and Get; treat as fresh
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(b) == inFlightMarker {
		return nil, ErrInFlight
	}
	return b, nil
}

// StoreResult records the winner's response body for later replays.
func (s *IdempotencyStore) StoreResult(ctx context.Context, id string, body []byte) error {
	return s.rdb.Set(ctx, reqKey(id), body, s.ttl).Err()
}

// Release frees the id after a failed run so the user can retry.
func (s *IdempotencyStore) Release(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, reqKey(id)).Err()
}
