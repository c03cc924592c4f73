// Package redis provides Redis-backed adapters for the auth core.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/ports"
)

// DefaultKeyPrefix namespaces revocation markers.
const DefaultKeyPrefix = "portal:revoked:"

// maxRevokeAttempts bounds WATCH retries when concurrent revokes of the same
// principal collide.
const maxRevokeAttempts = 5

// legacySecondsCutoff separates markers written in unix seconds from unix
// milliseconds. Any millisecond timestamp after 2001-09-09 exceeds it.
const legacySecondsCutoff = 1_000_000_000_000

var _ ports.RevocationStore = (*RevocationStore)(nil)

// RevocationStore keeps one "valid since" marker per principal, in unix
// milliseconds. Credentials issued before the marker are revoked. Markers expire
// after TTL, which should equal the session max age: once every older
// credential has expired on its own the marker has nothing left to reject.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RevocationStoreOptions groups configuration for RevocationStore.
type RevocationStoreOptions struct {
	Prefix string        // Optional: defaults to DefaultKeyPrefix
	TTL    time.Duration // Required: session max age
}

// NewRevocationStore creates a Redis revocation store.
func NewRevocationStore(client redis.UniversalClient, opts RevocationStoreOptions) (*RevocationStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("revocation TTL must be positive")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RevocationStore{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

// RevokeAll marks every credential for uid issued before at as revoked. The
// marker only moves forward; an older timestamp never un-revokes anything.
func (s *RevocationStore) RevokeAll(ctx context.Context, uid string, at time.Time) error {
	if uid == "" {
		return apperrors.ValidationField("uid", "uid is required")
	}
	key := s.prefix + uid
	ms := at.UnixMilli()

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next := ms
		if cur := markerMillis(raw); cur > next {
			next = cur
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, strconv.FormatInt(next, 10), s.ttl)
			return nil
		})
		return err
	}

	var err error
	for range maxRevokeAttempts {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return apperrors.BackendUnavailable(fmt.Errorf("revoke sessions for %s: %w", uid, err))
	}
	return nil
}

// ValidSince returns the revocation marker for uid, if any.
func (s *RevocationStore) ValidSince(ctx context.Context, uid string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+uid).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, apperrors.BackendUnavailable(fmt.Errorf("read revocation marker for %s: %w", uid, err))
	}
	return time.UnixMilli(markerMillis(raw)), true, nil
}

// markerMillis normalizes a stored marker to milliseconds. Markers written
// before the switch to millisecond precision hold unix seconds.
func markerMillis(raw int64) int64 {
	if raw > 0 && raw < legacySecondsCutoff {
		return raw * 1000
	}
	return raw
}
