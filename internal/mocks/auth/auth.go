// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProofVerifier = (*StaticProofVerifier)(nil)
	_ ports.ClaimsStore           = (*MemoryClaimsStore)(nil)
	_ ports.RevocationStore       = (*MemoryRevocationStore)(nil)
)

// ErrUnknownProof is returned by StaticProofVerifier for proofs it was not seeded with.
var ErrUnknownProof = errors.New("unknown identity proof")

// StaticProofVerifier accepts only the proofs it was seeded with.
type StaticProofVerifier struct {
	VerifyFunc func(ctx context.Context, proof string) (domainauth.Identity, error)
	Proofs     map[string]domainauth.Identity
}

// NewStaticProofVerifier creates a verifier with no known proofs.
func NewStaticProofVerifier() *StaticProofVerifier {
	return &StaticProofVerifier{Proofs: make(map[string]domainauth.Identity)}
}

// Add registers proof as valid for id.
func (v *StaticProofVerifier) Add(proof string, id domainauth.Identity) {
	v.Proofs[proof] = id
}

func (v *StaticProofVerifier) VerifyProof(ctx context.Context, proof string) (domainauth.Identity, error) {
	if v.VerifyFunc != nil {
		return v.VerifyFunc(ctx, proof)
	}
	id, ok := v.Proofs[proof]
	if !ok {
		return domainauth.Identity{}, ErrUnknownProof
	}
	return id, nil
}

// MemoryClaimsStore is an in-memory claims store. Setting Err makes every call fail.
type MemoryClaimsStore struct {
	mu     sync.Mutex
	claims map[string]domainauth.PrincipalClaims
	Err    error
}

// NewMemoryClaimsStore creates an empty claims store.
func NewMemoryClaimsStore() *MemoryClaimsStore {
	return &MemoryClaimsStore{claims: make(map[string]domainauth.PrincipalClaims)}
}

func (m *MemoryClaimsStore) GetClaims(_ context.Context, uid string) (domainauth.PrincipalClaims, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domainauth.PrincipalClaims{}, false, m.Err
	}
	c, ok := m.claims[uid]
	return c, ok, nil
}

func (m *MemoryClaimsStore) SetClaims(_ context.Context, uid string, claims domainauth.PrincipalClaims) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.claims[uid] = claims
	return nil
}

// MemoryRevocationStore is an in-memory revocation store. Setting Err makes every call fail.
type MemoryRevocationStore struct {
	mu    sync.Mutex
	since map[string]time.Time
	Err   error
}

// NewMemoryRevocationStore creates an empty revocation store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{since: make(map[string]time.Time)}
}

func (m *MemoryRevocationStore) RevokeAll(_ context.Context, uid string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	at = at.Truncate(time.Millisecond)
	if cur, ok := m.since[uid]; ok && cur.After(at) {
		return nil
	}
	m.since[uid] = at
	return nil
}

func (m *MemoryRevocationStore) ValidSince(_ context.Context, uid string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return time.Time{}, false, m.Err
	}
	t, ok := m.since[uid]
	return t, ok, nil
}
