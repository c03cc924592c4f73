package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProofVerifier(t *testing.T) {
	v := NewStaticProofVerifier()
	v.Add("proof-1", domainauth.Identity{UID: "u1", Email: "u1@example.com"})

	id, err := v.VerifyProof(context.Background(), "proof-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)

	_, err = v.VerifyProof(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownProof)
}

func TestStaticProofVerifier_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	v := &StaticProofVerifier{
		VerifyFunc: func(context.Context, string) (domainauth.Identity, error) {
			return domainauth.Identity{}, boom
		},
	}
	_, err := v.VerifyProof(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)
}

func TestMemoryClaimsStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryClaimsStore()

	_, ok, err := s.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetClaims(ctx, "u1", domainauth.PrincipalClaims{Role: domainauth.RoleTPO}))
	c, ok, err := s.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleTPO, c.Role)

	s.Err = errors.New("down")
	_, _, err = s.GetClaims(ctx, "u1")
	assert.Error(t, err)
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRevocationStore()
	at := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)

	_, ok, err := s.ValidSince(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RevokeAll(ctx, "u1", at))
	since, ok, err := s.ValidSince(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at.Truncate(time.Millisecond), since)
}
