package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/mocks"
)

func newAuthService(t *testing.T) (*mocks.MockSessionStore, *AuthService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	sessions := mocks.NewMockSessionStore(ctrl)
	return sessions, NewAuthService(AuthServiceOptions{Sessions: sessions})
}

func studentClaims() *domainauth.SessionClaims {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	return &domainauth.SessionClaims{
		UID:       "stu-1",
		Email:     "stu@college.edu",
		Role:      domainauth.RoleStudent,
		IssuedAt:  now,
		ExpiresAt: now.Add(120 * time.Hour),
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()
	sessions, svc := newAuthService(t)
	ctx := context.Background()

	sessions.EXPECT().MintSessionCredential(ctx, "proof").Return("cred", nil).Times(1)
	sessions.EXPECT().VerifySessionCredential(ctx, "cred").Return(studentClaims(), nil).Times(1)

	cred, claims, err := svc.Login(ctx, "proof")
	require.NoError(t, err)
	assert.Equal(t, "cred", cred)
	assert.Equal(t, "stu-1", claims.UID)
}

func TestAuthService_Login_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing proof", func(t *testing.T) {
		_, svc := newAuthService(t)
		_, _, err := svc.Login(ctx, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rejected proof", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().MintSessionCredential(ctx, "bad").
			Return("", apperrors.InvalidCredential(errors.New("bad signature")))
		_, _, err := svc.Login(ctx, "bad")
		assert.True(t, apperrors.IsInvalidCredential(err))
	})

	t.Run("backend outage", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().MintSessionCredential(ctx, "proof").
			Return("", apperrors.BackendUnavailable(errors.New("dial tcp")))
		_, _, err := svc.Login(ctx, "proof")
		assert.True(t, apperrors.IsBackendUnavailable(err))
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("revokes principal sessions", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().VerifySessionCredential(ctx, "cred").Return(studentClaims(), nil)
		sessions.EXPECT().RevokeAllSessions(ctx, "stu-1").Return(nil).Times(1)
		require.NoError(t, svc.Logout(ctx, "cred"))
	})

	t.Run("invalid credential is a no-op", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().VerifySessionCredential(ctx, "stale").Return(nil, nil)
		require.NoError(t, svc.Logout(ctx, "stale"))
	})

	t.Run("empty credential is a no-op", func(t *testing.T) {
		_, svc := newAuthService(t)
		require.NoError(t, svc.Logout(ctx, ""))
	})

	t.Run("revocation outage", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().VerifySessionCredential(ctx, "cred").Return(studentClaims(), nil)
		sessions.EXPECT().RevokeAllSessions(ctx, "stu-1").Return(apperrors.BackendUnavailable(errors.New("redis down")))
		assert.True(t, apperrors.IsBackendUnavailable(svc.Logout(ctx, "cred")))
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		cred     string
		claims   *domainauth.SessionClaims
		storeErr error
		wantCode apperrors.ErrorCode
	}{
		{name: "missing", cred: "", wantCode: apperrors.ErrCodeAuthenticationMissing},
		{name: "invalid", cred: "garbage", wantCode: apperrors.ErrCodeAuthenticationInvalid},
		{name: "outage", cred: "cred", storeErr: apperrors.BackendUnavailable(errors.New("x")), wantCode: apperrors.ErrCodeBackendUnavailable},
		{name: "unexpected error", cred: "cred", storeErr: errors.New("boom"), wantCode: apperrors.ErrCodeBackendUnavailable},
		{name: "valid", cred: "cred", claims: studentClaims()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, svc := newAuthService(t)
			if tt.cred != "" {
				sessions.EXPECT().VerifySessionCredential(ctx, tt.cred).Return(tt.claims, tt.storeErr)
			}
			got, err := svc.Authenticate(ctx, tt.cred)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.claims, got)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
}

func TestAuthService_RequireRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions, svc := newAuthService(t)
	sessions.EXPECT().VerifySessionCredential(ctx, "cred").Return(studentClaims(), nil).Times(2)

	_, err := svc.RequireRole(ctx, "cred", domainauth.RoleAdmin)
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeAuthorizationDenied))

	claims, err := svc.RequireRole(ctx, "cred", domainauth.RoleAdmin, domainauth.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStudent, claims.Role)
}

func TestAuthService_SetRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sets claims then revokes", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		gomock.InOrder(
			sessions.EXPECT().SetClaims(ctx, "u1", domainauth.PrincipalClaims{Role: domainauth.RoleTPO, ProgramCode: "MBA"}).Return(nil),
			sessions.EXPECT().RevokeAllSessions(ctx, "u1").Return(nil),
		)
		require.NoError(t, svc.SetRole(ctx, SetRoleInput{UID: "u1", Role: domainauth.RoleTPO, ProgramCode: "MBA"}))
	})

	t.Run("invalid role never reaches the store", func(t *testing.T) {
		_, svc := newAuthService(t)
		err := svc.SetRole(ctx, SetRoleInput{UID: "u1", Role: "root"})
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "role", apperrors.GetField(err))
	})

	t.Run("store failure skips revocation", func(t *testing.T) {
		sessions, svc := newAuthService(t)
		sessions.EXPECT().SetClaims(ctx, "u1", gomock.Any()).Return(apperrors.BackendUnavailable(errors.New("db down")))
		err := svc.SetRole(ctx, SetRoleInput{UID: "u1", Role: domainauth.RoleAdmin})
		assert.True(t, apperrors.IsBackendUnavailable(err))
	})
}
