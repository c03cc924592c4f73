package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/placementcell/portal-auth/internal/data/pgxutil"
	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/ports"
)

var _ ports.ClaimsStore = (*PrincipalRepo)(nil)

// PrincipalRecord is a stored principal with its claims.
type PrincipalRecord struct {
	UID         string    `db:"uid"`
	Role        string    `db:"role"`
	ProgramCode string    `db:"program_code"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Claims returns the record's claims.
func (r PrincipalRecord) Claims() domainauth.PrincipalClaims {
	return domainauth.PrincipalClaims{Role: domainauth.Role(r.Role), ProgramCode: r.ProgramCode}
}

// PrincipalRepo is the authoritative claims store backed by PostgreSQL.
type PrincipalRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{DB: db, Now: time.Now}
}

const selectPrincipalSQL = `
	SELECT uid, role, program_code, created_at, updated_at
	FROM principals
	WHERE uid = $1`

// Get returns the stored principal or a NotFound error.
func (r *PrincipalRepo) Get(ctx context.Context, uid string) (*PrincipalRecord, error) {
	var rec PrincipalRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, selectPrincipalSQL, uid)
		if err != nil {
			return err
		}
		defer rows.Close()
		rec, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[PrincipalRecord])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &rec, nil
}

// GetClaims returns the principal's claims. A principal that has never been
// assigned claims yields ok=false and no error.
func (r *PrincipalRepo) GetClaims(ctx context.Context, uid string) (domainauth.PrincipalClaims, bool, error) {
	rec, err := r.Get(ctx, uid)
	switch {
	case apperrors.IsNotFound(err):
		return domainauth.PrincipalClaims{}, false, nil
	case err != nil:
		return domainauth.PrincipalClaims{}, false, fmt.Errorf("get claims for %s: %w", uid, err)
	}
	return rec.Claims(), true, nil
}

// SetClaims inserts or replaces the principal's claims.
func (r *PrincipalRepo) SetClaims(ctx context.Context, uid string, claims domainauth.PrincipalClaims) error {
	if uid == "" {
		return apperrors.ValidationField("uid", "uid is required")
	}
	if !claims.Role.Valid() {
		return apperrors.ValidationField("role", fmt.Sprintf("invalid role %q", claims.Role))
	}

	const q = `
		INSERT INTO principals (uid, role, program_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (uid) DO UPDATE
		SET role = EXCLUDED.role,
		    program_code = EXCLUDED.program_code,
		    updated_at = EXCLUDED.updated_at`

	_, err := r.DB.ExecContext(ctx, q, uid, string(claims.Role), claims.ProgramCode, r.now().UTC())
	if err != nil {
		return fmt.Errorf("set claims for %s: %w", uid, apperrors.MapDBError(err))
	}
	return nil
}

// Delete removes the principal. Deleting a missing principal is not an error.
func (r *PrincipalRepo) Delete(ctx context.Context, uid string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM principals WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("delete principal %s: %w", uid, apperrors.MapDBError(err))
	}
	return nil
}

func (r *PrincipalRepo) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
