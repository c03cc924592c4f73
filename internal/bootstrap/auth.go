package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/placementcell/portal-auth/config"
	"github.com/placementcell/portal-auth/internal/adapters/identity"
	"github.com/placementcell/portal-auth/internal/adapters/oidc"
	redisadapter "github.com/placementcell/portal-auth/internal/adapters/redis"
	"github.com/placementcell/portal-auth/internal/adapters/sessiontoken"
	"github.com/placementcell/portal-auth/internal/data"
	"github.com/placementcell/portal-auth/internal/service"
)

// AuthDeps are the shared clients the auth components are built from.
type AuthDeps struct {
	Auth config.AuthConfig
	// RevocationKeyPrefix namespaces revocation markers in Redis.
	RevocationKeyPrefix string
	DB                  *sql.DB
	Redis               redis.UniversalClient
	Logger              *slog.Logger
}

// AuthComponents is the identity backend handle plus everything built around
// it. It is constructed once at startup and shared.
type AuthComponents struct {
	Backend    *identity.Backend
	Service    *service.AuthService
	CSRF       *service.CSRFManager
	Codec      *sessiontoken.Codec
	Principals *data.PrincipalRepo
}

// SessionIssuer is the iss claim of minted session credentials.
func SessionIssuer(cfg config.IdentityConfig) string {
	return "https://session.portal/" + cfg.ProjectID
}

// BuildAuth wires the session store port from configuration. The OIDC
// verifier performs discovery lazily, so this makes no network calls.
func BuildAuth(deps AuthDeps) (*AuthComponents, error) {
	if deps.DB == nil || deps.Redis == nil {
		return nil, errors.New("database and redis clients are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	key, err := deps.Auth.Identity.RSAPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity private key: %w", err)
	}
	codec, err := sessiontoken.NewCodec(sessiontoken.Options{
		Key:      key,
		Issuer:   SessionIssuer(deps.Auth.Identity),
		Audience: deps.Auth.Identity.ProjectID,
		TTL:      deps.Auth.SessionMaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	verifier, err := oidc.NewVerifier(oidc.VerifierConfig{
		IssuerURL: deps.Auth.Identity.IssuerURL,
		Audience:  deps.Auth.Identity.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("identity proof verifier: %w", err)
	}

	revocations, err := redisadapter.NewRevocationStore(deps.Redis, redisadapter.RevocationStoreOptions{
		Prefix: deps.RevocationKeyPrefix,
		TTL:    codec.TTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("revocation store: %w", err)
	}

	principals := data.NewPrincipalRepo(deps.DB)
	backend := identity.NewBackend(identity.BackendOptions{
		Verifier:    verifier,
		Codec:       codec,
		Claims:      principals,
		Revocations: revocations,
		Logger:      logger,
	})

	csrf, err := service.NewCSRFManager(service.CSRFOptions{
		Secret: []byte(deps.Auth.CSRFSecret),
		Window: deps.Auth.CSRFWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("csrf manager: %w", err)
	}

	return &AuthComponents{
		Backend:    backend,
		Service:    service.NewAuthService(service.AuthServiceOptions{Sessions: backend, Logger: logger}),
		CSRF:       csrf,
		Codec:      codec,
		Principals: principals,
	}, nil
}
