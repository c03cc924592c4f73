package bootstrap

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementcell/portal-auth/config"
)

func testAuthConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return config.AuthConfig{
		CSRFSecret:        strings.Repeat("k", config.MinCSRFSecretLength),
		CSRFWindow:        time.Hour,
		SessionMaxAge:     120 * time.Hour,
		SessionCookieName: "session",
		Identity: config.IdentityConfig{
			ProjectID:   "placement-portal",
			ClientEmail: "svc@placement-portal.example.com",
			PrivateKey:  string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})),
			IssuerURL:   "https://issuer.example.com/placement-portal",
			Audience:    "placement-portal",
		},
	}
}

// lazyClients returns handles that never connect unless used.
func lazyClients(t *testing.T) (*sql.DB, redis.UniversalClient) {
	t.Helper()
	db, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() {
		_ = db.Close()
		_ = rdb.Close()
	})
	return db, rdb
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "session", cfg.Auth.SessionCookieName)
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, slog.LevelDebug, logLevel.Level())
	require.NoError(t, SetLogLevel(" WARN "))
	assert.Equal(t, slog.LevelWarn, logLevel.Level())
	assert.Error(t, SetLogLevel("loud"))
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: 5432, User: "portal", Password: "p@ss/word", Name: "portal", SSLMode: "require"})
	assert.Equal(t, "postgres://portal:p%40ss%2Fword@db:5432/portal?sslmode=require", dsn)
}

func TestNewRedisClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		wantDesc string
		wantErr  bool
	}{
		{name: "plain address", cfg: config.RedisConfig{URI: "cache:6379"}, wantDesc: "cache:6379"},
		{name: "url", cfg: config.RedisConfig{URI: "redis://:secret@cache:6380/2"}, wantDesc: "cache:6380"},
		{name: "sentinel", cfg: config.RedisConfig{UseSentinel: true, SentinelNodes: []string{" s1:26379 "}, SentinelMasterName: "main"}, wantDesc: "sentinel:main"},
		{name: "cluster", cfg: config.RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:7000", "n2:7000"}}, wantDesc: "cluster:n1:7000,n2:7000"},
		{name: "cluster without nodes", cfg: config.RedisConfig{UseCluster: true}, wantErr: true},
		{name: "empty uri", cfg: config.RedisConfig{}, wantErr: true},
		{name: "bad url", cfg: config.RedisConfig{URI: "redis://cache:notaport"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, desc, err := NewRedisClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesc, desc)
			assert.NoError(t, client.Close())
		})
	}
}

func TestBuildAuth(t *testing.T) {
	db, rdb := lazyClients(t)

	comps, err := BuildAuth(AuthDeps{Auth: testAuthConfig(t), DB: db, Redis: rdb})
	require.NoError(t, err)
	assert.NotNil(t, comps.Backend)
	assert.NotNil(t, comps.Service)
	assert.Equal(t, 120*time.Hour, comps.Codec.TTL())

	token, err := comps.CSRF.Issue()
	require.NoError(t, err)
	assert.True(t, comps.CSRF.Verify(token))
}

func TestBuildAuth_Errors(t *testing.T) {
	db, rdb := lazyClients(t)

	_, err := BuildAuth(AuthDeps{Auth: testAuthConfig(t)})
	assert.Error(t, err)

	bad := testAuthConfig(t)
	bad.Identity.PrivateKey = "not a key"
	_, err = BuildAuth(AuthDeps{Auth: bad, DB: db, Redis: rdb})
	assert.ErrorContains(t, err, "private key")

	bad = testAuthConfig(t)
	bad.CSRFSecret = "short"
	_, err = BuildAuth(AuthDeps{Auth: bad, DB: db, Redis: rdb})
	assert.ErrorContains(t, err, "csrf")
}

func TestBuildHTTPHandler(t *testing.T) {
	db, rdb := lazyClients(t)
	authCfg := testAuthConfig(t)
	comps, err := BuildAuth(AuthDeps{Auth: authCfg, DB: db, Redis: rdb})
	require.NoError(t, err)

	appCfg := &config.AppConfig{Auth: authCfg}
	h, err := BuildHTTPHandler(&HTTPServerConfig{Config: appCfg, Auth: comps})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)

	appCfg.HTTP.FrontendURL = "not a url"
	_, err = BuildHTTPHandler(&HTTPServerConfig{Config: appCfg, Auth: comps})
	assert.Error(t, err)
}

func TestServeHTTP_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := NewHTTPServer("127.0.0.1:0", http.NotFoundHandler())

	done := make(chan error, 1)
	go func() { done <- ServeHTTP(ctx, server, slog.Default()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
