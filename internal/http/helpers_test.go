package httpx

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placementcell/portal-auth/internal/adapters/sessiontoken"
	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/service"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

var testNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func newTestCodec(t *testing.T, now time.Time) *sessiontoken.Codec {
	t.Helper()
	codec, err := sessiontoken.NewCodec(sessiontoken.Options{
		Key:      signingKey(t),
		Issuer:   "https://portal.test",
		Audience: "portal-test",
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return codec
}

func mintCredential(t *testing.T, uid string, role domainauth.Role) string {
	t.Helper()
	cred, err := newTestCodec(t, testNow).Mint(domainauth.SessionClaims{
		UID:   uid,
		Email: uid + "@college.edu",
		Role:  role,
	})
	require.NoError(t, err)
	return cred
}

func newTestCSRF(t *testing.T, now func() time.Time) *service.CSRFManager {
	t.Helper()
	m, err := service.NewCSRFManager(service.CSRFOptions{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Now:    now,
	})
	require.NoError(t, err)
	return m
}

// recordingSink captures counters for assertions.
type recordingSink struct {
	mu     sync.Mutex
	counts []recordedCount
}

type recordedCount struct {
	name string
	tags map[string]string
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, recordedCount{name: name, tags: tags})
}

func (s *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (s *recordingSink) last() recordedCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.counts) == 0 {
		return recordedCount{}
	}
	return s.counts[len(s.counts)-1]
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// okHandler answers 200 and echoes the principal role it saw.
func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			w.Header().Set("X-Seen-Role", string(p.Role))
			w.Header().Set("X-Seen-Uid", p.UID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
