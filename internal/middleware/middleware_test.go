package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// accountsByID serves GetByID from a map; other methods are unused here.
type accountsByID struct {
	repo.AccountRepo
	byID map[uuid.UUID]model.Account
}

func (a accountsByID) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	acc, ok := a.byID[id]
	if !ok {
		return model.Account{}, apperr.NotFound("User not found")
	}
	return acc, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiter_slidingWindow(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 2)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "a")
	assert.False(t, ok, "third request inside the window")

	ok, _ = rl.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = rl.Allow(ctx, "a")
	assert.True(t, ok, "window has slid past the earlier hits")

	rl.sweep()
	rl.mu.Lock()
	assert.Len(t, rl.requests, 1, "expired key b is swept")
	rl.mu.Unlock()
}

func TestLimiterFactory_closeStopsJanitors(t *testing.T) {
	f := NewLimiterFactory(nil)
	l := f.New("send_otp", Budget{Window: time.Minute, MaxReqs: 1})
	_, isMemory := l.(*RateLimiter)
	assert.True(t, isMemory)
	f.New("login", Budget{Window: time.Minute, MaxReqs: 1})

	f.Close()
	f.Close()
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	defer rl.Close()
	h := RateLimitMiddleware(rl, "send_otp", GetIPKey, nil, zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/send-otp", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	other := req.Clone(req.Context())
	other.RemoteAddr = "203.0.113.8:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("limiter errors fail open", func(t *testing.T) {
		h := RateLimitMiddleware(failingLimiter{}, "login", GetIPKey, nil, zap.NewNop())(okHandler)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:1234"
	assert.Equal(t, "ip:198.51.100.1", GetIPKey(req))

	req.RemoteAddr = "198.51.100.2"
	assert.Equal(t, "ip:198.51.100.2", GetIPKey(req))
}

func TestBudgetString(t *testing.T) {
	assert.Equal(t, "10/10m0s", Budget{Window: 10 * time.Minute, MaxReqs: 10}.String())
}

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTService("test-secret")
	devotee := model.Account{ID: uuid.New(), Phone: "+919876543210", Role: model.RoleDevotee}
	admin := model.Account{ID: uuid.New(), Phone: "+919000000000", Role: model.RoleAdmin}
	accounts := accountsByID{byID: map[uuid.UUID]model.Account{devotee.ID: devotee, admin.ID: admin}}

	sign := func(acc model.Account, role model.Role) string {
		tok, err := jwt.SignSession(acc.ID, acc.Phone, role)
		require.NoError(t, err)
		return tok
	}

	var seen Principal
	adminOnly := AuthMiddleware(jwt, accounts)(RequireRole(model.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = GetPrincipal(r.Context())
			id, ok := GetAccountID(r.Context())
			assert.True(t, ok)
			assert.Equal(t, seen.AccountID, id)
			w.WriteHeader(http.StatusOK)
		})))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"unknown account", "Bearer " + sign(model.Account{ID: uuid.New()}, model.RoleAdmin), http.StatusUnauthorized},
		{"wrong role", "Bearer " + sign(devotee, model.RoleDevotee), http.StatusForbidden},
		// the stored role wins over the token's claim
		{"forged role claim", "Bearer " + sign(devotee, model.RoleAdmin), http.StatusForbidden},
		{"admin", "bearer " + sign(admin, model.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/institutions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			adminOnly.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	assert.Equal(t, admin.ID, seen.AccountID)
	assert.Equal(t, model.RoleAdmin, seen.Role)
}

func TestRequireRole_withoutPrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(model.RoleInstitution)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{AccountID: uuid.New(), Role: model.RoleInstitution}))
	rec = httptest.NewRecorder()
	RequireRole(model.RoleAdmin, model.RoleInstitution)(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedisLimiter(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	prefix := "test-" + uuid.NewString()
	l := NewRedisLimiter(rdb, prefix, time.Minute, 2)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := rdb.TTL(ctx, "ratelimit:"+prefix+":ip:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "every counter carries an expiry")
	assert.LessOrEqual(t, ttl, time.Minute)
	require.NoError(t, rdb.Del(ctx, "ratelimit:"+prefix+":ip:1").Err())
}

func TestRedisLimiter_unreachableServerReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	ok, err := NewRedisLimiter(rdb, "login", time.Minute, 5).Allow(context.Background(), "ip:1")
	assert.Error(t, err)
	assert.False(t, ok)
}
