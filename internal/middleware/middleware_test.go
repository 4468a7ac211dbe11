package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authStub func(ctx context.Context, token string) (service.Caller, error)

func (f authStub) Authenticate(ctx context.Context, token string) (service.Caller, error) {
	return f(ctx, token)
}

func newAuthApp(auth Authenticator) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(auth), func(c *fiber.Ctx) error {
		return c.JSON(CallerFrom(c))
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	auth := authStub(func(_ context.Context, token string) (service.Caller, error) {
		if token != "good" {
			return service.Caller{}, models.NewUnauthorizedError("Invalid or expired token")
		}
		return service.Caller{UserID: "usr-1", AccountID: "acc-1", SessionToken: token}, nil
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"good token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newAuthApp(auth).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				var caller service.Caller
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&caller))
				assert.Equal(t, "usr-1", caller.UserID)
			}
		})
	}
}

func TestAuthRequired_StoreFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	auth := authStub(func(_ context.Context, _ string) (service.Caller, error) {
		return service.Caller{}, models.NewAccountError("load session", assert.AnError)
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp, err := newAuthApp(auth).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCheckRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	ctx := context.Background()

	t.Run("bypassed in test env", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		for range 5 {
			allowed, err := CheckRateLimit(ctx, nil, "r", "1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("enforced in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(ctx, rdb, "sign-in", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = CheckRateLimit(ctx, rdb, "sign-in", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = CheckRateLimit(ctx, rdb, "sign-in", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, mr.TTL("rl:sign-in:ip:1"))

		mr.FastForward(time.Minute + time.Second)
		allowed, err = CheckRateLimit(ctx, rdb, "sign-in", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("nil client errors in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, err := CheckRateLimit(ctx, nil, "r", "1", 1, time.Minute)
		assert.Error(t, err)
	})
}

func TestRateLimitPolicies(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	tests := []struct {
		name   string
		policy FailPolicy
		status int
	}{
		{"fail open", FailOpen, http.StatusOK},
		{"fail closed", FailClosed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", RateLimitWithPolicy(nil, 1, time.Minute, tt.policy, "root"), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	app := fiber.New()
	app.Post("/sign-in", RateLimit(rdb, 1, time.Minute, "sign-in"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}
