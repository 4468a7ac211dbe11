// Package middleware provides the HTTP middleware of the API: bearer
// authentication, request-scoped logging, tracing and rate limiting.
package middleware

import (
	"context"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

const callerLocal = "caller"

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Caller, error)
}

// AuthRequired rejects requests without a valid session and stores the
// resolved Caller for handlers. Accounts without a profile are let
// through; handlers that need a user check Caller.Authenticated.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		caller, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}

		c.Locals(callerLocal, caller)
		c.Locals("userID", caller.UserID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, caller.UserID))
		return c.Next()
	}
}

// CallerFrom returns the Caller stored by AuthRequired, or the zero
// Caller on public routes.
func CallerFrom(c *fiber.Ctx) service.Caller {
	if caller, ok := c.Locals(callerLocal).(service.Caller); ok {
		return caller
	}
	return service.Caller{}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", models.NewUnauthorizedError("Authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", models.NewUnauthorizedError("Invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}
