package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

const (
	// LocalActorID is the fiber.Ctx locals key holding the authenticated actor.
	LocalActorID = "actor_id"
	// LocalActorRole is the fiber.Ctx locals key holding the actor role.
	LocalActorRole = "actor_role"
)

// RequireToken returns a middleware that validates the Authorization header
// and stashes the actor identity in request locals.
func RequireToken(manager *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}
		claims, err := manager.Verify(token)
		if err != nil {
			return err
		}
		c.Locals(LocalActorID, claims.ActorID)
		c.Locals(LocalActorRole, claims.Role)
		return c.Next()
	}
}

// RequireCallbackToken returns a middleware guarding the automation callback
// endpoint with the shared token.
func RequireCallbackToken(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}
		if !VerifyCallbackToken(hash, token) {
			return apperrors.NewUnauthorized("invalid callback token")
		}
		return c.Next()
	}
}

// ActorID returns the authenticated actor for the request, or empty.
func ActorID(c *fiber.Ctx) string {
	if v, ok := c.Locals(LocalActorID).(string); ok {
		return v
	}
	return ""
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("malformed authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
