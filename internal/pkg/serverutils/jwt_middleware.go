package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func parseToken(tokenStr string) (uuid.UUID, bool) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

// JwtMiddleware rejects requests without a valid bearer token.
func JwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := bearerToken(ctx)
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	userID, ok := parseToken(tokenStr)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	ctx.Locals("user_id", userID.String())
	return ctx.Next()
}

// OptionalJwtMiddleware resolves the user when a valid token is
// present and falls through as a guest (nil UUID) otherwise. The chat
// endpoints accept unauthenticated turns.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	if tokenStr := bearerToken(ctx); tokenStr != "" {
		if userID, ok := parseToken(tokenStr); ok {
			ctx.Locals("user_id", userID.String())
			return ctx.Next()
		}
	}
	ctx.Locals("user_id", uuid.Nil.String())
	return ctx.Next()
}

// UserIDFromLocals extracts the authenticated (or guest) user id set
// by the JWT middleware.
func UserIDFromLocals(ctx *fiber.Ctx) uuid.UUID {
	userIDStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil
	}
	return userID
}
