package serverutils

import (
	"os"

	"corevai-be/internal/constant"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func extractToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	// Browser clients carry the token in the session cookie instead.
	return ctx.Cookies(constant.SessionCookieName)
}

// Same fallback as the token issuer so a missing JWT_SECRET still
// round-trips in development.
func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	return []byte(secret)
}

func parseToken(tokenStr string) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := extractToken(ctx)
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	claims, ok := parseToken(tokenStr)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	ctx.Locals("user_id", claims["user_id"])
	return ctx.Next()
}

// OptionalJwtMiddleware resolves the user when a valid token is present
// but lets the request through either way. Guest-capable endpoints use
// this to branch between account-backed and cookie-limited behavior.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := extractToken(ctx)
	if tokenStr != "" {
		if claims, ok := parseToken(tokenStr); ok {
			ctx.Locals("user_id", claims["user_id"])
		}
	}
	return ctx.Next()
}
