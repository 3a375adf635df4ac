package serverutils

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const AdminKeyHeader = "X-Admin-Key"

type AdminAuth struct {
	adminKey  string
	jwtSecret []byte
}

// NewAdminAuth accepts the admin key either in plain text or as a bcrypt hash.
// An empty secret disables bearer tokens.
func NewAdminAuth(adminKey, jwtSecret string) *AdminAuth {
	return &AdminAuth{adminKey: adminKey, jwtSecret: []byte(jwtSecret)}
}

func (a *AdminAuth) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if key := ctx.Get(AdminKeyHeader); key != "" {
			if !a.checkKey(key) {
				return Unauthorized("Invalid admin key")
			}
			ctx.Locals("operator", "admin-key")
			return ctx.Next()
		}

		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return Unauthorized("Missing credentials")
		}
		tokenStr := strings.TrimSpace(authHeader[7:])

		// A bearer may also carry the raw admin key
		if a.checkKey(tokenStr) {
			ctx.Locals("operator", "admin-key")
			return ctx.Next()
		}

		claims, err := a.parseToken(tokenStr)
		if err != nil {
			return Unauthorized("Invalid token")
		}
		if role, _ := claims["role"].(string); role != "admin" {
			return Forbidden("Admin role required")
		}

		ctx.Locals("operator", claims["sub"])
		return ctx.Next()
	}
}

func (a *AdminAuth) checkKey(candidate string) bool {
	if a.adminKey == "" || candidate == "" {
		return false
	}
	if strings.HasPrefix(a.adminKey, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(a.adminKey), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.adminKey), []byte(candidate)) == 1
}

func (a *AdminAuth) parseToken(tokenStr string) (jwt.MapClaims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, jwt.ErrTokenUnverifiable
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
