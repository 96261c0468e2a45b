package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

type AuthzConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// Authz verifies bearer tokens minted by the external identity provider.
type Authz struct {
	cfg AuthzConfig
}

func NewAuthz(cfg AuthzConfig) *Authz {
	return &Authz{cfg: cfg}
}

// Require checks the JWT and exposes its subject as the caller's user id.
func (a *Authz) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		opts := []jwt.ParserOption{
			jwt.WithLeeway(30 * time.Second), // small clock skew
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		}
		if a.cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
		}
		if a.cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(a.cfg.Audience))
		}
		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.cfg.JWTSecret), nil
		}, opts...)

		if err != nil || !token.Valid {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			unauth(c, "invalid_token", "missing subject")
			return
		}

		c.Set(userIDKey, sub)
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" on unauthenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}
