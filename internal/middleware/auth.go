package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/logger"
	"leaseflow/internal/model"
	"leaseflow/internal/visibility"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context keys set by Authenticate. "userID" is also read by the request logger.
const (
	principalKey = "principal"
	userIDKey    = "userID"
	userRoleKey  = "userRole"
)

var (
	errMissingToken = errors.New("authorization is missing")
	errTokenFormat  = errors.New("invalid authorization format, expected 'Bearer <token>'")
)

// Resolver maps a verified token subject to the caller's current record.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (visibility.Principal, error)
}

// Auth verifies identity tokens issued by the external provider. The token
// only names the user; role and email are re-read through the resolver on
// every request so a role change takes effect immediately.
type Auth struct {
	secret []byte
	users  Resolver
	log    logger.Logger
}

func NewAuth(secret string, users Resolver, log logger.Logger) *Auth {
	return &Auth{secret: []byte(secret), users: users, log: log}
}

// SignToken issues an HS256 token for userID. Used by the dev token tool and tests.
func SignToken(secret string, userID uuid.UUID, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and returns the subject.
func (a *Auth) ParseToken(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, jwt.ErrTokenSignatureInvalid
	}
	return uuid.Parse(claims.Subject)
}

// PrincipalFor verifies a raw token and resolves its subject.
func (a *Auth) PrincipalFor(ctx context.Context, tokenString string) (visibility.Principal, error) {
	id, err := a.ParseToken(tokenString)
	if err != nil {
		return visibility.Principal{}, err
	}
	return a.users.Resolve(ctx, id)
}

// tokenFrom reads the access_token cookie, falling back to the Authorization header.
func tokenFrom(c *gin.Context) (string, error) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, nil
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errTokenFormat
	}
	return parts[1], nil
}

// Authenticate resolves the caller and stores the Principal on the context.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFrom(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		id, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		p, err := a.users.Resolve(c.Request.Context(), id)
		if err != nil {
			status := apperror.HTTPStatus(err)
			if status == http.StatusInternalServerError {
				a.log.WithError(err).Error("Failed to resolve caller", map[string]interface{}{"user_id": id.String()})
				c.AbortWithStatusJSON(status, response.Error(status, "Failed to resolve caller"))
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: unknown or inactive user"))
			return
		}

		c.Set(principalKey, p)
		c.Set(userIDKey, p.UserID.String())
		c.Set(userRoleKey, string(p.Role))
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if !slices.Contains(allowedRoles, p.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Authenticate.
func PrincipalFrom(c *gin.Context) (visibility.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return visibility.Principal{}, false
	}
	p, ok := v.(visibility.Principal)
	return p, ok
}

// SetPrincipal is for handler tests that bypass token verification.
func SetPrincipal(p visibility.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(principalKey, p)
		c.Set(userIDKey, p.UserID.String())
		c.Set(userRoleKey, string(p.Role))
		c.Next()
	}
}
