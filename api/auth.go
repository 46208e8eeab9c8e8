package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rento/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const callerKey = "caller_id"

type callerCtxKey struct{}

// Authenticator issues and verifies HS256 bearer tokens. The subject claim is
// the caller id.
type Authenticator struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(signingKey, issuer string) *Authenticator {
	return &Authenticator{key: []byte(signingKey), issuer: issuer, now: time.Now}
}

// Issue mints a token for userID valid for ttl.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the caller id of a valid token.
func (a *Authenticator) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token. The caller id is
// put on both the echo context and the request context, the latter for the
// net/http rate limit adapters.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}

			callerID, err := a.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.FromEcho(c).Info("invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}

			c.Set(callerKey, callerID)
			ctx := WithCaller(c.Request().Context(), callerID)
			ctx = logger.WithContext(ctx, logger.FromEcho(c).With(zap.String("caller_id", callerID)))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func WithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, callerID)
}

func CallerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerCtxKey{}).(string)
	return id, ok && id != ""
}

// CallerID is the authenticated caller of an echo request, "" before auth.
func CallerID(c echo.Context) string {
	if id, ok := c.Get(callerKey).(string); ok {
		return id
	}
	id, _ := CallerFromContext(c.Request().Context())
	return id
}

// callerKeyFunc keys the fixed windows by caller id.
func callerKeyFunc(r *http.Request) string {
	if id, ok := CallerFromContext(r.Context()); ok {
		return id
	}
	return "anonymous"
}
