package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/repository"
	"github.com/learnhub/auth-service/internal/session"
	"github.com/learnhub/auth-service/internal/utils"
)

// identityKey is where the guard stores the resolved identity in the
// echo context.
const identityKey = "identity"

// Responses to failed authentication are deliberately identical for a
// missing token, a bad signature, a wrong token class and an expired
// token, so the body never reveals which check failed.
const loginMessage = "please login to access this resource"

// IdentityResolver is the durable-store fallback the guard uses when no
// live session holds the identity snapshot. *repository.UserRepo
// satisfies it.
type IdentityResolver interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SetIdentity attaches the authenticated identity to the request
// context for downstream handlers.
func SetIdentity(c echo.Context, u model.User) { c.Set(identityKey, u) }

// IdentityFrom returns the identity attached by Authenticate or
// RefreshSession, if any.
func IdentityFrom(c echo.Context) (model.User, bool) {
	u, ok := c.Get(identityKey).(model.User)
	return u, ok
}

// Authenticate returns the access guard every protected route passes
// through. It validates the access token (cookie first, then bearer
// header), resolves the identity from the session cache with a durable
// store fallback, and attaches it to the context. The guard never
// writes the session back: after a forced logout an unexpired access
// token may still read, but must not resurrect refreshability.
func Authenticate(codec *utils.TokenCodec, sessions *session.Store, users IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFromRequest(c, "access_token")
			if raw == "" {
				return failJSON(c, http.StatusUnauthorized, loginMessage)
			}
			uid, err := codec.VerifyAccess(raw)
			if err != nil {
				c.Logger().Debugf("access token rejected: %v", err)
				return failJSON(c, http.StatusUnauthorized, loginMessage)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := sessions.Get(ctx, uid)
			if errors.Is(err, session.ErrNoSession) {
				u, err = users.GetByID(ctx, uid)
				if errors.Is(err, repository.ErrNotFound) {
					return failJSON(c, http.StatusUnauthorized, loginMessage)
				}
			}
			if err != nil {
				c.Logger().Errorf("identity resolve failed: %v", err)
				return failJSON(c, http.StatusInternalServerError, "something went wrong")
			}

			SetIdentity(c, u)
			return next(c)
		}
	}
}

// RequireRole returns a middleware that enforces that the identity
// attached by Authenticate has one of the given roles. It is a pure
// capability check and assumes the guard already ran.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := IdentityFrom(c)
			if !ok || !allowed[u.Role] {
				return failJSON(c, http.StatusForbidden, "you are not allowed to access this resource")
			}
			return next(c)
		}
	}
}

// TokenFromRequest extracts a token by cookie name, falling back to the
// Authorization bearer header. Cookies are the primary transport; the
// header keeps non-browser clients working.
func TokenFromRequest(c echo.Context, cookieName string) string {
	if ck, err := c.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func failJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
