package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/config"
	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/notifier"
	"github.com/learnhub/auth-service/internal/repository"
	"github.com/learnhub/auth-service/internal/session"
	"github.com/learnhub/auth-service/internal/utils"
)

const reqTimeout = 5 * time.Second

// accessTokenKey is where RefreshSession leaves the reissued access
// token for the terminal handler.
const accessTokenKey = "access_token"

// UserStore is the durable identity store contract the handlers depend
// on. *repository.UserRepo satisfies it; tests substitute a fake.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (model.User, error)
	GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdateName(ctx context.Context, id uint64, name string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	UpdateAvatar(ctx context.Context, id uint64, a model.Avatar) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// AuthHandler bundles dependencies for the signup, login, refresh and
// logout endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions *session.Store
	Codec    *utils.TokenCodec
	Mail     notifier.Notifier
}

func NewAuthHandler(cfg config.Config, users UserStore, sessions *session.Store,
	codec *utils.TokenCodec, mail notifier.Notifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions, Codec: codec, Mail: mail}
}

// ----- DTOs -----

type signUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type activateReq struct {
	ActivationToken string `json:"activation_token"`
	ActivationCode  string `json:"activation_code"`
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialAuthReq struct {
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Avatar model.Avatar `json:"avatar"`
}

// SignUp starts the two-step registration. Nothing durable is created:
// the pending signup travels inside a signed 5-minute token, and the
// matching 4-digit code goes out by mail. A mail delivery failure is
// reported but does not void the token the caller already holds.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "please enter name, email and password")
	}
	if !model.ValidEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "please enter a valid email")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return fail(c, http.StatusConflict, "email already exist")
	} else if !errors.Is(err, repository.ErrNotFound) {
		c.Logger().Errorf("signup email lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	code, err := utils.NewActivationCode()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	pending := model.PendingRegistration{Name: req.Name, Email: req.Email, Password: req.Password}
	token, err := h.Codec.SignActivation(pending, code)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	message := fmt.Sprintf("please check your email: %s to activate your account", req.Email)
	data := map[string]any{"name": req.Name, "activation_code": code}
	if err := h.Mail.Send(ctx, req.Email, "Activate your account", "activation-mail", data); err != nil {
		// The token is already in the caller's hands; report the lost
		// mail instead of rolling back.
		c.Logger().Errorf("activation mail to %s failed: %v", req.Email, err)
		message = "account pending activation, but the activation email could not be sent"
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":         true,
		"message":         message,
		"activationToken": token.Token,
	})
}

// Activate exchanges a (token, code) pair for a durable account. The
// code must match exactly; a mismatch leaves the token usable for
// another attempt until its own expiry. The email is re-checked because
// someone else may have registered it during the activation window.
func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	pending, code, err := h.Codec.VerifyActivation(req.ActivationToken)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid or expired activation token")
	}
	if req.ActivationCode != code {
		return fail(c, http.StatusBadRequest, "invalid activation code")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, pending.Email); err == nil {
		return fail(c, http.StatusConflict, "email already exist")
	} else if !errors.Is(err, repository.ErrNotFound) {
		c.Logger().Errorf("activation email lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	hash, err := utils.HashPassword(pending.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	user, err := h.Users.Create(ctx, model.User{
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exist")
		}
		c.Logger().Errorf("create user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": user})
}

// SignIn verifies credentials and opens a session. The failure message
// is the same for an unknown email and a wrong password so the endpoint
// cannot be used to enumerate accounts.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "please enter email and password")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.GetByEmailWithPassword(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid email or password")
		}
		c.Logger().Errorf("login lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusBadRequest, "invalid email or password")
	}

	return h.sendToken(c, u, http.StatusOK)
}

// SocialAuth signs in a federated identity, creating the durable record
// on first sight. Federated accounts carry no password hash and can
// never authenticate through SignIn.
func (h *AuthHandler) SocialAuth(c echo.Context) error {
	var req socialAuthReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !model.ValidEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "please enter a valid email")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = h.Users.Create(ctx, model.User{
			Name:       strings.TrimSpace(req.Name),
			Email:      req.Email,
			Avatar:     req.Avatar,
			Role:       model.RoleUser,
			IsVerified: h.Cfg.SocialVerified,
		})
	}
	if err != nil {
		c.Logger().Errorf("social auth failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	return h.sendToken(c, u, http.StatusOK)
}

// RefreshSession is the session refresher, written as middleware so the
// silent-refresh path can continue straight into the protected handler
// it fronts. It validates the refresh token cryptographically, then
// asks the session store whether the session is still alive — the store
// is the authority, which is what makes server-side forced logout work
// while tokens remain self-verifying. On success it reissues both
// tokens, slides the session TTL forward, attaches the identity and
// calls next.
func (h *AuthHandler) RefreshSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := middleware.TokenFromRequest(c, "refresh_token")
		if raw == "" {
			return fail(c, http.StatusBadRequest, "could not refresh token")
		}
		uid, err := h.Codec.VerifyRefresh(raw)
		if err != nil {
			c.Logger().Debugf("refresh token rejected: %v", err)
			return fail(c, http.StatusBadRequest, "could not refresh token")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
		defer cancel()

		u, err := h.Sessions.Get(ctx, uid)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return fail(c, http.StatusBadRequest, "please login to access this resource")
			}
			c.Logger().Errorf("session lookup failed: %v", err)
			return fail(c, http.StatusInternalServerError, "something went wrong")
		}

		access, err := h.Codec.SignAccess(u.ID)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "something went wrong")
		}
		refresh, err := h.Codec.SignRefresh(u.ID)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "something went wrong")
		}
		// Sliding expiration: every successful refresh resets the
		// session clock.
		if err := h.Sessions.Save(ctx, u); err != nil {
			c.Logger().Errorf("session save failed: %v", err)
			return fail(c, http.StatusInternalServerError, "something went wrong")
		}

		h.setAuthCookies(c, access, refresh)
		middleware.SetIdentity(c, u)
		c.Set(accessTokenKey, access.Token)
		return next(c)
	}
}

// Refresh is the standalone refresh endpoint: RefreshSession wrapped
// around a terminal handler that just reports the new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, _ := c.Get(accessTokenKey).(string)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "accessToken": token})
}

// SignOut terminates the live session and clears both auth cookies.
// Terminating an already-absent session succeeds; logout is idempotent.
func (h *AuthHandler) SignOut(c echo.Context) error {
	u, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Sessions.Delete(ctx, u.ID); err != nil {
		c.Logger().Errorf("session delete failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	h.clearAuthCookies(c)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out successfully"})
}

// sendToken is the session issuer: it mints the access/refresh pair,
// writes the live session, sets both cookies and answers with the
// password-less identity plus the access token.
func (h *AuthHandler) sendToken(c echo.Context, u model.User, status int) error {
	access, err := h.Codec.SignAccess(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	refresh, err := h.Codec.SignRefresh(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()
	if err := h.Sessions.Save(ctx, u); err != nil {
		c.Logger().Errorf("session save failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}

	h.setAuthCookies(c, access, refresh)
	return c.JSON(status, echo.Map{
		"success":     true,
		"user":        u,
		"accessToken": access.Token,
	})
}

func (h *AuthHandler) setAuthCookies(c echo.Context, access, refresh utils.SignedToken) {
	h.setCookie(c, "access_token", access.Token, access.Exp, int(h.Codec.AccessTTL.Seconds()))
	h.setCookie(c, "refresh_token", refresh.Token, refresh.Exp, int(h.Codec.RefreshTTL.Seconds()))
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	// Empty value with negative max-age tells the browser to drop the
	// cookie immediately.
	h.setCookie(c, "access_token", "", time.Unix(0, 0), -1)
	h.setCookie(c, "refresh_token", "", time.Unix(0, 0), -1)
}

func (h *AuthHandler) setCookie(c echo.Context, name, value string, exp time.Time, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: h.Cfg.SameSiteMode(),
	})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
