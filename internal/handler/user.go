package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/config"
	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/repository"
	"github.com/learnhub/auth-service/internal/session"
	"github.com/learnhub/auth-service/internal/utils"
)

// UserHandler serves the profile endpoints under /v1/me and the admin
// surface under /v1/admin. Profile mutations rewrite the live-session
// snapshot so changes are visible without a fresh login.
type UserHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions *session.Store
}

func NewUserHandler(cfg config.Config, users UserStore, sessions *session.Store) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Sessions: sessions}
}

type updateInfoReq struct {
	Name string `json:"name"`
}

type updatePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type updateAvatarReq struct {
	Avatar model.Avatar `json:"avatar"`
}

type updateRoleReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Me returns the identity the access guard resolved for this request.
func (h *UserHandler) Me(c echo.Context) error {
	u, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdateInfo changes the display name.
func (h *UserHandler) UpdateInfo(c echo.Context) error {
	u, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updateInfoReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "please enter a name")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Users.UpdateName(ctx, u.ID, req.Name); err != nil {
		c.Logger().Errorf("update name failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	u.Name = req.Name
	if err := h.Sessions.Save(ctx, u); err != nil {
		c.Logger().Errorf("session save failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdatePassword verifies the old password against the stored hash and
// replaces it. Federated identities have no hash and cannot set a
// password here.
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	u, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "please enter old and new password")
	}
	if len(req.NewPassword) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	stored, err := h.Users.GetByIDWithPassword(ctx, u.ID)
	if err != nil {
		c.Logger().Errorf("password lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if stored.PasswordHash == "" {
		return fail(c, http.StatusBadRequest, "invalid user")
	}
	if !utils.VerifyPassword(stored.PasswordHash, req.OldPassword) {
		return fail(c, http.StatusBadRequest, "invalid old password")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		c.Logger().Errorf("update password failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if err := h.Sessions.Save(ctx, u); err != nil {
		c.Logger().Errorf("session save failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": u})
}

// UpdateAvatar stores a new media reference. The upload itself happens
// against the media host before this call.
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	u, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updateAvatarReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Avatar.URL == "" {
		return fail(c, http.StatusBadRequest, "please provide an avatar")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Users.UpdateAvatar(ctx, u.ID, req.Avatar); err != nil {
		c.Logger().Errorf("update avatar failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	u.Avatar = req.Avatar
	if err := h.Sessions.Save(ctx, u); err != nil {
		c.Logger().Errorf("session save failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// ListUsers returns every account, passwords excluded. Admin only.
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		c.Logger().Errorf("list users failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users})
}

// UpdateRole changes a user's role by email. The live session snapshot
// is rewritten when one exists so the new role takes effect without a
// re-login.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Role == "" {
		return fail(c, http.StatusBadRequest, "please enter email and role")
	}
	if !model.ValidRole(req.Role) {
		return fail(c, http.StatusBadRequest, "invalid role")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		c.Logger().Errorf("role lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if err := h.Users.UpdateRole(ctx, u.ID, req.Role); err != nil {
		c.Logger().Errorf("update role failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	u.Role = req.Role

	if _, serr := h.Sessions.Get(ctx, u.ID); serr == nil {
		if err := h.Sessions.Save(ctx, u); err != nil {
			c.Logger().Errorf("session save failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// DeleteUser removes the account and terminates its live session.
// Admin only.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		c.Logger().Errorf("delete lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		c.Logger().Errorf("delete user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "something went wrong")
	}
	if err := h.Sessions.Delete(ctx, id); err != nil {
		c.Logger().Errorf("session delete failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user deleted successfully"})
}
