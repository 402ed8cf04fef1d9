// Package router maps the HTTP surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/handler"
	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/model"
)

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth and user endpoints. guard is the access
// guard (middleware.Authenticate); limiter is the auth-endpoint rate
// limiter and may be a no-op.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler,
	guard, limiter echo.MiddlewareFunc) {

	// Signup, activation, login, social and refresh carry their own
	// credentials; the rate limiter shields them from guessing.
	g := e.Group("/v1/auth", limiter)
	g.POST("/sign-up", a.SignUp)
	g.POST("/activation", a.Activate)
	g.POST("/sign-in", a.SignIn)
	g.POST("/social", a.SocialAuth)
	// Refresh is RefreshSession continuing into a terminal responder,
	// the same shape it has when fronting a protected route.
	g.POST("/refresh", a.Refresh, a.RefreshSession)
	g.GET("/sign-out", a.SignOut, guard)

	// Profile endpoints for the authenticated user.
	me := e.Group("/v1/me", guard)
	me.GET("", u.Me)
	me.PUT("/info", u.UpdateInfo)
	me.PUT("/password", u.UpdatePassword)
	me.PUT("/avatar", u.UpdateAvatar)

	// Admin surface.
	admin := e.Group("/v1/admin", guard, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", u.ListUsers)
	admin.PUT("/users/role", u.UpdateRole)
	admin.DELETE("/users/:id", u.DeleteUser)
}
