// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkravets/famhub/internal/handler"
	"github.com/mkravets/famhub/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check probed by load balancers and the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, protected endpoints
// under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body and does not require a
	// JWT, so a client with only a refresh token can still end its
	// session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterFamilies registers family and membership management routes.
// Everything here requires a valid access token.
func RegisterFamilies(e *echo.Echo, f *handler.FamilyHandler, t *handler.TaskHandler, jwtSecret string) {
	g := e.Group("/v1/families")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("", f.Create)
	g.GET("/:id", f.Get)
	g.DELETE("/:id/members/:userId", f.RemoveMember)
	g.PATCH("/:id/members/:userId/role", f.UpdateMemberRole)

	g.POST("/:id/tasks", t.Create)
	g.GET("/:id/tasks", t.List)

	tasks := e.Group("/v1/tasks")
	tasks.Use(middleware.JWTAuth(jwtSecret))
	tasks.POST("/:taskId/complete", t.Complete)
}

// RegisterInvitations registers the invitation lifecycle routes. The
// token-addressed endpoints are public by design: the invitee may not
// have an account yet. They sit behind the rate limiter to slow token
// guessing.
func RegisterInvitations(e *echo.Echo, i *handler.InvitationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	fam := e.Group("/v1/families")
	fam.Use(middleware.JWTAuth(jwtSecret))
	fam.POST("/:id/invitations", i.Issue)
	fam.GET("/:id/invitations", i.ListPending)

	inv := e.Group("/v1/invitations")
	inv.Use(middleware.JWTAuth(jwtSecret))
	inv.DELETE("/:id", i.Revoke)

	pub := e.Group("/v1/invites", limiter)
	pub.GET("/:token", i.PublicDetails)
	pub.POST("/:token/accept-with-registration", i.AcceptWithRegistration)

	// Accepting as an existing user needs a session, but shares the
	// limiter with the other token-addressed endpoints.
	acc := e.Group("/v1/invites", limiter)
	acc.Use(middleware.JWTAuth(jwtSecret))
	acc.POST("/:token/accept", i.Accept)
}
