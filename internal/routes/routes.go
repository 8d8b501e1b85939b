package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/taskline/taskline-backend/internal/config"
	"github.com/taskline/taskline-backend/internal/handlers"
	"github.com/taskline/taskline-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	taskHandler *handlers.TaskHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected auth routes - apply JWT middleware per route so the
	// public ones above stay public.
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Get("/auth/me", middleware.JWTProtected(cfg), authHandler.Me)

	// Tasks and nodes (all protected)
	api.Get("/tasks", middleware.JWTProtected(cfg), taskHandler.ListTasks)
	api.Post("/tasks", middleware.JWTProtected(cfg), taskHandler.CreateTask)
	api.Post("/tasks/complete", middleware.JWTProtected(cfg), taskHandler.CompleteTask)
	api.Patch("/nodes", middleware.JWTProtected(cfg), taskHandler.UpdateNode)
	api.Delete("/nodes", middleware.JWTProtected(cfg), taskHandler.DeleteNode)
	api.Post("/nodes", middleware.JWTProtected(cfg), taskHandler.InsertNode)
}
