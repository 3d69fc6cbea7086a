package health

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DBPinger abstracts the database liveness check.
type DBPinger interface {
	Ping() error
}

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	DB  DBPinger
	Rdb *redis.Client
}

// JSON GET /health/json — overall status plus per-dependency state.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	deps := map[string]string{
		"database": "not-configured",
		"redis":    "not-configured",
	}
	status := "ok"

	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			deps["database"] = "down"
			status = "degraded"
		} else {
			deps["database"] = "up"
		}
	}
	if h.Rdb != nil {
		if err := h.Rdb.Ping(context.Background()).Err(); err != nil {
			deps["redis"] = "down"
			status = "degraded"
		} else {
			deps["redis"] = "up"
		}
	}

	return c.JSON(fiber.Map{
		"service":      "creditline-api",
		"status":       status,
		"dependencies": deps,
	})
}
