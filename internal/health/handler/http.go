package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 2 * time.Second

// Check is one readiness dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler serves liveness and readiness for Kubernetes, load balancers, and CI.
type Handler struct {
	checks  []Check
	timeout time.Duration
}

// NewHandler returns a Handler running checks in order on readiness probes.
func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks, timeout: defaultTimeout}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
}

type status struct {
	Status    string `json:"status"`
	Component string `json:"component,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Live reports that the process serves requests.
func (h *Handler) Live(c *fiber.Ctx) error {
	return c.JSON(status{Status: "ok"})
}

// Ready pings every dependency and reports 503 naming the first one that fails.
func (h *Handler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status{
				Status:    "unavailable",
				Component: check.Name,
				Error:     err.Error(),
			})
		}
	}
	return c.JSON(status{Status: "ok"})
}
