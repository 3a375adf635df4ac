package controller

import (
	"chatbot-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	healthService service.IHealthService
}

func NewHealthController(healthService service.IHealthService) IHealthController {
	return &healthController{healthService: healthService}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health always answers 200; load balancers read the status field
func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.healthService.Check(ctx.UserContext()))
}
