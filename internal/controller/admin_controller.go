package controller

import (
	"time"

	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
	GetTurnStats(ctx *fiber.Ctx) error
	GetRecentTurns(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
	auth    *serverutils.AdminAuth
}

func NewAdminController(service service.IAdminService, auth *serverutils.AdminAuth) IAdminController {
	return &adminController{
		service: service,
		auth:    auth,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(c.auth.Middleware())
	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
	h.Get("/turn-stats", c.GetTurnStats)
	h.Get("/turns", c.GetRecentTurns)
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	var query dto.LogQuery
	if err := ctx.QueryParser(&query); err != nil {
		return serverutils.BadRequest("Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	logs, err := c.service.GetSystemLogs(ctx.UserContext(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *adminController) GetLogDetail(ctx *fiber.Ctx) error {
	l, err := c.service.GetLogDetail(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}

func (c *adminController) GetTurnStats(ctx *fiber.Ctx) error {
	hours := ctx.QueryInt("hours", 24)
	if hours <= 0 || hours > 24*30 {
		return serverutils.BadRequest("hours must be between 1 and 720")
	}

	stats, err := c.service.GetTurnStats(ctx.UserContext(), time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Turn stats", stats))
}

func (c *adminController) GetRecentTurns(ctx *fiber.Ctx) error {
	var query dto.TurnQuery
	if err := ctx.QueryParser(&query); err != nil {
		return serverutils.BadRequest("Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	turns, err := c.service.GetRecentTurns(ctx.UserContext(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Recent turns", turns))
}
