package controller

import (
	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	Expand(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
	auth             *serverutils.AdminAuth
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService, auth *serverutils.AdminAuth) IKnowledgeController {
	return &knowledgeController{
		knowledgeService: knowledgeService,
		auth:             auth,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	r.Post("/expand-knowledge", c.auth.Middleware(), c.Expand)
}

func (c *knowledgeController) Expand(ctx *fiber.Ctx) error {
	var req dto.ExpandKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.Expand(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
