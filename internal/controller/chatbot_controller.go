package controller

import (
	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.SendChat)
	r.Delete("/chat/:session_id", c.EndSession)
}

// SendChat answers with the bare ChatResponse, not the success envelope.
// Widgets read response/session_id/stage at the top level.
func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("Invalid message")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendChat(ctx.UserContext(), service.ChatInput{
		Request:   req,
		ClientIP:  ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *chatbotController) EndSession(ctx *fiber.Ctx) error {
	res, err := c.chatbotService.EndSession(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
