package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// RegisterRoutes mounts GET <path> for operator consoles. auth runs before
// the upgrade so unauthenticated requests get a normal JSON error.
func RegisterRoutes(r fiber.Router, path string, hub *Hub, auth fiber.Handler) {
	r.Use(path, auth, func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get(path, websocket.New(func(c *websocket.Conn) {
		ServeWs(hub, c)
	}))
}

// ServeWs blocks for the lifetime of the connection
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{ID: uuid.New(), Hub: hub, Conn: c, Send: make(chan []byte, sendBuffer)}
	if !hub.join(client) {
		_ = c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
