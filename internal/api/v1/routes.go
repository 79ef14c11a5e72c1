package v1

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"taskhub/internal/api/v1/handlers"
	"taskhub/internal/middleware"
	"taskhub/internal/models"
	ws "taskhub/internal/websocket"
)

// Deps carries everything the route table composes: handlers, the auth
// middleware and the event hub. Route-level role allow-lists live here, not
// in the handlers.
type Deps struct {
	Auth        *handlers.AuthHandler
	Users       *handlers.UserHandler
	Profile     *handlers.ProfileHandler
	Tasks       *handlers.TaskHandler
	RequireAuth fiber.Handler
	Hub         *ws.Hub
}

func RegisterRoutes(app *fiber.App, d Deps) {
	auth := app.Group("/auth")
	auth.Post("/register", d.Auth.Register)
	auth.Post("/login", d.Auth.Login)

	users := app.Group("/users", d.RequireAuth, middleware.RequireRoles(models.RoleAdmin))
	users.Post("/", d.Users.Create)
	users.Get("/", d.Users.List)
	users.Get("/:id", d.Users.Get)
	users.Patch("/:id", d.Users.Update)
	users.Delete("/:id", d.Users.Delete)
	users.Patch("/:id/role", d.Users.UpdateRole)

	profile := app.Group("/profile", d.RequireAuth, middleware.RequireRoles())
	profile.Get("/", d.Profile.Get)
	profile.Patch("/", d.Profile.Update)
	profile.Patch("/picture", d.Profile.UpdatePicture)
	profile.Get("/picture/:id", d.Profile.GetPicture)

	tasks := app.Group("/tasks", d.RequireAuth, middleware.RequireRoles())
	tasks.Post("/", d.Tasks.Create)
	tasks.Get("/", d.Tasks.List)
	tasks.Get("/:id", d.Tasks.Get)
	tasks.Patch("/:id", d.Tasks.Update)
	tasks.Delete("/:id", d.Tasks.Delete)
	tasks.Post("/:id/attachment", d.Tasks.AddAttachment)
	tasks.Get("/:id/attachment", d.Tasks.GetAttachment)
	tasks.Delete("/:id/attachment", d.Tasks.RemoveAttachment)

	if d.Hub != nil {
		registerTaskFeed(app, d.Hub)
	}
}

// registerTaskFeed mounts the WebSocket task event feed. Clients only
// listen; anything they send is drained and dropped.
func registerTaskFeed(app *fiber.App, hub *ws.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tasks", fiberws.New(func(conn *fiberws.Conn) {
		client := &ws.Client{Conn: conn}
		hub.Register <- client
		defer func() {
			hub.Unregister <- client
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
