package routes

import (
	"Go-Order-Intake/internal/api/handlers"
	"Go-Order-Intake/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	App          *fiber.App
	OrderHandler handlers.OrderHandler
	Middleware   middleware.Middleware
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Forms()
	c.Submissions()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	c.App.Get("/api/v1/managers", c.OrderHandler.GetManagers)
}

func (c *Config) Forms() {
	forms := c.App.Group("/api/v1/forms")
	forms.Post("", c.OrderHandler.CreateForm)
	forms.Get("/:id", c.OrderHandler.GetForm)
	forms.Put("/:id/manager", c.OrderHandler.SelectManager)
	forms.Post("/:id/submit", c.OrderHandler.Submit)

	// order cards
	orders := forms.Group("/:id/orders")
	{
		orders.Post("", c.OrderHandler.AddOrder)
		orders.Post("/copy", c.OrderHandler.CopyLastOrder)
		orders.Post("/bulk", c.OrderHandler.BulkAttach)
		orders.Delete("/:orderID", c.OrderHandler.RemoveOrder)
		orders.Post("/:orderID/image", c.OrderHandler.AttachImage)
		orders.Post("/:orderID/retry", c.OrderHandler.RetryAnalysis)
		orders.Patch("/:orderID/auto", c.OrderHandler.UpdateAutoField)
		orders.Put("/:orderID/manual", c.OrderHandler.UpdateManualText)
		orders.Post("/:orderID/apply", c.OrderHandler.ApplyManual)
		orders.Post("/:orderID/edit", c.OrderHandler.EditManual)
	}
}

func (c *Config) Submissions() {
	c.App.Get("/api/v1/submissions", c.OrderHandler.GetSubmissions)
}
