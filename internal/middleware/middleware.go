package middleware

import (
	"Go-Order-Intake/internal/utils"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
	}

	middleware struct{}
)

func NewMiddleware() Middleware {
	return &middleware{}
}

// CORSMiddleware lets the order form front end call the API. Origins come
// from CORS_ORIGINS, comma separated; "*" when unset.
func (m *middleware) CORSMiddleware() fiber.Handler {
	origins := utils.GetConfigList("CORS_ORIGINS")
	allowOrigins := "*"
	if len(origins) > 0 {
		allowOrigins = strings.Join(origins, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	})
}
