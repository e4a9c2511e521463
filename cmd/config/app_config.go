package config

import (
	"Go-Order-Intake/internal/api/handlers"
	"Go-Order-Intake/internal/api/routes"
	"Go-Order-Intake/internal/logger"
	"Go-Order-Intake/internal/middleware"
	"Go-Order-Intake/internal/utils"
	"Go-Order-Intake/internal/utils/storage"
	"Go-Order-Intake/pkg/backend"
	"Go-Order-Intake/pkg/order"
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewApp builds the HTTP app. db may be nil, in which case the submission
// log is disabled.
func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		BodyLimit:         32 * 1024 * 1024,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3, err := storage.NewAwsS3(context.Background())
	if err != nil {
		logger.Log.Warn("receipt archive disabled", zap.Error(err))
		s3 = nil
	}
	client := backend.NewClient(utils.GetConfig("API_URL"), 0)

	// Repository
	var submissionRepository order.SubmissionRepository
	if db != nil {
		submissionRepository = order.NewSubmissionRepository(db)
	}

	// Service
	orderService := order.NewOrderService(submissionRepository, client, s3, order.Config{
		Policy: order.Policy{
			Managers:             utils.GetConfigList("MANAGERS"),
			RequiredFields:       utils.GetConfigList("REQUIRED_FIELDS"),
			RequireManualApplied: utils.GetConfigBool("REQUIRE_MANUAL_APPLIED", false),
		},
		AnalysisTimeout: time.Duration(utils.GetConfigInt("ANALYSIS_TIMEOUT_SECONDS", int(order.DefaultAnalysisTimeout/time.Second))) * time.Second,
		RequestTimeout:  time.Duration(utils.GetConfigInt("REQUEST_TIMEOUT_SECONDS", int(order.DefaultRequestTimeout/time.Second))) * time.Second,
		StaggerInterval: time.Duration(utils.GetConfigInt("STAGGER_MILLIS", int(order.DefaultStaggerInterval/time.Millisecond))) * time.Millisecond,
		FormTTL:         time.Duration(utils.GetConfigInt("FORM_TTL_MINUTES", 24*60)) * time.Minute,
	})
	app.Hooks().OnShutdown(func() error {
		orderService.Close()
		return file.Close()
	})

	// Handler
	orderHandler := handlers.NewOrderHandler(orderService, validator)

	// routes
	routesConfig := routes.Config{
		App:          app,
		OrderHandler: orderHandler,
		Middleware:   middlewares,
	}
	routesConfig.Setup()
	return app, nil
}
