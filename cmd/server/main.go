package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/config"
	"github.com/iliyamo/resource-booking/internal/database"
	"github.com/iliyamo/resource-booking/internal/handler"
	"github.com/iliyamo/resource-booking/internal/queue"
	"github.com/iliyamo/resource-booking/internal/repository"
	"github.com/iliyamo/resource-booking/internal/router"
	"github.com/iliyamo/resource-booking/internal/service"
	"github.com/iliyamo/resource-booking/internal/storage"
	"github.com/iliyamo/resource-booking/internal/validation"
)

func main() {
	// .env is optional; in containers everything arrives as real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent; middleware fails open

	var uploader storage.Uploader = storage.DisabledUploader{}
	if cfg.CloudinaryURL != "" {
		up, err := storage.NewCloudinaryUploader(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("cloudinary init failed: %v", err)
		}
		uploader = up
	} else {
		log.Println("CLOUDINARY_URL not set, file uploads disabled")
	}

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.AMQPURL != "" {
		notifier = service.NewAMQPNotifier(cfg.AMQPURL)
		go func() {
			if err := queue.StartNotificationConsumer(cfg.AMQPURL); err != nil {
				log.Printf("notification consumer stopped: %v", err)
			}
		}()
	} else {
		log.Println("RABBITMQ_URL not set, notifications disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resources := repository.NewResourceRepo(db)
	categories := repository.NewCategoryRepo(db)
	bookings := repository.NewBookingRepo(db)
	attendees := repository.NewAttendeeRepo(db)
	analytics := repository.NewAnalyticsRepo(db)

	bookingSvc := service.NewBookingService(
		database.NewTxRunner(db), bookings, attendees, resources, users, notifier)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	router.Register(e, cfg, db, rdb, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens, uploader),
		Booking:   handler.NewBookingHandler(bookingSvc, uploader),
		Resource:  handler.NewResourceHandler(resources, uploader),
		Category:  handler.NewCategoryHandler(categories),
		AdminUser: handler.NewAdminUserHandler(users, tokens, cfg.BcryptCost),
		Analytics: handler.NewAnalyticsHandler(analytics),
	})

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
