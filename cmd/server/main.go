package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/eyengage/engage-api/internal/config"
	"github.com/eyengage/engage-api/internal/database"
	"github.com/eyengage/engage-api/internal/handler"
	"github.com/eyengage/engage-api/internal/notify"
	"github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
	"github.com/eyengage/engage-api/internal/router"
	"github.com/eyengage/engage-api/internal/service"
	"github.com/eyengage/engage-api/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable; limiter and resets degrade

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	events := repository.NewEventRepo(db)
	parts := repository.NewParticipationRepo(db)
	interests := repository.NewInterestRepo(db)
	comments := repository.NewCommentRepo(db)
	resets := repository.NewResetRepo(rdb)

	var notifier service.Notifier = service.LogNotifier{}
	if cfg.AMQPURL != "" {
		notifier = service.NewAMQPNotifier(cfg.AMQPURL)
	}

	tokens := utils.TokenOptions{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	authSvc := service.NewAuthService(users, sessions, resets, notifier, service.AuthConfig{
		Tokens:         tokens,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		ResetTTL:       time.Duration(cfg.ResetTTLMin) * time.Minute,
		BcryptCost:     cfg.BcryptCost,
	})
	eventSvc := service.NewEventService(events, parts, interests, comments, users, notifier)
	userSvc := service.NewUserService(users, notifier, cfg.BcryptCost)

	// The consumer delivers mail and webhooks out of the queue. It shares
	// the process for operational simplicity; it can be split out later
	// without touching the publishers.
	if cfg.AMQPURL != "" {
		mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		webhook := notify.NewWebhook(cfg.SocialHookURL)
		consumer := queue.NewConsumer(cfg.AMQPURL, mailer, webhook)
		go func() {
			if err := consumer.Start(); err != nil {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, cfg.Env == "prod"),
		Events:    handler.NewEventHandler(eventSvc),
		Users:     handler.NewUserHandler(userSvc),
		AuthSvc:   authSvc,
		Tokens:    tokens,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
	})

	log.Printf("engage-api listening on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
