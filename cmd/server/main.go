package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mkravets/famhub/internal/config"
	"github.com/mkravets/famhub/internal/database"
	"github.com/mkravets/famhub/internal/handler"
	appmw "github.com/mkravets/famhub/internal/middleware"
	"github.com/mkravets/famhub/internal/notify"
	"github.com/mkravets/famhub/internal/queue"
	"github.com/mkravets/famhub/internal/router"
	"github.com/mkravets/famhub/internal/service"
	"github.com/mkravets/famhub/internal/session"
	"github.com/mkravets/famhub/internal/storage/mysql"
	"github.com/mkravets/famhub/pkg/logging"
)

func main() {
	logging.Setup()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	store := mysql.New(db)
	clock := service.RealClock{}
	sessions := session.New(cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays, store.Tokens())

	var sender notify.Sender = notify.NopSender{}
	if cfg.RabbitURL != "" {
		sender = notify.NewAMQPSender(cfg.RabbitURL)
		go func() {
			if err := queue.StartInviteConsumer(cfg.RabbitURL); err != nil {
				slog.Error("invite consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Warn("RABBITMQ_URL not set, invitation notifications disabled")
	}

	invitations := service.NewInvitationService(store, clock, sender, sessions,
		time.Duration(cfg.InviteTTLHours)*time.Hour, cfg.BcryptCost)
	families := service.NewFamilyService(store, clock)
	tasks := service.NewTaskService(store, clock)

	generator := service.NewGenerator(store, clock, time.Duration(cfg.GeneratorWindowDays)*24*time.Hour)
	go generator.Run(context.Background(), time.Duration(cfg.GeneratorIntervalMin)*time.Minute)

	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, rate limiting disabled")
	}
	limiter := appmw.NewRateLimiter(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, store, sessions), cfg.JWTSecret)
	router.RegisterFamilies(e, handler.NewFamilyHandler(families), handler.NewTaskHandler(tasks), cfg.JWTSecret)
	router.RegisterInvitations(e, handler.NewInvitationHandler(invitations), cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
