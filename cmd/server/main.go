package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/config"
	"github.com/learnhub/auth-service/internal/database"
	"github.com/learnhub/auth-service/internal/handler"
	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/notifier"
	"github.com/learnhub/auth-service/internal/repository"
	"github.com/learnhub/auth-service/internal/router"
	"github.com/learnhub/auth-service/internal/session"
	"github.com/learnhub/auth-service/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// The session cache is the authority on live sessions; without it
	// nobody can refresh, so a missing redis is fatal.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed")
	}

	codec := utils.NewTokenCodec(
		cfg.ActivationSecret, cfg.AccessSecret, cfg.RefreshSecret,
		cfg.ActivationTTL, cfg.AccessTTL, cfg.RefreshTTL,
	)
	sessions := session.NewStore(session.NewRedisCache(rdb), cfg.SessionTTL)
	users := repository.NewUserRepo(db)
	mail := notifier.NewAMQPNotifier("")

	go func() {
		if err := notifier.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	guard := middleware.Authenticate(codec, sessions, users)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, users, sessions, codec, mail)
	userHandler := handler.NewUserHandler(cfg, users, sessions)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, userHandler, guard, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
