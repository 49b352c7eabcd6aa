package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pairchat/internal/config"
	"pairchat/internal/devserver"
	"pairchat/internal/logging"
)

func main() {
	cfg, err := config.LoadDevServer()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("addr", cfg.Addr).Msg("starting pairchat devserver")

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}

	store := devserver.NewService(db, rdb)
	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("running migrations")
	}

	hub := devserver.NewHubFor(store, log)
	go hub.Run()
	go hub.Relay(store)

	srv := devserver.New(store, hub, cfg.JWTSecret, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	srv.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
