package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/database"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/presence"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/routes"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Log)
	log := logging.L()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	// Connect to MongoDB with retry.
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database); err != nil {
			dbErr = err
			log.Warn().Err(err).Int("attempt", i).Msg("MongoDB connection failed")
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal().Err(dbErr).Msg("failed to connect to MongoDB")
	}
	defer database.DisconnectMongo()

	// Presence: in-memory unless Redis is configured.
	store := presence.NewMemoryStore()
	if cfg.Redis.Address != "" {
		store, err = presence.NewRedisStore(presence.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		log.Info().Str("address", cfg.Redis.Address).Msg("using Redis presence store")
	}
	defer store.Close()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	manager := websocket.NewManager(cfg.WebSocket)
	go manager.Run()

	chat := websocket.NewChatHandler(manager, store, cfg.Auth.JWTSecret, cfg.WebSocket)
	router := routes.SetupRouter(cfg, chat)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
