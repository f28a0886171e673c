package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sahil001001/BaatCheet-app/internal/auth"
	"github.com/Sahil001001/BaatCheet-app/internal/data"
	"github.com/Sahil001001/BaatCheet-app/internal/db"
	"github.com/Sahil001001/BaatCheet-app/internal/middleware"
	"github.com/mama165/sdk-go/logs"
)

// Tokens live a week, matching the cookie the login endpoint sets.
const tokenDuration = 7 * 24 * time.Hour

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logs.GetLoggerFromLevel(cfg.slogLevel())

	ctx := context.Background()
	dbClient, err := db.New(ctx, cfg.MongoURI)
	if err != nil {
		log.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		log.Error("failed to create indexes", "error", err)
		os.Exit(1)
	}

	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, tokenDuration)

	// Small burst so a couple of quick login retries still go through.
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, 1*time.Minute)
	defer limiterStore.Stop()

	hub := NewPresenceHub(log)
	router := NewMessageRouter(log, msgsStore, usersStore, hub)
	srv := newServer(log, usersStore, jwtMgr, hub, router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(limiterStore),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server exit", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}
}
