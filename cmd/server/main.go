package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal/config"
	"github.com/cashly-rent-a-car/bingo/internal/room"
	"github.com/cashly-rent-a-car/bingo/internal/server"
	"github.com/cashly-rent-a-car/bingo/internal/stats"
	"github.com/cashly-rent-a-car/bingo/internal/store"
)

func main() {
	cfg := config.Load()

	var roomStore store.Store
	var statsStore store.Store
	if cfg.RedisAddr != "" {
		redisRooms, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, "room")
		if err != nil {
			log.Fatalf("[Main] redis unavailable: %v", err)
		}
		redisStats, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, "admin")
		if err != nil {
			log.Fatalf("[Main] redis unavailable: %v", err)
		}
		roomStore = redisRooms
		statsStore = redisStats
		log.Printf("[Main] using redis at %s", cfg.RedisAddr)
	} else {
		roomStore = store.NewMemoryStore()
		statsStore = store.NewMemoryStore()
		log.Printf("[Main] REDIS_ADDR not set, snapshots kept in memory")
	}

	aggregator := stats.NewAggregator(cfg.AdminPassword, statsStore)
	go aggregator.Run()

	reporter := stats.NewReporter(cfg.StatsEndpoint)
	registry := room.NewRegistry(roomStore, reporter, cfg.PublicURL, cfg.DisconnectGrace)

	srv := server.NewServer(registry, aggregator)
	httpServer := srv.HTTPServer(cfg.Port)

	go func() {
		log.Printf("[Main] listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[Main] shutdown error: %v", err)
	}

	registry.StopAll()
	aggregator.Stop()
}
