package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/instacall/signaling/config"
	"github.com/instacall/signaling/internal/auth"
	"github.com/instacall/signaling/internal/handlers"
	"github.com/instacall/signaling/internal/history"
	"github.com/instacall/signaling/internal/hub"
	"github.com/instacall/signaling/internal/middleware"
	"github.com/instacall/signaling/internal/presence"
	"github.com/instacall/signaling/internal/redisconn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()

	// Connect to Redis
	rdb, err := redisconn.Open(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	log.Println("Redis connection established")

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.TokenTTL)
	recorder := history.NewRecorder(rdb, cfg.HistoryKeep)

	h := hub.New(hub.Config{
		Verifier:   verifier,
		History:    recorder,
		SendBuffer: cfg.SendBuffer,
	})
	gateway := presence.NewGateway(presence.NewRedisStore(rdb), h.BroadcastStatus)
	h.SetPresence(gateway)

	// Reclaims connections whose transport died without a clean close.
	go h.RunHeartbeat(ctx, cfg.HeartbeatInterval)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(verifier))

		// Call history for the authenticated host
		apiGroup.GET("/calls/history", middleware.JWTAuth(verifier), handlers.CallHistory(recorder))
	}

	// WebSocket signaling endpoint
	router.GET("/ws", handlers.HandleSignaling(h))

	// Start server
	log.Printf("Starting instant-call signaling server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
