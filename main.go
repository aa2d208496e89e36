package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"response-dashboard/config"
	"response-dashboard/database"
	"response-dashboard/handlers"
	"response-dashboard/middleware"
	"response-dashboard/rabbitmq"
	"response-dashboard/service"
	"response-dashboard/upstream"
	"response-dashboard/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureStateTable(context.Background()); err != nil {
		log.Fatalf("Failed to ensure service state table: %v", err)
	}

	var publisher service.SnapshotPublisher
	if cfg.AMQPEnabled {
		p, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, snapshot republication disabled")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	hub := websocket.NewHub()
	go hub.Run()

	client := upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamToken)
	svc := service.NewService(cfg, client, db, hub, publisher)

	if err := svc.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start dashboard service: %v", err)
	}

	listener := upstream.NewStreamListener(
		cfg.UpstreamURL+cfg.EventsPath,
		cfg.UpstreamToken,
		cfg.PollInterval,
		svc.RefreshAsync,
	)
	listener.Start()

	router := setupRouter(cfg, svc, hub, listener)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("starting HTTP server on %s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listener.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}

func setupRouter(cfg *config.Config, svc *service.Service, hub *websocket.Hub, listener *upstream.StreamListener) *gin.Engine {
	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h := handlers.NewHandlers(svc)
	wsHandler := handlers.NewWebSocketHandler(hub)

	router.GET("/health", func(c *gin.Context) {
		clients, lastSeq := hub.GetStats()
		c.JSON(200, gin.H{
			"status":            "healthy",
			"service":           "response-dashboard",
			"time":              time.Now().UTC().Format(time.RFC3339),
			"live_update_mode":  listener.Mode(),
			"connected_clients": clients,
			"last_snapshot_seq": lastSeq,
		})
	})

	api := router.Group("/api/v3")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/incidents", h.GetIncidents)
		api.GET("/incidents/by-report", h.GetIncidentByReport)
		api.GET("/incidents/map", h.GetIncidentMap)
		api.GET("/incidents/listen", wsHandler.ListenSnapshots)
		api.GET("/incidents/ws-health", wsHandler.HealthCheck)

		api.GET("/notifications", h.GetNotifications)
		api.POST("/notifications/:key/read", h.MarkNotificationRead)
		api.DELETE("/notifications/:key", h.DeleteNotification)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)

		api.POST("/refresh", h.Refresh)
	}

	return router
}
