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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/cache"
	"animehub/internal/episode"
	"animehub/internal/jobs"
	"animehub/internal/live"
	"animehub/internal/social"
	"animehub/internal/storage"
	"animehub/internal/user"
	"animehub/pkg/database"
	"animehub/pkg/utils"
)

func main() {
	cfg := utils.Load()

	db := database.MustOpen(cfg.DB)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password)
	defer redisCache.Close()

	objectStore, err := storage.New(context.Background(), cfg.Minio)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-Id", uuid.NewString())
		c.Next()
	})

	hub := live.NewHub()
	router.GET("/ws", live.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Stats().Clients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Stats().Clients,
		})
	})

	// Repos
	userRepo := user.NewRepo(db)
	animeRepo := anime.NewRepo(db)
	episodeRepo := episode.NewRepo(db)
	socialRepo := social.NewRepo(db)

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	requireAuth := auth.Required(tokenSvc, userRepo)
	optionalAuth := auth.Optional(tokenSvc, userRepo)
	adminOnly := auth.AdminOnly()

	authHandler := auth.NewHandler(userRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/api/auth"))

	animeHandler := anime.NewHandler(animeRepo, episodeRepo, socialRepo, redisCache, hub)
	animeHandler.RegisterRoutes(router.Group("/api/anime"), optionalAuth, requireAuth, adminOnly)

	episodeHandler := episode.NewHandler(episodeRepo, socialRepo)
	episodeHandler.RegisterRoutes(router.Group("/api/episodes"), requireAuth, adminOnly)

	userHandler := user.NewHandler(userRepo)
	userHandler.RegisterRoutes(router.Group("/api/users"), requireAuth)

	uploadHandler := storage.NewHandler(objectStore, userRepo)
	uploadHandler.RegisterRoutes(router.Group("/api/uploads"), requireAuth, adminOnly)

	// Background consistency repair
	reconciler := jobs.NewReconciler(db, redisCache)
	if err := reconciler.Start(); err != nil {
		log.Fatalf("reconcile job start failed: %v", err)
	}
	defer reconciler.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
