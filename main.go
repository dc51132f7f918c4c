package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"toolcrib-backend/api"
	"toolcrib-backend/internal/inventory/products"
	"toolcrib-backend/internal/inventory/tools"
	"toolcrib-backend/internal/lending/loans"
	"toolcrib-backend/internal/platform/auth"
	"toolcrib-backend/internal/platform/config"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/events"
	"toolcrib-backend/internal/platform/metrics"
	"toolcrib-backend/internal/platform/middleware"
	"toolcrib-backend/internal/reports"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	printSchema := flag.Bool("print-schema", false, "print the MySQL schema and exit")
	flag.Parse()

	if *printSchema {
		fmt.Print(db.MySQLSchema)
		return
	}

	// 設定読み込み
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}
	log.Printf("[INFO] mode:%s version:%s", cfg.Mode, cfg.Version)

	ctx := context.Background()
	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("[ERROR] db: %v", err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s (%s)", cfg.DB.DBName+cfg.DB.Path, conn.Dialect)

	if err := loans.RegisterValidators(); err != nil {
		log.Fatalf("[ERROR] validators: %v", err)
	}

	tokens := auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	guard := auth.NewGuard(tokens)
	authSvc := auth.NewService(conn, tokens, cfg.Auth.BcryptCost)
	if created, err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap); err != nil {
		log.Fatalf("[ERROR] bootstrap admin: %v", err)
	} else if created {
		log.Printf("[INFO] bootstrap administrator %s created", cfg.Bootstrap.DocumentNumber)
	}

	reg := metrics.New()

	// Redis が無ければレート制限は素通し。型付き nil を渡さないこと
	var limiter redis.Scripter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("[WARN] redis %s unreachable, rate limit will fail open: %v", cfg.Redis.Addr, err)
		}
		cancel()
		limiter = rdb
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("[WARN] amqp: %v (events disabled)", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	toolSvc := tools.NewService(conn)
	loanSvc := loans.NewService(conn, toolSvc.Ledger(),
		loans.WithRecorder(reg),
		loans.WithPublisher(publisher),
		loans.WithTicketLocation(cfg.TicketLocation()),
	)
	productSvc := products.NewService(conn,
		products.WithRecorder(reg),
		products.WithPublisher(publisher),
	)

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), reg.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		origins := cfg.Server.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.HeaderRequestID},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := conn.PingContext(pingCtx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(reg.Handler()))
	r.GET("/openapi.yaml", func(c *gin.Context) { c.Data(http.StatusOK, "application/yaml", api.OpenAPI) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.yaml")))

	// /api/v1
	v1 := r.Group("/api/v1")
	auth.RegisterPublicRoutes(v1, authSvc, middleware.TokenBucket(cfg.RateLimit, limiter))

	authed := v1.Group("", auth.RequireAuth(guard))
	auth.RegisterRoutes(authed, authSvc, guard)
	tools.RegisterRoutes(authed, toolSvc, guard)
	loans.RegisterRoutes(authed, loanSvc, guard)
	products.RegisterRoutes(authed, productSvc, guard)
	reports.RegisterRoutes(authed, reports.NewService(conn))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
}
