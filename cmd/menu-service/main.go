// Command menu-service serves the canteen menu: items and categories.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "github.com/MikeMC777/canteen-ordering/docs"
	"github.com/MikeMC777/canteen-ordering/internal/config"
	"github.com/MikeMC777/canteen-ordering/internal/db"
	"github.com/MikeMC777/canteen-ordering/internal/grpcx"
	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	"github.com/MikeMC777/canteen-ordering/internal/logging"
	"github.com/MikeMC777/canteen-ordering/internal/menu"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
)

func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("menu-service", cfg.Env, cfg.LogFile)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AdminTokenHash == "" {
		log.Warn("ADMIN_TOKEN_HASH is empty: admin routes are open")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo := menu.NewPGRepo(pool)
	r := httpx.NewEngine(log, m, reg)
	r.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "menu-service"})
	})
	registerRoutes(r, repo, cfg.AdminTokenHash)

	health := grpcx.NewHealthServer("menu-service", log)
	go func() {
		if err := health.ListenAndServe(cfg.MenuSvcGRPCAddr); err != nil {
			log.Error("grpc health", zap.Error(err))
		}
	}()
	health.SetServing(true)
	defer health.Stop()

	if err := httpx.Serve(ctx, cfg.MenuSvcAddr, r, log); err != nil {
		log.Error("http server", zap.Error(err))
	}
}
