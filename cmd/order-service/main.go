// Command order-service places canteen orders and drives their status.
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
	"github.com/MikeMC777/canteen-ordering/internal/events"
	"github.com/MikeMC777/canteen-ordering/internal/grpcx"
	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	"github.com/MikeMC777/canteen-ordering/internal/logging"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
	ord "github.com/MikeMC777/canteen-ordering/internal/order"
)

// @title        Canteen Orders API
// @version      1.0
// @BasePath     /
func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("order-service", cfg.Env, cfg.LogFile)
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pub := events.New(cfg.KafkaBrokers, cfg.KafkaStockTopic, log)
	defer func() { _ = pub.Close() }()

	svc := ord.NewService(ord.NewPGRepo(pool), ord.NewExt(cfg.MenuSvcBaseURL))
	svc.Timeout = cfg.OrderTimeout
	svc.Metrics = m
	svc.Events = pub

	r := httpx.NewEngine(log, m, reg)
	r.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "order-service", "order_timeout": svc.Timeout.String()})
	})
	registerRoutes(r, svc)

	health := grpcx.NewHealthServer("order-service", log)
	go func() {
		if err := health.ListenAndServe(cfg.OrderSvcGRPCAddr); err != nil {
			log.Error("grpc health", zap.Error(err))
		}
	}()
	health.SetServing(true)
	defer health.Stop()

	log.Info("order-service starting", zap.String("addr", cfg.OrderSvcAddr), zap.String("menu", cfg.MenuSvcBaseURL))
	if err := httpx.Serve(ctx, cfg.OrderSvcAddr, r, log); err != nil {
		log.Error("http server", zap.Error(err))
	}
}
