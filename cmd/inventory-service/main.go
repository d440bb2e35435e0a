// Command inventory-service reserves menu-item stock for orders and runs the
// expiry sweep.
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
	"github.com/MikeMC777/canteen-ordering/internal/jobs"
	"github.com/MikeMC777/canteen-ordering/internal/logging"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("inventory-service", cfg.Env, cfg.LogFile)
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

	pub := events.New(cfg.KafkaBrokers, cfg.KafkaStockTopic, log)
	defer func() { _ = pub.Close() }()

	svc := stock.NewService(stock.NewPGStore(pool),
		stock.WithTTL(cfg.StockLockTimeout),
		stock.WithBatchSize(cfg.SweepBatchSize),
		stock.WithLogger(log.With(zap.String("component", "stock"))),
		stock.WithMetrics(m),
		stock.WithPublisher(pub),
	)

	sched := jobs.New(log)
	sched.Every(jobSweep, cfg.SweepInterval, func(ctx context.Context) error {
		_, err := svc.Sweep(ctx)
		return err
	})
	sched.Every(jobStockHealth, cfg.StockHealthInterval, func(ctx context.Context) error {
		_, err := svc.HealthCheck(ctx, cfg.LowStockThreshold)
		return err
	})
	sched.Start(ctx)
	defer sched.Stop()

	r := httpx.NewEngine(log, m, reg)
	r.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "inventory-service",
			"scheduler": sched.Active(),
			"lock_ttl":  svc.TTL().String(),
		})
	})
	registerRoutes(r, deps{svc: svc, sched: sched, adminHash: cfg.AdminTokenHash, lowThreshold: cfg.LowStockThreshold})

	health := grpcx.NewHealthServer("inventory-service", log)
	go func() {
		if err := health.ListenAndServe(cfg.InventorySvcGRPCAddr); err != nil {
			log.Error("grpc health", zap.Error(err))
		}
	}()
	health.SetServing(true)
	defer health.Stop()

	if err := httpx.Serve(ctx, cfg.InventorySvcAddr, r, log); err != nil {
		log.Error("http server", zap.Error(err))
	}
}
