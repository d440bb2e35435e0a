package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	"github.com/MikeMC777/canteen-ordering/internal/jobs"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

const (
	jobSweep       = "expired-lock-sweep"
	jobStockHealth = "stock-health-check"
)

type deps struct {
	svc          *stock.Service
	sched        *jobs.Scheduler
	adminHash    string
	lowThreshold int
}

func registerRoutes(r *gin.Engine, d deps) {
	inv := r.Group("/api/inventory")
	inv.GET("/stock", listStockHandler(d.svc))
	inv.GET("/stock/:menuItemId", getStockHandler(d.svc))
	inv.POST("/lock", lockHandler(d.svc))
	inv.POST("/release", releaseHandler(d.svc))
	inv.POST("/confirm", confirmHandler(d.svc))
	inv.POST("/check", checkHandler(d.svc))
	inv.GET("/alerts", alertsHandler(d.svc))
	inv.GET("/low-stock", lowStockHandler(d.svc, d.lowThreshold))

	admin := inv.Group("", httpx.AdminOnly(d.adminHash))
	admin.PUT("/stock/:menuItemId", setStockHandler(d.svc))
	admin.POST("/cleanup", cleanupHandler(d.svc))
	admin.GET("/locks", activeLocksHandler(d.svc))
	admin.GET("/transactions", transactionsHandler(d.svc))

	sched := r.Group("/api/scheduler")
	sched.GET("/status", schedulerStatusHandler(d.sched))
	sched.POST("/cleanup", httpx.AdminOnly(d.adminHash), triggerHandler(d.sched, jobSweep))
	sched.POST("/health-check", httpx.AdminOnly(d.adminHash), triggerHandler(d.sched, jobStockHealth))
}

// listStockHandler godoc
// @Summary  Stock levels of every menu item
// @Tags     inventory
// @Produce  json
// @Success  200 {object} map[string][]stock.Level
// @Router   /api/inventory/stock [get]
func listStockHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		levels, err := svc.Levels(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if levels == nil {
			levels = []stock.Level{}
		}
		c.JSON(http.StatusOK, gin.H{"items": levels})
	}
}

// getStockHandler godoc
// @Summary  Stock level of one menu item
// @Tags     inventory
// @Produce  json
// @Param    menuItemId path string true "menu item id"
// @Success  200 {object} stock.Alert
// @Failure  404 {object} menu.HTTPError
// @Router   /api/inventory/stock/{menuItemId} [get]
func getStockHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lvl, err := svc.Level(c.Request.Context(), c.Param("menuItemId"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, stock.Alert{Level: *lvl, AlertLevel: stock.ClassifyAlert(lvl.Available)})
	}
}

// lockHandler godoc
// @Summary  Reserve stock for an order (all or nothing)
// @Tags     inventory
// @Accept   json
// @Produce  json
// @Param    body body stock.LockRequest true "order and items"
// @Success  201 {object} stock.LockResponse
// @Failure  400 {object} menu.HTTPError
// @Failure  409 {object} menu.HTTPError
// @Router   /api/inventory/lock [post]
func lockHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stock.LockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		locks, err := svc.Lock(c.Request.Context(), strings.TrimSpace(req.OrderID), req.Items)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, stock.LockResponse{OrderID: req.OrderID, Locks: locks, ExpiresAt: locks[0].ExpiresAt})
	}
}

func bindOrderID(c *gin.Context) (string, bool) {
	var req stock.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return "", false
	}
	id := strings.TrimSpace(req.OrderID)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return "", false
	}
	return id, true
}

// releaseHandler godoc
// @Summary  Give an order's reserved stock back (idempotent)
// @Tags     inventory
// @Accept   json
// @Produce  json
// @Param    body body stock.OrderRequest true "order"
// @Success  200 {object} map[string]interface{}
// @Router   /api/inventory/release [post]
func releaseHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindOrderID(c)
		if !ok {
			return
		}
		locks, err := svc.Release(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": id, "released": len(locks), "locks": locks})
	}
}

// confirmHandler godoc
// @Summary  Make an order's reservation permanent and confirm the order
// @Tags     inventory
// @Accept   json
// @Produce  json
// @Param    body body stock.OrderRequest true "order"
// @Success  200 {object} map[string]interface{}
// @Failure  409 {object} menu.HTTPError
// @Router   /api/inventory/confirm [post]
func confirmHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindOrderID(c)
		if !ok {
			return
		}
		locks, err := svc.Confirm(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": id, "confirmed": len(locks), "locks": locks})
	}
}

// checkHandler godoc
// @Summary  Check availability without reserving
// @Tags     inventory
// @Accept   json
// @Produce  json
// @Param    body body stock.CheckRequest true "items"
// @Success  200 {object} stock.CheckResponse
// @Router   /api/inventory/check [post]
func checkHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stock.CheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		items, ok, err := svc.Check(c.Request.Context(), req.Items)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, stock.CheckResponse{Available: ok, Items: items})
	}
}

// alertsHandler godoc
// @Summary  Items running low
// @Tags     inventory
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Router   /api/inventory/alerts [get]
func alertsHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := svc.Alerts(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": alerts, "count": len(alerts)})
	}
}

// lowStockHandler godoc
// @Summary  Orderable items at or below a threshold, scarcest first
// @Tags     inventory
// @Produce  json
// @Param    threshold query int false "available units" default(5)
// @Success  200 {object} map[string]interface{}
// @Router   /api/inventory/low-stock [get]
func lowStockHandler(svc *stock.Service, def int) gin.HandlerFunc {
	return func(c *gin.Context) {
		threshold := def
		if v := c.Query("threshold"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a non-negative integer"})
				return
			}
			threshold = n
		}
		levels, err := svc.LowStock(c.Request.Context(), threshold)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": levels, "threshold": threshold})
	}
}

// setStockHandler godoc
// @Summary  Overwrite an item's available stock
// @Tags     inventory
// @Accept   json
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Param    menuItemId path string true "menu item id"
// @Param    body body stock.SetStockRequest true "new quantity"
// @Success  200 {object} stock.Adjustment
// @Failure  400 {object} menu.HTTPError
// @Failure  404 {object} menu.HTTPError
// @Router   /api/inventory/stock/{menuItemId} [put]
func setStockHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stock.SetStockRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
			return
		}
		adj, err := svc.SetStock(c.Request.Context(), c.Param("menuItemId"), *req.Quantity, strings.TrimSpace(req.Reason))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, adj)
	}
}

// cleanupHandler godoc
// @Summary  Expire due reservations now
// @Tags     inventory
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Success  200 {object} map[string]int
// @Router   /api/inventory/cleanup [post]
func cleanupHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.Sweep(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": n})
	}
}

// activeLocksHandler godoc
// @Summary  Live reservations
// @Tags     inventory
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Success  200 {object} map[string][]stock.Lock
// @Router   /api/inventory/locks [get]
func activeLocksHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		locks, err := svc.ActiveLocks(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if locks == nil {
			locks = []stock.Lock{}
		}
		c.JSON(http.StatusOK, gin.H{"items": locks})
	}
}

// transactionsHandler godoc
// @Summary  Stock audit trail, newest first
// @Tags     inventory
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Param    limit  query int false "page size" default(50)
// @Param    offset query int false "page offset" default(0)
// @Success  200 {object} map[string]interface{}
// @Router   /api/inventory/transactions [get]
func transactionsHandler(svc *stock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}
		txs, err := svc.Transactions(c.Request.Context(), limit, offset)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if txs == nil {
			txs = []stock.Transaction{}
		}
		c.JSON(http.StatusOK, gin.H{"items": txs, "limit": limit, "offset": offset})
	}
}

// schedulerStatusHandler godoc
// @Summary  Background job status
// @Tags     scheduler
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Router   /api/scheduler/status [get]
func schedulerStatusHandler(s *jobs.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active": s.Active(), "jobs": s.Status()})
	}
}

// triggerHandler godoc
// @Summary  Run a background job now
// @Tags     scheduler
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Success  200 {object} map[string]string
// @Router   /api/scheduler/cleanup [post]
// @Router   /api/scheduler/health-check [post]
func triggerHandler(s *jobs.Scheduler, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Trigger(c.Request.Context(), name); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": name, "status": "done"})
	}
}
