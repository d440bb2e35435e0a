package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	ord "github.com/MikeMC777/canteen-ordering/internal/order"
)

func registerRoutes(r *gin.Engine, svc *ord.Service) {
	api := r.Group("/api/orders")
	api.POST("", createOrderHandler(svc))
	api.GET("", listOrdersHandler(svc))
	api.GET("/stats", statsHandler(svc))
	api.GET("/user/:user_id", listUserOrdersHandler(svc))
	api.GET("/:id", getOrderHandler(svc))
	api.GET("/:id/items", getOrderItemsHandler(svc))
	api.PUT("/:id/status", updateStatusHandler(svc))
	api.POST("/:id/cancel", cancelOrderHandler(svc))
}

// createOrderHandler godoc
// @Summary      Place an order
// @Description  Prices every item from menu-service and reserves its stock. Unpaid orders expire.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body body order.CreateOrderRequest true "order"
// @Success      201 {object} order.View
// @Failure      400 {object} menu.HTTPError
// @Failure      404 {object} menu.HTTPError
// @Failure      409 {object} menu.HTTPError
// @Router       /api/orders [post]
func createOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, items, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, ord.NewView(*o, items, svc.Now()))
	}
}

// listOrdersHandler godoc
// @Summary  List orders, newest first
// @Tags     orders
// @Produce  json
// @Param    status query string false "status filter"
// @Param    limit  query int    false "page size" default(20)
// @Param    offset query int    false "page offset" default(0)
// @Success  200 {object} map[string]interface{}
// @Failure  400 {object} menu.HTTPError
// @Router   /api/orders [get]
func listOrdersHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Page(c)
		q := ord.ListQuery{Limit: limit, Offset: offset}
		if s := strings.TrimSpace(c.Query("status")); s != "" {
			st, err := ord.ParseStatus(s)
			if err != nil {
				httpx.Error(c, err)
				return
			}
			q.Status = st
		}
		orders, err := svc.Repo.List(c.Request.Context(), q)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": orders, "limit": limit, "offset": offset})
	}
}

// listUserOrdersHandler godoc
// @Summary  List a user's orders
// @Tags     orders
// @Produce  json
// @Param    user_id path  string true  "user id"
// @Param    limit   query int    false "page size" default(20)
// @Param    offset  query int    false "page offset" default(0)
// @Success  200 {object} map[string]interface{}
// @Router   /api/orders/user/{user_id} [get]
func listUserOrdersHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Page(c)
		orders, err := svc.Repo.ListByUser(c.Request.Context(), c.Param("user_id"), limit, offset)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": orders, "limit": limit, "offset": offset})
	}
}

// getOrderHandler godoc
// @Summary  Get an order with its items and hold countdown
// @Tags     orders
// @Produce  json
// @Param    id path string true "order id"
// @Success  200 {object} order.View
// @Failure  404 {object} menu.HTTPError
// @Router   /api/orders/{id} [get]
func getOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// getOrderItemsHandler godoc
// @Summary  Items of an order
// @Tags     orders
// @Produce  json
// @Param    id path string true "order id"
// @Success  200 {array} order.Item
// @Failure  404 {object} menu.HTTPError
// @Router   /api/orders/{id}/items [get]
func getOrderItemsHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Repo.GetItems(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// updateStatusHandler godoc
// @Summary  Change an order's status
// @Description  pending -> confirmed|cancelled|expired, confirmed -> completed|cancelled.
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    id   path string true "order id"
// @Param    body body order.UpdateStatusRequest true "new status"
// @Success  200 {object} order.Order
// @Failure  400 {object} menu.HTTPError
// @Failure  404 {object} menu.HTTPError
// @Failure  409 {object} menu.HTTPError
// @Router   /api/orders/{id}/status [put]
func updateStatusHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.Status) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		o, err := svc.Transition(c.Request.Context(), c.Param("id"), req.Status, req.Reason)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// cancelOrderHandler godoc
// @Summary  Cancel an order and give its stock back
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    id   path string true "order id"
// @Param    body body order.CancelRequest false "reason"
// @Success  200 {object} order.Order
// @Failure  404 {object} menu.HTTPError
// @Failure  409 {object} menu.HTTPError
// @Router   /api/orders/{id}/cancel [post]
func cancelOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CancelRequest
		// body is optional
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
				return
			}
		}
		o, err := svc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// statsHandler godoc
// @Summary  Today's order counts and revenue (UTC)
// @Tags     orders
// @Produce  json
// @Success  200 {object} order.Stats
// @Router   /api/orders/stats [get]
func statsHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Stats(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
