package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	"github.com/MikeMC777/canteen-ordering/internal/menu"
)

func registerRoutes(r *gin.Engine, repo menu.Repository, adminHash string) {
	api := r.Group("/api/menu")
	api.GET("", listItemsHandler(repo))
	api.GET("/search", searchHandler(repo))
	api.GET("/categories", listCategoriesHandler(repo))
	api.GET("/:id", getItemHandler(repo))

	admin := api.Group("", httpx.AdminOnly(adminHash))
	admin.POST("", createItemHandler(repo))
	admin.PUT("/:id", updateItemHandler(repo))
	admin.DELETE("/:id", deleteItemHandler(repo))
	admin.POST("/categories", createCategoryHandler(repo))
}

// listItemsHandler godoc
// @Summary  List menu items
// @Tags     menu
// @Produce  json
// @Param    category_id query string false "category filter"
// @Param    available   query bool   false "only items that can be ordered"
// @Param    limit       query int    false "page size" default(20)
// @Param    offset      query int    false "page offset" default(0)
// @Success  200 {object} menu.ListResponse
// @Router   /api/menu [get]
func listItemsHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Page(c)
		q := menu.Query{
			CategoryID:    c.Query("category_id"),
			AvailableOnly: c.Query("available") == "true",
			Limit:         limit,
			Offset:        offset,
		}
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, menu.ListResponse{Items: items, Limit: limit, Offset: offset})
	}
}

// searchHandler godoc
// @Summary  Search menu items by name or description
// @Tags     menu
// @Produce  json
// @Param    q      query string true  "at least 2 characters"
// @Param    limit  query int    false "page size" default(20)
// @Param    offset query int    false "page offset" default(0)
// @Success  200 {object} menu.ListResponse
// @Failure  400 {object} menu.HTTPError
// @Router   /api/menu/search [get]
func searchHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if len([]rune(q)) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q must have at least 2 characters"})
			return
		}
		limit, offset := httpx.Page(c)
		items, err := repo.List(c.Request.Context(), menu.Query{Q: q, Limit: limit, Offset: offset})
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, menu.ListResponse{Q: q, Items: items, Limit: limit, Offset: offset})
	}
}

// getItemHandler godoc
// @Summary  Get a menu item
// @Tags     menu
// @Produce  json
// @Param    id path string true "menu item id"
// @Success  200 {object} menu.Item
// @Failure  404 {object} menu.HTTPError
// @Router   /api/menu/{id} [get]
func getItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		it, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	}
}

// createItemHandler godoc
// @Summary  Create a menu item
// @Tags     menu
// @Accept   json
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Param    body body menu.CreateItemRequest true "menu item"
// @Success  201 {object} menu.Item
// @Failure  400 {object} menu.HTTPError
// @Router   /api/menu [post]
func createItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		it, err := req.Item()
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if err := repo.Create(c.Request.Context(), it); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, it)
	}
}

// updateItemHandler godoc
// @Summary  Partially update a menu item (stock excluded)
// @Tags     menu
// @Accept   json
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Param    id   path string true "menu item id"
// @Param    body body menu.UpdateItemRequest true "fields to change"
// @Success  200 {object} menu.Item
// @Failure  400 {object} menu.HTTPError
// @Failure  404 {object} menu.HTTPError
// @Router   /api/menu/{id} [put]
func updateItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Empty() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		if err := req.Validate(); err != nil {
			httpx.Error(c, err)
			return
		}
		it, err := repo.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	}
}

// deleteItemHandler godoc
// @Summary  Delete a menu item
// @Tags     menu
// @Param    X-Admin-Token header string true "admin token"
// @Param    id path string true "menu item id"
// @Success  204
// @Failure  404 {object} menu.HTTPError
// @Failure  409 {object} menu.HTTPError
// @Router   /api/menu/{id} [delete]
func deleteItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": menu.ErrNotFound.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// listCategoriesHandler godoc
// @Summary  List active categories
// @Tags     menu
// @Produce  json
// @Success  200 {array} menu.Category
// @Router   /api/menu/categories [get]
func listCategoriesHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := repo.Categories(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": cats})
	}
}

// createCategoryHandler godoc
// @Summary  Create a category
// @Tags     menu
// @Accept   json
// @Produce  json
// @Param    X-Admin-Token header string true "admin token"
// @Param    body body menu.CreateCategoryRequest true "category"
// @Success  201 {object} menu.Category
// @Failure  409 {object} menu.HTTPError
// @Router   /api/menu/categories [post]
func createCategoryHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		cat := &menu.Category{Name: name, Description: strings.TrimSpace(req.Description)}
		if err := repo.CreateCategory(c.Request.Context(), cat); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}
