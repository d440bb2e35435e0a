package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen-ordering/internal/menu"
	"github.com/MikeMC777/canteen-ordering/internal/order"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

// Status maps domain errors to HTTP status codes.
func Status(err error) int {
	switch {
	case errors.Is(err, stock.ErrInvalidRequest),
		errors.Is(err, stock.ErrNegativeStock),
		errors.Is(err, order.ErrInvalid),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, menu.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, stock.ErrItemNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrMenuItemNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, menu.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, stock.ErrInsufficientStock),
		errors.Is(err, stock.ErrItemUnavailable),
		errors.Is(err, stock.ErrAlreadyLocked),
		errors.Is(err, stock.ErrNoActiveLocks),
		errors.Is(err, stock.ErrLockExpired),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, menu.ErrInUse),
		errors.Is(err, menu.ErrCategoryExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes {"error": ...} with the mapped status. Internal errors are not
// echoed to the client.
func Error(c *gin.Context, err error) {
	code := Status(err)
	_ = c.Error(err)
	if code == http.StatusInternalServerError {
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var ise *stock.InsufficientStockError
	if errors.As(err, &ise) {
		body["menu_item_id"] = ise.MenuItemID
		body["available"] = ise.Available
		body["requested"] = ise.Requested
	}
	c.JSON(code, body)
}

// Page reads limit/offset query params with the same defaults the
// repositories clamp to.
func Page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
