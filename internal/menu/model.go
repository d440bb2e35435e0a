package menu

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID           string  `json:"id"`
	CategoryID   *string `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	// NUMERIC(10,2) kept as text so no float rounding happens on the way through
	Price           string    `json:"price"`
	StockQuantity   int       `json:"stock_quantity"`
	IsAvailable     bool      `json:"is_available"`
	PreparationTime int       `json:"preparation_time"`
	ImageURL        string    `json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// HTTPError represents a standard error in JSON.
// swagger:model
type HTTPError struct {
	// example: menu item not found
	Error string `json:"error"`
}

// ListResponse represents a paginated list of menu items.
// swagger:model
type ListResponse struct {
	Q      string `json:"q,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Items  []Item `json:"items"`
}

// CreateItemRequest payload of creation. Initial stock is recorded as an
// adjustment in the stock audit trail.
// swagger:model CreateItemRequest
type CreateItemRequest struct {
	CategoryID      string `json:"category_id"      example:"7c0a4b0e-1d7b-4c55-9a53-3c1f3c5e0c01"`
	Name            string `json:"name"             example:"Chicken Burger"`
	Description     string `json:"description"      example:"Grilled chicken with lettuce and mayo"`
	Price           string `json:"price"            example:"199.00"`
	StockQuantity   int    `json:"stock_quantity"   example:"8"`
	IsAvailable     *bool  `json:"is_available"`
	PreparationTime int    `json:"preparation_time" example:"10"`
	ImageURL        string `json:"image_url"`
}

// UpdateItemRequest payload of partial update. Omitted fields are left
// untouched; stock is changed through the inventory API only.
// swagger:model UpdateItemRequest
type UpdateItemRequest struct {
	CategoryID      *string `json:"category_id"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	IsAvailable     *bool   `json:"is_available"`
	PreparationTime *int    `json:"preparation_time"`
	ImageURL        *string `json:"image_url"`
}

// swagger:model CreateCategoryRequest
type CreateCategoryRequest struct {
	Name        string `json:"name"        example:"Beverages"`
	Description string `json:"description" example:"Hot and cold drinks"`
}

// NormalizePrice parses a price and renders it with two decimals.
func NormalizePrice(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: price must be a decimal number", ErrInvalid)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w: price cannot be negative", ErrInvalid)
	}
	return d.StringFixed(2), nil
}

// Item builds a validated Item from the request.
func (r CreateItemRequest) Item() (*Item, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if r.Price == "" {
		return nil, fmt.Errorf("%w: price is required", ErrInvalid)
	}
	price, err := NormalizePrice(r.Price)
	if err != nil {
		return nil, err
	}
	if r.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock_quantity cannot be negative", ErrInvalid)
	}
	if r.PreparationTime < 0 {
		return nil, fmt.Errorf("%w: preparation_time cannot be negative", ErrInvalid)
	}
	it := &Item{
		Name:            name,
		Description:     strings.TrimSpace(r.Description),
		Price:           price,
		StockQuantity:   r.StockQuantity,
		IsAvailable:     r.StockQuantity > 0,
		PreparationTime: r.PreparationTime,
		ImageURL:        strings.TrimSpace(r.ImageURL),
	}
	if r.IsAvailable != nil {
		it.IsAvailable = *r.IsAvailable
	}
	if it.PreparationTime == 0 {
		it.PreparationTime = 10
	}
	if id := strings.TrimSpace(r.CategoryID); id != "" {
		it.CategoryID = &id
	}
	return it, nil
}

// Validate normalizes the set fields in place.
func (r *UpdateItemRequest) Validate() error {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		if n == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
		}
		r.Name = &n
	}
	if r.Price != nil {
		p, err := NormalizePrice(*r.Price)
		if err != nil {
			return err
		}
		r.Price = &p
	}
	if r.PreparationTime != nil && *r.PreparationTime < 0 {
		return fmt.Errorf("%w: preparation_time cannot be negative", ErrInvalid)
	}
	return nil
}

// Empty reports whether the request changes nothing.
func (r UpdateItemRequest) Empty() bool {
	return r.CategoryID == nil && r.Name == nil && r.Description == nil && r.Price == nil &&
		r.IsAvailable == nil && r.PreparationTime == nil && r.ImageURL == nil
}
