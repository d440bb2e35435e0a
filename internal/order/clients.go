package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

type MenuItemDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	IsAvailable   bool   `json:"is_available"`
}

// MenuClient looks up menu items for pricing.
type MenuClient interface {
	FetchMenuItem(ctx context.Context, id string) (*MenuItemDTO, error)
}

// Ext talks to menu-service over HTTP.
type Ext struct {
	HTTP        *http.Client
	MenuBaseURL string
}

func NewExt(menuBaseURL string) *Ext {
	return &Ext{
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MenuBaseURL: strings.TrimRight(menuBaseURL, "/"),
	}
}

func (e *Ext) FetchMenuItem(ctx context.Context, id string) (*MenuItemDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/menu/%s", e.MenuBaseURL, url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	res, err := e.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch menu item %s: %w", id, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, id)
	default:
		return nil, fmt.Errorf("fetch menu item %s: %s", id, res.Status)
	}
	var m MenuItemDTO
	if err := json.NewDecoder(res.Body).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
