package stock

import "time"

// LockRequest payload of POST /api/inventory/lock.
// swagger:model LockRequest
type LockRequest struct {
	OrderID string    `json:"order_id" example:"b9d7c8e2-0f0a-4a5e-8e4c-5b7f0c1d2e3f"`
	Items   []Request `json:"items"`
}

// OrderRequest payload of release and confirm.
// swagger:model OrderRequest
type OrderRequest struct {
	OrderID string `json:"order_id" example:"b9d7c8e2-0f0a-4a5e-8e4c-5b7f0c1d2e3f"`
}

// swagger:model CheckRequest
type CheckRequest struct {
	Items []Request `json:"items"`
}

// swagger:model SetStockRequest
type SetStockRequest struct {
	Quantity *int   `json:"quantity" example:"25"`
	Reason   string `json:"reason"   example:"morning delivery"`
}

// swagger:model LockResponse
type LockResponse struct {
	OrderID   string    `json:"order_id"`
	Locks     []Lock    `json:"locks"`
	ExpiresAt time.Time `json:"expires_at"`
}

// swagger:model CheckResponse
type CheckResponse struct {
	Available bool           `json:"available"`
	Items     []Availability `json:"items"`
}
