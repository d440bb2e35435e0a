// Package docs registers the OpenAPI document served under /swagger by all
// three services. The document is maintained by hand next to the handlers'
// swag annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/menu": {
            "get": {
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "List menu items",
                "parameters": [
                    {"type": "string", "description": "category filter", "name": "category_id", "in": "query"},
                    {"type": "boolean", "description": "only items that can be ordered", "name": "available", "in": "query"},
                    {"type": "integer", "default": 20, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/menu.ListResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "Create a menu item",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"description": "menu item", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/menu.CreateItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/menu.Item"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/menu/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "Search menu items by name or description",
                "parameters": [
                    {"type": "string", "description": "at least 2 characters", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/menu.ListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/menu/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "List active categories",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/menu.Category"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "Create a category",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"description": "category", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/menu.CreateCategoryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/menu.Category"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/menu/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "Get a menu item",
                "parameters": [{"type": "string", "description": "menu item id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/menu.Item"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["menu"],
                "summary": "Partially update a menu item (stock excluded)",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "description": "menu item id", "name": "id", "in": "path", "required": true},
                    {"description": "fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/menu.UpdateItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/menu.Item"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            },
            "delete": {
                "tags": ["menu"],
                "summary": "Delete a menu item",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "description": "menu item id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/menu.HTTPError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders, newest first",
                "parameters": [
                    {"type": "string", "description": "status filter", "name": "status", "in": "query"},
                    {"type": "integer", "default": 20, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            },
            "post": {
                "description": "Prices every item from menu-service and reserves its stock. Unpaid orders expire.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {"description": "order", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.CreateOrderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.View"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/orders/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Today's order counts and revenue (UTC)",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Stats"}}}
            }
        },
        "/api/orders/user/{user_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List a user's orders",
                "parameters": [{"type": "string", "description": "user id", "name": "user_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get an order with its items and hold countdown",
                "parameters": [{"type": "string", "description": "order id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.View"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/orders/{id}/items": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Items of an order",
                "parameters": [{"type": "string", "description": "order id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/order.Item"}}}}
            }
        },
        "/api/orders/{id}/status": {
            "put": {
                "description": "pending -> confirmed|cancelled|expired, confirmed -> completed|cancelled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Change an order's status",
                "parameters": [
                    {"type": "string", "description": "order id", "name": "id", "in": "path", "required": true},
                    {"description": "new status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/orders/{id}/cancel": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Cancel an order and give its stock back",
                "parameters": [
                    {"type": "string", "description": "order id", "name": "id", "in": "path", "required": true},
                    {"description": "reason", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/order.CancelRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/inventory/stock": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Stock levels of every menu item",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/stock.Level"}}}}}
            }
        },
        "/api/inventory/stock/{menuItemId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Stock level of one menu item",
                "parameters": [{"type": "string", "description": "menu item id", "name": "menuItemId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/stock.Alert"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Overwrite an item's available stock",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "description": "menu item id", "name": "menuItemId", "in": "path", "required": true},
                    {"description": "new quantity", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/stock.SetStockRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/stock.Adjustment"}}}
            }
        },
        "/api/inventory/lock": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Reserve stock for an order (all or nothing)",
                "parameters": [{"description": "order and items", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/stock.LockRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/stock.LockResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/menu.HTTPError"}}
                }
            }
        },
        "/api/inventory/release": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Give an order's reserved stock back (idempotent)",
                "parameters": [{"description": "order", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/stock.OrderRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/inventory/confirm": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Make an order's reservation permanent",
                "parameters": [{"description": "order", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/stock.OrderRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/inventory/check": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Check availability without reserving",
                "parameters": [{"description": "items", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/stock.CheckRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/stock.CheckResponse"}}}
            }
        },
        "/api/inventory/alerts": {
            "get": {"produces": ["application/json"], "tags": ["inventory"], "summary": "Items running low",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/api/inventory/low-stock": {
            "get": {"produces": ["application/json"], "tags": ["inventory"], "summary": "Items at or below a threshold",
                "parameters": [{"type": "integer", "default": 5, "description": "available units", "name": "threshold", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/api/inventory/cleanup": {
            "post": {"produces": ["application/json"], "tags": ["inventory"], "summary": "Expire due reservations now",
                "parameters": [{"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}}}}
        },
        "/api/inventory/locks": {
            "get": {"produces": ["application/json"], "tags": ["inventory"], "summary": "Live reservations",
                "parameters": [{"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/stock.Lock"}}}}}}
        },
        "/api/inventory/transactions": {
            "get": {"produces": ["application/json"], "tags": ["inventory"], "summary": "Stock audit trail, newest first",
                "parameters": [
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "integer", "default": 50, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/api/scheduler/status": {
            "get": {"produces": ["application/json"], "tags": ["scheduler"], "summary": "Background job status",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/api/scheduler/cleanup": {
            "post": {"produces": ["application/json"], "tags": ["scheduler"], "summary": "Run a background job now",
                "parameters": [{"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}}
        },
        "/api/scheduler/health-check": {
            "post": {"produces": ["application/json"], "tags": ["scheduler"], "summary": "Run a background job now",
                "parameters": [{"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}}
        }
    },
    "definitions": {
        "menu.HTTPError": {"type": "object", "properties": {"error": {"type": "string"}}},
        "menu.Category": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "description": {"type": "string"},
            "is_active": {"type": "boolean"}, "created_at": {"type": "string"}
        }},
        "menu.Item": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "description": {"type": "string"},
            "price": {"type": "string", "example": "2.99"}, "category_id": {"type": "string"}, "category_name": {"type": "string"},
            "stock_quantity": {"type": "integer"}, "is_available": {"type": "boolean"},
            "preparation_time": {"type": "integer"}, "image_url": {"type": "string"},
            "created_at": {"type": "string"}, "updated_at": {"type": "string"}
        }},
        "menu.ListResponse": {"type": "object", "properties": {
            "q": {"type": "string"}, "items": {"type": "array", "items": {"$ref": "#/definitions/menu.Item"}},
            "limit": {"type": "integer"}, "offset": {"type": "integer"}
        }},
        "menu.CreateItemRequest": {"type": "object", "properties": {
            "name": {"type": "string"}, "description": {"type": "string"}, "price": {"type": "string"},
            "category_id": {"type": "string"}, "stock_quantity": {"type": "integer"}, "is_available": {"type": "boolean"},
            "preparation_time": {"type": "integer"}, "image_url": {"type": "string"}
        }},
        "menu.UpdateItemRequest": {"type": "object", "properties": {
            "name": {"type": "string"}, "description": {"type": "string"}, "price": {"type": "string"},
            "category_id": {"type": "string"}, "is_available": {"type": "boolean"},
            "preparation_time": {"type": "integer"}, "image_url": {"type": "string"}
        }},
        "menu.CreateCategoryRequest": {"type": "object", "properties": {"name": {"type": "string"}, "description": {"type": "string"}}},
        "order.CreateOrderItem": {"type": "object", "properties": {"menu_item_id": {"type": "string"}, "quantity": {"type": "integer", "example": 2}}},
        "order.CreateOrderRequest": {"type": "object", "properties": {
            "user_id": {"type": "string"}, "notes": {"type": "string", "example": "no onions"},
            "items": {"type": "array", "items": {"$ref": "#/definitions/order.CreateOrderItem"}}
        }},
        "order.UpdateStatusRequest": {"type": "object", "properties": {"status": {"type": "string", "example": "confirmed"}, "reason": {"type": "string"}}},
        "order.CancelRequest": {"type": "object", "properties": {"reason": {"type": "string", "example": "changed my mind"}}},
        "order.Item": {"type": "object", "properties": {
            "id": {"type": "string"}, "order_id": {"type": "string"}, "menu_item_id": {"type": "string"},
            "menu_item_name": {"type": "string"}, "quantity": {"type": "integer"},
            "unit_price": {"type": "string"}, "total_price": {"type": "string"}
        }},
        "order.Order": {"type": "object", "properties": {
            "id": {"type": "string"}, "user_id": {"type": "string"}, "status": {"type": "string"},
            "total": {"type": "string"}, "notes": {"type": "string"}, "cancel_reason": {"type": "string"},
            "expires_at": {"type": "string"}, "created_at": {"type": "string"}, "updated_at": {"type": "string"}
        }},
        "order.View": {"type": "object", "properties": {
            "id": {"type": "string"}, "user_id": {"type": "string"}, "status": {"type": "string"},
            "total": {"type": "string"}, "expires_at": {"type": "string"},
            "items": {"type": "array", "items": {"$ref": "#/definitions/order.Item"}},
            "seconds_remaining": {"type": "integer"}, "is_expired": {"type": "boolean"}
        }},
        "order.Stats": {"type": "object", "properties": {
            "date": {"type": "string"}, "total_orders": {"type": "integer"}, "pending_orders": {"type": "integer"},
            "confirmed_orders": {"type": "integer"}, "completed_orders": {"type": "integer"},
            "cancelled_orders": {"type": "integer"}, "expired_orders": {"type": "integer"}, "total_revenue": {"type": "string"}
        }},
        "stock.Request": {"type": "object", "properties": {"menu_item_id": {"type": "string"}, "quantity": {"type": "integer"}}},
        "stock.Lock": {"type": "object", "properties": {
            "id": {"type": "string"}, "order_id": {"type": "string"}, "menu_item_id": {"type": "string"},
            "quantity": {"type": "integer"}, "status": {"type": "string"},
            "locked_at": {"type": "string"}, "expires_at": {"type": "string"}, "resolved_at": {"type": "string"}
        }},
        "stock.Level": {"type": "object", "properties": {
            "menu_item_id": {"type": "string"}, "name": {"type": "string"}, "category": {"type": "string"},
            "is_available": {"type": "boolean"}, "available": {"type": "integer"}, "locked": {"type": "integer"}, "on_hand": {"type": "integer"}
        }},
        "stock.Alert": {"type": "object", "properties": {
            "menu_item_id": {"type": "string"}, "name": {"type": "string"}, "available": {"type": "integer"},
            "locked": {"type": "integer"}, "alert_level": {"type": "string"}
        }},
        "stock.Adjustment": {"type": "object", "properties": {
            "menu_item_id": {"type": "string"}, "previous_stock": {"type": "integer"}, "new_stock": {"type": "integer"},
            "change": {"type": "integer"}, "is_available": {"type": "boolean"}
        }},
        "stock.LockRequest": {"type": "object", "properties": {
            "order_id": {"type": "string"}, "items": {"type": "array", "items": {"$ref": "#/definitions/stock.Request"}}
        }},
        "stock.OrderRequest": {"type": "object", "properties": {"order_id": {"type": "string"}}},
        "stock.CheckRequest": {"type": "object", "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/stock.Request"}}}},
        "stock.SetStockRequest": {"type": "object", "properties": {"quantity": {"type": "integer"}, "reason": {"type": "string"}}},
        "stock.LockResponse": {"type": "object", "properties": {
            "order_id": {"type": "string"}, "expires_at": {"type": "string"},
            "locks": {"type": "array", "items": {"$ref": "#/definitions/stock.Lock"}}
        }},
        "stock.CheckResponse": {"type": "object", "properties": {
            "available": {"type": "boolean"},
            "items": {"type": "array", "items": {"type": "object", "properties": {
                "menu_item_id": {"type": "string"}, "requested": {"type": "integer"}, "available": {"type": "integer"}, "ok": {"type": "boolean"}
            }}}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Canteen Ordering API",
	Description:      "Menu, order and inventory services with time-limited stock reservations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
