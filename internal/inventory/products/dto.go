package products

import (
	"time"

	"toolcrib-backend/internal/platform/paging"
)

// ===== Requests =====

type CreateProductRequest struct {
	Code        string `json:"code" binding:"required,max=64"`
	Name        string `json:"name" binding:"required,max=255"`
	Responsible string `json:"responsible" binding:"required,max=255"`
	Quantity    int    `json:"quantity" binding:"gte=0"`
}

// UpdateProductRequest: quantity の直接指定は補充や棚卸しの修正用
type UpdateProductRequest struct {
	Code        *string `json:"code,omitempty" binding:"omitempty,max=64"`
	Name        *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Responsible *string `json:"responsible,omitempty" binding:"omitempty,max=255"`
	Quantity    *int    `json:"quantity,omitempty" binding:"omitempty,gte=0"`
}

type CreateStockOutRequest struct {
	ProductID   int64  `json:"product_id" binding:"required,gt=0"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Responsible string `json:"responsible" binding:"required,max=255"`
	Reason      string `json:"reason" binding:"required"`
}

// ===== Responses =====

type ProductResponse struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Responsible string    `json:"responsible"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListProductsResult struct {
	Items      []ProductResponse `json:"items"`
	Pagination paging.Meta       `json:"pagination"`
}

type StockOutResponse struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	ProductCode    string    `json:"product_code"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	Responsible    string    `json:"responsible"`
	Reason         string    `json:"reason"`
	RecordedBy     int64     `json:"recorded_by"`
	RecordedByName string    `json:"recorded_by_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListStockOutsResult struct {
	Items      []StockOutResponse `json:"items"`
	Pagination paging.Meta        `json:"pagination"`
}

// StockOutEvent はコミット後に発行するイベントの本文
type StockOutEvent struct {
	StockOutID int64     `json:"stock_out_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toResponse(p *Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Responsible: p.Responsible,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
	}
}

func toStockOutResponse(o *StockOut) StockOutResponse {
	return StockOutResponse{
		ID:             o.ID,
		ProductID:      o.ProductID,
		ProductCode:    o.ProductCode,
		ProductName:    o.ProductName,
		Quantity:       o.Quantity,
		Responsible:    o.Responsible,
		Reason:         o.Reason,
		RecordedBy:     o.RecordedBy,
		RecordedByName: o.RecordedByName,
		CreatedAt:      o.CreatedAt,
	}
}
