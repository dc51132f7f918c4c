package tools

import (
	"time"

	"toolcrib-backend/internal/platform/paging"
)

// ===== Requests =====

type CreateToolRequest struct {
	Code           *string `json:"code,omitempty" binding:"omitempty,max=64"`
	Responsible    string  `json:"responsible" binding:"required,max=255"`
	Name           string  `json:"name" binding:"required,max=255"`
	QuantityTotal  int     `json:"quantity_total" binding:"gte=0"`
	QuantityOnLoan *int    `json:"quantity_on_loan,omitempty" binding:"omitempty,gte=0"` // 移行データ用。通常は未指定
}

type UpdateToolRequest struct {
	Code          *string `json:"code,omitempty" binding:"omitempty,max=64"`
	Responsible   *string `json:"responsible,omitempty" binding:"omitempty,max=255"`
	Name          *string `json:"name,omitempty" binding:"omitempty,max=255"`
	QuantityTotal *int    `json:"quantity_total,omitempty" binding:"omitempty,gte=0"`
}

// ===== Responses =====

type ToolResponse struct {
	ID                int64     `json:"id"`
	Code              *string   `json:"code,omitempty"`
	Responsible       string    `json:"responsible"`
	Name              string    `json:"name"`
	QuantityTotal     int       `json:"quantity_total"`
	QuantityAvailable int       `json:"quantity_available"`
	QuantityOnLoan    int       `json:"quantity_on_loan"`
	CreatedAt         time.Time `json:"created_at"`
}

type ListToolsResult struct {
	Items      []ToolResponse `json:"items"`
	Pagination paging.Meta    `json:"pagination"`
}

func toResponse(t *Tool) ToolResponse {
	res := ToolResponse{
		ID:                t.ID,
		Responsible:       t.Responsible,
		Name:              t.Name,
		QuantityTotal:     t.QuantityTotal,
		QuantityAvailable: t.QuantityAvailable,
		QuantityOnLoan:    t.QuantityOnLoan,
		CreatedAt:         t.CreatedAt,
	}
	if t.Code.Valid {
		v := t.Code.String
		res.Code = &v
	}
	return res
}
