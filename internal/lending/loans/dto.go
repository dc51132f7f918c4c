package loans

import (
	"time"

	"toolcrib-backend/internal/platform/paging"
)

// ===== Requests =====

type CreateLoanRequest struct {
	TicketNumber  string `json:"ticket_number" binding:"required,ticket"`
	ToolID        int64  `json:"tool_id" binding:"required,gt=0"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	Responsible   string `json:"responsible" binding:"required,max=255"`
	UsageLocation string `json:"usage_location" binding:"required,max=255"`
}

type ReturnLoanRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type ListQuery struct {
	Search string
	Status *Status
}

// ===== Responses =====

type LoanResponse struct {
	ID             int64      `json:"id"`
	TicketNumber   string     `json:"ticket_number"`
	ToolID         int64      `json:"tool_id"`
	ToolName       string     `json:"tool_name"`
	Quantity       int        `json:"quantity"`
	Responsible    string     `json:"responsible"`
	UsageLocation  string     `json:"usage_location"`
	IssuedBy       int64      `json:"issued_by"`
	IssuedByName   string     `json:"issued_by_name"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
	ReturnNotes    *string    `json:"return_notes,omitempty"`
	ReturnedBy     *int64     `json:"returned_by,omitempty"`
	ReturnedByName *string    `json:"returned_by_name,omitempty"`
}

type ListLoansResult struct {
	Items      []LoanResponse `json:"items"`
	Pagination paging.Meta    `json:"pagination"`
}

type TicketResponse struct {
	TicketNumber string `json:"ticket_number"`
}

// LoanEvent はコミット後に発行するイベントの本文
type LoanEvent struct {
	LoanID       int64     `json:"loan_id"`
	TicketNumber string    `json:"ticket_number"`
	ToolID       int64     `json:"tool_id"`
	Quantity     int       `json:"quantity"`
	Status       Status    `json:"status"`
	ActorID      int64     `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func toResponse(r *loanRow) LoanResponse {
	res := LoanResponse{
		ID:            r.ID,
		TicketNumber:  r.TicketNumber,
		ToolID:        r.ToolID,
		ToolName:      r.ToolName,
		Quantity:      r.Quantity,
		Responsible:   r.Responsible,
		UsageLocation: r.UsageLocation,
		IssuedBy:      r.IssuedBy,
		IssuedByName:  r.IssuerName,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
	if r.ReturnedAt.Valid {
		t := r.ReturnedAt.Time
		res.ReturnedAt = &t
	}
	if r.ReturnNotes.Valid {
		v := r.ReturnNotes.String
		res.ReturnNotes = &v
	}
	if r.ReturnedBy.Valid {
		v := r.ReturnedBy.Int64
		res.ReturnedBy = &v
	}
	if r.ReturnerName.Valid {
		v := r.ReturnerName.String
		res.ReturnedByName = &v
	}
	return res
}
