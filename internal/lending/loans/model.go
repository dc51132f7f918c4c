package loans

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusReturned Status = "Returned"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusReturned }

// Loan: quantity は作成後不変。Active → Returned は一度だけ。
type Loan struct {
	ID            int64
	TicketNumber  string
	ToolID        int64
	Quantity      int
	Responsible   string
	UsageLocation string
	IssuedBy      int64
	Status        Status
	CreatedAt     time.Time
	ReturnedAt    sql.NullTime
	ReturnNotes   sql.NullString
	ReturnedBy    sql.NullInt64
}

// loanRow は一覧・詳細用に工具名とユーザー名を結合したもの
type loanRow struct {
	Loan
	ToolName     string
	IssuerName   string
	ReturnerName sql.NullString
}
