package tools

import (
	"database/sql"
	"time"
)

// Tool は在庫の1行。available + on_loan == total を常に保つ。
type Tool struct {
	ID                int64
	Code              sql.NullString
	Responsible       string
	Name              string
	QuantityTotal     int
	QuantityAvailable int
	QuantityOnLoan    int
	CreatedAt         time.Time
}
