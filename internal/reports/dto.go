package reports

import "time"

type Summary struct {
	Tools          int64     `json:"tools"`
	UnitsTotal     int64     `json:"units_total"`
	UnitsAvailable int64     `json:"units_available"`
	UnitsOnLoan    int64     `json:"units_on_loan"`
	LoansActive    int64     `json:"loans_active"`
	LoansReturned  int64     `json:"loans_returned"`
	Products       int64     `json:"products"`
	ProductUnits   int64     `json:"product_units"`
	StockOuts      int64     `json:"stock_outs"`
	UnitsWithdrawn int64     `json:"units_withdrawn"`
	TopOnLoan      []ToolUse `json:"top_on_loan"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type ToolUse struct {
	ToolID      int64  `json:"tool_id"`
	Name        string `json:"name"`
	UnitsOnLoan int64  `json:"units_on_loan"`
	ActiveLoans int64  `json:"active_loans"`
}
