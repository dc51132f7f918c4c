package products

import "time"

// Product は消耗品の在庫1行。quantity は出庫でのみ減る。
type Product struct {
	ID          int64
	Code        string
	Name        string
	Responsible string
	Quantity    int
	CreatedAt   time.Time
}

// StockOut は出庫記録。作成後は変更しない。
type StockOut struct {
	ID             int64
	ProductID      int64
	ProductCode    string
	ProductName    string
	Quantity       int
	Responsible    string
	Reason         string
	RecordedBy     int64
	RecordedByName string
	CreatedAt      time.Time
}
