// Package dbtest はテスト用に使い捨ての SQLite を用意する。
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"toolcrib-backend/internal/platform/db"
)

func Open(t testing.TB) *db.Conn {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SeedUser は password_hash を検証しないテスト向け。
func SeedUser(t testing.TB, conn *db.Conn, document, role string) int64 {
	t.Helper()
	res, err := conn.ExecContext(context.Background(), `
INSERT INTO users (document_number, full_name, email, role, password_hash, created_at)
VALUES (?, ?, ?, ?, 'x', ?)`,
		document, "User "+document, document+"@example.com", role, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func SeedTool(t testing.TB, conn *db.Conn, name string, total, onLoan int) int64 {
	t.Helper()
	res, err := conn.ExecContext(context.Background(), `
INSERT INTO tools (code, responsible, name, quantity_total, quantity_available, quantity_on_loan, created_at)
VALUES (NULL, 'Warehouse', ?, ?, ?, ?, ?)`,
		name, total, total-onLoan, onLoan, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed tool: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Counts は (total, available, on_loan)。
func Counts(t testing.TB, conn *db.Conn, toolID int64) (total, available, onLoan int) {
	t.Helper()
	err := conn.QueryRowContext(context.Background(),
		`SELECT quantity_total, quantity_available, quantity_on_loan FROM tools WHERE id = ?`, toolID).
		Scan(&total, &available, &onLoan)
	if err != nil {
		t.Fatalf("read counts: %v", err)
	}
	return total, available, onLoan
}

func SeedProduct(t testing.TB, conn *db.Conn, code, name string, quantity int) int64 {
	t.Helper()
	res, err := conn.ExecContext(context.Background(), `
INSERT INTO products (code, name, responsible, quantity, created_at)
VALUES (?, ?, 'Warehouse', ?, ?)`, code, name, quantity, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func ProductQuantity(t testing.TB, conn *db.Conn, productID int64) int {
	t.Helper()
	var q int
	err := conn.QueryRowContext(context.Background(),
		`SELECT quantity FROM products WHERE id = ?`, productID).Scan(&q)
	if err != nil {
		t.Fatalf("read product quantity: %v", err)
	}
	return q
}
