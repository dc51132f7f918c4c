package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/db/dbtest"
)

func seedLoan(t *testing.T, conn *db.Conn, ticket string, tool, issuer int64, qty int, status string) {
	t.Helper()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO loans (ticket_number, tool_id, quantity, responsible, usage_location, issued_by, status, created_at)
VALUES (?, ?, ?, 'Ana', 'Lab', ?, ?, ?)`, ticket, tool, qty, issuer, status, time.Now().UTC())
	require.NoError(t, err)
}

func TestSummary(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	ctx := context.Background()

	empty, err := svc.Summary(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, empty.Tools)
	require.Zero(t, empty.Products)
	require.Zero(t, empty.UnitsWithdrawn)
	require.Empty(t, empty.TopOnLoan)

	admin := dbtest.SeedUser(t, conn, "1", "Administrator")
	drill := dbtest.SeedTool(t, conn, "Drill", 10, 4)
	saw := dbtest.SeedTool(t, conn, "Saw", 5, 1)
	dbtest.SeedTool(t, conn, "Idle", 2, 0)
	seedLoan(t, conn, "TICKET-20240315-0001", drill, admin, 3, "Active")
	seedLoan(t, conn, "TICKET-20240315-0002", drill, admin, 1, "Active")
	seedLoan(t, conn, "TICKET-20240315-0003", saw, admin, 1, "Active")
	seedLoan(t, conn, "TICKET-20240315-0004", saw, admin, 2, "Returned")
	gloves := dbtest.SeedProduct(t, conn, "GL-1", "Gloves", 8)
	dbtest.SeedProduct(t, conn, "TP-1", "Tape", 4)
	_, err = conn.ExecContext(ctx, `
INSERT INTO stock_outs (product_id, quantity, responsible, reason, recorded_by, created_at)
VALUES (?, 2, 'Ana', 'Obra', ?, ?), (?, 3, 'Ana', 'Obra', ?, ?)`,
		gloves, admin, time.Now().UTC(), gloves, admin, time.Now().UTC())
	require.NoError(t, err)

	s, err := svc.Summary(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), s.Tools)
	require.Equal(t, int64(17), s.UnitsTotal)
	require.Equal(t, int64(12), s.UnitsAvailable)
	require.Equal(t, int64(5), s.UnitsOnLoan)
	require.Equal(t, int64(3), s.LoansActive)
	require.Equal(t, int64(1), s.LoansReturned)
	require.Equal(t, int64(2), s.Products)
	require.Equal(t, int64(12), s.ProductUnits)
	require.Equal(t, int64(2), s.StockOuts)
	require.Equal(t, int64(5), s.UnitsWithdrawn)
	require.Equal(t, []ToolUse{
		{ToolID: drill, Name: "Drill", UnitsOnLoan: 4, ActiveLoans: 2},
		{ToolID: saw, Name: "Saw", UnitsOnLoan: 1, ActiveLoans: 1},
	}, s.TopOnLoan)

	s, err = svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Len(t, s.TopOnLoan, 1)
}

func TestSummaryRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(dbtest.Open(t)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/summary?top=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var s Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	require.NotNil(t, s.TopOnLoan)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/summary?top=-1", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
