package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/config"
	"toolcrib-backend/internal/platform/db/dbtest"
	"toolcrib-backend/internal/platform/paging"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(dbtest.Open(t), NewTokens(testSecret, time.Hour), bcrypt.MinCost)
}

func register(t *testing.T, s *Service, doc string, role Role) UserResponse {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterUserRequest{
		DocumentNumber: doc,
		FullName:       "Name " + doc,
		Email:          doc + "@example.com",
		Password:       "password-" + doc,
		Role:           &role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "1001", RoleAdministrator)
	require.Equal(t, RoleAdministrator, u.Role)

	res, err := s.Login(ctx, "1001", "password-1001")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	id, err := s.tokens.Verify(res.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, id.UserID)
	require.Equal(t, RoleAdministrator, id.Role)

	_, err = s.Login(ctx, "1001", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "9999", "password-1001")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDefaultsAndValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterUserRequest{DocumentNumber: "2002", FullName: "Ana", Email: "ANA@Example.com", Password: "longenough"})
	require.NoError(t, err)
	require.Equal(t, RoleUser, u.Role)
	require.Equal(t, "ana@example.com", u.Email)

	_, err = s.Register(ctx, RegisterUserRequest{DocumentNumber: "2002", FullName: "Ana 2", Email: "other@example.com", Password: "longenough"})
	require.ErrorIs(t, err, ErrDuplicateUser)

	bad := Role("Root")
	_, err = s.Register(ctx, RegisterUserRequest{DocumentNumber: "3", FullName: "x", Email: "x@example.com", Password: "longenough", Role: &bad})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = s.Register(ctx, RegisterUserRequest{DocumentNumber: "4", FullName: "x", Email: "y@example.com", Password: "short"})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})
}

func TestUpdatePermissions(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	admin := register(t, s, "1", RoleAdministrator)
	alice := register(t, s, "2", RoleUser)
	bob := register(t, s, "3", RoleUser)

	name := "Alice Updated"
	res, err := s.Update(ctx, Identity{UserID: alice.ID, Role: RoleUser}, alice.ID, UpdateUserRequest{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, res.FullName)

	_, err = s.Update(ctx, Identity{UserID: bob.ID, Role: RoleUser}, alice.ID, UpdateUserRequest{FullName: &name})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeForbidden})

	promote := RoleAdministrator
	_, err = s.Update(ctx, Identity{UserID: alice.ID, Role: RoleUser}, alice.ID, UpdateUserRequest{Role: &promote})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeForbidden})

	res, err = s.Update(ctx, Identity{UserID: admin.ID, Role: RoleAdministrator}, alice.ID, UpdateUserRequest{Role: &promote})
	require.NoError(t, err)
	require.Equal(t, RoleAdministrator, res.Role)

	pw := "brand-new-password"
	_, err = s.Update(ctx, Identity{UserID: bob.ID, Role: RoleUser}, bob.ID, UpdateUserRequest{Password: &pw})
	require.NoError(t, err)
	_, err = s.Login(ctx, "3", pw)
	require.NoError(t, err)

	_, err = s.Update(ctx, Identity{UserID: admin.ID, Role: RoleAdministrator}, 999, UpdateUserRequest{FullName: &name})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteAndList(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	admin := register(t, s, "10", RoleAdministrator)
	u := register(t, s, "11", RoleUser)
	register(t, s, "12", RoleUser)

	actor := Identity{UserID: admin.ID, Role: RoleAdministrator}
	require.ErrorIs(t, s.Delete(ctx, actor, admin.ID), &apperr.APIError{Code: apperr.CodeInvalidArgument})
	require.NoError(t, s.Delete(ctx, actor, u.ID))
	require.ErrorIs(t, s.Delete(ctx, actor, u.ID), ErrUserNotFound)

	list, err := s.List(ctx, "", paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, int64(2), list.Pagination.Total)

	list, err = s.List(ctx, "Name 12", paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
}

func TestDeleteUserReferencedByLoan(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewService(conn, NewTokens(testSecret, time.Hour), bcrypt.MinCost)
	ctx := context.Background()
	admin := register(t, s, "20", RoleAdministrator)
	issuer := register(t, s, "21", RoleAdministrator)

	tool := dbtest.SeedTool(t, conn, "Drill", 2, 0)
	_, err := conn.ExecContext(ctx, `
INSERT INTO loans (ticket_number, tool_id, quantity, responsible, usage_location, issued_by, status, created_at)
VALUES ('TICKET-20240101-0001', ?, 1, 'r', 'u', ?, 'Returned', ?)`, tool, issuer.ID, time.Now().UTC())
	require.NoError(t, err)

	actor := Identity{UserID: admin.ID, Role: RoleAdministrator}
	err = s.Delete(ctx, actor, issuer.ID)
	require.ErrorIs(t, err, ErrUserReferenced)
	require.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = s.Get(ctx, issuer.ID)
	require.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	b := config.BootstrapAdmin{DocumentNumber: "admin", FullName: "Admin", Email: "admin@example.com", Password: "change-me-now"}

	created, err := s.EnsureAdmin(ctx, b)
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.EnsureAdmin(ctx, b)
	require.NoError(t, err)
	require.False(t, created)

	res, err := s.Login(ctx, "admin", "change-me-now")
	require.NoError(t, err)
	require.Equal(t, RoleAdministrator, res.User.Role)
}
