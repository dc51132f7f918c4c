package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/config"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/paging"
)

var (
	ErrInvalidCredentials = apperr.Unauthenticated("invalid document number or password")
	ErrUserNotFound       = apperr.NotFound(apperr.ReasonUserNotFound, "user not found")
	ErrDuplicateUser      = apperr.Conflict(apperr.ReasonDuplicateUser, "document number or email already registered")
	ErrUserReferenced     = apperr.Conflict(apperr.ReasonReferenced, "user is referenced by loans")
)

type Service struct {
	store      *Store
	tokens     *Tokens
	bcryptCost int
	now        func() time.Time
}

func NewService(conn *db.Conn, tokens *Tokens, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      NewStore(conn),
		tokens:     tokens,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Login(ctx context.Context, document, password string) (LoginResponse, error) {
	u, err := s.store.GetByDocument(ctx, strings.TrimSpace(document))
	if err != nil {
		return LoginResponse{}, apperr.Internal(err)
	}
	if u == nil {
		return LoginResponse{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResponse{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return LoginResponse{}, apperr.Internal(err)
	}
	return LoginResponse{Token: token, ExpiresAt: exp, User: toResponse(u)}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterUserRequest) (UserResponse, error) {
	role := RoleUser
	if in.Role != nil && *in.Role != "" {
		role = *in.Role
	}
	if !role.Valid() {
		return UserResponse{}, apperr.Invalid("role must be Administrator or User")
	}
	doc := strings.TrimSpace(in.DocumentNumber)
	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if doc == "" || name == "" || email == "" {
		return UserResponse{}, apperr.Invalid("document_number, full_name and email are required")
	}
	if len(in.Password) < 8 {
		return UserResponse{}, apperr.Invalid("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return UserResponse{}, apperr.Internal(err)
	}

	u := &User{
		DocumentNumber: doc,
		FullName:       name,
		Email:          email,
		Role:           role,
		PasswordHash:   string(hash),
		CreatedAt:      s.now(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return UserResponse{}, ErrDuplicateUser
		}
		return UserResponse{}, apperr.Internal(err)
	}
	return toResponse(u), nil
}

func (s *Service) Get(ctx context.Context, id int64) (UserResponse, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, apperr.Internal(err)
	}
	if u == nil {
		return UserResponse{}, ErrUserNotFound
	}
	return toResponse(u), nil
}

func (s *Service) List(ctx context.Context, search string, p paging.Params) (ListUsersResult, error) {
	p = p.Normalize()
	users, total, err := s.store.List(ctx, search, p)
	if err != nil {
		return ListUsersResult{}, apperr.Internal(err)
	}
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, toResponse(&users[i]))
	}
	return ListUsersResult{Items: items, Pagination: paging.NewMeta(total, p)}, nil
}

// Update: 本人か管理者。ロール変更は管理者のみ。
func (s *Service) Update(ctx context.Context, actor Identity, id int64, in UpdateUserRequest) (UserResponse, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return UserResponse{}, apperr.Forbidden("can only update own account")
	}
	if in.Role != nil && !actor.IsAdmin() {
		return UserResponse{}, apperr.Forbidden("only administrators can change roles")
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, apperr.Internal(err)
	}
	if u == nil {
		return UserResponse{}, ErrUserNotFound
	}

	if in.DocumentNumber != nil {
		if u.DocumentNumber = strings.TrimSpace(*in.DocumentNumber); u.DocumentNumber == "" {
			return UserResponse{}, apperr.Invalid("document_number must not be empty")
		}
	}
	if in.FullName != nil {
		if u.FullName = strings.TrimSpace(*in.FullName); u.FullName == "" {
			return UserResponse{}, apperr.Invalid("full_name must not be empty")
		}
	}
	if in.Email != nil {
		if u.Email = strings.ToLower(strings.TrimSpace(*in.Email)); u.Email == "" {
			return UserResponse{}, apperr.Invalid("email must not be empty")
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return UserResponse{}, apperr.Invalid("role must be Administrator or User")
		}
		u.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return UserResponse{}, apperr.Invalid("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return UserResponse{}, apperr.Internal(err)
		}
		u.PasswordHash = string(hash)
	}

	if _, err := s.store.Update(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return UserResponse{}, ErrDuplicateUser
		}
		return UserResponse{}, apperr.Internal(err)
	}
	return toResponse(u), nil
}

func (s *Service) Delete(ctx context.Context, actor Identity, id int64) error {
	if actor.UserID == id {
		return apperr.Invalid("cannot delete own account")
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrUserReferenced
		}
		return apperr.Internal(err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureAdmin はユーザーが0件のときだけ管理者を作る。作ったら true。
func (s *Service) EnsureAdmin(ctx context.Context, b config.BootstrapAdmin) (bool, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if b.DocumentNumber == "" || b.Password == "" {
		log.Println("[WARN] no users and no bootstrap_admin configured")
		return false, nil
	}
	role := RoleAdministrator
	_, err = s.Register(ctx, RegisterUserRequest{
		DocumentNumber: b.DocumentNumber,
		FullName:       b.FullName,
		Email:          b.Email,
		Password:       b.Password,
		Role:           &role,
	})
	if err != nil && !errors.Is(err, ErrDuplicateUser) {
		return false, err
	}
	return err == nil, nil
}
