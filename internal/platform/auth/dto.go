package auth

import (
	"time"

	"toolcrib-backend/internal/platform/paging"
)

// ===== Requests =====

type LoginRequest struct {
	DocumentNumber string `json:"document_number" binding:"required"`
	Password       string `json:"password" binding:"required"`
}

type RegisterUserRequest struct {
	DocumentNumber string `json:"document_number" binding:"required,max=32"`
	FullName       string `json:"full_name" binding:"required,max=255"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           *Role  `json:"role,omitempty"` // 未指定なら User
}

type UpdateUserRequest struct {
	DocumentNumber *string `json:"document_number,omitempty" binding:"omitempty,max=32"`
	FullName       *string `json:"full_name,omitempty" binding:"omitempty,max=255"`
	Email          *string `json:"email,omitempty" binding:"omitempty,email"`
	Password       *string `json:"password,omitempty" binding:"omitempty,min=8"`
	Role           *Role   `json:"role,omitempty"`
}

// ===== Responses =====

type UserResponse struct {
	ID             int64     `json:"id"`
	DocumentNumber string    `json:"document_number"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type ListUsersResult struct {
	Items      []UserResponse `json:"items"`
	Pagination paging.Meta    `json:"pagination"`
}

func toResponse(u *User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		DocumentNumber: u.DocumentNumber,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
}
