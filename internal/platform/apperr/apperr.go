// Package apperr はAPI共通のエラーモデル。
// 各パッケージはここのコード/理由を返し、ハンドラは Respond で書き出す。
package apperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeHasOutstandingLoans Code = "HAS_OUTSTANDING_LOANS"
	CodeTooManyRequests     Code = "TOO_MANY_REQUESTS"
	CodeInternal            Code = "INTERNAL"
)

// Reason はコードの細分類（任意）
type Reason string

const (
	ReasonDuplicateTicket         Reason = "DUPLICATE_TICKET"
	ReasonAlreadyReturned         Reason = "ALREADY_RETURNED"
	ReasonDuplicateCode           Reason = "DUPLICATE_CODE"
	ReasonDuplicateUser           Reason = "DUPLICATE_USER"
	ReasonToolNotFound            Reason = "TOOL_NOT_FOUND"
	ReasonLoanNotFound            Reason = "LOAN_NOT_FOUND"
	ReasonUserNotFound            Reason = "USER_NOT_FOUND"
	ReasonProductNotFound         Reason = "PRODUCT_NOT_FOUND"
	ReasonStockOutNotFound        Reason = "STOCK_OUT_NOT_FOUND"
	ReasonReferenced              Reason = "REFERENCED"
	ReasonTicketSequenceExhausted Reason = "TICKET_SEQUENCE_EXHAUSTED"
)

const internalMessage = "internal server error"

type APIError struct {
	Code    Code
	Reason  Reason
	Message string
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// Is はコード（と target に理由があれば理由）で比較する。メッセージは見ない。
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Reason == "" || e.Reason == t.Reason)
}

// WithMessage は同じ分類でメッセージだけ差し替えたコピーを返す。
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

func Invalid(msg string) *APIError { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func Unauthenticated(msg string) *APIError {
	return &APIError{Code: CodeUnauthenticated, Message: msg}
}
func Forbidden(msg string) *APIError { return &APIError{Code: CodeForbidden, Message: msg} }
func NotFound(reason Reason, msg string) *APIError {
	return &APIError{Code: CodeNotFound, Reason: reason, Message: msg}
}
func Conflict(reason Reason, msg string) *APIError {
	return &APIError{Code: CodeConflict, Reason: reason, Message: msg}
}

// Internal は原因をログ用に保持する。クライアントには出さない。
func Internal(cause error) *APIError {
	return &APIError{Code: CodeInternal, Message: internalMessage, cause: cause}
}

func Internalf(format string, args ...any) *APIError {
	return Internal(fmt.Errorf(format, args...))
}

// HTTPStatus: 業務ルール違反はすべて 400
func HTTPStatus(err error) int {
	var api *APIError
	if !errors.As(err, &api) {
		return http.StatusInternalServerError
	}
	switch api.Code {
	case CodeInvalidArgument, CodeConflict, CodeInsufficientStock, CodeHasOutstandingLoans:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type ErrorDTO struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    Code   `json:"code"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Body はクライアントに返すエラー本文。INTERNAL の詳細は含めない。
func Body(err error) ErrorDTO {
	var api *APIError
	if !errors.As(err, &api) || api.Code == CodeInternal {
		return ErrorDTO{Error: ErrorBody{Code: CodeInternal, Message: internalMessage}}
	}
	return ErrorDTO{Error: ErrorBody{Code: api.Code, Reason: api.Reason, Message: api.Message}}
}

// Respond はエラーを書き出してハンドラを終える。500 系はサーバー側にだけ詳細を残す。
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s request_id=%s: %v",
			c.Request.Method, c.FullPath(), c.Writer.Header().Get("X-Request-ID"), err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Body(err))
}
