package loans

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/auth"
	"toolcrib-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

// RegisterRoutes は RequireAuth 済みのグループに登録する。
// 参照は認証済みなら誰でも、作成と返却は管理者のみ。
func RegisterRoutes(r gin.IRoutes, svc *Service, g *auth.Guard) {
	h := &Handler{svc: svc}
	admin := auth.RequireRole(g, auth.RoleAdministrator)

	r.POST("/loans", admin, h.CreateLoan)
	r.GET("/loans", h.ListLoans)
	r.GET("/loans/generate-ticket", h.GenerateTicket)
	r.GET("/loans/export", h.ExportLoans)
	r.GET("/loans/:id", h.GetLoan)
	r.PUT("/loans/:id/return", admin, h.ReturnLoan)
}

func (h *Handler) CreateLoan(c *gin.Context) {
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	id, _ := auth.CurrentIdentity(c)
	res, err := h.svc.CreateLoan(c.Request.Context(), id.UserID, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/loans/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetLoan(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetLoan(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListLoans(c *gin.Context) {
	f, err := listQuery(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	res, err := h.svc.ListLoans(c.Request.Context(), f, paging.FromQuery(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GenerateTicket(c *gin.Context) {
	res, err := h.svc.GenerateTicket(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReturnLoan(c *gin.Context) {
	loanID, ok := paramID(c)
	if !ok {
		return
	}
	// 本文は任意
	var req ReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperr.Respond(c, apperr.Invalid("invalid json"))
		return
	}
	id, _ := auth.CurrentIdentity(c)
	res, err := h.svc.ReturnLoan(c.Request.Context(), id.UserID, loanID, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /loans/export?encoding=windows-1252&search=&estado=
func (h *Handler) ExportLoans(c *gin.Context) {
	f, err := listQuery(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	charset, err := Charset(c.Query("encoding"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	// エラー時に JSON を返せるよう一旦バッファに書く
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(c.Request.Context(), &buf, f, charset); err != nil {
		apperr.Respond(c, err)
		return
	}
	filename := "loans-" + time.Now().UTC().Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset="+charset, buf.Bytes())
}

// estado は status の別名として受け付ける
func listQuery(c *gin.Context) (ListQuery, error) {
	f := ListQuery{Search: c.Query("search")}
	v := c.Query("estado")
	if v == "" {
		v = c.Query("status")
	}
	if v = strings.TrimSpace(v); v != "" {
		st := Status(v)
		if !st.Valid() {
			return ListQuery{}, apperr.Invalid("estado must be Active or Returned")
		}
		f.Status = &st
	}
	return f, nil
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apperr.Respond(c, apperr.Invalid("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
