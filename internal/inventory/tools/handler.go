package tools

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/auth"
	"toolcrib-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

// RegisterRoutes は RequireAuth 済みのグループに登録する。更新系は管理者のみ。
func RegisterRoutes(r gin.IRoutes, svc *Service, g *auth.Guard) {
	h := &Handler{svc: svc}
	admin := auth.RequireRole(g, auth.RoleAdministrator)

	r.POST("/tools", admin, h.CreateTool)
	r.GET("/tools", h.ListTools)
	r.GET("/tools/:id", h.GetTool)
	r.PUT("/tools/:id", admin, h.UpdateTool)
	r.DELETE("/tools/:id", admin, h.DeleteTool)
}

func (h *Handler) CreateTool(c *gin.Context) {
	var req CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/tools/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListTools(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("search"), paging.FromQuery(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetTool(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateTool(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req UpdateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteTool(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apperr.Respond(c, apperr.Invalid("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
