package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/paging"
)

type Handler struct {
	svc *Service
}

// RegisterPublicRoutes はトークン不要のルート。limit はレート制限など前段のミドルウェア。
func RegisterPublicRoutes(r gin.IRoutes, svc *Service, limit ...gin.HandlerFunc) {
	h := &Handler{svc: svc}
	r.POST("/auth/login", append(limit, h.Login)...)
}

// RegisterRoutes は RequireAuth 済みのグループに登録する。
func RegisterRoutes(r gin.IRoutes, svc *Service, g *Guard) {
	h := &Handler{svc: svc}
	admin := RequireRole(g, RoleAdministrator)

	r.POST("/users", admin, h.Register)
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.PUT("/users/:id", h.Update) // 本人 or 管理者はサービス側で判定
	r.DELETE("/users/:id", admin, h.Delete)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid("invalid json"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.DocumentNumber, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/users/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("search"), paging.FromQuery(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
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

func (h *Handler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := CurrentIdentity(c)
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := CurrentIdentity(c)
	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// paramID は正の整数のパスパラメータを読む。失敗時はレスポンス済み。
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apperr.Respond(c, apperr.Invalid(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
