package products

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/auth"
	"toolcrib-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

// RegisterRoutes は RequireAuth 済みのグループに登録する。
// 商品の更新系は管理者のみ。出庫はログイン済みなら誰でも記録できる。
func RegisterRoutes(r gin.IRoutes, svc *Service, g *auth.Guard) {
	h := &Handler{svc: svc}
	admin := auth.RequireRole(g, auth.RoleAdministrator)

	r.POST("/products", admin, h.CreateProduct)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", admin, h.UpdateProduct)
	r.DELETE("/products/:id", admin, h.DeleteProduct)
	r.GET("/products/:id/stock-outs", h.ListProductStockOuts)

	r.POST("/stock-outs", h.CreateStockOut)
	r.GET("/stock-outs", h.ListStockOuts)
	r.GET("/stock-outs/:id", h.GetStockOut)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/products/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListProducts(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("search"), paging.FromQuery(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetProduct(c *gin.Context) {
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

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
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

func (h *Handler) DeleteProduct(c *gin.Context) {
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

func (h *Handler) ListProductStockOuts(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.listStockOuts(c, id)
}

func (h *Handler) CreateStockOut(c *gin.Context) {
	var req CreateStockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	id, _ := auth.CurrentIdentity(c)
	res, err := h.svc.RecordStockOut(c.Request.Context(), id.UserID, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/stock-outs/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

// ListStockOuts: ?product_id= で絞り込める
func (h *Handler) ListStockOuts(c *gin.Context) {
	var productID int64
	if v := c.Query("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			apperr.Respond(c, apperr.Invalid("product_id must be a positive integer"))
			return
		}
		productID = id
	}
	h.listStockOuts(c, productID)
}

func (h *Handler) listStockOuts(c *gin.Context, productID int64) {
	res, err := h.svc.ListStockOuts(c.Request.Context(), productID, paging.FromQuery(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetStockOut(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetStockOut(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apperr.Respond(c, apperr.Invalid("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
