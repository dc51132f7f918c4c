package reports

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/summary", h.GetSummary)
}

// GET /reports/summary?top=5
func (h *Handler) GetSummary(c *gin.Context) {
	top := 0
	if v := c.Query("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			apperr.Respond(c, apperr.Invalid("top must be a positive integer"))
			return
		}
		top = n
	}
	res, err := h.svc.Summary(c.Request.Context(), top)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
