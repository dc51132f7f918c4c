package paging

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Params struct {
	Page  int
	Limit int
}

// FromQuery は ?page=&limit= を読む。不正値は既定値に倒す。
func FromQuery(c *gin.Context) Params {
	return Params{
		Page:  atoiDef(c.Query("page"), 1),
		Limit: atoiDef(c.Query("limit"), DefaultLimit),
	}.Normalize()
}

func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

type Meta struct {
	Total       int64 `json:"total"`
	Pages       int64 `json:"pages"`
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
}

func NewMeta(total int64, p Params) Meta {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return Meta{Total: total, Pages: pages, CurrentPage: p.Page, Limit: p.Limit}
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
