package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service/search"
	"github.com/fcfmotors/marketplace/internal/util"
)

type SearchHandler struct {
	Index *search.Index
}

func NewSearchHandler(idx *search.Index) *SearchHandler {
	return &SearchHandler{Index: idx}
}

func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	if h.Index == nil || h.Index.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not available")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, products, err := h.Index.Search(c.Request().Context(), query, from, limit)
	if err != nil {
		return httpError(c, "search", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
