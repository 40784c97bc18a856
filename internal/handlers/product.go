package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
	"github.com/fcfmotors/marketplace/internal/util"
)

type ProductHandler struct {
	Catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{Catalog: catalog}
}

func strParam(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}

func floatParam(c echo.Context, name string) *float64 {
	if v := c.QueryParam(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func intParam(c echo.Context, name string) *int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}

func listFilter(c echo.Context) repo.Filter {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	return repo.Filter{
		Category:     strParam(c, "category"),
		Brand:        strParam(c, "brand"),
		Model:        strParam(c, "model"),
		FuelType:     strParam(c, "fuel_type"),
		Transmission: strParam(c, "transmission"),
		SellerType:   strParam(c, "seller_type"),
		MinPrice:     floatParam(c, "min_price"),
		MaxPrice:     floatParam(c, "max_price"),
		MinYear:      intParam(c, "min_year"),
		MaxYear:      intParam(c, "max_year"),
		MinMileage:   intParam(c, "min_mileage"),
		MaxMileage:   intParam(c, "max_mileage"),
		FeaturedOnly: c.QueryParam("featured") == "true",
		Query:        c.QueryParam("q"),
		Offset:       offset,
		Limit:        limit,
	}
}

func (h *ProductHandler) List(c echo.Context) error {
	total, products, err := h.Catalog.Find(c.Request().Context(), listFilter(c))
	if err != nil {
		return httpError(c, "list_products", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.Catalog.ByID(c.Request().Context(), id)
	if err != nil {
		return httpError(c, "get_product", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Brands(c echo.Context) error {
	brands, err := h.Catalog.Brands(c.Request().Context())
	if err != nil {
		return httpError(c, "list_brands", err)
	}
	return c.JSON(http.StatusOK, brands)
}

func (h *ProductHandler) Categories(c echo.Context) error {
	categories, err := h.Catalog.Categories(c.Request().Context())
	if err != nil {
		return httpError(c, "list_categories", err)
	}
	return c.JSON(http.StatusOK, categories)
}

type productRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"image_url"`
	Category     string  `json:"category"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Mileage      int     `json:"mileage"`
	Year         int     `json:"year"`
	FuelType     string  `json:"fuel_type"`
	Transmission string  `json:"transmission"`
}

func (r productRequest) form() service.ProductForm {
	return service.ProductForm{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		ImageURL:     r.ImageURL,
		Category:     r.Category,
		Brand:        r.Brand,
		Model:        r.Model,
		Mileage:      r.Mileage,
		Year:         r.Year,
		FuelType:     r.FuelType,
		Transmission: r.Transmission,
	}
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	product, err := h.Catalog.Add(c.Request().Context(), token.CurrentUserID(c), req.form())
	if err != nil {
		return httpError(c, "create_product", err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	product, err := h.Catalog.Update(c.Request().Context(), id, token.CurrentUserID(c), token.CurrentRoles(c), req.form())
	if err != nil {
		return httpError(c, "update_product", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.Delete(c.Request().Context(), id, token.CurrentUserID(c), token.CurrentRoles(c)); err != nil {
		return httpError(c, "delete_product", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type featureRequest struct {
	Featured bool       `json:"featured"`
	Until    *time.Time `json:"until"`
}

func (h *ProductHandler) SetFeatured(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req featureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	product, err := h.Catalog.SetFeatured(c.Request().Context(), id, token.CurrentUserID(c), token.CurrentRoles(c), req.Featured, req.Until)
	if err != nil {
		return httpError(c, "feature_product", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Mine(c echo.Context) error {
	products, err := h.Catalog.BySeller(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "list_own_products", err)
	}
	return c.JSON(http.StatusOK, products)
}
