package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type DealerHandler struct {
	Dealers *service.DealerService
	Catalog *service.CatalogService
}

func NewDealerHandler(dealers *service.DealerService, catalog *service.CatalogService) *DealerHandler {
	return &DealerHandler{Dealers: dealers, Catalog: catalog}
}

func (h *DealerHandler) List(c echo.Context) error {
	dealers, err := h.Dealers.List(c.Request().Context())
	if err != nil {
		return httpError(c, "list_dealers", err)
	}
	return c.JSON(http.StatusOK, dealers)
}

func (h *DealerHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	dealer, err := h.Dealers.ByID(c.Request().Context(), id)
	if err != nil {
		return httpError(c, "get_dealer", err)
	}
	return c.JSON(http.StatusOK, dealer)
}

// Products lists a storefront's inventory.
func (h *DealerHandler) Products(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	dealer, err := h.Dealers.ByID(ctx, id)
	if err != nil {
		return httpError(c, "get_dealer", err)
	}
	products, err := h.Catalog.BySeller(ctx, dealer.OwnerID)
	if err != nil {
		return httpError(c, "list_dealer_products", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *DealerHandler) Mine(c echo.Context) error {
	dealer, err := h.Dealers.ByOwner(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "get_own_dealer", err)
	}
	return c.JSON(http.StatusOK, dealer)
}

type dealerRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	ImagePath   string  `json:"image_path"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (r dealerRequest) form() service.DealerForm {
	return service.DealerForm{
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Phone:       r.Phone,
		Email:       r.Email,
		ImagePath:   r.ImagePath,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
}

func (h *DealerHandler) Create(c echo.Context) error {
	var req dealerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dealer, err := h.Dealers.Save(c.Request().Context(), token.CurrentUserID(c), req.form(), false)
	if err != nil {
		return httpError(c, "create_dealer", err)
	}
	return c.JSON(http.StatusCreated, dealer)
}

func (h *DealerHandler) Update(c echo.Context) error {
	var req dealerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dealer, err := h.Dealers.Save(c.Request().Context(), token.CurrentUserID(c), req.form(), true)
	if err != nil {
		return httpError(c, "update_dealer", err)
	}
	return c.JSON(http.StatusOK, dealer)
}

func (h *DealerHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Dealers.Delete(c.Request().Context(), id, token.CurrentUserID(c), token.CurrentRoles(c)); err != nil {
		return httpError(c, "delete_dealer", err)
	}
	return c.NoContent(http.StatusNoContent)
}
