package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type CartHandler struct {
	Carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{Carts: carts}
}

func (h *CartHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := token.CurrentUserID(c)

	items, err := h.Carts.Items(ctx, userID)
	if err != nil {
		return httpError(c, "list_cart", err)
	}
	saved, err := h.Carts.Saved(ctx, userID)
	if err != nil {
		return httpError(c, "list_cart", err)
	}
	subtotal, err := h.Carts.Subtotal(ctx, userID, time.Now())
	if err != nil {
		return httpError(c, "list_cart", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":    items,
		"saved":    saved,
		"subtotal": subtotal,
	})
}

type addProductRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func (h *CartHandler) AddProduct(c echo.Context) error {
	var req addProductRequest
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	item, err := h.Carts.AddProduct(c.Request().Context(), token.CurrentUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return httpError(c, "add_to_cart", err)
	}
	return c.JSON(http.StatusCreated, item)
}

type addPlanRequest struct {
	PlanID uint `json:"plan_id"`
}

func (h *CartHandler) AddPlan(c echo.Context) error {
	var req addPlanRequest
	if err := c.Bind(&req); err != nil || req.PlanID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is required")
	}
	item, err := h.Carts.AddPlan(c.Request().Context(), token.CurrentUserID(c), req.PlanID)
	if err != nil {
		return httpError(c, "add_plan_to_cart", err)
	}
	return c.JSON(http.StatusCreated, item)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Carts.UpdateQuantity(c.Request().Context(), token.CurrentUserID(c), id, req.Quantity); err != nil {
		return httpError(c, "update_cart_item", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Carts.Remove(c.Request().Context(), token.CurrentUserID(c), id); err != nil {
		return httpError(c, "remove_cart_item", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) SaveForLater(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Carts.SaveForLater(c.Request().Context(), token.CurrentUserID(c), id); err != nil {
		return httpError(c, "save_for_later", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Restore(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Carts.Restore(c.Request().Context(), token.CurrentUserID(c), id); err != nil {
		return httpError(c, "restore_cart_item", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Payments(c echo.Context) error {
	payments, err := h.Carts.PaymentHistory(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "list_payments", err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	payment, err := h.Carts.Checkout(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "checkout", err)
	}
	return c.JSON(http.StatusOK, payment)
}
