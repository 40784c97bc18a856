package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
)

// AdminHandler hosts the management endpoints: user administration and plan
// lifecycle. Routes using it sit behind the admin role check.
type AdminHandler struct {
	Accounts *service.AccountService
	Subs     *service.SubscriptionService
	Quotes   *service.QuoteService
}

func NewAdminHandler(accounts *service.AccountService, subs *service.SubscriptionService, quotes *service.QuoteService) *AdminHandler {
	return &AdminHandler{Accounts: accounts, Subs: subs, Quotes: quotes}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Accounts.List(c.Request().Context())
	if err != nil {
		return httpError(c, "admin_list_users", err)
	}
	return c.JSON(http.StatusOK, users)
}

type updateRolesRequest struct {
	Roles string `json:"roles"`
}

func (h *AdminHandler) UpdateRoles(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateRolesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.Accounts.UpdateRoles(c.Request().Context(), id, req.Roles)
	if err != nil {
		return httpError(c, "admin_update_roles", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Accounts.AdminDelete(c.Request().Context(), id); err != nil {
		return httpError(c, "admin_delete_user", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type planRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DurationDays    int     `json:"duration_days"`
	MaxFeaturedCars int     `json:"max_featured_cars"`
}

func (r planRequest) form() service.PlanForm {
	return service.PlanForm{
		Name:            r.Name,
		Description:     r.Description,
		Price:           r.Price,
		DurationDays:    r.DurationDays,
		MaxFeaturedCars: r.MaxFeaturedCars,
	}
}

func (h *AdminHandler) CreatePlan(c echo.Context) error {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	plan, err := h.Subs.CreatePlan(c.Request().Context(), req.form())
	if err != nil {
		return httpError(c, "admin_create_plan", err)
	}
	return c.JSON(http.StatusCreated, plan)
}

func (h *AdminHandler) UpdatePlan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	plan, err := h.Subs.UpdatePlan(c.Request().Context(), id, req.form())
	if err != nil {
		return httpError(c, "admin_update_plan", err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *AdminHandler) DeletePlan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Subs.DeletePlan(c.Request().Context(), id); err != nil {
		return httpError(c, "admin_delete_plan", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type discountRequest struct {
	Percent float64    `json:"percent"`
	Expiry  *time.Time `json:"expiry"`
}

func (h *AdminHandler) ApplyDiscount(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req discountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	if req.Percent == 0 {
		plan, err := h.Subs.ClearDiscount(ctx, id)
		if err != nil {
			return httpError(c, "admin_clear_discount", err)
		}
		return c.JSON(http.StatusOK, plan)
	}
	if req.Expiry == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expiry is required")
	}
	plan, err := h.Subs.ApplyDiscount(ctx, id, req.Percent, *req.Expiry)
	if err != nil {
		return httpError(c, "admin_apply_discount", err)
	}
	return c.JSON(http.StatusOK, plan)
}

// DeleteQuote removes an abusive or spam inquiry.
func (h *AdminHandler) DeleteQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Quotes.Delete(c.Request().Context(), id); err != nil {
		return httpError(c, "admin_delete_quote", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RunSweep triggers the renewal sweep on demand, alongside the periodic run.
func (h *AdminHandler) RunSweep(c echo.Context) error {
	renewed, lapsed, err := h.Subs.Sweep(c.Request().Context(), time.Now())
	if err != nil {
		return httpError(c, "admin_sweep", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"renewed": renewed, "lapsed": lapsed})
}
