package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type SubscriptionHandler struct {
	Subs *service.SubscriptionService
}

func NewSubscriptionHandler(subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{Subs: subs}
}

func (h *SubscriptionHandler) Plans(c echo.Context) error {
	plans, err := h.Subs.Plans(c.Request().Context())
	if err != nil {
		return httpError(c, "list_plans", err)
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *SubscriptionHandler) Plan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	plan, err := h.Subs.PlanByID(c.Request().Context(), id)
	if err != nil {
		return httpError(c, "get_plan", err)
	}
	return c.JSON(http.StatusOK, plan)
}

type subscribeRequest struct {
	PlanID    uint `json:"plan_id"`
	AutoRenew bool `json:"auto_renew"`
}

func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil || req.PlanID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is required")
	}
	sub, err := h.Subs.Subscribe(c.Request().Context(), token.CurrentUserID(c), req.PlanID, req.AutoRenew)
	if err != nil {
		return httpError(c, "subscribe", err)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Mine(c echo.Context) error {
	subs, err := h.Subs.ForUser(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "list_subscriptions", err)
	}
	return c.JSON(http.StatusOK, subs)
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Subs.Cancel(c.Request().Context(), token.CurrentUserID(c), id, token.CurrentRoles(c)); err != nil {
		return httpError(c, "cancel_subscription", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type autoRenewRequest struct {
	AutoRenew bool `json:"auto_renew"`
}

func (h *SubscriptionHandler) SetAutoRenew(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req autoRenewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sub, err := h.Subs.SetAutoRenew(c.Request().Context(), token.CurrentUserID(c), id, req.AutoRenew)
	if err != nil {
		return httpError(c, "set_auto_renew", err)
	}
	return c.JSON(http.StatusOK, sub)
}
