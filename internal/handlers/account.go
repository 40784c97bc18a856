package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type AccountHandler struct {
	Accounts *service.AccountService
	Tokens   *token.Service
}

func NewAccountHandler(accounts *service.AccountService, tokens *token.Service) *AccountHandler {
	return &AccountHandler{Accounts: accounts, Tokens: tokens}
}

func (h *AccountHandler) Me(c echo.Context) error {
	user, err := h.Accounts.Get(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "get_profile", err)
	}
	return c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Update(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.Accounts.UpdateProfile(c.Request().Context(), token.CurrentUserID(c), req.Email, req.Password)
	if err != nil {
		return httpError(c, "update_profile", err)
	}
	return c.JSON(http.StatusOK, user)
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func (h *AccountHandler) Delete(c echo.Context) error {
	var req deleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	userID := token.CurrentUserID(c)
	ctx := c.Request().Context()

	if err := h.Accounts.Delete(ctx, userID, req.Password); err != nil {
		return httpError(c, "delete_account", err)
	}
	if err := h.Tokens.RevokeAll(ctx, userID); err != nil {
		return httpError(c, "delete_account", err)
	}
	token.ClearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}
