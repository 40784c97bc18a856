package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type AuthHandler struct {
	Accounts *service.AccountService
	Tokens   *token.Service
}

func NewAuthHandler(accounts *service.AccountService, tokens *token.Service) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Tokens: tokens}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.Accounts.Register(c.Request().Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		return httpError(c, "register", err)
	}
	return c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	user, err := h.Accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			logging.FromContext(ctx).Warn("login_failed", "username", req.Username)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return httpError(c, "login", err)
	}

	access, err := h.Tokens.IssueAccess(user)
	if err != nil {
		return httpError(c, "login", err)
	}
	refresh, err := h.Tokens.IssueRefresh(ctx, user)
	if err != nil {
		return httpError(c, "login", err)
	}
	token.SetAuthCookies(c, access, refresh)
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(token.RefreshCookie); err == nil {
		if err := h.Tokens.Revoke(c.Request().Context(), cookie.Value); err != nil {
			logging.FromContext(c.Request().Context()).Warn("logout_revoke_failed", "error", err)
		}
	}
	token.ClearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(token.RefreshCookie)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token required")
	}
	access, refresh, err := h.Tokens.Rotate(c.Request().Context(), cookie.Value)
	if err != nil {
		token.ClearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	token.SetAuthCookies(c, access, refresh)
	return c.NoContent(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers 202 so the endpoint cannot be used to probe
// which addresses have accounts.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	ctx := c.Request().Context()
	if err := h.Accounts.RequestPasswordReset(ctx, req.Email); err != nil && !errors.Is(err, service.ErrNotFound) {
		return httpError(c, "forgot_password", err)
	}
	return c.NoContent(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Accounts.ResetPassword(c.Request().Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		return httpError(c, "reset_password", err)
	}
	return c.NoContent(http.StatusNoContent)
}
