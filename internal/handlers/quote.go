package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type QuoteHandler struct {
	Quotes   *service.QuoteService
	Accounts *service.AccountService
}

func NewQuoteHandler(quotes *service.QuoteService, accounts *service.AccountService) *QuoteHandler {
	return &QuoteHandler{Quotes: quotes, Accounts: accounts}
}

type quoteRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// sender resolves the sender identity: signed-in callers get their account
// id and, when the body carries no address, their account email.
func (h *QuoteHandler) sender(c echo.Context, bodyEmail string) (*uint, string, error) {
	userID := token.CurrentUserID(c)
	if userID == 0 {
		return nil, bodyEmail, nil
	}
	email := bodyEmail
	if email == "" {
		user, err := h.Accounts.Get(c.Request().Context(), userID)
		if err != nil {
			return nil, "", err
		}
		email = user.Email
	}
	return &userID, email, nil
}

// RequestQuote opens a dealer quote request for a listing. Anonymous
// visitors supply their email in the body.
func (h *QuoteHandler) RequestQuote(c echo.Context) error {
	productID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	senderID, email, err := h.sender(c, req.Email)
	if err != nil {
		return httpError(c, "request_quote", err)
	}
	quote, err := h.Quotes.RequestDealerQuote(c.Request().Context(), productID, senderID, email, req.Message)
	if err != nil {
		return httpError(c, "request_quote", err)
	}
	return c.JSON(http.StatusCreated, quote)
}

// SendMessage opens a private message thread with a listing's seller.
func (h *QuoteHandler) SendMessage(c echo.Context) error {
	productID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	senderID, email, err := h.sender(c, req.Email)
	if err != nil {
		return httpError(c, "send_message", err)
	}
	quote, err := h.Quotes.SendPrivateMessage(c.Request().Context(), productID, senderID, email, req.Message)
	if err != nil {
		return httpError(c, "send_message", err)
	}
	return c.JSON(http.StatusCreated, quote)
}

type respondRequest struct {
	Message string `json:"message"`
}

func (h *QuoteHandler) Respond(c echo.Context) error {
	quoteID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	user, err := h.Accounts.Get(ctx, token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "respond_quote", err)
	}
	quote, err := h.Quotes.Respond(ctx, quoteID, user.ID, user.Email, req.Message)
	if err != nil {
		return httpError(c, "respond_quote", err)
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *QuoteHandler) MyMessages(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.Accounts.Get(ctx, token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "list_messages", err)
	}
	messages, err := h.Quotes.MessagesForUser(ctx, user.ID, user.Email)
	if err != nil {
		return httpError(c, "list_messages", err)
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *QuoteHandler) MyQuotes(c echo.Context) error {
	quotes, err := h.Quotes.QuotesSent(c.Request().Context(), token.CurrentUserID(c))
	if err != nil {
		return httpError(c, "list_sent_quotes", err)
	}
	return c.JSON(http.StatusOK, quotes)
}

func (h *QuoteHandler) DealerQuotes(c echo.Context) error {
	dealerID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	quotes, err := h.Quotes.QuotesForDealer(c.Request().Context(), dealerID, token.CurrentUserID(c), token.CurrentRoles(c))
	if err != nil {
		return httpError(c, "list_dealer_quotes", err)
	}
	return c.JSON(http.StatusOK, quotes)
}
