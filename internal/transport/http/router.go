// Package http mounts the API routes on an echo instance.
package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/handlers"
	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/roles"
	"github.com/fcfmotors/marketplace/internal/service/token"
)

type Deps struct {
	Logger        *slog.Logger
	Tokens        *token.Service
	Auth          *handlers.AuthHandler
	Accounts      *handlers.AccountHandler
	Products      *handlers.ProductHandler
	Dealers       *handlers.DealerHandler
	Carts         *handlers.CartHandler
	Quotes        *handlers.QuoteHandler
	Subscriptions *handlers.SubscriptionHandler
	Admin         *handlers.AdminHandler
	Search        *handlers.SearchHandler
}

// Register mounts all routes. Public reads need no cookie, quote submission
// works anonymously, everything else sits behind the auth middleware, with
// the management group further restricted to admins.
func Register(e *echo.Echo, d *Deps) {
	if d.Logger != nil {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), d.Logger)))
				return next(c)
			}
		})
	}

	e.POST("/auth/register", d.Auth.Register)
	e.POST("/auth/login", d.Auth.Login)
	e.POST("/auth/logout", d.Auth.Logout)
	e.POST("/auth/refresh", d.Auth.Refresh)
	e.POST("/auth/password/forgot", d.Auth.ForgotPassword)
	e.POST("/auth/password/reset", d.Auth.ResetPassword)

	e.GET("/products", d.Products.List)
	e.GET("/products/:id", d.Products.Get)
	e.GET("/products/brands", d.Products.Brands)
	e.GET("/products/categories", d.Products.Categories)
	e.GET("/search", d.Search.Search)

	e.GET("/dealers", d.Dealers.List)
	e.GET("/dealers/:id", d.Dealers.Get)
	e.GET("/dealers/:id/products", d.Dealers.Products)

	e.GET("/plans", d.Subscriptions.Plans)
	e.GET("/plans/:id", d.Subscriptions.Plan)

	optional := e.Group("", d.Tokens.AuthenticateOptional())
	optional.POST("/products/:id/quote", d.Quotes.RequestQuote)
	optional.POST("/products/:id/message", d.Quotes.SendMessage)

	auth := e.Group("", d.Tokens.Authenticate())
	auth.GET("/me", d.Accounts.Me)
	auth.PUT("/me", d.Accounts.Update)
	auth.DELETE("/me", d.Accounts.Delete)

	auth.POST("/products", d.Products.Create)
	auth.PUT("/products/:id", d.Products.Update)
	auth.DELETE("/products/:id", d.Products.Delete)
	auth.PUT("/products/:id/featured", d.Products.SetFeatured)
	auth.GET("/me/products", d.Products.Mine)

	auth.GET("/cart", d.Carts.List)
	auth.POST("/cart/products", d.Carts.AddProduct)
	auth.POST("/cart/plans", d.Carts.AddPlan)
	auth.PUT("/cart/items/:id", d.Carts.UpdateQuantity)
	auth.DELETE("/cart/items/:id", d.Carts.Remove)
	auth.POST("/cart/items/:id/save", d.Carts.SaveForLater)
	auth.POST("/cart/items/:id/restore", d.Carts.Restore)
	auth.POST("/cart/checkout", d.Carts.Checkout)
	auth.GET("/me/payments", d.Carts.Payments)

	auth.POST("/quotes/:id/respond", d.Quotes.Respond)
	auth.GET("/me/messages", d.Quotes.MyMessages)
	auth.GET("/me/quotes", d.Quotes.MyQuotes)

	auth.POST("/subscriptions", d.Subscriptions.Subscribe)
	auth.GET("/me/subscriptions", d.Subscriptions.Mine)
	auth.POST("/subscriptions/:id/cancel", d.Subscriptions.Cancel)
	auth.PUT("/subscriptions/:id/auto-renew", d.Subscriptions.SetAutoRenew)

	dealer := auth.Group("", token.RequireRoles(roles.Dealer, roles.Admin))
	dealer.POST("/dealers", d.Dealers.Create)
	dealer.PUT("/dealers/mine", d.Dealers.Update)
	dealer.DELETE("/dealers/:id", d.Dealers.Delete)
	dealer.GET("/dealers/:id/quotes", d.Quotes.DealerQuotes)
	dealer.GET("/dealers/mine", d.Dealers.Mine)

	admin := auth.Group("/admin", token.RequireRoles(roles.Admin))
	admin.GET("/users", d.Admin.ListUsers)
	admin.PUT("/users/:id/roles", d.Admin.UpdateRoles)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
	admin.POST("/plans", d.Admin.CreatePlan)
	admin.PUT("/plans/:id", d.Admin.UpdatePlan)
	admin.DELETE("/plans/:id", d.Admin.DeletePlan)
	admin.PUT("/plans/:id/discount", d.Admin.ApplyDiscount)
	admin.DELETE("/quotes/:id", d.Admin.DeleteQuote)
	admin.POST("/subscriptions/sweep", d.Admin.RunSweep)
}
