// Package api assembles the HTTP surface: gin router, auth middleware,
// and the handler groups.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pretyflaco/voucherprint/internal/api/handlers"
	"github.com/pretyflaco/voucherprint/internal/api/middleware"
	"github.com/pretyflaco/voucherprint/internal/config"
	"github.com/pretyflaco/voucherprint/internal/history"
	"github.com/pretyflaco/voucherprint/internal/printing"
	"github.com/pretyflaco/voucherprint/internal/transport"
	"github.com/pretyflaco/voucherprint/internal/webhook"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config  *config.Config
	Service *printing.Service
	Manager *transport.Manager
	Store   *history.Store
	Sender  *webhook.Sender
	Auth    *middleware.AuthMiddleware
}

// NewRouter builds the gin engine with all routes registered. Auth
// endpoints and the health check are public; everything else sits
// behind RequireAuth.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", d.Auth.LoginHandler)
		auth.POST("/logout", d.Auth.LogoutHandler)
		auth.GET("/status", d.Auth.StatusHandler)
		auth.POST("/setup", d.Auth.SetupHandler)
	}

	protected := r.Group("/api")
	protected.Use(d.Auth.RequireAuth())
	{
		protected.POST("/auth/change-password", d.Auth.ChangePasswordHandler)

		defaults := handlers.PrintDefaults{
			PaperWidth: d.Config.Printing.PaperWidth,
			HeaderText: d.Config.Printing.HeaderText,
			FooterText: d.Config.Printing.FooterText,
			ShowLogo:   d.Config.Printing.LogoPath != "",
		}
		handlers.NewPrintHandler(d.Service, defaults).RegisterRoutes(protected)
		handlers.NewMethodsHandler(d.Manager).RegisterRoutes(protected)
		handlers.NewHistoryHandler(d.Store).RegisterRoutes(protected)
		handlers.NewSettingsHandler(d.Store, d.Config).RegisterRoutes(protected)
		handlers.NewWebhookHandler(d.Store, d.Sender).RegisterRoutes(protected)
	}

	return r
}
