package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/config"
	"hamropasal.com/app/internal/events"
	"hamropasal.com/app/internal/http/cartcookie"
	"hamropasal.com/app/internal/http/handlers"
	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/modules/cart"
	"hamropasal.com/app/internal/modules/catalog"
	"hamropasal.com/app/internal/modules/email"
	"hamropasal.com/app/internal/modules/orders"
	"hamropasal.com/app/internal/modules/payments"
	"hamropasal.com/app/internal/modules/settings"
	"hamropasal.com/app/internal/modules/users"
)

// Deps carries everything the router needs; built once in main.
type Deps struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Esewa    *payments.Esewa
	Khalti   *payments.Khalti
	Producer events.Producer
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	sessCfg := middleware.SessionCfg{
		DB:         d.DB,
		CookieName: d.Cfg.SessionCookieName,
		Secure:     d.Cfg.SecureCookies,
		TTL:        30 * 24 * time.Hour,
	}
	cartCookie := cartcookie.New([]byte(d.Cfg.CookieSecret), d.Cfg.CartCookieName, d.Cfg.SecureCookies)

	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
		middleware.SessionMiddleware(sessCfg),
	)

	settingsSvc := settings.NewService(d.DB)
	cartSvc := cart.NewService(d.DB, settingsSvc, d.Logger)
	cartRepo := cart.NewRepo(d.DB)
	catalogRepo := catalog.NewRepo(d.DB)
	ordersSvc := orders.NewService(d.DB, d.Logger)
	ordersRepo := orders.NewRepo(d.DB)
	usersSvc := users.NewService(d.DB)
	addressRepo := users.NewAddressRepo(d.DB)
	emailSvc := email.NewService(d.DB)

	manager := payments.NewManager(d.Esewa, d.Khalti, d.Logger)
	paySvc := payments.NewService(d.DB, manager, d.Producer, d.Logger)
	verifySvc := payments.NewVerifyService(d.DB, manager, d.Producer, d.Logger)
	webhookSvc := payments.NewWebhookService(d.DB, d.Esewa, d.Khalti, d.Producer, d.Logger)

	auth := handlers.NewAuthHandler(usersSvc, sessCfg)
	productsH := handlers.NewProductsHandler(catalogRepo)
	cartH := handlers.NewCartHandler(cartSvc, cartRepo, cartCookie)
	addressH := handlers.NewAddressHandler(addressRepo)
	ordersH := handlers.NewOrdersHandler(ordersRepo)
	checkoutH := &handlers.CheckoutHandler{
		Cart:      cartSvc,
		CartRepo:  cartRepo,
		Cookie:    cartCookie,
		Addresses: addressRepo,
		Orders:    ordersSvc,
		Payments:  paySvc,
		Email:     emailSvc,
		Logger:    d.Logger,
	}
	paymentsH := &handlers.PaymentHandler{
		Verify:     verifySvc,
		Orders:     ordersRepo,
		Users:      usersSvc,
		CartRepo:   cartRepo,
		CartSvc:    cartSvc,
		Cookie:     cartCookie,
		Email:      emailSvc,
		Logger:     d.Logger,
		SuccessURL: d.Cfg.PaymentSuccessURL,
		FailureURL: d.Cfg.PaymentFailureURL,
	}
	webhooksH := handlers.NewWebhookHandler(d.Logger, webhookSvc)

	api := r.Group("/api")
	{
		api.POST("/auth/register", auth.Register)
		api.POST("/auth/login", auth.Login)
		api.POST("/auth/logout", auth.Logout)
		api.GET("/auth/me", auth.Me)

		api.GET("/products", productsH.List)
		api.GET("/products/:slug", productsH.Get)

		api.GET("/cart", cartH.Get)
		api.POST("/cart/items", cartH.AddItem)
		api.PATCH("/cart/items/:variantID", cartH.UpdateItem)
		api.DELETE("/cart/items/:variantID", cartH.RemoveItem)

		api.GET("/payment-methods", paymentsH.Methods)
		api.POST("/checkout", checkoutH.Checkout)
		api.GET("/payments/:provider/callback", paymentsH.Callback)

		authed := api.Group("", middleware.RequireAuth())
		{
			authed.GET("/orders", ordersH.List)
			authed.GET("/orders/:id", ordersH.Get)

			authed.GET("/addresses", addressH.List)
			authed.POST("/addresses", addressH.Create)
			authed.PUT("/addresses/:id", addressH.Update)
			authed.DELETE("/addresses/:id", addressH.Delete)
		}
	}

	r.POST("/webhooks/:provider", webhooksH.Handle)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	return r
}
