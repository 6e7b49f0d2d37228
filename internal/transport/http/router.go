package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/handlers"
	"github.com/daroosa/pharmacy_shop/internal/token"
)

type Deps struct {
	DB             *gorm.DB
	Tokens         *token.Service
	AuthHandler    *handlers.AuthHandler
	AddressHandler *handlers.AddressHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	PaymentHandler *handlers.PaymentHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/otp", d.AuthHandler.RequestOTP)
	v1.POST("/auth/verify", d.AuthHandler.VerifyOTP)
	v1.POST("/auth/logout", d.AuthHandler.Logout)

	v1.GET("/search", d.SearchHandler.Handler)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	// Gateway callbacks authenticate by signature, not by user session.
	v1.POST("/payment/callback", d.PaymentHandler.Callback)

	me := v1.Group("/me", d.Tokens.AutoRefreshMiddleware)
	me.GET("", d.AuthHandler.Me)
	me.PATCH("", d.AuthHandler.UpdateMe)
	me.GET("/addresses", d.AddressHandler.List)
	me.POST("/addresses", d.AddressHandler.Create)
	me.DELETE("/addresses/:id", d.AddressHandler.Delete)

	cart := v1.Group("/cart", d.Tokens.AutoRefreshMiddleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:productID", d.CartHandler.UpdateItem)
	cart.DELETE("/:productID", d.CartHandler.RemoveItem)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/checkout", d.OrderHandler.Checkout)

	orders := v1.Group("/orders", d.Tokens.AutoRefreshMiddleware)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:id", d.OrderHandler.Get)
	orders.POST("/:id/cancel", d.OrderHandler.Cancel)
	orders.POST("/:id/return", d.OrderHandler.Return)
	orders.DELETE("/:id", d.OrderHandler.Delete)

	admin := v1.Group("/admin", d.Tokens.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/products/:id/stock", d.ProductHandler.AdjustStock)
	admin.POST("/orders/:id/status", d.OrderHandler.SetStatus)
}
