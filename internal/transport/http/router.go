package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/handlers"
	"github.com/brewhaus/coffee_shop/internal/handlers/admin"
	"github.com/brewhaus/coffee_shop/internal/handlers/cart"
	"github.com/brewhaus/coffee_shop/internal/handlers/checkout"
	"github.com/brewhaus/coffee_shop/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	AddressHandler  *handlers.AddressHandler
	CartHandler     *cart.CartHandler
	CheckoutHandler *checkout.CheckoutHandler
	AdminHandler    *admin.AdminHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/password/forgot", d.AuthHandler.ForgotPassword)
	v1.POST("/password/reset", d.AuthHandler.ResetPassword)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/search", d.SearchHandler.Search)

	cartGroup := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PATCH("/:id", d.CartHandler.UpdateQuantity)
	cartGroup.DELETE("/:id", d.CartHandler.RemoveFromCart)
	cartGroup.DELETE("", d.CartHandler.ClearCart)

	co := v1.Group("/checkout", d.TokenService.AutoRefreshMiddleware)
	co.POST("/orders", d.CheckoutHandler.PlaceOrder)
	co.POST("/payment/verify", d.CheckoutHandler.VerifyPayment)
	co.POST("/payment/failed", d.CheckoutHandler.PaymentFailed)

	orders := v1.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.GET("", d.CheckoutHandler.ListOrders)
	orders.GET("/:id/items", d.CheckoutHandler.OrderItems)

	addresses := v1.Group("/addresses", d.TokenService.AutoRefreshMiddleware)
	addresses.GET("", d.AddressHandler.ListAddresses)
	addresses.POST("", d.AddressHandler.CreateAddress)
	addresses.PATCH("/:id", d.AddressHandler.UpdateAddress)
	addresses.DELETE("/:id", d.AddressHandler.DeleteAddress)
	addresses.PUT("/:id/default", d.AddressHandler.SetDefaultAddress)

	adminGroup := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	adminGroup.POST("/products", d.AdminHandler.CreateProduct)
	adminGroup.PATCH("/products/:id", d.AdminHandler.PatchProduct)
	adminGroup.DELETE("/products/:id", d.AdminHandler.DeleteProduct)
	adminGroup.POST("/products/:id/variants", d.AdminHandler.CreateVariant)
	adminGroup.PATCH("/variants/:id", d.AdminHandler.PatchVariant)
	adminGroup.DELETE("/variants/:id", d.AdminHandler.DeleteVariant)
	adminGroup.GET("/inventory", d.AdminHandler.ListInventory)
	adminGroup.GET("/orders", d.AdminHandler.ListOrders)
	adminGroup.GET("/orders/:id/items", d.AdminHandler.OrderItems)
	adminGroup.PATCH("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	adminGroup.PATCH("/orders/:id/payment-status", d.AdminHandler.UpdatePaymentStatus)
}
