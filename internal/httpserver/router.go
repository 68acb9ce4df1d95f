package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

type Deps struct {
	AuthHandler      *AuthHTTP
	CatalogHandler   *CatalogHTTP
	OrderHandler     *OrderHTTP
	ReviewHandler    *ReviewHTTP
	AnalyticsHandler *AnalyticsHTTP
	NotifyHandler    *NotifyHTTP
	Gate             *authmw.Gate
	Ready            func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	protect := d.Gate.Protect
	admin := []echo.MiddlewareFunc{protect, authmw.RequireAdmin}

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, protect)
	auth.PUT("/profile", d.AuthHandler.UpdateProfile, protect)
	auth.PUT("/password", d.AuthHandler.ChangePassword, protect)

	users := api.Group("/users", admin...)
	users.GET("", d.AuthHandler.ListUsers)
	users.PATCH("/:id", d.AuthHandler.UpdateUser)

	products := api.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts, d.Gate.Optional)
	products.GET("/featured", d.CatalogHandler.Featured)
	products.GET("/bestsellers", d.CatalogHandler.Bestsellers)
	products.GET("/low-stock", d.CatalogHandler.LowStock, admin...)
	products.GET("/:id", d.CatalogHandler.GetProduct, d.Gate.Optional)
	products.POST("", d.CatalogHandler.CreateProduct, admin...)
	products.PUT("/:id", d.CatalogHandler.UpdateProduct, admin...)
	products.DELETE("/:id", d.CatalogHandler.DeleteProduct, admin...)

	categories := api.Group("/categories")
	categories.GET("", d.CatalogHandler.ListCategories)
	categories.GET("/slug/:slug", d.CatalogHandler.CategoryBySlug)
	categories.GET("/:id", d.CatalogHandler.GetCategory)
	categories.GET("/:id/subcategories", d.CatalogHandler.Subcategories)
	categories.POST("", d.CatalogHandler.CreateCategory, admin...)
	categories.PUT("/:id", d.CatalogHandler.UpdateCategory, admin...)
	categories.DELETE("/:id", d.CatalogHandler.DeleteCategory, admin...)

	orders := api.Group("/orders", protect)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListMyOrders)
	orders.GET("/admin", d.OrderHandler.ListOrders, authmw.RequireAdmin)
	orders.GET("/stats", d.OrderHandler.Stats, authmw.RequireAdmin)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.DELETE("/:id", d.OrderHandler.CancelOrder)
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus, authmw.RequireAdmin)
	orders.PUT("/:id/payment", d.OrderHandler.UpdatePaymentStatus, authmw.RequireAdmin)
	orders.PUT("/:id/accept", d.OrderHandler.AcceptOrder, authmw.RequireAdmin)
	orders.PUT("/:id/decline", d.OrderHandler.DeclineOrder, authmw.RequireAdmin)

	reviews := api.Group("/reviews")
	reviews.GET("/product/:productId", d.ReviewHandler.ListProductReviews)
	reviews.GET("/product/:productId/summary", d.ReviewHandler.Summary)
	reviews.GET("/can-review/:productId", d.ReviewHandler.CanReview, protect)
	reviews.GET("/me", d.ReviewHandler.ListMine, protect)
	reviews.POST("/product/:productId", d.ReviewHandler.CreateReview, protect)
	reviews.PUT("/:id", d.ReviewHandler.UpdateReview, protect)
	reviews.DELETE("/:id", d.ReviewHandler.DeleteReview, protect)
	reviews.POST("/:id/helpful", d.ReviewHandler.MarkHelpful, protect)
	reviews.DELETE("/:id/helpful", d.ReviewHandler.UnmarkHelpful, protect)
	reviews.PUT("/:id/approval", d.ReviewHandler.SetApproval, admin...)

	api.GET("/analytics/dashboard", d.AnalyticsHandler.Dashboard, admin...)
	api.GET("/notifications/ws", d.NotifyHandler.Subscribe, protect)
}
