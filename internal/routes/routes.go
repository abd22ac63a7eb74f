package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	CORSOrigins []string
	// Feed serves the admin order-status websocket.
	Feed gin.HandlerFunc
}

// corsConfig allows the configured frontends to send bearer tokens.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())

	// --- APPLY THE CORS GUARD ---
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	}

	requireAuth := middleware.AuthMiddleware(h.DB, h.Tokens)
	requireAdmin := middleware.AdminMiddleware()

	api := router.Group("/api")
	{
		// --- Ping Route (Public) ---
		api.GET("/ping/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- User Routes ---
		users := api.Group("/users")
		{
			users.POST("/register/", h.Register)
			users.POST("/login/", h.Login)
			users.POST("/token/refresh/", h.RefreshToken)
			users.GET("/me/", requireAuth, h.GetMe)

			adminUsers := users.Group("/admin", requireAuth, requireAdmin)
			adminUsers.GET("/", h.AdminListUsers)
			adminUsers.GET("/:id/", h.AdminGetUser)
			adminUsers.PUT("/:id/", h.AdminUpdateUser)
			adminUsers.DELETE("/:id/", h.AdminDeleteUser)
		}

		// --- Catalog Routes ---
		products := api.Group("/products")
		{
			products.GET("/", h.ListProducts)
			products.GET("/:id/", h.GetProduct)
			products.GET("/categories/", h.ListCategories)
			products.POST("/categories/", requireAuth, requireAdmin, h.CreateCategory)

			admin := products.Group("/admin", requireAuth, requireAdmin)
			admin.POST("/", h.CreateProduct)
			admin.GET("/:id/", h.AdminGetProduct)
			admin.PUT("/:id/", h.UpdateProduct)
			admin.DELETE("/:id/", h.DeleteProduct)

			admin.PUT("/categories/:id/", h.UpdateCategory)
			admin.DELETE("/categories/:id/", h.DeleteCategory)

			admin.GET("/tags/", h.ListTags)
			admin.POST("/tags/", h.CreateTag)
			admin.PUT("/tags/:id/", h.UpdateTag)
			admin.DELETE("/tags/:id/", h.DeleteTag)
		}

		// --- Cart Routes ---
		cart := api.Group("/cart", requireAuth)
		{
			cart.GET("/", h.GetCart)
			cart.POST("/", h.AddToCart)
			cart.PUT("/item/:id/", h.UpdateCartItem)
			cart.DELETE("/item/:id/", h.RemoveCartItem)
		}

		// --- Order Routes ---
		orders := api.Group("/orders", requireAuth)
		{
			orders.GET("/", h.GetMyOrders)
			orders.POST("/", h.Checkout)
			orders.GET("/:id/", h.GetOrderDetails)

			admin := orders.Group("/admin", requireAdmin)
			admin.GET("/", h.AdminListOrders)
			admin.GET("/stats/", h.GetOrderStats)
			admin.GET("/:id/", h.AdminGetOrder)
			admin.PUT("/:id/status/", h.UpdateOrderStatus)
			if opts.Feed != nil {
				admin.GET("/feed/", opts.Feed)
			}
		}

		// --- Notification Routes ---
		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("/", h.GetMyNotifications)
			notifications.PATCH("/:id/read/", h.MarkNotificationAsRead)
		}
	}

	return router
}
