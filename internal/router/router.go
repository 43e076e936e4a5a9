package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/controller"
	"github.com/jwkim/storefront-backend/internal/middleware"
	"github.com/jwkim/storefront-backend/internal/websocket"
)

type Router struct {
	authController     *controller.AuthController
	userController     *controller.UserController
	categoryController *controller.CategoryController
	productController  *controller.ProductController
	cartController     *controller.CartController
	orderController    *controller.OrderController
	authMiddleware     *middleware.AuthMiddleware
	identityMiddleware *middleware.IdentityMiddleware
	hub                *websocket.Hub
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	userController *controller.UserController,
	categoryController *controller.CategoryController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	authMiddleware *middleware.AuthMiddleware,
	identityMiddleware *middleware.IdentityMiddleware,
	hub *websocket.Hub,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		userController:     userController,
		categoryController: categoryController,
		productController:  productController,
		cartController:     cartController,
		orderController:    orderController,
		authMiddleware:     authMiddleware,
		identityMiddleware: identityMiddleware,
		hub:                hub,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "healthy",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.Me)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", r.categoryController.ListCategories)
			categories.GET("/:id", r.categoryController.GetCategory)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)
		}

		// Cart and checkout serve users and guests alike: the identity
		// middleware resolves each request to exactly one actor.
		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate(), r.identityMiddleware.ResolveActor())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:id", r.cartController.RemoveCartItem)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("",
				r.authMiddleware.OptionalAuthenticate(),
				r.identityMiddleware.ResolveActor(),
				r.orderController.CreateOrder,
			)
			orders.GET("/my",
				r.authMiddleware.Authenticate(),
				r.orderController.MyOrders,
			)
			orders.GET("/:id",
				r.authMiddleware.OptionalAuthenticate(),
				r.identityMiddleware.ResolveActor(),
				r.orderController.GetOrder,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/users", r.userController.ListUsers)
			admin.GET("/users/:id", r.userController.GetUser)
			admin.PUT("/users/:id/role", r.userController.UpdateUserRole)
			admin.DELETE("/users/:id", r.userController.DeleteUser)

			admin.POST("/categories", r.categoryController.CreateCategory)
			admin.PUT("/categories/:id", r.categoryController.UpdateCategory)
			admin.DELETE("/categories/:id", r.categoryController.DeleteCategory)

			admin.POST("/products", r.productController.CreateProduct)
			admin.PUT("/products/:id", r.productController.UpdateProduct)
			admin.DELETE("/products/:id", r.productController.DeleteProduct)
			admin.POST("/products/:id/images", r.productController.UploadProductImages)

			admin.GET("/orders", r.orderController.ListOrders)
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)
		}

		if r.hub != nil {
			v1.GET("/ws/orders",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				websocket.ServeWS(r.hub),
			)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
