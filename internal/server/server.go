package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/config"
	"github.com/ryomiyashita/biyori/internal/handlers"
	"github.com/ryomiyashita/biyori/internal/middleware"
	"github.com/ryomiyashita/biyori/internal/models"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	xenditCfg, err := config.LoadXenditConfig()
	if err != nil {
		return fmt.Errorf("failed to load xendit config: %v", err)
	}
	xenditClient, err := config.InitXenditClient(xenditCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize xendit client: %v", err)
	}

	r := gin.Default()

	setupRoutes(r, db, xenditClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, xenditClient *xendit.APIClient) {
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.XenditMiddleware(xenditClient))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		public.GET("/menus", handlers.ListMenus)
		public.GET("/menus/:id", handlers.GetMenu)
		public.GET("/categories", handlers.ListCategories)

		public.POST("/newsletter/subscribe", handlers.Subscribe)
		public.POST("/newsletter/unsubscribe", handlers.Unsubscribe)

		public.POST("/payments/callback", handlers.XenditCallback)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile)
		protected.PUT("/profile", handlers.UpdateProfile)

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", handlers.CreateBooking)
			bookings.GET("", handlers.ListMyBookings)
			bookings.POST("/:id/cancel", handlers.CancelBooking)
			bookings.GET("/:id/qr", handlers.GenerateBookingQR)
		}

		protected.POST("/coupons/validate", handlers.ValidateCouponCart)
		protected.POST("/payments", handlers.CreateBookingPayment)
	}

	backoffice := r.Group("/v1/admin")
	backoffice.Use(middleware.JWTAuthMiddleware())
	backoffice.Use(middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
	{
		backoffice.GET("/bookings", handlers.ListBookings)
		backoffice.PUT("/bookings/:id/status", handlers.UpdateBookingStatus)
		backoffice.POST("/bookings/check-in", handlers.CheckInBooking)

		backoffice.POST("/transactions", handlers.Checkout)
		backoffice.GET("/transactions", handlers.ListTransactions)
		backoffice.GET("/transactions/:id", handlers.GetTransaction)

		backoffice.POST("/coupons/validate", handlers.ValidateCouponPOS)

		backoffice.GET("/customers", handlers.ListCustomers)
		backoffice.GET("/customers/:id", handlers.GetCustomer)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware())
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		menus := admin.Group("/menus")
		{
			menus.GET("", handlers.ListAllMenus)
			menus.POST("", handlers.CreateMenu)
			menus.PUT("/:id", handlers.UpdateMenu)
			menus.POST("/:id/image", handlers.UploadMenuImage)
			menus.DELETE("/:id", handlers.DeleteMenu)
		}

		categories := admin.Group("/categories")
		{
			categories.POST("", handlers.CreateCategory)
			categories.PUT("/:id", handlers.UpdateCategory)
			categories.DELETE("/:id", handlers.DeleteCategory)
		}

		coupons := admin.Group("/coupons")
		{
			coupons.GET("", handlers.ListCoupons)
			coupons.POST("", handlers.CreateCoupon)
			coupons.GET("/:id", handlers.GetCoupon)
			coupons.PUT("/:id", handlers.UpdateCoupon)
			coupons.DELETE("/:id", handlers.DeleteCoupon)
		}

		admin.DELETE("/transactions/:id", handlers.VoidTransaction)
		admin.GET("/reports/sales", handlers.SalesReport)
		admin.GET("/newsletter/subscribers", handlers.ListSubscribers)
	}
}
