package main

import (
	stlog "log"
	"os"
	"time"

	"hitechstore/payment/flouci"
	"hitechstore/payment/order"
	"hitechstore/payment/rates"
	"hitechstore/utils"
	"hitechstore/web/controllers"
	"hitechstore/web/db"
	"hitechstore/web/email"
	"hitechstore/web/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	utils.LoadEnv()

	conn, err := db.Connect(os.Getenv("DB"))
	if err != nil {
		stlog.Fatalln("Error connecting to database:", err)
	}
	defer db.Close(conn)

	if err := db.Sync(conn); err != nil {
		stlog.Fatalln("Error migrating schema:", err)
	}

	gateway := flouci.NewClient(
		utils.Getenv("FLOUCI_API_URL", "https://api.flouci.com/v1"),
		os.Getenv("FLOUCI_API_KEY"),
		os.Getenv("FLOUCI_SECRET_KEY"),
	)
	source := rates.NewSource(utils.Getenv("EXCHANGE_API_URL", "https://api.exchangerate-api.com/v4/latest/TND"))

	orders := order.NewService(conn, gateway, source)
	orders.Notify = func(ord *db.Order) {
		if err := email.SendOrderConfirmationEmail(ord.BillingEmail, ord); err != nil {
			stlog.Println("Error sending order confirmation:", err)
		}
	}

	auth := &controllers.Auth{DB: conn}
	products := &controllers.Products{DB: conn}
	payments := &controllers.Payments{Orders: orders, Gateway: gateway}

	r := gin.Default()
	r.Use(cors.Default())

	globalLimiter := middleware.NewRateLimiter(60, time.Minute)
	globalLimiter.StartCleanup(10 * time.Minute)
	loginLimiter := middleware.NewRateLimiter(5, 15*time.Minute)
	loginLimiter.StartCleanup(10 * time.Minute)

	requireAuth := middleware.RequireAuth(conn)

	api := r.Group("/api", globalLimiter.Middleware())
	{
		api.POST("/auth/register", auth.Register)
		api.POST("/auth/login", loginLimiter.Middleware(), auth.Login)
		api.GET("/auth/verify/:token", auth.VerifyEmail)
		api.POST("/auth/forgot-password", auth.ForgotPassword)
		api.POST("/auth/reset-password/:token", auth.ResetPassword)
		api.GET("/auth/me", requireAuth, auth.Me)
		api.PUT("/auth/profile", requireAuth, auth.UpdateProfile)
		api.PUT("/auth/change-password", requireAuth, auth.ChangePassword)

		api.GET("/products", products.List)
		api.GET("/products/:id", products.Get)
		api.POST("/products", requireAuth, middleware.RequireAdmin, products.Create)
		api.PUT("/products/:id", requireAuth, middleware.RequireAdmin, products.Update)
		api.DELETE("/products/:id", requireAuth, middleware.RequireAdmin, products.Delete)

		api.POST("/payments/flouci/initiate", requireAuth, payments.Initiate)
		api.GET("/payments/verify/:orderId", requireAuth, payments.Verify)
		api.GET("/payments/orders", requireAuth, payments.ListOrders)
		api.GET("/payments/qr/:orderId", requireAuth, payments.QR)
		api.POST("/payments/refund/:orderId", requireAuth, middleware.RequireAdmin, payments.Refund)
	}

	// gateway callbacks are signature-verified, not rate limited
	r.POST("/api/payments/webhook/flouci", payments.Webhook)

	// thin static client
	r.Static("/static", "./frontend/static")
	r.StaticFile("/", "./frontend/index.html")

	port := utils.Getenv("PORT", "8080")
	if err := r.Run(":" + port); err != nil {
		stlog.Fatalln(err)
	}
}
