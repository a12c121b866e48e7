package main

import (
	"log"
	"os"

	"blogpin-backend/db"
	_ "blogpin-backend/docs"
	"blogpin-backend/jobs"
	"blogpin-backend/routes"
	"blogpin-backend/services"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
)

// @title BlogPin API
// @version 1.0
// @description Blogging platform API with paid post pinning
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)

	db.InitDB()

	if err := utils.InitCloudinary(); err != nil {
		log.Printf("Warning: Cloudinary initialization failed: %v", err)
		log.Println("Image upload will not work properly.")
	}

	provider := services.NewStripeProvider(os.Getenv("STRIPE_SECRET_KEY"))
	services.Init(db.DB, provider)

	scheduler := jobs.NewScheduler(jobs.NewJobs(db.DB, services.Subscriptions, services.Webhooks))
	scheduler.Start()
	defer scheduler.Stop()

	r := routes.SetupRouter()

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Error starting the server:", err)
	}
}
