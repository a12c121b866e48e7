package db

import (
	"os"

	"blogpin-backend/models"
	"blogpin-backend/utils"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		utils.LogInfo("No .env file found, reading configuration from the environment")
	}

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		utils.LogError(nil, "DB_URL is not set")
		panic("database URL not configured")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
	})
	if err != nil {
		utils.LogError(err, "Error connecting to the database")
		panic("could not connect to the database")
	}

	if err := Migrate(DB); err != nil {
		utils.LogError(err, "Error migrating database")
		panic("could not migrate database")
	}

	utils.LogSuccess("Database connection successful")
}

// Migrate runs the schema migration for every model. Exposed separately so
// the sqlite test database can reuse the exact same schema.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.SubscriptionHistory{},
		&models.PinnedPost{},
		&models.Payment{},
		&models.PaymentAttempt{},
		&models.Refund{},
		&models.WebhookEvent{},
	)
}
