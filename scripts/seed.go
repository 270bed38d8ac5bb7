//go:build ignore

package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jdramirez/servipro/internal/auth"
	"github.com/jdramirez/servipro/internal/database"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/pkg/config"
	"github.com/jdramirez/servipro/pkg/util"
	"github.com/joho/godotenv"
)

// Seeds one account per configured partner. Passwords come from
// SEED_PASSWORD (shared) and must be changed on first login.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if db == nil {
		log.Fatal("seeding requires a persistent store, set DATABASE_DRIVER")
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "servipro123!"
	}

	hash, err := auth.HashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	for _, username := range cfg.Partners.Usernames {
		var existing models.User
		if err := db.First(&existing, "username = ?", username).Error; err == nil {
			fmt.Printf("User already exists: %s\n", username)
			continue
		}

		user := models.User{
			Username:           username,
			PasswordHash:       hash,
			FullName:           title(username),
			MustChangePassword: true,
			IsActive:           true,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("failed to create user %s: %v", username, err)
		}
		fmt.Printf("User created: %s\n", username)
	}

	fmt.Println("Seed complete. Users must change their password on first login.")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
