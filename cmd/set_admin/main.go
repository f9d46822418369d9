package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"kaspku/models"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Sets or rotates the shared admin credential without restarting the server.
func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/set_admin <username> <password>")
		os.Exit(2)
	}
	username := os.Args[1]
	password := os.Args[2]

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		existing.HashedPassword = hpw
		if err := db.Save(&existing).Error; err != nil {
			log.Fatalf("failed to update credential: %v", err)
		}
		fmt.Printf("updated password for %s (id=%d)\n", username, existing.ID)
		return
	}

	user := models.User{Username: username, HashedPassword: hpw}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create credential: %v", err)
	}
	fmt.Printf("created admin %s id=%d\n", username, user.ID)
}
