package main

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kaspku/models"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		migrateModels(db)
	}
	seedDB()
}

// migrateModels migrates models individually so a failure on one doesn't
// block the others.
func migrateModels(db *gorm.DB) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Printf("migration warning (users): %v", err)
	}
	if err := db.AutoMigrate(&models.Student{}); err != nil {
		log.Printf("migration warning (students): %v", err)
	}
	if err := db.AutoMigrate(&models.Payment{}); err != nil {
		log.Printf("migration warning (payments): %v", err)
	}
	if err := db.AutoMigrate(&models.Transaction{}); err != nil {
		log.Printf("migration warning (transactions): %v", err)
	}
}

// seedDB ensures the shared admin credential exists. Username and password
// come from ADMIN_USER / ADMIN_PASS with the cohort defaults.
func seedDB() {
	username := os.Getenv("ADMIN_USER")
	if username == "" {
		username = "pku19"
	}
	password := os.Getenv("ADMIN_PASS")
	if password == "" {
		password = "pku.mui"
	}
	var count int64
	db.Model(&models.User{}).Where("username = ?", username).Count(&count)
	if count == 0 {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin := models.User{Username: username, HashedPassword: hashedPassword}
		if err := db.Create(&admin).Error; err != nil {
			log.Printf("failed to seed admin user: %v", err)
		} else {
			log.Printf("Seeded admin user: username=%s", username)
		}
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for proof/receipt images
// (configurable via UPLOAD_BASE env).
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
