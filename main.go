package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"kaspku/pkg/feed"
	"kaspku/pkg/mirror"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

func main() {
	// Load ./.env if present before reading vars; real environment wins.
	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./kaspku migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	hub := feed.NewHub()
	store := NewStore(db, hub)
	m := mirror.New()

	// The mirror subscribes before the server starts so no write event is
	// missed between the bulk load and the first request.
	events, _ := hub.Subscribe()
	if err := loadMirror(store, m); err != nil {
		log.Fatalf("initial load failed: %v", err)
	}
	go m.Run(events)

	if err := watchUploads(uploadBaseDir()); err != nil {
		log.Printf("upload watch disabled: %v", err)
	}

	a := &app{store: store, mirror: m, hub: hub, guard: newLoginGuard()}

	r := gin.Default()
	setupRoutes(r, a)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	r.Run(addr)
}

// loadMirror performs the one bulk read per collection. If any of the three
// reads fails the whole load fails; a partially populated mirror is not an
// acceptable state to serve.
func loadMirror(store *Store, m *mirror.Mirror) error {
	students, err := store.ListStudents()
	if err != nil {
		return err
	}
	payments, err := store.ListPayments()
	if err != nil {
		return err
	}
	transactions, err := store.ListTransactions()
	if err != nil {
		return err
	}
	m.Load(students, payments, transactions)
	return nil
}
