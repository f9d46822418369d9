package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"kaspku/models"
	"kaspku/pkg/ledger"
	"kaspku/pkg/report"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// Offline counterpart of GET /export: writes the monthly xlsx to disk instead
// of streaming it over HTTP.
func main() {
	bulan := flag.String("bulan", time.Now().In(ledger.WIB).Format("2006-01"), "report month, YYYY-MM")
	jenis := flag.String("jenis", report.All, "report variant: all | pemasukan_kas | pengeluaran_kas | pemasukan_infak | pengeluaran_infak")
	outDir := flag.String("out", ".", "directory to write the xlsx into")
	flag.Parse()

	_ = godotenv.Load()
	gdb := mustDBFromEnv()

	var txs []models.Transaction
	if err := gdb.Order("tanggal desc").Find(&txs).Error; err != nil {
		log.Fatalf("load transactions: %v", err)
	}

	f, fileName, err := report.BuildMonthly(txs, *bulan, *jenis)
	if err != nil {
		log.Fatalf("build report: %v", err)
	}
	path := filepath.Join(*outDir, fileName)
	if err := f.SaveAs(path); err != nil {
		log.Fatalf("save report: %v", err)
	}
	fmt.Printf("wrote %s (%d transaksi dimuat)\n", path, len(txs))
}
