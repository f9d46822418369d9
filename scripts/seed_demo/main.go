package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"kaspku/models"

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

var demoStudents = []models.Student{
	{NIM: "19001", Name: "Budi Santoso", Angkatan: "PKU 19"},
	{NIM: "19002", Name: "Siti Rahma", Angkatan: "PKU 19"},
	{NIM: "19003", Name: "Ahmad Fauzi", Angkatan: "PKU 19"},
}

// Seeds a handful of students and transactions for local development.
func main() {
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()

	_ = godotenv.Load()
	gdb := mustDBFromEnv()

	for i := range demoStudents {
		s := &demoStudents[i]
		var existing models.Student
		if err := gdb.Where("nim = ?", s.NIM).First(&existing).Error; err == nil {
			fmt.Printf("EXISTS: student nim=%s id=%s\n", existing.NIM, existing.ID)
			continue
		}
		if *dry {
			fmt.Printf("DRY: would create student nim=%s name=%s\n", s.NIM, s.Name)
			continue
		}
		if err := gdb.Create(s).Error; err != nil {
			log.Printf("create student %s failed: %v", s.NIM, err)
			continue
		}
		fmt.Printf("created student %s id=%s\n", s.NIM, s.ID)
	}

	admin := "pku19"
	demoTxs := []models.Transaction{
		{
			Tanggal:    time.Now().AddDate(0, 0, -3),
			Tipe:       models.TipePemasukan,
			Kategori:   "Donasi",
			Deskripsi:  "Donasi alumni untuk kegiatan angkatan",
			Jumlah:     250000,
			SumberDana: models.SumberInfak,
			CreatedBy:  &admin,
		},
		{
			Tanggal:    time.Now().AddDate(0, 0, -1),
			Tipe:       models.TipePengeluaran,
			Kategori:   "Konsumsi Rapat",
			Deskripsi:  "Snack rapat koordinasi bulanan",
			Jumlah:     75000,
			SumberDana: models.SumberKas,
			CreatedBy:  &admin,
		},
	}
	for i := range demoTxs {
		t := &demoTxs[i]
		if *dry {
			fmt.Printf("DRY: would create transaction %s %s Rp%d\n", t.Tipe, t.Kategori, t.Jumlah)
			continue
		}
		if err := gdb.Create(t).Error; err != nil {
			log.Printf("create transaction failed: %v", err)
			continue
		}
		fmt.Printf("created transaction id=%s\n", t.ID)
	}
}
