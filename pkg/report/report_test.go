package report

import (
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"kaspku/models"
	"kaspku/pkg/ledger"
)

func exportFixture() []models.Transaction {
	ref := "p1"
	admin := "pku19"
	return []models.Transaction{
		{
			ID:         "t1",
			Tanggal:    time.Date(2024, 7, 1, 2, 5, 0, 0, time.UTC), // 09:05 WIB
			Tipe:       models.TipePemasukan,
			Kategori:   models.KategoriIuran,
			SumberDana: models.SumberKas,
			Deskripsi:  "Pembayaran iuran dari Budi Santoso",
			Jumlah:     100000,
			RefPayment: &ref,
			CreatedBy:  &admin,
		},
		{
			ID:         "t3",
			Tanggal:    time.Date(2024, 7, 15, 6, 0, 0, 0, time.UTC),
			Tipe:       models.TipePengeluaran,
			Kategori:   "Konsumsi Rapat",
			SumberDana: models.SumberKas,
			Deskripsi:  "Beli snack untuk rapat angkatan",
			Jumlah:     50000,
			CreatedBy:  &admin,
		},
		{
			ID:         "t9",
			Tanggal:    time.Date(2024, 8, 2, 6, 0, 0, 0, time.UTC), // other month
			Tipe:       models.TipePengeluaran,
			Kategori:   "ATK",
			SumberDana: models.SumberKas,
			Deskripsi:  "Fotokopi",
			Jumlah:     25000,
		},
	}
}

func rawCell(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("read %s: %v", cell, err)
	}
	return v
}

func TestBuildMonthlyAll(t *testing.T) {
	f, fileName, err := BuildMonthly(exportFixture(), "2024-07", All)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if fileName != "laporan_semua_transaksi_2024-07.xlsx" {
		t.Fatalf("file name = %q", fileName)
	}
	sheet := "Semua Transaksi Juli 2024"
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		t.Fatalf("sheet %q missing; sheets = %v", sheet, f.GetSheetList())
	}

	if got := rawCell(t, f, sheet, "A1"); got != "ID Transaksi" {
		t.Fatalf("A1 = %q", got)
	}
	if got := rawCell(t, f, sheet, "F1"); got != "Jumlah" {
		t.Fatalf("F1 = %q", got)
	}

	// rows sorted newest first: t3 then t1, the August row excluded
	if got := rawCell(t, f, sheet, "A2"); got != "t3" {
		t.Fatalf("A2 = %q", got)
	}
	if got := rawCell(t, f, sheet, "A3"); got != "t1" {
		t.Fatalf("A3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "B3"); got != "01 Juli 2024 09:05" {
		t.Fatalf("B3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "C3"); got != "Pemasukan" {
		t.Fatalf("C3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "F3"); got != "100000" {
		t.Fatalf("F3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "G3"); got != "Kas Umum" {
		t.Fatalf("G3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "H3"); got != "p1" {
		t.Fatalf("H3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "I3"); got != "-" {
		t.Fatalf("I3 = %q", got)
	}

	// spacer on row 4, TOTAL on row 5
	if got := rawCell(t, f, sheet, "E4"); got != "" {
		t.Fatalf("spacer row not empty: %q", got)
	}
	if got := rawCell(t, f, sheet, "E5"); got != "TOTAL" {
		t.Fatalf("E5 = %q", got)
	}
	if got := rawCell(t, f, sheet, "F5"); got != "150000" {
		t.Fatalf("F5 = %q", got)
	}
}

func TestBuildMonthlyVariantFilters(t *testing.T) {
	f, _, err := BuildMonthly(exportFixture(), "2024-07", ExpenseKas)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	sheet := "Pengeluaran Kas Umum Juli 2024"
	if got := rawCell(t, f, sheet, "A2"); got != "t3" {
		t.Fatalf("A2 = %q", got)
	}
	if got := rawCell(t, f, sheet, "A3"); got != "" {
		t.Fatalf("unexpected second data row: %q", got)
	}
	if got := rawCell(t, f, sheet, "F4"); got != "50000" {
		t.Fatalf("total = %q", got)
	}
}

func TestBuildMonthlyEmptyMonth(t *testing.T) {
	_, _, err := BuildMonthly(exportFixture(), "2023-01", All)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
}

func TestBuildMonthlyRejectsBadInput(t *testing.T) {
	if _, _, err := BuildMonthly(exportFixture(), "2024-07", "laporan_aneh"); err == nil {
		t.Fatal("unknown jenis accepted")
	}
	if _, _, err := BuildMonthly(exportFixture(), "Juli 2024", All); err == nil {
		t.Fatal("malformed bulan accepted")
	}
}

func TestBuildMonthlyUsesReportingTimezone(t *testing.T) {
	// 2024-06-30 23:00 UTC is 2024-07-01 06:00 WIB and belongs to July
	txs := []models.Transaction{{
		ID:         "tz",
		Tanggal:    time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC),
		Tipe:       models.TipePemasukan,
		Kategori:   "Donasi",
		SumberDana: models.SumberInfak,
		Deskripsi:  "Donasi alumni",
		Jumlah:     75000,
	}}
	if txs[0].Tanggal.In(ledger.WIB).Format("2006-01") != "2024-07" {
		t.Fatal("fixture is wrong")
	}
	f, _, err := BuildMonthly(txs, "2024-07", IncomeInfak)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	sheet := "Pemasukan Infak & Donasi Juli 2" // truncated to 31 chars
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		t.Fatalf("sheet %q missing; sheets = %v", sheet, f.GetSheetList())
	}
	if got := rawCell(t, f, sheet, "A2"); got != "tz" {
		t.Fatalf("A2 = %q", got)
	}
}
