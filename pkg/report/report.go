// Package report renders month-bounded transaction workbooks for download
// from the admin console or the laporan command.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"kaspku/models"
	"kaspku/pkg/ledger"
)

// Report variants, matching the download buttons of the admin console.
const (
	All          = "all"
	IncomeKas    = "pemasukan_kas"
	ExpenseKas   = "pengeluaran_kas"
	IncomeInfak  = "pemasukan_infak"
	ExpenseInfak = "pengeluaran_infak"
)

// ErrNoRows means the selected month and variant have no data.
var ErrNoRows = errors.New("tidak ada data pada bulan yang dipilih untuk diekspor")

var titles = map[string]string{
	All:          "Semua Transaksi",
	IncomeKas:    "Pemasukan Kas Umum",
	ExpenseKas:   "Pengeluaran Kas Umum",
	IncomeInfak:  "Pemasukan Infak & Donasi",
	ExpenseInfak: "Pengeluaran Infak & Donasi",
}

var bulanIndonesia = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// formatTanggalWIB renders a timestamp in the fixed reporting timezone with
// Indonesian month names, e.g. "01 Juli 2024 16:05".
func formatTanggalWIB(t time.Time) string {
	local := t.In(ledger.WIB)
	return fmt.Sprintf("%02d %s %d %02d:%02d",
		local.Day(), bulanIndonesia[local.Month()-1], local.Year(), local.Hour(), local.Minute())
}

func displayTipe(tipe string) string {
	if tipe == models.TipePemasukan {
		return "Pemasukan"
	}
	return "Pengeluaran"
}

func displaySumberDana(s string) string {
	if s == models.SumberKas {
		return "Kas Umum"
	}
	return "Infak/Donasi"
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func matchesVariant(t models.Transaction, jenis string) bool {
	switch jenis {
	case IncomeKas:
		return t.Tipe == models.TipePemasukan && t.SumberDana == models.SumberKas
	case ExpenseKas:
		return t.Tipe == models.TipePengeluaran && t.SumberDana == models.SumberKas
	case IncomeInfak:
		return t.Tipe == models.TipePemasukan && t.SumberDana == models.SumberInfak
	case ExpenseInfak:
		return t.Tipe == models.TipePengeluaran && t.SumberDana == models.SumberInfak
	default:
		return true
	}
}

var headers = []string{
	"ID Transaksi", "Tanggal", "Tipe", "Kategori", "Deskripsi",
	"Jumlah", "Sumber Dana", "Referensi Pembayaran", "URL Nota", "Dibuat Oleh",
}

var colWidths = []float64{38, 25, 15, 25, 50, 15, 20, 38, 40, 15}

// BuildMonthly renders one reporting month as a workbook: header row, one row
// per transaction with a thousands-grouped Jumlah column, then a blank spacer
// row and a TOTAL row. bulan is YYYY-MM in the reporting timezone.
func BuildMonthly(txs []models.Transaction, bulan, jenis string) (*excelize.File, string, error) {
	title, ok := titles[jenis]
	if !ok {
		return nil, "", fmt.Errorf("jenis laporan tidak dikenal: %q", jenis)
	}
	month, err := time.Parse("2006-01", bulan)
	if err != nil {
		return nil, "", fmt.Errorf("bulan harus berformat YYYY-MM")
	}

	var rows []models.Transaction
	for _, t := range txs {
		if t.Tanggal.In(ledger.WIB).Format("2006-01") != bulan {
			continue
		}
		if matchesVariant(t, jenis) {
			rows = append(rows, t)
		}
	}
	if len(rows) == 0 {
		return nil, "", ErrNoRows
	}
	rows = ledger.SortByTanggalDesc(rows)

	monthName := fmt.Sprintf("%s %d", bulanIndonesia[month.Month()-1], month.Year())
	sheet := fmt.Sprintf("%s %s", title, monthName)
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}

	numFmt := "#,##0"
	numStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, "", err
	}

	var total int64
	for i, t := range rows {
		r := i + 2
		values := []any{
			t.ID,
			formatTanggalWIB(t.Tanggal),
			displayTipe(t.Tipe),
			t.Kategori,
			t.Deskripsi,
			t.Jumlah,
			displaySumberDana(t.SumberDana),
			orDash(t.RefPayment),
			orDash(t.NotaURL),
			orDash(t.CreatedBy),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
		jumlahCell, _ := excelize.CoordinatesToCellName(6, r)
		_ = f.SetCellStyle(sheet, jumlahCell, jumlahCell, numStyle)
		total += t.Jumlah
	}

	// spacer row, then TOTAL
	totalRow := len(rows) + 3
	labelCell, _ := excelize.CoordinatesToCellName(5, totalRow)
	if err := f.SetCellValue(sheet, labelCell, "TOTAL"); err != nil {
		return nil, "", err
	}
	totalCell, _ := excelize.CoordinatesToCellName(6, totalRow)
	if err := f.SetCellValue(sheet, totalCell, total); err != nil {
		return nil, "", err
	}
	_ = f.SetCellStyle(sheet, totalCell, totalCell, numStyle)

	slug := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(title, " & ", "_"), " ", "_"))
	fileName := fmt.Sprintf("laporan_%s_%s.xlsx", slug, bulan)
	return f, fileName, nil
}
