// Package ledger holds the balance and categorization rules of the cash
// fund: pure functions over the current transaction set, the mapping from a
// validated payment to its ledger entry, and the field-restriction rule for
// payment-linked transactions. Nothing here touches the database.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"kaspku/models"
)

// WIB is the fixed reporting timezone (UTC+7). All month bucketing and
// window boundaries use it regardless of viewer locale so groupings stay
// stable.
var WIB = time.FixedZone("WIB", 7*60*60)

// Balances is the aggregate view of the ledger, split by fund.
type Balances struct {
	TotalPemasukan   int64 `json:"total_pemasukan"`
	TotalPengeluaran int64 `json:"total_pengeluaran"`
	SaldoKas         int64 `json:"saldo_kas"`
	SaldoInfak       int64 `json:"saldo_infak"`
	SaldoTotal       int64 `json:"saldo_total"`
}

// ComputeBalances partitions transactions by tipe and sumber_dana and sums
// jumlah per partition. Amounts are whole rupiah, so plain integer
// arithmetic is exact.
func ComputeBalances(txs []models.Transaction) Balances {
	var b Balances
	var kasMasuk, kasKeluar, infakMasuk, infakKeluar int64
	for _, t := range txs {
		switch t.Tipe {
		case models.TipePemasukan:
			b.TotalPemasukan += t.Jumlah
			switch t.SumberDana {
			case models.SumberKas:
				kasMasuk += t.Jumlah
			case models.SumberInfak:
				infakMasuk += t.Jumlah
			}
		case models.TipePengeluaran:
			b.TotalPengeluaran += t.Jumlah
			switch t.SumberDana {
			case models.SumberKas:
				kasKeluar += t.Jumlah
			case models.SumberInfak:
				infakKeluar += t.Jumlah
			}
		}
	}
	b.SaldoKas = kasMasuk - kasKeluar
	b.SaldoInfak = infakMasuk - infakKeluar
	b.SaldoTotal = b.TotalPemasukan - b.TotalPengeluaran
	return b
}

// MonthlySummary is one calendar-month bucket of the ledger.
type MonthlySummary struct {
	Bulan       string `json:"bulan"` // YYYY-MM, WIB
	Pemasukan   int64  `json:"pemasukan"`
	Pengeluaran int64  `json:"pengeluaran"`
}

// GroupByMonth buckets transactions by the WIB calendar month of tanggal,
// one bucket per month present in the data, chronologically ascending.
func GroupByMonth(txs []models.Transaction) []MonthlySummary {
	byMonth := make(map[string]*MonthlySummary)
	for _, t := range txs {
		key := t.Tanggal.In(WIB).Format("2006-01")
		s, ok := byMonth[key]
		if !ok {
			s = &MonthlySummary{Bulan: key}
			byMonth[key] = s
		}
		switch t.Tipe {
		case models.TipePemasukan:
			s.Pemasukan += t.Jumlah
		case models.TipePengeluaran:
			s.Pengeluaran += t.Jumlah
		}
	}
	out := make([]MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bulan < out[j].Bulan })
	return out
}

// GroupByCategory sums jumlah per distinct kategori for transactions of the
// given tipe.
func GroupByCategory(txs []models.Transaction, tipe string) map[string]int64 {
	out := make(map[string]int64)
	for _, t := range txs {
		if t.Tipe != tipe {
			continue
		}
		out[t.Kategori] += t.Jumlah
	}
	return out
}

// Window is a display filter over recent transactions.
type Window string

const (
	WindowToday       Window = "today"
	WindowLast7Days   Window = "7d"
	WindowLast14Days  Window = "14d"
	WindowMonthToDate Window = "month"
)

// ParseWindow maps a query-string value to a Window.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowToday, WindowLast7Days, WindowLast14Days, WindowMonthToDate:
		return Window(s), nil
	}
	return "", fmt.Errorf("periode tidak dikenal: %q", s)
}

// FilterByWindow keeps transactions with tanggal at or after the window's
// lower bound, computed from WIB midnight of now. "7d" spans exactly 7
// calendar days including today. There is no upper bound: future-dated
// transactions are included, this is a display filter.
func FilterByWindow(txs []models.Transaction, w Window, now time.Time) []models.Transaction {
	local := now.In(WIB)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, WIB)
	var from time.Time
	switch w {
	case WindowToday:
		from = midnight
	case WindowLast7Days:
		from = midnight.AddDate(0, 0, -6)
	case WindowLast14Days:
		from = midnight.AddDate(0, 0, -13)
	case WindowMonthToDate:
		from = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, WIB)
	default:
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Tanggal.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

// SortByTanggalDesc returns a copy sorted newest first, the ordering every
// public listing uses.
func SortByTanggalDesc(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	sort.Slice(out, func(i, j int) bool { return out[i].Tanggal.After(out[j].Tanggal) })
	return out
}

// DeriveTransactionForPayment produces the single ledger entry generated by
// a validated payment. It is the only source of the payment-to-transaction
// mapping: both direct recording and approval of a pending submission go
// through it, so the two paths cannot drift.
func DeriveTransactionForPayment(p models.Payment, s models.Student, admin string) models.Transaction {
	ref := p.ID
	createdBy := admin
	return models.Transaction{
		Tanggal:    p.Tanggal,
		Tipe:       models.TipePemasukan,
		Kategori:   models.KategoriIuran,
		SumberDana: models.SumberKas,
		Deskripsi:  fmt.Sprintf("Pembayaran iuran dari %s", s.Name),
		Jumlah:     p.Jumlah,
		RefPayment: &ref,
		CreatedBy:  &createdBy,
	}
}

// MergeLinkedUpdate applies patch onto existing, honoring the immutability
// of payment-linked transactions: for those, only deskripsi, sumber_dana and
// nota_url are taken from the patch and attempted changes to the other
// fields are silently discarded (mirroring the read-only form fields).
// Unlinked transactions take the full patch. ID, RefPayment, CreatedBy and
// CreatedAt always keep their stored values.
func MergeLinkedUpdate(existing, patch models.Transaction) models.Transaction {
	out := existing
	out.Deskripsi = patch.Deskripsi
	out.SumberDana = patch.SumberDana
	out.NotaURL = patch.NotaURL
	if !existing.Linked() {
		out.Tanggal = patch.Tanggal
		out.Tipe = patch.Tipe
		out.Kategori = patch.Kategori
		out.Jumlah = patch.Jumlah
	}
	return out
}
