package ledger

import (
	"testing"
	"time"

	"kaspku/models"
)

func tx(tipe, sumber string, jumlah int64) models.Transaction {
	return models.Transaction{Tipe: tipe, Kategori: "Lainnya", SumberDana: sumber, Jumlah: jumlah}
}

func TestComputeBalancesPartitions(t *testing.T) {
	txs := []models.Transaction{
		tx(models.TipePemasukan, models.SumberKas, 100000),
		tx(models.TipePemasukan, models.SumberKas, 100000),
		tx(models.TipePemasukan, models.SumberInfak, 50000),
		tx(models.TipePengeluaran, models.SumberKas, 75000),
		tx(models.TipePengeluaran, models.SumberInfak, 20000),
	}
	b := ComputeBalances(txs)
	if b.TotalPemasukan != 250000 {
		t.Fatalf("total pemasukan = %d, want 250000", b.TotalPemasukan)
	}
	if b.TotalPengeluaran != 95000 {
		t.Fatalf("total pengeluaran = %d, want 95000", b.TotalPengeluaran)
	}
	if b.SaldoKas != 125000 {
		t.Fatalf("saldo kas = %d, want 125000", b.SaldoKas)
	}
	if b.SaldoInfak != 30000 {
		t.Fatalf("saldo infak = %d, want 30000", b.SaldoInfak)
	}
	if b.SaldoTotal != 155000 {
		t.Fatalf("saldo total = %d, want 155000", b.SaldoTotal)
	}
}

func TestComputeBalancesNetIdentity(t *testing.T) {
	sets := [][]models.Transaction{
		nil,
		{tx(models.TipePemasukan, models.SumberKas, 1)},
		{
			tx(models.TipePemasukan, models.SumberKas, 300),
			tx(models.TipePengeluaran, models.SumberInfak, 500),
			tx(models.TipePemasukan, models.SumberInfak, 120),
			tx(models.TipePengeluaran, models.SumberKas, 40),
		},
	}
	for i, txs := range sets {
		b := ComputeBalances(txs)
		if b.SaldoTotal != b.SaldoKas+b.SaldoInfak {
			t.Errorf("set %d: saldo total %d != kas %d + infak %d", i, b.SaldoTotal, b.SaldoKas, b.SaldoInfak)
		}
	}
}

func TestGroupByMonthOrdersChronologically(t *testing.T) {
	d := func(s string) time.Time {
		parsed, err := time.ParseInLocation("2006-01-02 15:04", s, WIB)
		if err != nil {
			t.Fatal(err)
		}
		return parsed
	}
	txs := []models.Transaction{
		{Tanggal: d("2024-08-01 09:00"), Tipe: models.TipePemasukan, Jumlah: 100},
		{Tanggal: d("2023-12-31 23:59"), Tipe: models.TipePengeluaran, Jumlah: 50},
		{Tanggal: d("2024-07-15 13:00"), Tipe: models.TipePemasukan, Jumlah: 200},
		{Tanggal: d("2024-07-20 18:00"), Tipe: models.TipePengeluaran, Jumlah: 25},
	}
	got := GroupByMonth(txs)
	if len(got) != 3 {
		t.Fatalf("got %d buckets, want 3", len(got))
	}
	wantOrder := []string{"2023-12", "2024-07", "2024-08"}
	for i, w := range wantOrder {
		if got[i].Bulan != w {
			t.Fatalf("bucket %d = %s, want %s", i, got[i].Bulan, w)
		}
	}
	if got[1].Pemasukan != 200 || got[1].Pengeluaran != 25 {
		t.Fatalf("2024-07 bucket = %+v", got[1])
	}
}

func TestGroupByMonthUsesReportingTimezone(t *testing.T) {
	// 2024-07-31 18:00 UTC is already 2024-08-01 in WIB.
	txs := []models.Transaction{
		{Tanggal: time.Date(2024, 7, 31, 18, 0, 0, 0, time.UTC), Tipe: models.TipePemasukan, Jumlah: 10},
	}
	got := GroupByMonth(txs)
	if len(got) != 1 || got[0].Bulan != "2024-08" {
		t.Fatalf("got %+v, want single 2024-08 bucket", got)
	}
}

func TestGroupByCategory(t *testing.T) {
	txs := []models.Transaction{
		{Tipe: models.TipePengeluaran, Kategori: "ATK", Jumlah: 25000},
		{Tipe: models.TipePengeluaran, Kategori: "Konsumsi Rapat", Jumlah: 50000},
		{Tipe: models.TipePengeluaran, Kategori: "ATK", Jumlah: 10000},
		{Tipe: models.TipePemasukan, Kategori: "Iuran Wajib", Jumlah: 100000},
	}
	got := GroupByCategory(txs, models.TipePengeluaran)
	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2", len(got))
	}
	if got["ATK"] != 35000 {
		t.Fatalf("ATK = %d, want 35000", got["ATK"])
	}
	if got["Konsumsi Rapat"] != 50000 {
		t.Fatalf("Konsumsi Rapat = %d, want 50000", got["Konsumsi Rapat"])
	}
}

func TestFilterByWindowLast7Days(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, WIB)
	inside := models.Transaction{ID: "in", Tanggal: time.Date(2024, 7, 9, 0, 0, 1, 0, WIB)}
	outside := models.Transaction{ID: "out", Tanggal: time.Date(2024, 7, 8, 23, 59, 59, 0, WIB)}
	boundary := models.Transaction{ID: "edge", Tanggal: time.Date(2024, 7, 9, 0, 0, 0, 0, WIB)}

	got := FilterByWindow([]models.Transaction{inside, outside, boundary}, WindowLast7Days, now)
	ids := make(map[string]bool)
	for _, t := range got {
		ids[t.ID] = true
	}
	if !ids["in"] || !ids["edge"] || ids["out"] {
		t.Fatalf("window kept %v, want in+edge without out", ids)
	}
}

func TestFilterByWindowVariants(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, WIB)
	txs := []models.Transaction{
		{ID: "today", Tanggal: time.Date(2024, 7, 15, 0, 30, 0, 0, WIB)},
		{ID: "yesterday", Tanggal: time.Date(2024, 7, 14, 12, 0, 0, 0, WIB)},
		{ID: "twoWeeksAgo", Tanggal: time.Date(2024, 7, 2, 12, 0, 0, 0, WIB)},
		{ID: "lastMonth", Tanggal: time.Date(2024, 6, 28, 12, 0, 0, 0, WIB)},
		{ID: "future", Tanggal: time.Date(2024, 7, 20, 12, 0, 0, 0, WIB)},
	}
	cases := []struct {
		window Window
		want   []string
	}{
		{WindowToday, []string{"today", "future"}},
		{WindowLast7Days, []string{"today", "yesterday", "future"}},
		{WindowLast14Days, []string{"today", "yesterday", "twoWeeksAgo", "future"}},
		{WindowMonthToDate, []string{"today", "yesterday", "twoWeeksAgo", "future"}},
	}
	for _, tc := range cases {
		got := FilterByWindow(txs, tc.window, now)
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %d transactions, want %d", tc.window, len(got), len(tc.want))
			continue
		}
		ids := make(map[string]bool)
		for _, tx := range got {
			ids[tx.ID] = true
		}
		for _, w := range tc.want {
			if !ids[w] {
				t.Errorf("%s: missing %s", tc.window, w)
			}
		}
	}
}

func TestParseWindow(t *testing.T) {
	if _, err := ParseWindow("today"); err != nil {
		t.Fatalf("today: %v", err)
	}
	if _, err := ParseWindow("3d"); err == nil {
		t.Fatal("expected error for unknown window")
	}
}

func TestDeriveTransactionForPayment(t *testing.T) {
	tanggal := time.Date(2024, 7, 3, 14, 0, 0, 0, time.UTC)
	p := models.Payment{
		ID:           "p3",
		StudentID:    "s3",
		PeriodeBulan: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Tanggal:      tanggal,
		Jumlah:       100000,
		Status:       models.StatusValid,
	}
	s := models.Student{ID: "s3", NIM: "19003", Name: "Dewi Anggraini"}

	tx := DeriveTransactionForPayment(p, s, "pku19")
	if tx.Tipe != models.TipePemasukan {
		t.Fatalf("tipe = %s", tx.Tipe)
	}
	if tx.Kategori != models.KategoriIuran {
		t.Fatalf("kategori = %s", tx.Kategori)
	}
	if tx.SumberDana != models.SumberKas {
		t.Fatalf("sumber dana = %s", tx.SumberDana)
	}
	if tx.Jumlah != 100000 {
		t.Fatalf("jumlah = %d", tx.Jumlah)
	}
	if !tx.Tanggal.Equal(tanggal) {
		t.Fatalf("tanggal = %v", tx.Tanggal)
	}
	if tx.RefPayment == nil || *tx.RefPayment != "p3" {
		t.Fatalf("ref_payment = %v", tx.RefPayment)
	}
	if tx.Deskripsi != "Pembayaran iuran dari Dewi Anggraini" {
		t.Fatalf("deskripsi = %q", tx.Deskripsi)
	}
	if tx.CreatedBy == nil || *tx.CreatedBy != "pku19" {
		t.Fatalf("created_by = %v", tx.CreatedBy)
	}
}

func TestMergeLinkedUpdateKeepsImmutableFields(t *testing.T) {
	ref := "p1"
	existing := models.Transaction{
		ID:         "t1",
		Tanggal:    time.Date(2024, 7, 1, 9, 5, 0, 0, time.UTC),
		Tipe:       models.TipePemasukan,
		Kategori:   models.KategoriIuran,
		SumberDana: models.SumberKas,
		Deskripsi:  "Pembayaran iuran dari Budi Santoso",
		Jumlah:     100000,
		RefPayment: &ref,
	}
	patch := models.Transaction{
		Tanggal:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Tipe:       models.TipePengeluaran,
		Kategori:   "Lainnya",
		SumberDana: models.SumberInfak,
		Deskripsi:  "deskripsi baru",
		Jumlah:     5,
	}
	got := MergeLinkedUpdate(existing, patch)
	if got.Jumlah != 100000 {
		t.Fatalf("jumlah changed to %d", got.Jumlah)
	}
	if !got.Tanggal.Equal(existing.Tanggal) || got.Tipe != existing.Tipe || got.Kategori != existing.Kategori {
		t.Fatalf("immutable fields changed: %+v", got)
	}
	if got.Deskripsi != "deskripsi baru" {
		t.Fatalf("deskripsi not updated: %q", got.Deskripsi)
	}
	if got.SumberDana != models.SumberInfak {
		t.Fatalf("sumber dana not updated: %q", got.SumberDana)
	}
	if got.RefPayment == nil || *got.RefPayment != "p1" {
		t.Fatalf("ref_payment lost: %v", got.RefPayment)
	}
}

func TestMergeLinkedUpdateUnlinkedTakesFullPatch(t *testing.T) {
	existing := models.Transaction{
		ID:         "t3",
		Tipe:       models.TipePengeluaran,
		Kategori:   "Konsumsi Rapat",
		SumberDana: models.SumberKas,
		Jumlah:     50000,
	}
	patch := models.Transaction{
		Tipe:       models.TipePengeluaran,
		Kategori:   "ATK",
		SumberDana: models.SumberInfak,
		Deskripsi:  "pembelian kertas",
		Jumlah:     60000,
	}
	got := MergeLinkedUpdate(existing, patch)
	if got.Kategori != "ATK" || got.Jumlah != 60000 || got.SumberDana != models.SumberInfak {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ID != "t3" {
		t.Fatalf("id changed: %s", got.ID)
	}
}

func TestSortByTanggalDesc(t *testing.T) {
	txs := []models.Transaction{
		{ID: "a", Tanggal: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Tanggal: time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Tanggal: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)},
	}
	got := SortByTanggalDesc(txs)
	if got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Fatalf("order = %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if txs[0].ID != "a" {
		t.Fatal("input was mutated")
	}
}
