package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction type values.
const (
	TipePemasukan   = "pemasukan"
	TipePengeluaran = "pengeluaran"
)

// Fund ("sumber dana") values.
const (
	SumberKas   = "kas"
	SumberInfak = "infak_donasi"
)

// KategoriIuran is the category of every transaction derived from a
// validated dues payment.
const KategoriIuran = "Iuran Wajib"

// Transaction is one ledger entry, either manual income/expense or derived
// from a validated payment. When RefPayment is set, Tanggal, Tipe, Kategori
// and Jumlah are immutable and the row may only be deleted through the
// owning student's cascade.
type Transaction struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Tanggal    time.Time `gorm:"not null;index" json:"tanggal"`
	Tipe       string    `gorm:"size:16;not null" json:"tipe"`
	Kategori   string    `gorm:"size:128;not null" json:"kategori"`
	SumberDana string    `gorm:"size:32;not null" json:"sumber_dana"`
	Deskripsi  string    `gorm:"size:512" json:"deskripsi"`
	Jumlah     int64     `gorm:"not null" json:"jumlah"`
	RefPayment *string   `gorm:"size:36;index" json:"ref_payment"`
	NotaURL    *string   `gorm:"size:512" json:"nota_url"`
	CreatedBy  *string   `gorm:"size:64" json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Linked reports whether the transaction is tied to a payment record.
func (t *Transaction) Linked() bool {
	return t.RefPayment != nil && *t.RefPayment != ""
}
