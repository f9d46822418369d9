package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment status values.
const (
	StatusPending  = "pending"
	StatusValid    = "valid"
	StatusRejected = "rejected"
)

// Payment records one student's dues payment for one due-month.
// A valid payment has exactly one transaction whose RefPayment equals its ID;
// pending and rejected payments have none.
type Payment struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	StudentID    string    `gorm:"size:36;index;not null" json:"student_id"`
	PeriodeBulan time.Time `gorm:"not null" json:"periode_bulan"` // first day of the due month, UTC
	Tanggal      time.Time `gorm:"not null" json:"tanggal"`
	Jumlah       int64     `gorm:"not null" json:"jumlah"`
	Metode       string    `gorm:"size:128" json:"metode"`
	BuktiURL     string    `gorm:"size:512" json:"bukti_url"`
	Status       string    `gorm:"size:16;not null;default:'pending';index" json:"status"`
	VerifiedBy   *string   `gorm:"size:64" json:"verified_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
