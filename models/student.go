package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is a cohort member tracked for monthly dues.
type Student struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	NIM       string    `gorm:"size:32;not null;uniqueIndex" json:"nim"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Angkatan  string    `gorm:"size:64;not null" json:"angkatan"`
	CreatedAt time.Time `json:"created_at"`

	// Deleting a student cascades to their payments. Linked transactions only
	// soft-reference payments and must be removed by the command layer first.
	Payments []Payment `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
