package models

import "time"

// User holds the single shared admin credential. There is one cohort and
// one admin account, seeded at startup from the environment.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string `gorm:"size:255;not null;unique"`
	HashedPassword []byte `gorm:"not null"`
}
