package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusAttended  = "attended"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	gorm.Model
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Customer   User      `gorm:"foreignKey:CustomerID"`
	MenuID     uuid.UUID `gorm:"type:uuid;not null"`
	Menu       Menu
	StartsAt   time.Time `gorm:"not null;index"`
	Status     string    `gorm:"not null;default:'pending'"`
	Note       *string
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}
