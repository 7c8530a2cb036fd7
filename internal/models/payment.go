package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusExpired = "expired"
)

type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Amount     int       `gorm:"not null"`
	Status     string    `gorm:"not null;default:'pending'"`
	InvoiceID  string    `gorm:"not null;index"`
	InvoiceURL string
	BookingID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Booking    *Booking  `gorm:"foreignKey:BookingID"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Customer   *User     `gorm:"foreignKey:CustomerID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
