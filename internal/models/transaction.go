package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusVoided    = "voided"
)

type Transaction struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;index"`
	Customer       *User      `gorm:"foreignKey:CustomerID"`
	StaffID        uuid.UUID  `gorm:"type:uuid;not null"`
	Staff          User       `gorm:"foreignKey:StaffID"`
	BookingID      *uuid.UUID `gorm:"type:uuid"`
	Booking        *Booking   `gorm:"foreignKey:BookingID"`
	CouponID       *uuid.UUID `gorm:"type:uuid"`
	Coupon         *Coupon    `gorm:"foreignKey:CouponID"`
	Subtotal       int        `gorm:"not null"`
	DiscountAmount int        `gorm:"not null;default:0"`
	Total          int        `gorm:"not null"`
	Status         string     `gorm:"not null;default:'completed';index"`
	Items          []TransactionItem
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	return
}

// TransactionItem snapshots the menu name and price at checkout time so later
// menu edits do not rewrite history.
type TransactionItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	MenuID        uuid.UUID `gorm:"type:uuid;not null"`
	Menu          Menu
	Name          string `gorm:"not null"`
	UnitPrice     int    `gorm:"not null"`
	Quantity      int    `gorm:"not null;default:1"`
	CreatedAt     time.Time
}

func (item *TransactionItem) BeforeCreate(tx *gorm.DB) (err error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return
}
