package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subscriber struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	Email          string    `gorm:"unique;not null"`
	UnsubscribedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (subscriber *Subscriber) BeforeCreate(tx *gorm.DB) (err error) {
	if subscriber.ID == uuid.Nil {
		subscriber.ID = uuid.New()
	}
	return
}
