package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Menu struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"not null"`
	Description *string
	Price       int `gorm:"not null"`
	DurationMin int `gorm:"not null;default:30"`
	ImagePath   *string
	IsActive    bool       `gorm:"not null;default:true"`
	Categories  []Category `gorm:"many2many:menu_categories;"`
}

func (menu *Menu) BeforeCreate(tx *gorm.DB) (err error) {
	if menu.ID == uuid.Nil {
		menu.ID = uuid.New()
	}
	return
}
