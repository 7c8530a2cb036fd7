package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CouponTypePercentage = "PERCENTAGE"
	CouponTypeFixed      = "FIXED"
)

type Coupon struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Code        string    `gorm:"unique;not null"`
	Name        string    `gorm:"not null"`
	Description *string
	Type        string    `gorm:"not null"`
	Value       int       `gorm:"not null"`
	ValidFrom   time.Time `gorm:"not null"`
	ValidUntil  time.Time `gorm:"not null"`

	UsageLimit            *int
	UsageCount            int `gorm:"not null;default:0"`
	UsageLimitPerCustomer *int
	MinimumAmount         *int

	ApplicableMenus      []Menu     `gorm:"many2many:coupon_menus;"`
	ApplicableCategories []Category `gorm:"many2many:coupon_categories;"`

	// Comma-joined weekday integers, 0=Sunday..6=Saturday. Empty means no restriction.
	ApplicableWeekdays string

	// Daily time window, "HH:MM". Both must be set for the window to apply.
	StartTime *string
	EndTime   *string

	OnlyFirstTime bool `gorm:"not null;default:false"`
	OnlyReturning bool `gorm:"not null;default:false"`
	IsActive      bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (coupon *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return
}

// WeekdayList parses ApplicableWeekdays. Malformed entries are skipped.
func (coupon *Coupon) WeekdayList() []int {
	if coupon.ApplicableWeekdays == "" {
		return nil
	}
	parts := strings.Split(coupon.ApplicableWeekdays, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 || d > 6 {
			continue
		}
		days = append(days, d)
	}
	return days
}

func JoinWeekdays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

type CouponUsage struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	CouponID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TransactionID  uuid.UUID `gorm:"type:uuid;not null;index"`
	DiscountAmount int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (CouponUsage) TableName() string {
	return "coupon_usages"
}

func (usage *CouponUsage) BeforeCreate(tx *gorm.DB) (err error) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return
}
