package coupon

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ryomiyashita/biyori/internal/models"
	"gorm.io/gorm"
)

// GormStore backs the evaluator with the application database. It satisfies
// both Store and VisitHistory.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var found models.Coupon
	err := s.db.WithContext(ctx).
		Preload("ApplicableMenus").
		Preload("ApplicableCategories").
		Where("code = ?", code).
		First(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (s *GormStore) CustomerUsageCount(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND customer_id = ?", couponID, customerID).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CompletedVisitCount(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("customer_id = ? AND status = ?", customerID, models.TransactionStatusCompleted).
		Count(&count).Error
	return count, err
}
