package coupon

import (
	"errors"

	"github.com/google/uuid"
	"github.com/ryomiyashita/biyori/internal/models"
	"gorm.io/gorm"
)

// ErrLimitReached reports that a concurrent redemption consumed the last
// remaining use between validation and commit.
var ErrLimitReached = errors.New("coupon usage limit reached")

// Redeem records one redemption. It must run inside the caller's checkout
// transaction: the usage counter is incremented with a conditional UPDATE so
// two checkouts racing near the limit cannot both get through. Validation is
// read-only, so this is the only place the counter moves.
func Redeem(tx *gorm.DB, couponID uuid.UUID, customerID *uuid.UUID, transactionID uuid.UUID, discountAmount int) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", couponID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLimitReached
	}

	// Walk-in checkouts carry no customer identity; per-customer counting
	// only ever applies to identified customers.
	if customerID == nil {
		return nil
	}
	usage := models.CouponUsage{
		CouponID:       couponID,
		CustomerID:     *customerID,
		TransactionID:  transactionID,
		DiscountAmount: discountAmount,
	}
	return tx.Create(&usage).Error
}
