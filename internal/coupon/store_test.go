package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Category{},
		&models.Menu{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Booking{},
		&models.Transaction{},
		&models.TransactionItem{},
	); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, c *models.Coupon) *models.Coupon {
	if c.Name == "" {
		c.Name = "Test coupon"
	}
	if c.Type == "" {
		c.Type = models.CouponTypePercentage
		c.Value = 10
	}
	if c.ValidFrom.IsZero() {
		c.ValidFrom = time.Now().AddDate(0, -1, 0)
		c.ValidUntil = time.Now().AddDate(0, 1, 0)
	}
	c.IsActive = true
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to seed coupon: %v", err)
	}
	return c
}

func TestGormStoreFindByCode(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)

	category := models.Category{Name: "Color"}
	assert.NoError(t, db.Create(&category).Error)
	menu := models.Menu{Name: "Full color", Price: 8000, DurationMin: 90, IsActive: true}
	assert.NoError(t, db.Create(&menu).Error)

	seedCoupon(t, db, &models.Coupon{
		Code:                 "COLOR20",
		ApplicableMenus:      []models.Menu{menu},
		ApplicableCategories: []models.Category{category},
	})

	found, err := store.FindByCode(context.Background(), "COLOR20")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, "COLOR20", found.Code)
	assert.Len(t, found.ApplicableMenus, 1)
	assert.Len(t, found.ApplicableCategories, 1)

	missing, err := store.FindByCode(context.Background(), "NOPE")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormStoreCustomerUsageCount(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)

	seeded := seedCoupon(t, db, &models.Coupon{Code: "ONCE"})
	customerID := uuid.New()
	otherID := uuid.New()

	for i := 0; i < 2; i++ {
		usage := models.CouponUsage{
			CouponID:      seeded.ID,
			CustomerID:    customerID,
			TransactionID: uuid.New(),
		}
		assert.NoError(t, db.Create(&usage).Error)
	}

	count, err := store.CustomerUsageCount(context.Background(), seeded.ID, customerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = store.CustomerUsageCount(context.Background(), seeded.ID, otherID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGormStoreCompletedVisitCount(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)

	customerID := uuid.New()
	staffID := uuid.New()

	completed := models.Transaction{
		CustomerID: &customerID,
		StaffID:    staffID,
		Subtotal:   5000,
		Total:      5000,
		Status:     models.TransactionStatusCompleted,
	}
	assert.NoError(t, db.Create(&completed).Error)

	voided := models.Transaction{
		CustomerID: &customerID,
		StaffID:    staffID,
		Subtotal:   3000,
		Total:      3000,
		Status:     models.TransactionStatusVoided,
	}
	assert.NoError(t, db.Create(&voided).Error)

	count, err := store.CompletedVisitCount(context.Background(), customerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedeemIncrementsUsage(t *testing.T) {
	db := setupTestDB(t)

	limit := 2
	seeded := seedCoupon(t, db, &models.Coupon{Code: "LIMITED", UsageLimit: &limit})
	customerID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(tx, seeded.ID, &customerID, uuid.New(), 500)
	})
	assert.NoError(t, err)

	var reloaded models.Coupon
	assert.NoError(t, db.First(&reloaded, seeded.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)

	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("coupon_id = ?", seeded.ID).Count(&usageCount)
	assert.Equal(t, int64(1), usageCount)
}

func TestRedeemRefusesPastLimit(t *testing.T) {
	db := setupTestDB(t)

	limit := 1
	seeded := seedCoupon(t, db, &models.Coupon{Code: "LASTONE", UsageLimit: &limit})
	customerID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(tx, seeded.ID, &customerID, uuid.New(), 500)
	})
	assert.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return Redeem(tx, seeded.ID, &customerID, uuid.New(), 500)
	})
	assert.ErrorIs(t, err, ErrLimitReached)

	// The failed redemption must not leave a usage row behind.
	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("coupon_id = ?", seeded.ID).Count(&usageCount)
	assert.Equal(t, int64(1), usageCount)

	var reloaded models.Coupon
	assert.NoError(t, db.First(&reloaded, seeded.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)
}

func TestRedeemWalkInLeavesNoUsageRow(t *testing.T) {
	db := setupTestDB(t)

	seeded := seedCoupon(t, db, &models.Coupon{Code: "WALKIN"})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(tx, seeded.ID, nil, uuid.New(), 500)
	})
	assert.NoError(t, err)

	var reloaded models.Coupon
	assert.NoError(t, db.First(&reloaded, seeded.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)

	var usageCount int64
	db.Model(&models.CouponUsage{}).Count(&usageCount)
	assert.Equal(t, int64(0), usageCount)
}

func TestEvaluatorAgainstGormStore(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)

	seedCoupon(t, db, &models.Coupon{Code: "SUMMER10"})
	evaluator := NewEvaluator(store, store, nil)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "summer10", Subtotal: 5000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 500, result.Accepted.DiscountAmount)
}
