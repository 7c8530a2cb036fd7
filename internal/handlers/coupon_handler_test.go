package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/middleware"
	"github.com/ryomiyashita/biyori/internal/models"
)

func setupHandlerTest(t *testing.T) (*gorm.DB, *gin.Engine, uuid.UUID) {
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

	staffID := uuid.New()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(func(c *gin.Context) {
		c.Set("user_id", staffID)
		c.Set("role", models.RoleStaff)
		c.Next()
	})
	r.POST("/validate", ValidateCouponPOS)
	r.POST("/checkout", Checkout)

	return db, r, staffID
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
		}
	}
	return w, parsed
}

func createTestCoupon(t *testing.T, db *gorm.DB, code string, mutate func(*models.Coupon)) *models.Coupon {
	c := &models.Coupon{
		Code:       code,
		Name:       "Test coupon",
		Type:       models.CouponTypePercentage,
		Value:      10,
		ValidFrom:  time.Now().AddDate(0, -1, 0),
		ValidUntil: time.Now().AddDate(0, 1, 0),
		IsActive:   true,
	}
	if mutate != nil {
		mutate(c)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create coupon: %v", err)
	}
	return c
}

func TestValidateCouponPOSSuccess(t *testing.T) {
	db, r, _ := setupHandlerTest(t)
	createTestCoupon(t, db, "SUMMER10", nil)

	w, body := postJSON(t, r, "/validate", gin.H{"code": "summer10", "subtotal": 5000})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(500), body["discount_amount"])
	assert.Equal(t, "10% OFF: ¥500 discount", body["message"])
}

func TestValidateCouponPOSRejectionIsA200(t *testing.T) {
	db, r, _ := setupHandlerTest(t)
	createTestCoupon(t, db, "OLD", func(c *models.Coupon) {
		c.ValidUntil = time.Now().AddDate(0, 0, -1)
	})

	w, body := postJSON(t, r, "/validate", gin.H{"code": "OLD", "subtotal": 5000})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "This coupon has expired.", body["error"])

	w, body = postJSON(t, r, "/validate", gin.H{"code": "MISSING", "subtotal": 5000})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Coupon not found.", body["error"])
}

func TestCheckoutAppliesAndRedeemsCoupon(t *testing.T) {
	db, r, _ := setupHandlerTest(t)

	menu := models.Menu{Name: "Cut", Price: 5000, DurationMin: 60, IsActive: true}
	assert.NoError(t, db.Create(&menu).Error)

	limit := 1
	created := createTestCoupon(t, db, "SUMMER10", func(c *models.Coupon) {
		c.UsageLimit = &limit
	})

	customerID := uuid.New()
	w, body := postJSON(t, r, "/checkout", gin.H{
		"customer_id": customerID,
		"items":       []gin.H{{"menu_id": menu.ID, "quantity": 1}},
		"coupon_code": "SUMMER10",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(5000), body["subtotal"])
	assert.Equal(t, float64(500), body["discount_amount"])
	assert.Equal(t, float64(4500), body["total"])

	var reloaded models.Coupon
	assert.NoError(t, db.First(&reloaded, created.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)

	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("coupon_id = ? AND customer_id = ?", created.ID, customerID).Count(&usageCount)
	assert.Equal(t, int64(1), usageCount)

	// The limit is consumed, so a second checkout is refused up front.
	w, _ = postJSON(t, r, "/checkout", gin.H{
		"customer_id": customerID,
		"items":       []gin.H{{"menu_id": menu.ID, "quantity": 1}},
		"coupon_code": "SUMMER10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutWithoutCoupon(t *testing.T) {
	db, r, _ := setupHandlerTest(t)

	menu := models.Menu{Name: "Perm", Price: 9000, DurationMin: 120, IsActive: true}
	assert.NoError(t, db.Create(&menu).Error)

	w, body := postJSON(t, r, "/checkout", gin.H{
		"items": []gin.H{{"menu_id": menu.ID, "quantity": 2}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(18000), body["subtotal"])
	assert.Equal(t, float64(0), body["discount_amount"])
	assert.Equal(t, float64(18000), body["total"])

	var count int64
	db.Model(&models.TransactionItem{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCheckoutRespectsMenuRestriction(t *testing.T) {
	db, r, _ := setupHandlerTest(t)

	cut := models.Menu{Name: "Cut", Price: 5000, DurationMin: 60, IsActive: true}
	assert.NoError(t, db.Create(&cut).Error)
	perm := models.Menu{Name: "Perm", Price: 9000, DurationMin: 120, IsActive: true}
	assert.NoError(t, db.Create(&perm).Error)

	createTestCoupon(t, db, "CUTONLY", func(c *models.Coupon) {
		c.ApplicableMenus = []models.Menu{cut}
	})

	w, body := postJSON(t, r, "/checkout", gin.H{
		"items":       []gin.H{{"menu_id": perm.ID, "quantity": 1}},
		"coupon_code": "CUTONLY",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This coupon does not apply to the selected menus.", body["message"])

	w, body = postJSON(t, r, "/checkout", gin.H{
		"items":       []gin.H{{"menu_id": cut.ID, "quantity": 1}},
		"coupon_code": "CUTONLY",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(500), body["discount_amount"])
}
