package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/coupon"
	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type CouponRequest struct {
	Code                  string      `json:"code" binding:"required"`
	Name                  string      `json:"name" binding:"required"`
	Description           *string     `json:"description"`
	Type                  string      `json:"type" binding:"required,oneof=PERCENTAGE FIXED"`
	Value                 int         `json:"value" binding:"required,min=1"`
	ValidFrom             time.Time   `json:"valid_from" binding:"required"`
	ValidUntil            time.Time   `json:"valid_until" binding:"required"`
	UsageLimit            *int        `json:"usage_limit" binding:"omitempty,min=0"`
	UsageLimitPerCustomer *int        `json:"usage_limit_per_customer" binding:"omitempty,min=1"`
	MinimumAmount         *int        `json:"minimum_amount" binding:"omitempty,min=0"`
	MenuIDs               []uuid.UUID `json:"menu_ids"`
	CategoryIDs           []uuid.UUID `json:"category_ids"`
	Weekdays              []int       `json:"weekdays" binding:"omitempty,dive,min=0,max=6"`
	StartTime             *string     `json:"start_time"`
	EndTime               *string     `json:"end_time"`
	OnlyFirstTime         bool        `json:"only_first_time"`
	OnlyReturning         bool        `json:"only_returning"`
	IsActive              *bool       `json:"is_active"`
}

func (req *CouponRequest) validate() string {
	if req.Type == models.CouponTypePercentage && req.Value > 100 {
		return "Percentage value cannot exceed 100."
	}
	if !req.ValidFrom.Before(req.ValidUntil) {
		return "Valid-from must be before valid-until."
	}
	if req.OnlyFirstTime && req.OnlyReturning {
		return "A coupon cannot target both first-time and returning customers."
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return "Start time and end time must be set together."
	}
	if req.StartTime != nil {
		if !helpers.IsValidTimeOfDay(*req.StartTime) || !helpers.IsValidTimeOfDay(*req.EndTime) {
			return "Time window must use the HH:MM format."
		}
		if *req.EndTime < *req.StartTime {
			return "End time cannot be before start time."
		}
	}
	return ""
}

func CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if msg := req.validate(); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	code := strings.ToUpper(strings.TrimSpace(req.Code))

	var existing models.Coupon
	if result := gormDB.Where("code = ?", code).First(&existing); result.Error == nil {
		helpers.RespondWithError(c, http.StatusConflict, "A coupon with this code already exists.")
		return
	}

	menus, err := loadMenus(gormDB, req.MenuIDs)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading menus.")
		return
	}
	categories, err := loadCategories(gormDB, req.CategoryIDs)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading categories.")
		return
	}

	newCoupon := models.Coupon{
		ID:                    uuid.New(),
		Code:                  code,
		Name:                  req.Name,
		Description:           req.Description,
		Type:                  req.Type,
		Value:                 req.Value,
		ValidFrom:             req.ValidFrom,
		ValidUntil:            req.ValidUntil,
		UsageLimit:            req.UsageLimit,
		UsageLimitPerCustomer: req.UsageLimitPerCustomer,
		MinimumAmount:         req.MinimumAmount,
		ApplicableMenus:       menus,
		ApplicableCategories:  categories,
		ApplicableWeekdays:    models.JoinWeekdays(req.Weekdays),
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		OnlyFirstTime:         req.OnlyFirstTime,
		OnlyReturning:         req.OnlyReturning,
		IsActive:              true,
	}
	if req.IsActive != nil {
		newCoupon.IsActive = *req.IsActive
	}

	if err := gormDB.Create(&newCoupon).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create coupon.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Coupon created successfully.",
		"coupon_id": newCoupon.ID,
	})
}

func loadMenus(gormDB *gorm.DB, ids []uuid.UUID) ([]models.Menu, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var menus []models.Menu
	if err := gormDB.Where("id IN ?", ids).Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

func ListCoupons(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	query := gormDB.Model(&models.Coupon{})
	var totalCount int64
	query.Count(&totalCount)

	var coupons []models.Coupon
	offset := (pageNum - 1) * limitNum
	err = query.Preload("ApplicableMenus").Preload("ApplicableCategories").
		Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&coupons).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving coupons.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons":     coupons,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetCoupon(c *gin.Context) {
	couponID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var found models.Coupon
	err := gormDB.Preload("ApplicableMenus").Preload("ApplicableCategories").
		Where("id = ?", couponID).First(&found).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Coupon not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving coupon.")
		return
	}

	c.JSON(http.StatusOK, found)
}

func UpdateCoupon(c *gin.Context) {
	couponID := c.Param("id")

	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if msg := req.validate(); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var existing models.Coupon
	if err := gormDB.Where("id = ?", couponID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Coupon not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding coupon.")
		return
	}

	existing.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	existing.Name = req.Name
	existing.Description = req.Description
	existing.Type = req.Type
	existing.Value = req.Value
	existing.ValidFrom = req.ValidFrom
	existing.ValidUntil = req.ValidUntil
	existing.UsageLimit = req.UsageLimit
	existing.UsageLimitPerCustomer = req.UsageLimitPerCustomer
	existing.MinimumAmount = req.MinimumAmount
	existing.ApplicableWeekdays = models.JoinWeekdays(req.Weekdays)
	existing.StartTime = req.StartTime
	existing.EndTime = req.EndTime
	existing.OnlyFirstTime = req.OnlyFirstTime
	existing.OnlyReturning = req.OnlyReturning
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	menus, err := loadMenus(gormDB, req.MenuIDs)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading menus.")
		return
	}
	if err := gormDB.Model(&existing).Association("ApplicableMenus").Replace(menus); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update coupon menus.")
		return
	}

	categories, err := loadCategories(gormDB, req.CategoryIDs)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading categories.")
		return
	}
	if err := gormDB.Model(&existing).Association("ApplicableCategories").Replace(categories); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update coupon categories.")
		return
	}

	if err := gormDB.Save(&existing).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update coupon.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully.",
		"coupon":  existing,
	})
}

func DeleteCoupon(c *gin.Context) {
	couponID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	result := gormDB.Where("id = ?", couponID).Delete(&models.Coupon{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete coupon.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Coupon not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon deleted successfully.",
	})
}

type POSValidateRequest struct {
	Code       string     `json:"code" binding:"required"`
	Subtotal   int        `json:"subtotal" binding:"min=0"`
	CustomerID *uuid.UUID `json:"customer_id"`
}

type CartValidateRequest struct {
	Code       string      `json:"code" binding:"required"`
	Subtotal   int         `json:"subtotal" binding:"min=0"`
	MenuIDs    []uuid.UUID `json:"menu_ids"`
	Categories []string    `json:"categories"`
	Weekday    *int        `json:"weekday" binding:"omitempty,min=0,max=6"`
	Time       string      `json:"time"`
}

// respondValidation writes the shared response shape of both validation
// endpoints. Business rejections are 200s with valid=false; only
// infrastructure failures become 5xx.
func respondValidation(c *gin.Context, result coupon.Result) {
	if !result.Valid() {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": result.Rejected.Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"coupon":          result.Accepted.Coupon,
		"discount_amount": result.Accepted.DiscountAmount,
		"message":         result.Accepted.Message,
	})
}

// ValidateCouponPOS is the back-office validation surface. The POS may check
// a code before the cart exists, so only code and subtotal are mandatory and
// the item restrictions are skipped.
func ValidateCouponPOS(c *gin.Context) {
	var req POSValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	store := coupon.NewGormStore(gormDB)
	evaluator := coupon.NewEvaluator(store, store, nil)

	result, err := evaluator.Evaluate(c.Request.Context(), coupon.Request{
		Code:       req.Code,
		Subtotal:   req.Subtotal,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error validating coupon.")
		return
	}

	respondValidation(c, result)
}

// ValidateCouponCart is the customer-facing surface: identity comes from the
// session token and the cart contents are always supplied.
func ValidateCouponCart(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format.")
		return
	}

	var req CartValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if req.Time != "" && !helpers.IsValidTimeOfDay(req.Time) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Time must use the HH:MM format.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	store := coupon.NewGormStore(gormDB)
	evaluator := coupon.NewEvaluator(store, store, nil)

	result, err := evaluator.Evaluate(c.Request.Context(), coupon.Request{
		Code:       req.Code,
		Subtotal:   req.Subtotal,
		CustomerID: &userUUID,
		MenuIDs:    req.MenuIDs,
		Categories: req.Categories,
		Weekday:    req.Weekday,
		TimeOfDay:  req.Time,
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error validating coupon.")
		return
	}

	respondValidation(c, result)
}
