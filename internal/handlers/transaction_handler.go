package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/coupon"
	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type CheckoutItem struct {
	MenuID   uuid.UUID `json:"menu_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	CustomerID *uuid.UUID     `json:"customer_id"`
	BookingID  *uuid.UUID     `json:"booking_id"`
	Items      []CheckoutItem `json:"items" binding:"required,min=1,dive"`
	CouponCode string         `json:"coupon_code"`
}

// Checkout is the POS commit. The coupon is re-evaluated here rather than
// trusting an earlier validation call, and its usage counter only moves
// inside this database transaction.
func Checkout(c *gin.Context) {
	staffID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	staffUUID, ok := staffID.(uuid.UUID)
	if !ok {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format.")
		return
	}

	var req CheckoutRequest
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

	menuIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		menuIDs = append(menuIDs, item.MenuID)
	}

	var menus []models.Menu
	if err := gormDB.Preload("Categories").Where("id IN ?", menuIDs).Find(&menus).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving menus.")
		return
	}
	menusByID := make(map[uuid.UUID]models.Menu, len(menus))
	for _, m := range menus {
		menusByID[m.ID] = m
	}

	subtotal := 0
	categorySet := make(map[string]bool)
	items := make([]models.TransactionItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		menu, found := menusByID[reqItem.MenuID]
		if !found {
			helpers.RespondWithError(c, http.StatusBadRequest, "One or more menus were not found.")
			return
		}
		subtotal += menu.Price * reqItem.Quantity
		for _, cat := range menu.Categories {
			categorySet[cat.Name] = true
		}
		items = append(items, models.TransactionItem{
			ID:        uuid.New(),
			MenuID:    menu.ID,
			Name:      menu.Name,
			UnitPrice: menu.Price,
			Quantity:  reqItem.Quantity,
		})
	}
	categories := make([]string, 0, len(categorySet))
	for name := range categorySet {
		categories = append(categories, name)
	}

	discountAmount := 0
	var couponID *uuid.UUID
	if req.CouponCode != "" {
		store := coupon.NewGormStore(gormDB)
		evaluator := coupon.NewEvaluator(store, store, nil)

		result, err := evaluator.Evaluate(c.Request.Context(), coupon.Request{
			Code:       req.CouponCode,
			Subtotal:   subtotal,
			CustomerID: req.CustomerID,
			MenuIDs:    menuIDs,
			Categories: categories,
		})
		if err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error validating coupon.")
			return
		}
		if !result.Valid() {
			helpers.RespondWithError(c, http.StatusBadRequest, result.Rejected.Message)
			return
		}
		discountAmount = result.Accepted.DiscountAmount
		id := result.Accepted.Coupon.ID
		couponID = &id
	}

	transaction := models.Transaction{
		ID:             uuid.New(),
		CustomerID:     req.CustomerID,
		StaffID:        staffUUID,
		BookingID:      req.BookingID,
		CouponID:       couponID,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Total:          subtotal - discountAmount,
		Status:         models.TransactionStatusCompleted,
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if req.BookingID != nil {
			var booking models.Booking
			if err := tx.First(&booking, *req.BookingID).Error; err != nil {
				return err
			}
			booking.Status = models.BookingStatusAttended
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].TransactionID = transaction.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		if couponID != nil {
			return coupon.Redeem(tx, *couponID, req.CustomerID, transaction.ID, discountAmount)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, coupon.ErrLimitReached) {
			helpers.RespondWithError(c, http.StatusConflict, "This coupon has reached its usage limit.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to complete checkout.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         "Checkout completed successfully.",
		"transaction_id":  transaction.ID,
		"subtotal":        transaction.Subtotal,
		"discount_amount": transaction.DiscountAmount,
		"total":           transaction.Total,
	})
}

func ListTransactions(c *gin.Context) {
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

	query := gormDB.Model(&models.Transaction{})
	if date := c.Query("date"); date != "" {
		day, err := helpers.ParseDate(date)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date. Use YYYY-MM-DD.")
			return
		}
		query = query.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	var totalCount int64
	query.Count(&totalCount)

	var transactions []models.Transaction
	offset := (pageNum - 1) * limitNum
	err = query.Preload("Items").Preload("Customer").Preload("Coupon").
		Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&transactions).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving transactions.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        totalCount,
		"page":         pageNum,
		"limit":        limitNum,
		"total_pages":  (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetTransaction(c *gin.Context) {
	transactionID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var transaction models.Transaction
	err := gormDB.Preload("Items").Preload("Customer").Preload("Staff").Preload("Coupon").
		Where("id = ?", transactionID).First(&transaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Transaction not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving transaction.")
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// VoidTransaction marks a sale as voided. Coupon usage already consumed by
// the sale is intentionally left as-is; reissuing is an admin decision.
func VoidTransaction(c *gin.Context) {
	transactionID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var transaction models.Transaction
	if err := gormDB.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Transaction not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving transaction.")
		return
	}

	if transaction.Status == models.TransactionStatusVoided {
		helpers.RespondWithError(c, http.StatusBadRequest, "Transaction is already voided.")
		return
	}

	transaction.Status = models.TransactionStatusVoided
	if err := gormDB.Save(&transaction).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to void transaction.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction voided successfully."})
}
