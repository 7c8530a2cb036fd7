package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

func ListCustomers(c *gin.Context) {
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

	query := gormDB.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", models.RoleCustomer)
	if search := c.Query("q"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("users.name LIKE ? OR users.email LIKE ? OR users.phone_number LIKE ?", pattern, pattern, pattern)
	}

	var totalCount int64
	query.Count(&totalCount)

	var customers []models.User
	offset := (pageNum - 1) * limitNum
	err = query.Offset(offset).Limit(limitNum).Order("users.created_at DESC").Find(&customers).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving customers.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers":   customers,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetCustomer(c *gin.Context) {
	customerID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var customer models.User
	err := gormDB.Preload("Role").Preload("Bookings.Menu").
		Where("id = ?", customerID).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Customer not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving customer.")
		return
	}

	var visitCount int64
	gormDB.Model(&models.Transaction{}).
		Where("customer_id = ? AND status = ?", customer.ID, models.TransactionStatusCompleted).
		Count(&visitCount)

	var totalSpent int64
	gormDB.Model(&models.Transaction{}).
		Where("customer_id = ? AND status = ?", customer.ID, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(total), 0)").Scan(&totalSpent)

	c.JSON(http.StatusOK, gin.H{
		"customer":    customer,
		"visit_count": visitCount,
		"total_spent": totalSpent,
	})
}
