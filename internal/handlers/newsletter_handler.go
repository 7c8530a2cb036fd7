package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type SubscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A valid email address is required.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var existing models.Subscriber
	if err := gormDB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		// Re-subscribing clears a previous unsubscribe.
		if existing.UnsubscribedAt != nil {
			existing.UnsubscribedAt = nil
			if err := gormDB.Save(&existing).Error; err != nil {
				helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to subscribe.")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Subscribed to the newsletter."})
		return
	}

	subscriber := models.Subscriber{
		ID:    uuid.New(),
		Email: req.Email,
	}
	if err := gormDB.Create(&subscriber).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to subscribe.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed to the newsletter."})
}

func Unsubscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A valid email address is required.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var subscriber models.Subscriber
	if err := gormDB.Where("email = ?", req.Email).First(&subscriber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Subscriber not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving subscriber.")
		return
	}

	now := time.Now()
	subscriber.UnsubscribedAt = &now
	if err := gormDB.Save(&subscriber).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to unsubscribe.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed from the newsletter."})
}

func ListSubscribers(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	query := gormDB.Model(&models.Subscriber{})
	if c.DefaultQuery("active", "true") == "true" {
		query = query.Where("unsubscribed_at IS NULL")
	}

	var subscribers []models.Subscriber
	if err := query.Order("created_at DESC").Find(&subscribers).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving subscribers.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribers": subscribers})
}
