package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type BookingRequest struct {
	MenuID   uuid.UUID `json:"menu_id" binding:"required"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	Note     *string   `json:"note"`
}

type BookingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed attended cancelled"`
}

func CreateBooking(c *gin.Context) {
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

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.StartsAt.Before(time.Now()) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Booking time must be in the future.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var menu models.Menu
	if err := gormDB.Where("id = ? AND is_active = ?", req.MenuID, true).First(&menu).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Menu not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving menu.")
		return
	}

	booking := models.Booking{
		ID:         uuid.New(),
		CustomerID: userUUID,
		MenuID:     menu.ID,
		StartsAt:   req.StartsAt,
		Status:     models.BookingStatusPending,
		Note:       req.Note,
	}

	if err := gormDB.Create(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create booking.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Booking created successfully.",
		"booking_id": booking.ID,
	})
}

func ListMyBookings(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var bookings []models.Booking
	err := gormDB.Preload("Menu").Where("customer_id = ?", userID).
		Order("starts_at DESC").Find(&bookings).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving bookings.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func CancelBooking(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	bookingID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var booking models.Booking
	if err := gormDB.Where("id = ? AND customer_id = ?", bookingID, userID).First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving booking.")
		return
	}

	if booking.Status == models.BookingStatusAttended {
		helpers.RespondWithError(c, http.StatusBadRequest, "An attended booking cannot be cancelled.")
		return
	}

	booking.Status = models.BookingStatusCancelled
	if err := gormDB.Save(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel booking.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully."})
}

// ListBookings is the admin calendar: filterable by status and day.
func ListBookings(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	query := gormDB.Model(&models.Booking{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := c.Query("date"); date != "" {
		day, err := helpers.ParseDate(date)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date. Use YYYY-MM-DD.")
			return
		}
		query = query.Where("starts_at >= ? AND starts_at < ?", day, day.AddDate(0, 0, 1))
	}

	var bookings []models.Booking
	err := query.Preload("Menu").Preload("Customer").Order("starts_at ASC").Find(&bookings).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving bookings.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func UpdateBookingStatus(c *gin.Context) {
	bookingID := c.Param("id")

	var req BookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid status.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var booking models.Booking
	if err := gormDB.Where("id = ?", bookingID).First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving booking.")
		return
	}

	booking.Status = req.Status
	if err := gormDB.Save(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update booking.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking updated successfully.",
		"booking": booking,
	})
}

func bookingQRData(booking *models.Booking) string {
	signature := bookingSignature(booking.ID, booking.CustomerID, os.Getenv("JWT_SECRET"))
	return fmt.Sprintf("booking:%s;menu:%s;signature:%s",
		booking.ID.String(),
		booking.MenuID.String(),
		signature,
	)
}

func bookingSignature(bookingID, customerID uuid.UUID, secretKey string) string {
	data := fmt.Sprintf("%s:%s", bookingID.String(), customerID.String())
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func validateBookingQRData(booking *models.Booking, qrData string) bool {
	parts := strings.Split(qrData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "signature:") {
		return false
	}
	signature := strings.TrimPrefix(parts[2], "signature:")
	expected := bookingSignature(booking.ID, booking.CustomerID, os.Getenv("JWT_SECRET"))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateBookingQR renders the check-in QR a customer shows at the front
// desk. Only the booking's owner can generate it.
func GenerateBookingQR(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var booking models.Booking
	if err := gormDB.First(&booking, bookingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return
	}

	if booking.CustomerID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to generate a QR code for this booking.")
		return
	}

	if booking.Status == models.BookingStatusCancelled {
		helpers.RespondWithError(c, http.StatusBadRequest, "This booking has been cancelled.")
		return
	}
	if booking.Status == models.BookingStatusAttended {
		helpers.RespondWithError(c, http.StatusBadRequest, "This booking has already been checked in.")
		return
	}

	qrImage, err := qrcode.Encode(bookingQRData(&booking), qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// CheckInBooking is scanned at the front desk: staff post the QR payload and
// the booking flips to attended.
func CheckInBooking(c *gin.Context) {
	var req struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "QR data is required.")
		return
	}

	parts := strings.Split(req.QRData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "booking:") {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid QR data format.")
		return
	}
	bookingID, err := uuid.Parse(strings.TrimPrefix(parts[0], "booking:"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid QR data format.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var booking models.Booking
	if err := gormDB.Preload("Menu").Preload("Customer").First(&booking, bookingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return
	}

	if !validateBookingQRData(&booking, req.QRData) {
		helpers.RespondWithError(c, http.StatusBadRequest, "QR signature does not match.")
		return
	}

	if booking.Status == models.BookingStatusAttended {
		helpers.RespondWithError(c, http.StatusBadRequest, "This booking has already been checked in.")
		return
	}
	if booking.Status == models.BookingStatusCancelled {
		helpers.RespondWithError(c, http.StatusBadRequest, "This booking has been cancelled.")
		return
	}

	booking.Status = models.BookingStatusAttended
	if err := gormDB.Save(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to check in booking.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking checked in successfully.",
		"booking": booking,
	})
}
