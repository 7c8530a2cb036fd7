package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xendit/xendit-go/v6/invoice"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/middleware"
	"github.com/ryomiyashita/biyori/internal/models"
)

type BookingPaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// CreateBookingPayment issues a Xendit invoice for a booking deposit and
// returns the hosted payment URL.
func CreateBookingPayment(c *gin.Context) {
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

	var req BookingPaymentRequest
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

	xenditClient := middleware.GetXenditClient(c)
	if xenditClient == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment client not configured.")
		return
	}

	var booking models.Booking
	if err := gormDB.Preload("Menu").Where("id = ? AND customer_id = ?", req.BookingID, userUUID).First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving booking.")
		return
	}

	if booking.Status == models.BookingStatusCancelled {
		helpers.RespondWithError(c, http.StatusBadRequest, "This booking has been cancelled.")
		return
	}

	var existing models.Payment
	if result := gormDB.Where("booking_id = ? AND status = ?", booking.ID, models.PaymentStatusPending).First(&existing); result.Error == nil {
		c.JSON(http.StatusOK, gin.H{
			"message":     "A pending invoice already exists for this booking.",
			"payment_id":  existing.ID,
			"invoice_url": existing.InvoiceURL,
		})
		return
	}

	var user models.User
	if err := gormDB.First(&user, userUUID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	externalID := fmt.Sprintf("booking-%s-%d", booking.ID.String(), time.Now().Unix())
	createReq := *invoice.NewCreateInvoiceRequest(externalID, float64(booking.Menu.Price))
	createReq.SetDescription(fmt.Sprintf("Booking deposit: %s", booking.Menu.Name))
	createReq.SetPayerEmail(user.Email)
	createReq.SetCurrency("IDR")

	inv, _, errSdk := xenditClient.InvoiceApi.CreateInvoice(c.Request.Context()).
		CreateInvoiceRequest(createReq).
		Execute()
	if errSdk != nil {
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to create payment invoice.")
		return
	}

	payment := models.Payment{
		ID:         uuid.New(),
		Amount:     booking.Menu.Price,
		Status:     models.PaymentStatusPending,
		InvoiceID:  inv.GetId(),
		InvoiceURL: inv.GetInvoiceUrl(),
		BookingID:  booking.ID,
		CustomerID: userUUID,
	}
	if err := gormDB.Create(&payment).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to record payment.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Payment invoice created successfully.",
		"payment_id":  payment.ID,
		"invoice_url": payment.InvoiceURL,
	})
}

type invoiceCallback struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// XenditCallback handles invoice status webhooks. The callback token header
// is checked against XENDIT_CALLBACK_TOKEN before anything is trusted.
func XenditCallback(c *gin.Context) {
	token := os.Getenv("XENDIT_CALLBACK_TOKEN")
	if token == "" || c.GetHeader("x-callback-token") != token {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid callback token.")
		return
	}

	var payload invoiceCallback
	if err := c.ShouldBindJSON(&payload); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid callback payload.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var payment models.Payment
	if err := gormDB.Where("invoice_id = ?", payload.ID).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving payment.")
		return
	}

	switch payload.Status {
	case "PAID", "SETTLED":
		payment.Status = models.PaymentStatusPaid
	case "EXPIRED":
		payment.Status = models.PaymentStatusExpired
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Callback ignored."})
		return
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		// A paid deposit confirms the booking automatically.
		if payment.Status == models.PaymentStatusPaid {
			return tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", payment.BookingID, models.BookingStatusPending).
				Update("status", models.BookingStatusConfirmed).Error
		}
		return nil
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update payment.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback processed."})
}
