package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type dailySales struct {
	Day           string `json:"day"`
	Transactions  int64  `json:"transactions"`
	Sales         int64  `json:"sales"`
	DiscountTotal int64  `json:"discount_total"`
}

// SalesReport aggregates completed transactions over an inclusive date
// range. Defaults to the last 30 days.
func SalesReport(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	toLabel := to.Format("2006-01-02")

	if v := c.Query("from"); v != "" {
		parsed, err := helpers.ParseDate(v)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' date. Use YYYY-MM-DD.")
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := helpers.ParseDate(v)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' date. Use YYYY-MM-DD.")
			return
		}
		toLabel = parsed.Format("2006-01-02")
		to = parsed.AddDate(0, 0, 1)
	}

	var transactions []models.Transaction
	err := gormDB.
		Where("status = ? AND created_at >= ? AND created_at < ?", models.TransactionStatusCompleted, from, to).
		Order("created_at ASC").Find(&transactions).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error computing report.")
		return
	}

	var sales, discountTotal int64
	byDay := make(map[string]*dailySales)
	for _, tr := range transactions {
		sales += int64(tr.Total)
		discountTotal += int64(tr.DiscountAmount)

		day := tr.CreatedAt.Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &dailySales{Day: day}
			byDay[day] = bucket
		}
		bucket.Transactions++
		bucket.Sales += int64(tr.Total)
		bucket.DiscountTotal += int64(tr.DiscountAmount)
	}

	daily := make([]dailySales, 0, len(byDay))
	for _, bucket := range byDay {
		daily = append(daily, *bucket)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Day < daily[j].Day })

	c.JSON(http.StatusOK, gin.H{
		"from":           from.Format("2006-01-02"),
		"to":             toLabel,
		"transactions":   len(transactions),
		"sales":          sales,
		"discount_total": discountTotal,
		"daily":          daily,
	})
}
