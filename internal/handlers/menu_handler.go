package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryomiyashita/biyori/internal/helpers"
	"github.com/ryomiyashita/biyori/internal/models"
)

type MenuRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description *string     `json:"description"`
	Price       int         `json:"price" binding:"required,min=0"`
	DurationMin int         `json:"duration_min" binding:"required,min=1"`
	IsActive    *bool       `json:"is_active"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
}

func loadCategories(gormDB *gorm.DB, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []models.Category
	if err := gormDB.Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func CreateMenu(c *gin.Context) {
	var req MenuRequest
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

	categories, err := loadCategories(gormDB, req.CategoryIDs)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading categories.")
		return
	}

	menu := models.Menu{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		DurationMin: req.DurationMin,
		IsActive:    true,
		Categories:  categories,
	}
	if req.IsActive != nil {
		menu.IsActive = *req.IsActive
	}

	if err := gormDB.Create(&menu).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create menu.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Menu created successfully.",
		"menu_id": menu.ID,
	})
}

// ListMenus is the public catalog: active menus only, optionally filtered by
// category.
func ListMenus(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	query := gormDB.Model(&models.Menu{}).Where("is_active = ?", true)
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Joins("JOIN menu_categories ON menu_categories.menu_id = menus.id").
			Where("menu_categories.category_id = ?", categoryID)
	}

	var menus []models.Menu
	if err := query.Preload("Categories").Order("name ASC").Find(&menus).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving menus.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"menus": menus})
}

// ListAllMenus is the admin listing: paginated, inactive menus included.
func ListAllMenus(c *gin.Context) {
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

	query := gormDB.Model(&models.Menu{})
	var totalCount int64
	query.Count(&totalCount)

	var menus []models.Menu
	offset := (pageNum - 1) * limitNum
	err = query.Preload("Categories").Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&menus).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving menus.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"menus":       menus,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetMenu(c *gin.Context) {
	menuID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var menu models.Menu
	if err := gormDB.Preload("Categories").Where("id = ?", menuID).First(&menu).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Menu not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving menu.")
		return
	}

	c.JSON(http.StatusOK, menu)
}

func UpdateMenu(c *gin.Context) {
	menuID := c.Param("id")

	var req MenuRequest
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

	var menu models.Menu
	if err := gormDB.Where("id = ?", menuID).First(&menu).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Menu not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding menu.")
		return
	}

	menu.Name = req.Name
	menu.Description = req.Description
	menu.Price = req.Price
	menu.DurationMin = req.DurationMin
	if req.IsActive != nil {
		menu.IsActive = *req.IsActive
	}

	if req.CategoryIDs != nil {
		categories, err := loadCategories(gormDB, req.CategoryIDs)
		if err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading categories.")
			return
		}
		if err := gormDB.Model(&menu).Association("Categories").Replace(categories); err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update menu categories.")
			return
		}
	}

	if err := gormDB.Save(&menu).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update menu.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu updated successfully.",
		"menu":    menu,
	})
}

func UploadMenuImage(c *gin.Context) {
	menuID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var menu models.Menu
	if err := gormDB.Where("id = ?", menuID).First(&menu).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Menu not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding menu.")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Image file is required.")
		return
	}

	path, err := helpers.UploadFile(c, fileHeader, "menus")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if menu.ImagePath != nil {
		_ = helpers.DeleteFile(*menu.ImagePath)
	}

	menu.ImagePath = &path
	if err := gormDB.Save(&menu).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update menu image.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Menu image uploaded successfully.",
		"image_path": path,
	})
}

func DeleteMenu(c *gin.Context) {
	menuID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	result := gormDB.Where("id = ?", menuID).Delete(&models.Menu{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete menu.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Menu not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu deleted successfully.",
	})
}
