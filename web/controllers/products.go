package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hitechstore/web/db"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Products struct {
	DB *gorm.DB
}

var validCategories = map[string]bool{
	db.CategoryStreaming: true,
	db.CategoryGaming:    true,
	db.CategorySoftware:  true,
}

// List returns purchasable products, optionally filtered by category, text
// search and price bounds. Out-of-stock finite products never appear.
func (p *Products) List(c *gin.Context) {
	query := db.AvailableProducts(p.DB.Model(&db.Product{}))

	if category := c.Query("category"); category != "" {
		if !validCategories[category] {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Catégorie invalide"})
			return
		}
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if minPrice := c.Query("minPrice"); minPrice != "" {
		v, err := strconv.ParseFloat(minPrice, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Prix minimum invalide"})
			return
		}
		query = query.Where("base_price >= ?", v)
	}
	if maxPrice := c.Query("maxPrice"); maxPrice != "" {
		v, err := strconv.ParseFloat(maxPrice, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Prix maximum invalide"})
			return
		}
		query = query.Where("base_price <= ?", v)
	}

	var products []db.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la récupération des produits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "products": productListJSON(products)})
}

func (p *Products) Get(c *gin.Context) {
	var product db.Product
	if err := p.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Produit non trouvé"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": productJSON(&product)})
}

type productBody struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description" binding:"required"`
	Category       string   `json:"category" binding:"required"`
	BasePrice      float64  `json:"basePrice" binding:"required"`
	CommissionRate *float64 `json:"commissionRate"`
	Image          string   `json:"image" binding:"required"`
	IntlAmount     float64  `json:"internationalAmount"`
	IntlCurrency   string   `json:"internationalCurrency"`
	Provider       string   `json:"provider" binding:"required"`
	Duration       string   `json:"duration" binding:"required"`
	Features       []string `json:"features"`
	Available      *bool    `json:"available"`
	Stock          *int     `json:"stock"`
}

// Create is admin-only.
func (p *Products) Create(c *gin.Context) {
	var body productBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides ou manquants"})
		return
	}
	if !validCategories[body.Category] {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Catégorie invalide"})
		return
	}

	product := db.Product{
		Name:         body.Name,
		Description:  body.Description,
		Category:     body.Category,
		BasePrice:    body.BasePrice,
		Image:        body.Image,
		Currency:     "TND",
		IntlAmount:   body.IntlAmount,
		IntlCurrency: body.IntlCurrency,
		Provider:     body.Provider,
		Duration:     body.Duration,
		Available:    true,
		Stock:        -1,
	}
	product.CommissionRate = 15
	if body.CommissionRate != nil {
		product.CommissionRate = *body.CommissionRate
	}
	if body.Available != nil {
		product.Available = *body.Available
	}
	if body.Stock != nil {
		product.Stock = *body.Stock
	}
	if body.IntlCurrency == "" {
		product.IntlCurrency = "USD"
	}
	if features, err := featuresJSON(body.Features); err == nil {
		product.Features = features
	}

	if err := p.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la création du produit"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "product": productJSON(&product)})
}

// Update is admin-only; partial updates via the same body shape.
func (p *Products) Update(c *gin.Context) {
	var product db.Product
	if err := p.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Produit non trouvé"})
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides"})
		return
	}

	updates := map[string]any{}
	for from, to := range map[string]string{
		"name":        "name",
		"description": "description",
		"category":    "category",
		"basePrice":   "base_price",
		"image":       "image",
		"provider":    "provider",
		"duration":    "duration",
		"available":   "available",
		"stock":       "stock",
	} {
		if v, ok := body[from]; ok {
			updates[to] = v
		}
	}

	if err := p.DB.Model(&product).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la mise à jour du produit"})
		return
	}

	p.DB.First(&product, product.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "product": productJSON(&product)})
}

// Delete is admin-only; gorm soft-deletes so historical orders keep resolving.
func (p *Products) Delete(c *gin.Context) {
	res := p.DB.Delete(&db.Product{}, c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la suppression du produit"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Produit non trouvé"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Produit supprimé"})
}

func featuresJSON(features []string) (datatypes.JSON, error) {
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func productJSON(product *db.Product) gin.H {
	return gin.H{
		"id":          product.ID,
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
		"basePrice":   product.BasePrice,
		"finalPrice":  product.FinalPrice(),
		"image":       product.Image,
		"currency":    product.Currency,
		"internationalPrice": gin.H{
			"amount":   product.IntlAmount,
			"currency": product.IntlCurrency,
		},
		"provider":  product.Provider,
		"duration":  product.Duration,
		"features":  product.Features,
		"available": product.IsAvailable(),
		"stock":     product.Stock,
	}
}

func productListJSON(products []db.Product) []gin.H {
	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, productJSON(&products[i]))
	}
	return out
}
