package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hitechstore/web/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func productsRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	products := &Products{DB: conn}
	r := gin.New()
	r.GET("/api/products", products.List)
	r.GET("/api/products/:id", products.Get)
	return r
}

func seedCatalog(t *testing.T, conn *gorm.DB) {
	t.Helper()
	entries := []db.Product{
		{Name: "Netflix Premium", Description: "4K streaming", Category: db.CategoryStreaming,
			BasePrice: 45, Provider: "Netflix", Duration: "1_month", Available: true, Stock: -1},
		{Name: "Spotify Premium", Description: "Ad-free music", Category: db.CategoryStreaming,
			BasePrice: 25, Provider: "Spotify", Duration: "1_month", Available: true, Stock: 0},
		{Name: "PlayStation Plus", Description: "Online gaming", Category: db.CategoryGaming,
			BasePrice: 85, Provider: "PlayStation", Duration: "3_months", Available: true, Stock: 5},
		{Name: "Microsoft 365", Description: "Office suite", Category: db.CategorySoftware,
			BasePrice: 220, Provider: "Microsoft", Duration: "12_months", Available: false, Stock: -1},
	}
	for i := range entries {
		if err := conn.Create(&entries[i]).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func listProducts(t *testing.T, r *gin.Engine, path string) []map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status = %d, body = %s", path, w.Code, w.Body.String())
	}
	var resp struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Products
}

func names(products []map[string]any) map[string]bool {
	out := make(map[string]bool, len(products))
	for _, p := range products {
		out[p["name"].(string)] = true
	}
	return out
}

func TestListExcludesOutOfStockAndUnavailable(t *testing.T) {
	conn := testDB(t)
	seedCatalog(t, conn)
	r := productsRouter(conn)

	got := names(listProducts(t, r, "/api/products"))

	if !got["Netflix Premium"] {
		t.Error("unlimited-stock product missing")
	}
	if got["Spotify Premium"] {
		t.Error("stock=0 product must be excluded even when available=true")
	}
	if !got["PlayStation Plus"] {
		t.Error("finite in-stock product missing")
	}
	if got["Microsoft 365"] {
		t.Error("available=false product must be excluded")
	}
}

func TestListCategoryFilter(t *testing.T) {
	conn := testDB(t)
	seedCatalog(t, conn)
	r := productsRouter(conn)

	got := names(listProducts(t, r, "/api/products?category=streaming"))
	if len(got) != 1 || !got["Netflix Premium"] {
		t.Errorf("streaming category = %v, want only Netflix Premium", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/products?category=toys", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid category: status = %d, want 400", w.Code)
	}
}

func TestListSearchAndPriceBounds(t *testing.T) {
	conn := testDB(t)
	seedCatalog(t, conn)
	r := productsRouter(conn)

	got := names(listProducts(t, r, "/api/products?search=streaming"))
	if !got["Netflix Premium"] {
		t.Errorf("description search = %v, want Netflix Premium", got)
	}

	got = names(listProducts(t, r, "/api/products?minPrice=50"))
	if got["Netflix Premium"] || !got["PlayStation Plus"] {
		t.Errorf("minPrice=50 = %v", got)
	}

	got = names(listProducts(t, r, "/api/products?maxPrice=50"))
	if !got["Netflix Premium"] || got["PlayStation Plus"] {
		t.Errorf("maxPrice=50 = %v", got)
	}
}

func TestGetProduct(t *testing.T) {
	conn := testDB(t)
	r := productsRouter(conn)

	product := db.Product{Name: "Netflix Premium", Description: "4K", Category: db.CategoryStreaming,
		BasePrice: 45, CommissionRate: 15, Provider: "Netflix", Duration: "1_month", Available: true, Stock: -1}
	conn.Create(&product)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/products/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Product map[string]any `json:"product"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Product["finalPrice"].(float64) != 51.75 {
		t.Errorf("finalPrice = %v, want 51.75 (45 + 15%%)", resp.Product["finalPrice"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/products/999", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing product: status = %d, want 404", w.Code)
	}
}
