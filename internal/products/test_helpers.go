package product

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// MustCreateTestProduct inserts a product with the given price and stock.
func MustCreateTestProduct(t testing.TB, db *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ProviderID:    uuid.New(),
		Name:          "Product " + uuid.NewString()[:8],
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
