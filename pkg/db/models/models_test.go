package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

func TestBeforeCreateAssignsIDs(t *testing.T) {
	conn := dbtest.Open(t)

	product := models.Product{ProviderID: uuid.New(), Name: "Lamp", Price: decimal.RequireFromString("19.99"), StockQuantity: 3}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.ID == uuid.Nil {
		t.Fatal("expected product id to be assigned")
	}

	var loaded models.Product
	if err := conn.First(&loaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !loaded.Price.Equal(product.Price) {
		t.Fatalf("price mismatch: %s vs %s", loaded.Price, product.Price)
	}
	if loaded.DiscountPrice != nil {
		t.Fatalf("expected nil discount, got %s", loaded.DiscountPrice)
	}
}

func TestOrderSessionIDIsUnique(t *testing.T) {
	conn := dbtest.Open(t)

	newOrder := func() *models.Order {
		return &models.Order{
			UserID:            uuid.New(),
			ShippingAddressID: uuid.New(),
			BillingAddressID:  uuid.New(),
			TotalAmount:       decimal.NewFromInt(20),
			StripeSessionID:   "cs_test_dup",
			Items: []models.OrderItem{{
				ProductID:       uuid.New(),
				Quantity:        2,
				PriceAtPurchase: decimal.NewFromInt(10),
				Status:          enums.OrderItemStatusPending,
			}},
		}
	}

	first := newOrder()
	if err := conn.Create(first).Error; err != nil {
		t.Fatalf("create first order: %v", err)
	}
	if first.Items[0].OrderID != first.ID {
		t.Fatalf("expected item to reference order %s, got %s", first.ID, first.Items[0].OrderID)
	}

	err := conn.Create(newOrder()).Error
	if err == nil {
		t.Fatal("expected duplicate session id to fail")
	}
	if !db.IsUniqueViolation(err, "stripe_session_id") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
