package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

type fixture struct {
	conn     *gorm.DB
	svc      Service
	products product.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	products := product.NewRepository(conn)
	svc, err := NewService(
		NewRepository(conn),
		products,
		db.NewFromConn(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		nil,
		logg,
	)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, products: products}
}

func (f *fixture) seedOrder(t *testing.T, buyer uuid.UUID, p *models.Product, qty int) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:            buyer,
		ShippingAddressID: uuid.New(),
		BillingAddressID:  uuid.New(),
		TotalAmount:       p.Price.Mul(decimal.NewFromInt(int64(qty))),
		StripeSessionID:   "cs_test_" + uuid.NewString(),
		Items: []models.OrderItem{{
			ProductID:       p.ID,
			Quantity:        qty,
			PriceAtPurchase: p.Price,
			Status:          enums.OrderItemStatusPending,
		}},
	}
	require.NoError(t, NewRepository(f.conn).CreateOrder(context.Background(), order))
	return order
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestProviderTransitionsOwnItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "10.00", 5)
	order := f.seedOrder(t, uuid.New(), p, 2)
	provider := Actor{UserID: p.ProviderID, Role: enums.UserRoleProvider}

	res, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: order.Items[0].ID, Actor: provider, Status: "Shipped"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, enums.OrderItemStatusPending, res.From)
	assert.Equal(t, enums.OrderItemStatusShipped, res.To)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderItemStatusChanged))

	res, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: order.Items[0].ID, Actor: provider, Status: "Shipped"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderItemStatusChanged))
}

func TestProviderCannotSeeOtherProvidersItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "10.00", 5)
	order := f.seedOrder(t, uuid.New(), p, 1)
	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleProvider}

	_, foreignErr := f.svc.Transition(ctx, TransitionInput{OrderItemID: order.Items[0].ID, Actor: stranger, Status: "Processing"})
	_, missingErr := f.svc.Transition(ctx, TransitionInput{OrderItemID: uuid.New(), Actor: stranger, Status: "Processing"})

	require.Error(t, foreignErr)
	require.Error(t, missingErr)
	assert.Equal(t, pkgerrors.As(missingErr).Code(), pkgerrors.As(foreignErr).Code())
	assert.Equal(t, pkgerrors.As(missingErr).Message(), pkgerrors.As(foreignErr).Message())
	assert.True(t, pkgerrors.IsCode(foreignErr, pkgerrors.CodeNotFound))
}

func TestProviderCannotMoveBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "10.00", 5)
	order := f.seedOrder(t, uuid.New(), p, 1)
	provider := Actor{UserID: p.ProviderID, Role: enums.UserRoleProvider}
	itemID := order.Items[0].ID

	_, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: provider, Status: "Shipped"})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: provider, Status: "Processing"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	res, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: admin, Status: "Processing"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestCancellationRestocksAndAdminRevivalReclaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "4.00", 1)
	order := f.seedOrder(t, uuid.New(), p, 3)
	itemID := order.Items[0].ID
	provider := Actor{UserID: p.ProviderID, Role: enums.UserRoleProvider}

	res, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: provider, Status: "Cancelled"})
	require.NoError(t, err)
	assert.True(t, res.Restocked)
	assert.Equal(t, 4, f.stock(t, p.ID))

	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: provider, Status: "Pending"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: admin, Status: "Processing"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestAdminRevivalFailsWithoutStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "4.00", 0)
	order := f.seedOrder(t, uuid.New(), p, 2)
	itemID := order.Items[0].ID
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: admin, Status: "Cancelled"})
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock_quantity", 1).Error)

	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: admin, Status: "Pending"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	var item models.OrderItem
	require.NoError(t, f.conn.First(&item, "id = ?", itemID).Error)
	assert.Equal(t, enums.OrderItemStatusCancelled, item.Status)
}

func TestTransitionRejectsClientsAndBadStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "4.00", 1)
	order := f.seedOrder(t, uuid.New(), p, 1)
	itemID := order.Items[0].ID

	_, err := f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: Actor{UserID: uuid.New(), Role: enums.UserRoleClient}, Status: "Shipped"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: Actor{Role: enums.UserRoleAdmin}, Status: "Shipped"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Transition(ctx, TransitionInput{OrderItemID: itemID, Actor: Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, Status: "shipped"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOrderReadsAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := product.MustCreateTestProduct(t, f.conn, "7.50", 10)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, p, 2)

	mine, err := f.svc.ListMine(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "15.00", mine[0].TotalAmount.String())
	assert.Equal(t, "Pending", mine[0].OverallStatus)
	assert.Equal(t, p.Name, mine[0].Items[0].ProductName)

	_, err = f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleClient}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	got, err := f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	items, err := f.svc.ListProviderItems(ctx, Actor{UserID: p.ProviderID, Role: enums.UserRoleProvider})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, order.Items[0].ID, items[0].OrderItemID)
	assert.Equal(t, "7.50", items[0].PriceAtPurchase.String())

	none, err := f.svc.ListProviderItems(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleProvider})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.ListProviderItems(ctx, Actor{UserID: buyer, Role: enums.UserRoleClient})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
