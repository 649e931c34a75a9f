package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/internal/storetest"
	"github.com/deepstorefront/storefront/internal/tasks"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/enums"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/mail"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

type published struct {
	task    string
	payload any
}

type fakePublisher struct {
	calls []published
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, task string, payload any) (string, error) {
	p.calls = append(p.calls, published{task: task, payload: payload})
	return "task-1", p.err
}

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fixture struct {
	svc       Service
	conn      *gorm.DB
	publisher *fakePublisher
	logg      *logger.Logger
	customer  *models.Customer
	rice      *models.Product
	beans     *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := storetest.NewDB(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	pub := &fakePublisher{}
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), pub, logg)
	require.NoError(t, err)

	collection := storetest.SeedCollection(t, conn, "Pantry")
	return &fixture{
		svc:       svc,
		conn:      conn,
		publisher: pub,
		logg:      logg,
		customer:  storetest.SeedCustomer(t, conn, "ada@example.com"),
		rice:      storetest.SeedProduct(t, conn, collection.ID, "Rice", "2.50"),
		beans:     storetest.SeedProduct(t, conn, collection.ID, "Beans", "1.25"),
	}
}

func (f *fixture) cartWith(t *testing.T, items map[int64]int) uuid.UUID {
	t.Helper()
	cart := &models.Cart{}
	require.NoError(t, f.conn.Create(cart).Error)
	for productID, qty := range items {
		require.NoError(t, f.conn.Create(&models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}).Error)
	}
	return cart.ID
}

func TestPlaceOrderCopiesCartAtCurrentPrices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cartID := f.cartWith(t, map[int64]int{f.rice.ID: 2, f.beans.ID: 4})

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: cartID, CustomerID: f.customer.ID})
	require.NoError(t, err)

	assert.Equal(t, f.customer.ID, order.Customer)
	assert.Equal(t, "P", order.PaymentStatus)
	require.Len(t, order.Items, 2)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("10.00")), "got %s", order.TotalPrice)

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("id = ?", cartID).Count(&carts).Error)
	assert.Zero(t, carts, "cart is removed once the order is placed")
	var items int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&items).Error)
	assert.Zero(t, items)

	require.Len(t, f.publisher.calls, 1)
	assert.Equal(t, tasks.OrderConfirmation, f.publisher.calls[0].task)
	assert.Equal(t, ConfirmationPayload{OrderID: order.ID}, f.publisher.calls[0].payload)
}

func TestPlaceOrderKeepsPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cartID := f.cartWith(t, map[int64]int{f.rice.ID: 1})

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: cartID, CustomerID: f.customer.ID})
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.rice.ID).Update("unit_price", decimal.RequireFromString("9.99")).Error)

	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	empty := f.cartWith(t, nil)

	cases := map[string]PlaceOrderInput{
		"missing cart":     {CustomerID: f.customer.ID},
		"unknown cart":     {CartID: uuid.New(), CustomerID: f.customer.ID},
		"empty cart":       {CartID: empty, CustomerID: f.customer.ID},
		"unknown customer": {CartID: empty, CustomerID: 9999},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.publisher.calls)

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("id = ?", empty).Count(&carts).Error)
	assert.Equal(t, int64(1), carts, "a failed checkout leaves the cart in place")
}

// concurrentCheckoutRepo removes the cart right after it is read, as a
// competing checkout committing first would.
type concurrentCheckoutRepo struct {
	Repository
	tx *gorm.DB
}

func (r *concurrentCheckoutRepo) WithTx(tx *gorm.DB) Repository {
	return &concurrentCheckoutRepo{Repository: r.Repository.WithTx(tx), tx: tx}
}

func (r *concurrentCheckoutRepo) FindCartForCheckout(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := r.Repository.FindCartForCheckout(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := r.tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}
	if err := r.tx.Where("id = ?", cartID).Delete(&models.Cart{}).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func TestPlaceOrderRejectsCartConsumedByAnotherCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cartID := f.cartWith(t, map[int64]int{f.rice.ID: 1})

	repo := &concurrentCheckoutRepo{Repository: NewRepository(f.conn)}
	svc, err := NewService(repo, db.NewFromConn(f.conn), f.publisher, f.logg)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, PlaceOrderInput{CartID: cartID, CustomerID: f.customer.ID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders, "the losing checkout rolls back its order")
	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("id = ?", cartID).Count(&carts).Error)
	assert.Equal(t, int64(1), carts, "the rollback restores the cart")
	assert.Empty(t, f.publisher.calls)
}

func TestPlaceOrderSucceedsWhenEnqueueFails(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	cartID := f.cartWith(t, map[int64]int{f.beans.ID: 1})

	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{CartID: cartID, CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestUpdatePaymentStatusAndFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: f.cartWith(t, map[int64]int{f.rice.ID: 1}), CustomerID: f.customer.ID})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: f.cartWith(t, map[int64]int{f.beans.ID: 1}), CustomerID: f.customer.ID})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePaymentStatus(ctx, first.ID, enums.PaymentStatusComplete)
	require.NoError(t, err)
	assert.Equal(t, "C", updated.PaymentStatus)

	_, err = f.svc.UpdatePaymentStatus(ctx, first.ID, enums.PaymentStatus("X"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.UpdatePaymentStatus(ctx, 9999, enums.PaymentStatusFailed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	complete := enums.PaymentStatusComplete
	list, total, err := f.svc.List(ctx, pagination.Params{Page: 1, Limit: 10}, Filter{PaymentStatus: &complete})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	all, total, err := f.svc.List(ctx, pagination.Params{Page: 1, Limit: 10}, Filter{CustomerID: &f.customer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestDeleteOrderRemovesItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: f.cartWith(t, map[int64]int{f.rice.ID: 1}), CustomerID: f.customer.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, order.ID))
	var items int64
	require.NoError(t, f.conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	assert.Zero(t, items)

	err = f.svc.Delete(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConfirmationHandlerSendsSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: f.cartWith(t, map[int64]int{f.rice.ID: 2}), CustomerID: f.customer.ID})
	require.NoError(t, err)

	sender := &fakeSender{}
	handler, err := NewConfirmationHandler(NewRepository(f.conn), sender, f.logg)
	require.NoError(t, err)
	assert.Equal(t, tasks.OrderConfirmation, handler.Name())

	payload, _ := json.Marshal(ConfirmationPayload{OrderID: order.ID})
	require.NoError(t, handler.Handle(ctx, payload))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "2 x Rice @ 2.50")
	assert.Contains(t, msg.Body, "Total: 5.00")
}

func TestConfirmationHandlerErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sender := &fakeSender{err: errors.New("relay refused")}
	handler, err := NewConfirmationHandler(NewRepository(f.conn), sender, f.logg)
	require.NoError(t, err)

	err = handler.Handle(ctx, json.RawMessage(`not json`))
	assert.ErrorIs(t, err, tasks.ErrPermanent)

	err = handler.Handle(ctx, json.RawMessage(`{"order_id": 12345}`))
	assert.ErrorIs(t, err, tasks.ErrPermanent)

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{CartID: f.cartWith(t, map[int64]int{f.rice.ID: 1}), CustomerID: f.customer.ID})
	require.NoError(t, err)
	payload, _ := json.Marshal(ConfirmationPayload{OrderID: order.ID})
	err = handler.Handle(ctx, payload)
	require.Error(t, err)
	assert.NotErrorIs(t, err, tasks.ErrPermanent, "relay failures are retried")
}
