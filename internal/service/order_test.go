package service

import (
	"context"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/notify"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/testutil"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	"github.com/Skotchmaster/radiant_bloom/pkg/events/mocks"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type eventType string

func (e eventType) Matches(x any) bool {
	ev, ok := x.(events.Event)
	return ok && ev.Type == string(e)
}

func (e eventType) String() string { return "event of type " + string(e) }

func TestCreateOrder_PricesAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	f.orders.Events = pub

	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "skincare")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Rose Serum", "45.99", testutil.WithStock(10, true))

	pub.EXPECT().PublishEvent(gomock.Any(), events.TopicOrders, gomock.Any(), eventType("order_created")).Return(nil)

	o, err := f.orders.CreateOrder(context.Background(), buyer, orderRequest(line(p.ID, 3)))
	require.NoError(t, err)

	assert.Regexp(t, `^RB\d{10}$`, o.OrderNumber)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.True(t, o.Pricing.Subtotal.Equal(dec("137.97")), o.Pricing.Subtotal.String())
	assert.True(t, o.Pricing.Tax.Equal(dec("11.04")), o.Pricing.Tax.String())
	assert.True(t, o.Pricing.Shipping.IsZero(), o.Pricing.Shipping.String())
	assert.True(t, o.Pricing.Discount.IsZero())
	assert.True(t, o.Pricing.Total.Equal(dec("149.01")), o.Pricing.Total.String())
	assert.Equal(t, *address(), o.BillingAddress, "billing defaults to shipping")

	require.NotNil(t, o.User, spew.Sdump(o))
	assert.Equal(t, buyer.Email, o.User.Email)

	assert.Equal(t, 7, testutil.Stock(t, f.db, p.ID))
	assert.Equal(t, []string{notify.TypeOrderCreated}, f.notifier.types(buyer.ID))
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "makeup")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Lip Tint", "12.50")
	inactive := testutil.CreateProduct(t, f.db, cat.ID, "Old Tint", "9", testutil.WithStatus(models.ProductInactive))
	ctx := context.Background()

	noAddress := orderRequest(line(p.ID, 1))
	noAddress.ShippingAddress = nil

	partial := orderRequest(line(p.ID, 1))
	partial.ShippingAddress.City = ""

	noPayment := orderRequest(line(p.ID, 1))
	noPayment.PaymentMethod = " "

	longNotes := orderRequest(line(p.ID, 1))
	longNotes.Notes = string(make([]byte, 501))

	tests := []struct {
		name string
		req  transport.CreateOrderRequest
		want error
	}{
		{name: "no items", req: orderRequest(), want: ErrMissingItems},
		{name: "missing quantity", req: orderRequest(line(p.ID, 0)), want: ErrInvalidQuantity},
		{name: "no address", req: noAddress, want: ErrMissingShippingAddress},
		{name: "partial address", req: partial, want: ErrMissingShippingAddress},
		{name: "no payment method", req: noPayment, want: ErrMissingPaymentMethod},
		{name: "notes too long", req: longNotes, want: apperr.Validation("")},
		{name: "unknown product", req: orderRequest(line(uuid.New(), 1)), want: ErrProductNotFound},
		{name: "inactive product", req: orderRequest(line(inactive.ID, 1)), want: ErrProductInactive},
		{name: "more than in stock", req: orderRequest(line(p.ID, 11)), want: ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, buyer, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	total, _, err := f.repo.ListOrders(ctx, repo.OrderFilter{UserID: &buyer.ID}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total, "failed orders leave nothing behind")
	assert.Equal(t, 10, testutil.Stock(t, f.db, p.ID))
}

func TestCreateOrder_RollsBackWhenALaterLineFails(t *testing.T) {
	f := newFixture(t)
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "tools")
	brush := testutil.CreateProduct(t, f.db, cat.ID, "Brush", "10", testutil.WithStock(5, true))

	// Same product twice: each line passes on its own, together they oversell.
	_, err := f.orders.CreateOrder(context.Background(), buyer, orderRequest(line(brush.ID, 3), line(brush.ID, 3)))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, testutil.Stock(t, f.db, brush.ID))
}

func TestCreateOrder_UntrackedStockIsNotTouched(t *testing.T) {
	f := newFixture(t)
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "gift")
	card := testutil.CreateProduct(t, f.db, cat.ID, "Gift Card", "25", testutil.WithStock(0, false))

	o, err := f.orders.CreateOrder(context.Background(), buyer, orderRequest(line(card.ID, 4)))
	require.NoError(t, err)
	assert.True(t, o.Pricing.Total.Equal(dec("108")), o.Pricing.Total.String())
	assert.Equal(t, 0, testutil.Stock(t, f.db, card.ID))
}

func TestCreateOrder_ConcurrentOrdersCannotOversell(t *testing.T) {
	f := newFixture(t)
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "fragrance")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Eau de Parfum", "80", testutil.WithStock(3, true))

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.CreateOrder(context.Background(), buyer, orderRequest(line(p.ID, 3)))
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInsufficientStock):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, testutil.Stock(t, f.db, p.ID))
}

func TestOrderSnapshot_SurvivesProductEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "hair")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Shampoo", "8.50", testutil.WithBrand("Luna"))

	o := f.placeOrder(t, buyer, p, 2, models.OrderPending)

	edited := mustGetProduct(t, f.repo, p.ID)
	edited.Name = "Shampoo XL"
	edited.Brand = "Sol"
	edited.Price = dec("12")
	require.NoError(t, f.repo.UpdateProductColumns(ctx, edited, []string{"name", "brand", "price"}))

	got, err := f.orders.GetOrder(ctx, buyer, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, spew.Sdump(got))
	assert.Equal(t, "Shampoo", got.Items[0].Name)
	assert.Equal(t, "Luna", got.Items[0].Brand)
	assert.True(t, got.Items[0].Price.Equal(dec("8.50")))
	assert.True(t, got.Pricing.Total.Equal(o.Pricing.Total))
}

func TestCancelOrder_StateMachine(t *testing.T) {
	tests := []struct {
		status string
		ok     bool
	}{
		{models.OrderPending, true},
		{models.OrderConfirmed, true},
		{models.OrderProcessing, true},
		{models.OrderRefunded, true},
		{models.OrderShipped, false},
		{models.OrderDelivered, false},
		{models.OrderCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			buyer := testutil.CreateUser(t, f.db, models.RoleUser)
			cat := testutil.CreateCategory(t, f.db, "c")
			p := testutil.CreateProduct(t, f.db, cat.ID, "Toner", "20", testutil.WithStock(10, true))
			o := f.placeOrder(t, buyer, p, 4, tt.status)
			require.Equal(t, 6, testutil.Stock(t, f.db, p.ID))

			got, err := f.orders.CancelOrder(ctx, buyer, o.ID)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrOrderNotCancellable)
				assert.Equal(t, 6, testutil.Stock(t, f.db, p.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.OrderCancelled, got.Status)
			assert.NotNil(t, got.CancelledAt)
			assert.Equal(t, 10, testutil.Stock(t, f.db, p.ID))

			_, err = f.orders.CancelOrder(ctx, buyer, o.ID)
			assert.ErrorIs(t, err, ErrOrderNotCancellable)
			assert.Equal(t, 10, testutil.Stock(t, f.db, p.ID), "stock is restored once")
		})
	}
}

func TestOrderAccess_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, models.RoleUser)
	stranger := testutil.CreateUser(t, f.db, models.RoleUser)
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	cat := testutil.CreateCategory(t, f.db, "skin")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Cream", "30")
	o := f.placeOrder(t, owner, p, 1, models.OrderPending)

	_, err := f.orders.GetOrder(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, authmw.ErrAccessDenied)
	_, err = f.orders.CancelOrder(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, authmw.ErrAccessDenied)

	_, err = f.orders.GetOrder(ctx, owner, o.ID)
	assert.NoError(t, err)
	_, err = f.orders.GetOrder(ctx, admin, o.ID)
	assert.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, owner, p.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "m")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Mascara", "15", testutil.WithStock(10, true))
	o := f.placeOrder(t, buyer, p, 2, models.OrderPending)

	_, err := f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{})
	assert.ErrorIs(t, err, ErrMissingStatus)
	_, err = f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err := f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: models.OrderConfirmed, TrackingNumber: "1Z999"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, got.Status, "tracking number on a confirmed order ships it")
	assert.Equal(t, "1Z999", got.TrackingNumber)

	got, err = f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: models.OrderDelivered})
	require.NoError(t, err)
	assert.NotNil(t, got.DeliveredAt)

	assert.Contains(t, f.notifier.types(buyer.ID), notify.TypeOrderStatusChanged)

	other := f.placeOrder(t, buyer, p, 3, models.OrderPending)
	require.Equal(t, 5, testutil.Stock(t, f.db, p.ID))
	got, err = f.orders.UpdateStatus(ctx, other.ID, transport.UpdateOrderStatusRequest{Status: models.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, 8, testutil.Stock(t, f.db, p.ID))
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "n")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Nail Polish", "7")
	o := f.placeOrder(t, buyer, p, 1, models.OrderPending)

	_, err := f.orders.UpdatePaymentStatus(ctx, o.ID, "")
	assert.ErrorIs(t, err, ErrMissingPaymentStatus)
	_, err = f.orders.UpdatePaymentStatus(ctx, o.ID, "maybe")
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)

	got, err := f.orders.UpdatePaymentStatus(ctx, o.ID, models.PaymentFailed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, models.OrderPending, got.Status)
}

func TestAcceptAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "f")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Perfume", "60", testutil.WithStock(4, true))

	accepted := f.placeOrder(t, buyer, p, 1, models.OrderPending)
	res, err := f.orders.AcceptOrder(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, res.Order.Status)
	assert.Equal(t, models.PaymentPaid, res.Order.PaymentStatus)
	assert.Equal(t, notify.TypeOrderAccepted, res.Notification.Type)
	assert.Equal(t, buyer.Email, res.Notification.UserEmail)
	assert.Contains(t, res.Notification.Message, accepted.OrderNumber)

	declined := f.placeOrder(t, buyer, p, 2, models.OrderPending)
	require.Equal(t, 1, testutil.Stock(t, f.db, p.ID))

	res, err = f.orders.DeclineOrder(ctx, declined.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, res.Order.Status)
	assert.Equal(t, "Order declined by admin", res.Order.Notes)
	assert.NotNil(t, res.Order.CancelledAt)
	assert.Equal(t, 3, testutil.Stock(t, f.db, p.ID))

	res, err = f.orders.DeclineOrder(ctx, declined.ID, "Address unreachable")
	require.NoError(t, err)
	assert.Equal(t, "Address unreachable", res.Order.Notes)
	assert.Equal(t, 3, testutil.Stock(t, f.db, p.ID), "declining twice restores once")

	_, err = f.orders.AcceptOrder(ctx, declined.ID)
	assert.ErrorIs(t, err, ErrOrderCancelled)
	_, err = f.orders.UpdateStatus(ctx, declined.ID, transport.UpdateOrderStatusRequest{Status: models.OrderPending})
	assert.ErrorIs(t, err, ErrOrderCancelled)
	still, err := f.orders.GetOrder(ctx, buyer, declined.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, still.Status)
	assert.Equal(t, 3, testutil.Stock(t, f.db, p.ID))

	assert.Equal(t,
		[]string{notify.TypeOrderCreated, notify.TypeOrderAccepted, notify.TypeOrderCreated, notify.TypeOrderDeclined, notify.TypeOrderDeclined},
		f.notifier.types(buyer.ID))
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, models.RoleUser)
	bob := testutil.CreateUser(t, f.db, models.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "s")
	p := testutil.CreateProduct(t, f.db, cat.ID, "Soap", "5", testutil.WithStock(100, true))

	first := f.placeOrder(t, alice, p, 1, models.OrderPending)
	f.placeOrder(t, alice, p, 2, models.OrderDelivered)
	f.placeOrder(t, bob, p, 3, models.OrderPending)

	total, mine, err := f.orders.ListMyOrders(ctx, alice, "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	total, _, err = f.orders.ListMyOrders(ctx, alice, models.OrderDelivered, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, all, err := f.orders.ListOrders(ctx, transport.OrderListFilter{Status: models.OrderPending}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	total, _, err = f.orders.ListOrders(ctx, transport.OrderListFilter{Search: first.OrderNumber}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	stats, err := f.orders.Stats(ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	// 5+10 shipping, 10+10 shipping, 15+10 shipping, plus 8% tax on each subtotal.
	assert.True(t, stats.TotalRevenue.Equal(dec("62.40")), stats.TotalRevenue.String())
	assert.True(t, stats.AverageOrderValue.Equal(dec("20.80")), stats.AverageOrderValue.String())
	assert.EqualValues(t, 2, stats.OrdersByStatus[models.OrderPending])
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderDelivered])
	assert.Len(t, stats.RecentOrders, 3)
}
