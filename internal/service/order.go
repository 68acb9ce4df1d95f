package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/notify"
	"github.com/Skotchmaster/radiant_bloom/internal/ordernum"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

var (
	ErrMissingItems           = apperr.BadRequest("MISSING_ITEMS", "Order items are required")
	ErrInvalidQuantity        = apperr.BadRequest("INVALID_QUANTITY", "Item quantity must be at least 1")
	ErrMissingShippingAddress = apperr.BadRequest("MISSING_SHIPPING_ADDRESS", "Shipping address is required")
	ErrMissingPaymentMethod   = apperr.BadRequest("MISSING_PAYMENT_METHOD", "Payment method is required")
	ErrProductNotFound        = apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	ErrProductInactive        = apperr.BadRequest("PRODUCT_INACTIVE", "Product is not available")
	ErrInsufficientStock      = apperr.BadRequest("INSUFFICIENT_STOCK", "Insufficient stock")
	ErrOrderNotFound          = apperr.NotFound("ORDER_NOT_FOUND", "Order not found")
	ErrOrderNotCancellable    = apperr.BadRequest("ORDER_CANNOT_BE_CANCELLED", "Order cannot be cancelled")
	ErrOrderCancelled         = apperr.BadRequest("ORDER_ALREADY_CANCELLED", "Cancelled orders cannot be reopened")
	ErrMissingStatus          = apperr.BadRequest("MISSING_STATUS", "Status is required")
	ErrInvalidStatus          = apperr.BadRequest("INVALID_STATUS", "Invalid status")
	ErrMissingPaymentStatus   = apperr.BadRequest("MISSING_PAYMENT_STATUS", "Payment status is required")
	ErrInvalidPaymentStatus   = apperr.BadRequest("INVALID_PAYMENT_STATUS", "Invalid payment status")
)

const (
	maxOrderNotes  = 500
	recentOrders   = 5
	declinedByShop = "Order declined by admin"
)

type Notifier interface {
	Notify(account uuid.UUID, n notify.Notification)
}

type OrderService struct {
	Repo     *repo.GormRepo
	Numbers  ordernum.Generator
	Pricing  PricingPolicy
	Events   events.Publisher
	Notifier Notifier
}

func NewOrderService(r *repo.GormRepo, numbers ordernum.Generator, pricing PricingPolicy, pub events.Publisher, n Notifier) *OrderService {
	return &OrderService{Repo: r, Numbers: numbers, Pricing: pricing, Events: pub, Notifier: n}
}

func validateCreateOrder(req transport.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrMissingItems
	}
	for _, it := range req.Items {
		if it.ProductID == uuid.Nil {
			return ErrProductNotFound.With("Product id is required")
		}
		if it.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}

	a := req.ShippingAddress
	if a == nil {
		return ErrMissingShippingAddress
	}
	for _, v := range []string{a.FirstName, a.LastName, a.Street, a.City, a.ZipCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingShippingAddress.With("Shipping address is incomplete")
		}
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return ErrMissingPaymentMethod
	}
	if len(req.Notes) > maxOrderNotes {
		return apperr.Validation("Notes cannot exceed 500 characters")
	}
	return nil
}

type stockLine struct {
	productID uuid.UUID
	name      string
	quantity  int
}

// CreateOrder prices the cart from current product records and writes the
// order together with the stock decrements in one transaction.
func (svc *OrderService) CreateOrder(ctx context.Context, acct *models.User, req transport.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	billing := *req.ShippingAddress
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		billing = *req.BillingAddress
	}

	number, err := svc.Numbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("order number: %w", err)
	}

	order := &models.Order{
		OrderNumber:     number,
		UserID:          acct.ID,
		ShippingAddress: *req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		Notes:           req.Notes,
	}

	err = svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(req.Items))
		var tracked []stockLine

		for _, it := range req.Items {
			p, err := tx.GetProduct(ctx, it.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound.With(fmt.Sprintf("Product with ID %s not found", it.ProductID))
				}
				return err
			}
			if p.Status != models.ProductActive {
				return ErrProductInactive.With(fmt.Sprintf("Product %s is not available", p.Name))
			}
			if !p.Purchasable(it.Quantity) {
				return insufficientStock(p.Name, p.Inventory.Quantity, it.Quantity)
			}

			items = append(items, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  it.Quantity,
				Image:     p.MainImage(),
				Brand:     p.Brand,
			})
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			if p.Inventory.TrackInventory {
				tracked = append(tracked, stockLine{productID: p.ID, name: p.Name, quantity: it.Quantity})
			}
		}

		order.Items = items
		order.Pricing = svc.Pricing.Price(subtotal)

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, line := range tracked {
			ok, err := tx.DecrementStock(ctx, line.productID, line.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInsufficientStock.With(fmt.Sprintf("Insufficient stock for %s", line.name))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := svc.Repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	svc.publish(ctx, "order_created", created)
	svc.notify(created, notify.TypeOrderCreated, "Order placed",
		fmt.Sprintf("Your order %s has been placed.", created.OrderNumber))
	return created, nil
}

func insufficientStock(name string, available, requested int) *apperr.Error {
	return ErrInsufficientStock.With(fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", name, available, requested))
}

func (svc *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := svc.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// GetOrder returns the order to its owner or an admin.
func (svc *OrderService) GetOrder(ctx context.Context, acct *models.User, id uuid.UUID) (*models.Order, error) {
	o, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authmw.Authorize(acct, o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

func (svc *OrderService) ListMyOrders(ctx context.Context, acct *models.User, status string, offset, limit int) (int64, []models.Order, error) {
	return svc.Repo.ListOrders(ctx, repo.OrderFilter{UserID: &acct.ID, Status: status}, offset, limit)
}

func (svc *OrderService) ListOrders(ctx context.Context, f transport.OrderListFilter, offset, limit int) (int64, []models.Order, error) {
	return svc.Repo.ListOrders(ctx, repo.OrderFilter{
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		From:          f.From,
		To:            f.To,
		NumberPrefix:  strings.ToUpper(strings.TrimSpace(f.Search)),
	}, offset, limit)
}

func (svc *OrderService) Stats(ctx context.Context, from, to *time.Time) (transport.OrderStats, error) {
	f := repo.OrderFilter{From: from, To: to}

	totals, err := svc.Repo.OrderTotals(ctx, f)
	if err != nil {
		return transport.OrderStats{}, err
	}
	byStatus, err := svc.Repo.CountOrdersByStatus(ctx, f)
	if err != nil {
		return transport.OrderStats{}, err
	}
	_, recent, err := svc.Repo.ListOrders(ctx, f, 0, recentOrders)
	if err != nil {
		return transport.OrderStats{}, err
	}

	avg := decimal.Zero
	if totals.Count > 0 {
		avg = totals.Revenue.Div(decimal.NewFromInt(totals.Count)).Round(2)
	}
	return transport.OrderStats{
		TotalOrders:       totals.Count,
		TotalRevenue:      totals.Revenue.Round(2),
		AverageOrderValue: avg,
		OrdersByStatus:    byStatus,
		RecentOrders:      recent,
	}, nil
}

// UpdateStatus is the admin override: any status of the enum may be set.
// Cancelling through it restores stock like a regular cancellation.
func (svc *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateOrderStatusRequest) (*models.Order, error) {
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return nil, ErrMissingStatus
	}
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}
	if req.Notes != nil && len(*req.Notes) > maxOrderNotes {
		return nil, apperr.Validation("Notes cannot exceed 500 characters")
	}

	o, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"status": status}
	tracking := strings.TrimSpace(req.TrackingNumber)
	if tracking != "" {
		fields["tracking_number"] = tracking
		if status == models.OrderConfirmed {
			fields["status"] = models.OrderShipped
		}
	}
	if status == models.OrderDelivered {
		fields["delivered_at"] = time.Now().UTC()
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	switch {
	case status == models.OrderCancelled && o.Cancellable():
		delete(fields, "status")
		err = svc.cancelAndRestore(ctx, id, fields)
	case status == models.OrderCancelled:
		if o.CancelledAt == nil {
			fields["cancelled_at"] = time.Now().UTC()
		}
		err = svc.Repo.UpdateOrderFields(ctx, id, fields)
	default:
		// Stock of a cancelled order is already back on the shelf.
		var ok bool
		ok, err = svc.Repo.UpdateOpenOrder(ctx, id, fields)
		if err == nil && !ok {
			err = ErrOrderCancelled
		}
	}
	if err != nil {
		return nil, err
	}

	updated, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, "order_status_changed", updated)
	svc.notify(updated, notify.TypeOrderStatusChanged, "Order updated",
		fmt.Sprintf("Your order %s is now %s.", updated.OrderNumber, updated.Status))
	return updated, nil
}

func (svc *OrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) (*models.Order, error) {
	paymentStatus = strings.TrimSpace(paymentStatus)
	if paymentStatus == "" {
		return nil, ErrMissingPaymentStatus
	}
	if !models.ValidPaymentStatus(paymentStatus) {
		return nil, ErrInvalidPaymentStatus
	}

	if _, err := svc.load(ctx, id); err != nil {
		return nil, err
	}
	if err := svc.Repo.UpdateOrderFields(ctx, id, map[string]any{"payment_status": paymentStatus}); err != nil {
		return nil, err
	}

	updated, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, "order_payment_changed", updated)
	return updated, nil
}

// AcceptOrder confirms the order and marks it paid.
func (svc *OrderService) AcceptOrder(ctx context.Context, id uuid.UUID) (*transport.OrderDecision, error) {
	if _, err := svc.load(ctx, id); err != nil {
		return nil, err
	}
	ok, err := svc.Repo.UpdateOpenOrder(ctx, id, map[string]any{
		"status":         models.OrderConfirmed,
		"payment_status": models.PaymentPaid,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderCancelled
	}

	o, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Your order %s has been accepted and is being processed!", o.OrderNumber)
	svc.publish(ctx, "order_accepted", o)
	svc.notify(o, notify.TypeOrderAccepted, "Order accepted", msg)
	return decision(o, notify.TypeOrderAccepted, msg), nil
}

// DeclineOrder cancels on the shop's side. Stock comes back only if the
// order had not already left the cancellable states.
func (svc *OrderService) DeclineOrder(ctx context.Context, id uuid.UUID, reason string) (*transport.OrderDecision, error) {
	o, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	notes := reason
	if notes == "" {
		notes = declinedByShop
	}
	if len(notes) > maxOrderNotes {
		return nil, apperr.Validation("Notes cannot exceed 500 characters")
	}

	fields := map[string]any{"notes": notes}
	if o.Cancellable() {
		err = svc.cancelAndRestore(ctx, id, fields)
	} else {
		fields["status"] = models.OrderCancelled
		if o.CancelledAt == nil {
			fields["cancelled_at"] = time.Now().UTC()
		}
		err = svc.Repo.UpdateOrderFields(ctx, id, fields)
	}
	if err != nil {
		return nil, err
	}

	o, err = svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := reason
	if detail == "" {
		detail = "Please contact support for more information."
	}
	msg := fmt.Sprintf("Your order %s has been declined. %s", o.OrderNumber, detail)
	svc.publish(ctx, "order_declined", o)
	svc.notify(o, notify.TypeOrderDeclined, "Order declined", msg)
	return decision(o, notify.TypeOrderDeclined, msg), nil
}

// CancelOrder is available to the owner and admins while the order has not
// shipped.
func (svc *OrderService) CancelOrder(ctx context.Context, acct *models.User, id uuid.UUID) (*models.Order, error) {
	o, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authmw.Authorize(acct, o.UserID); err != nil {
		return nil, err
	}
	if !o.Cancellable() {
		return nil, ErrOrderNotCancellable
	}

	if err := svc.cancelAndRestore(ctx, id, nil); err != nil {
		return nil, err
	}

	o, err = svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, "order_cancelled", o)
	svc.notify(o, notify.TypeOrderCancelled, "Order cancelled",
		fmt.Sprintf("Your order %s has been cancelled.", o.OrderNumber))
	return o, nil
}

// cancelAndRestore flips the status and returns the stock in one
// transaction. Losing the race to another cancel is ORDER_CANNOT_BE_CANCELLED.
func (svc *OrderService) cancelAndRestore(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.MarkCancelled(ctx, id, fields)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderNotCancellable
		}

		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			if err := tx.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func decision(o *models.Order, kind, msg string) *transport.OrderDecision {
	d := &transport.OrderDecision{
		Order:        o,
		Notification: transport.NotificationResult{Type: kind, Message: msg},
	}
	if o.User != nil {
		d.Notification.UserEmail = o.User.Email
	}
	return d
}

func (svc *OrderService) publish(ctx context.Context, kind string, o *models.Order) {
	events.Emit(ctx, svc.Events, events.TopicOrders, o.ID.String(), events.New(kind, map[string]any{
		"orderId":       o.ID,
		"orderNumber":   o.OrderNumber,
		"userId":        o.UserID,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"total":         o.Pricing.Total,
	}))
}

func (svc *OrderService) notify(o *models.Order, kind, title, msg string) {
	if svc.Notifier == nil {
		return
	}
	svc.Notifier.Notify(o.UserID, notify.Notification{
		Type:        kind,
		Title:       title,
		Message:     msg,
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
	})
}
