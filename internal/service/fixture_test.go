package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/notify"
	"github.com/Skotchmaster/radiant_bloom/internal/ordernum"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/testutil"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]notify.Notification
}

func (n *recordingNotifier) Notify(account uuid.UUID, msg notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[uuid.UUID][]notify.Notification{}
	}
	n.sent[account] = append(n.sent[account], msg)
}

func (n *recordingNotifier) types(account uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent[account]))
	for _, m := range n.sent[account] {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	repo     *repo.GormRepo
	orders   *OrderService
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	n := &recordingNotifier{}
	return &fixture{
		db:       gdb,
		repo:     r,
		orders:   NewOrderService(r, ordernum.NewDBSequence(r), DefaultPricingPolicy(), events.Nop{}, n),
		notifier: n,
	}
}

func address() *models.Address {
	return &models.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Street:    "1 Bloom St",
		City:      "London",
		ZipCode:   "N1 9GU",
		Country:   "UK",
	}
}

func orderRequest(items ...transport.OrderItemRequest) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           items,
		ShippingAddress: address(),
		PaymentMethod:   "card",
	}
}

func line(id uuid.UUID, qty int) transport.OrderItemRequest {
	return transport.OrderItemRequest{ProductID: id, Quantity: qty}
}

// placeOrder creates an order and forces it into status.
func (f *fixture) placeOrder(t *testing.T, buyer *models.User, p *models.Product, qty int, status string) *models.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), buyer, orderRequest(line(p.ID, qty)))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if status != models.OrderPending {
		if err := f.repo.UpdateOrderFields(context.Background(), o.ID, map[string]any{"status": status}); err != nil {
			t.Fatalf("set status %s: %v", status, err)
		}
	}
	return o
}

func mustGetProduct(t *testing.T, r *repo.GormRepo, id uuid.UUID) *models.Product {
	t.Helper()
	p, err := r.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("load product %s: %v", id, err)
	}
	return p
}
