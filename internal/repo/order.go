package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

type OrderFilter struct {
	UserID        *uuid.UUID
	Status        string
	PaymentStatus string
	From          *time.Time
	To            *time.Time
	NumberPrefix  string
}

func (f OrderFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.NumberPrefix != "" {
		q = q.Where("order_number LIKE ?", f.NumberPrefix+"%")
	}
	return q
}

func preloadUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "email", "role", "is_active")
}

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Omit("User").Create(o).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Preload("User", preloadUserSummary).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, offset, limit int) (int64, []models.Order, error) {
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Order{})).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	err := q.Preload("Items").Preload("User", preloadUserSummary).
		Order("created_at DESC").Order("LENGTH(order_number) DESC").Order("order_number DESC").
		Offset(offset).Limit(limit).Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateOpenOrder applies fields only while the order is not cancelled.
func (r *GormRepo) UpdateOpenOrder(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", id, models.OrderCancelled).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCancelled flips the order to cancelled only while it is still
// cancellable, so concurrent cancels restore inventory once.
func (r *GormRepo) MarkCancelled(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	upd := map[string]any{"status": models.OrderCancelled, "cancelled_at": time.Now().UTC()}
	for k, v := range fields {
		upd[k] = v
	}
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, models.NonCancellable).
		Updates(upd)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	q := r.DB.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

type OrderTotals struct {
	Count   int64
	Revenue decimal.Decimal
}

func (r *GormRepo) OrderTotals(ctx context.Context, f OrderFilter) (OrderTotals, error) {
	var row struct {
		Count   int64
		Revenue decimal.NullDecimal
	}
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Order{})).
		Select("COUNT(*) AS count, SUM(pricing_total) AS revenue").
		Scan(&row).Error
	if err != nil {
		return OrderTotals{}, err
	}
	out := OrderTotals{Count: row.Count, Revenue: decimal.Zero}
	if row.Revenue.Valid {
		out.Revenue = row.Revenue.Decimal
	}
	return out, nil
}

func (r *GormRepo) CountOrdersByStatus(ctx context.Context, f OrderFilter) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Order{})).
		Select("status, COUNT(*) AS count").Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// PurchasedOrderID finds the latest shipped or delivered order of the
// account that contains the product.
func (r *GormRepo) PurchasedOrderID(ctx context.Context, userID, productID uuid.UUID) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status IN ?",
			userID, productID, []string{models.OrderDelivered, models.OrderShipped}).
		Order("orders.created_at DESC").
		Limit(1).
		Pluck("orders.id", &ids).Error
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}
