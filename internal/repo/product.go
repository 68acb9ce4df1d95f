package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

type ProductFilter struct {
	Search       string
	IDs          []uuid.UUID
	CategoryID   *uuid.UUID
	MinPrice     *float64
	MaxPrice     *float64
	Brand        string
	IsBestseller *bool
	IsNew        *bool
	IsFeatured   *bool
	Status       string
	SortBy       string
	SortOrder    string
}

var productSortColumns = map[string]string{
	"createdAt":   "created_at",
	"price":       "price",
	"name":        "name",
	"rating":      "rating",
	"reviewCount": "review_count",
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?)", like, like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Brand != "" {
		q = q.Where("LOWER(brand) = ?", strings.ToLower(f.Brand))
	}
	if f.IsBestseller != nil {
		q = q.Where("is_bestseller = ?", *f.IsBestseller)
	}
	if f.IsNew != nil {
		q = q.Where("is_new = ?", *f.IsNew)
	}
	if f.IsFeatured != nil {
		q = q.Where("is_featured = ?", *f.IsFeatured)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

func (f ProductFilter) order() clause.OrderByColumn {
	col, ok := productSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	return clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.SortOrder != "asc"}
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter, offset, limit int) (int64, []models.Product, error) {
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := q.Preload("Category").Order(f.order()).Order("id").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// UpdateProductColumns writes only cols (plus updated_at) from p.
func (r *GormRepo) UpdateProductColumns(ctx context.Context, p *models.Product, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	res := r.DB.WithContext(ctx).Model(p).Select(cols).Omit(clause.Associations).Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock takes qty units of a tracked product only if that many are
// left. It reports false when the stock was insufficient.
func (r *GormRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND inventory_track_inventory = ? AND inventory_quantity >= ?", id, true, qty).
		Update("inventory_quantity", gorm.Expr("inventory_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND inventory_track_inventory = ?", id, true).
		Update("inventory_quantity", gorm.Expr("inventory_quantity + ?", qty)).Error
}

func (r *GormRepo) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, count int64) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "review_count": count}).Error
}

func (r *GormRepo) LowStockProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).
		Where("inventory_track_inventory = ? AND inventory_quantity <= inventory_low_stock_threshold", true).
		Order("inventory_quantity ASC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *GormRepo) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("inventory_track_inventory = ? AND inventory_quantity <= inventory_low_stock_threshold", true).
		Count(&n).Error
	return n, err
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}
