package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/search"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
)

var (
	ErrCategoryNotFound = apperr.NotFound("CATEGORY_NOT_FOUND", "Category not found")
	ErrCategoryInUse    = apperr.BadRequest("CATEGORY_IN_USE", "Category is still referenced by products or subcategories")
)

const (
	maxProductImages = 10
	maxFeatureLength = 200
	maxSearchHits    = 500
	showcaseLimit    = 8
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type CatalogService struct {
	Repo            *repo.GormRepo
	Index           search.ProductIndex
	Events          events.Publisher
	LowStockDefault int
}

func NewCatalogService(r *repo.GormRepo, idx search.ProductIndex, pub events.Publisher, lowStockDefault int) *CatalogService {
	return &CatalogService{Repo: r, Index: idx, Events: pub, LowStockDefault: lowStockDefault}
}

// ListProducts applies the storefront filters. Only admins may look past
// active products.
func (svc *CatalogService) ListProducts(ctx context.Context, q transport.ProductQuery, admin bool, offset, limit int) (int64, []models.Product, error) {
	f := repo.ProductFilter{
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Brand:        strings.TrimSpace(q.Brand),
		IsBestseller: q.IsBestseller,
		IsNew:        q.IsNew,
		IsFeatured:   q.IsFeatured,
		Status:       models.ProductActive,
		SortBy:       q.SortBy,
		SortOrder:    q.SortOrder,
	}
	if admin && q.Status != "" {
		f.Status = q.Status
		if q.Status == "all" {
			f.Status = ""
		}
	}

	if c := strings.TrimSpace(q.Category); c != "" {
		catID, ok, err := svc.resolveCategory(ctx, c)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			return 0, []models.Product{}, nil
		}
		f.CategoryID = &catID
	}

	term := strings.TrimSpace(q.Search)
	if term == "" {
		return svc.Repo.ListProducts(ctx, f, offset, limit)
	}

	_, ids, err := svc.Index.SearchIDs(ctx, term, 0, maxSearchHits)
	if err != nil {
		if !errors.Is(err, search.ErrDisabled) {
			logging.FromContext(ctx).Warn("search_fallback", "reason", "index query failed", "error", err)
		}
		f.Search = term
		return svc.Repo.ListProducts(ctx, f, offset, limit)
	}
	if len(ids) == 0 {
		return 0, []models.Product{}, nil
	}

	f.IDs = ids
	if q.SortBy != "" {
		return svc.Repo.ListProducts(ctx, f, offset, limit)
	}
	return svc.rankedPage(ctx, f, offset, limit)
}

// rankedPage loads every product matching the hits and pages them in
// relevance order.
func (svc *CatalogService) rankedPage(ctx context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	total, all, err := svc.Repo.ListProducts(ctx, f, 0, len(f.IDs))
	if err != nil {
		return 0, nil, err
	}

	rank := make(map[uuid.UUID]int, len(f.IDs))
	for i, id := range f.IDs {
		rank[id] = i
	}
	sort.SliceStable(all, func(i, j int) bool { return rank[all[i].ID] < rank[all[j].ID] })

	if offset >= len(all) {
		return total, []models.Product{}, nil
	}
	end := min(offset+limit, len(all))
	return total, all[offset:end], nil
}

func (svc *CatalogService) resolveCategory(ctx context.Context, ref string) (uuid.UUID, bool, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, true, nil
	}
	c, err := svc.Repo.CategoryBySlug(ctx, strings.ToLower(ref))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return c.ID, true, nil
}

func (svc *CatalogService) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	yes := true
	_, items, err := svc.Repo.ListProducts(ctx, repo.ProductFilter{IsFeatured: &yes, Status: models.ProductActive}, 0, showcaseOr(limit))
	return items, err
}

func (svc *CatalogService) Bestsellers(ctx context.Context, limit int) ([]models.Product, error) {
	yes := true
	_, items, err := svc.Repo.ListProducts(ctx, repo.ProductFilter{IsBestseller: &yes, Status: models.ProductActive, SortBy: "rating"}, 0, showcaseOr(limit))
	return items, err
}

func showcaseOr(limit int) int {
	if limit < 1 || limit > 50 {
		return showcaseLimit
	}
	return limit
}

// GetProduct hides non-active products from everyone but admins.
func (svc *CatalogService) GetProduct(ctx context.Context, id uuid.UUID, admin bool) (*models.Product, error) {
	p, err := svc.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !admin && p.Status != models.ProductActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (svc *CatalogService) CreateProduct(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	p := &models.Product{
		Images:    []string{},
		Features:  []string{},
		Tags:      []string{},
		Status:    models.ProductActive,
		Inventory: models.Inventory{LowStockThreshold: svc.LowStockDefault, TrackInventory: true},
	}
	if req.CategoryID == nil {
		return nil, apperr.Validation("Category is required")
	}
	if req.Price == nil {
		return nil, apperr.Validation("Price is required")
	}
	applyProduct(p, req)

	if err := svc.checkProduct(ctx, p); err != nil {
		return nil, err
	}
	if err := svc.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	created, err := svc.GetProduct(ctx, p.ID, true)
	if err != nil {
		return nil, err
	}
	svc.reindex(ctx, created)
	svc.publish(ctx, "product_created", created)
	return created, nil
}

func (svc *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req transport.ProductRequest) (*models.Product, error) {
	p, err := svc.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	cols := applyProduct(p, req)
	p.Category = nil

	if err := svc.checkProduct(ctx, p); err != nil {
		return nil, err
	}
	// Only supplied columns; stock and rating are moved by orders and reviews.
	if err := svc.Repo.UpdateProductColumns(ctx, p, cols); err != nil {
		return nil, err
	}

	updated, err := svc.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	svc.reindex(ctx, updated)
	svc.publish(ctx, "product_updated", updated)
	return updated, nil
}

func (svc *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := svc.GetProduct(ctx, id, true)
	if err != nil {
		return err
	}
	if err := svc.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if err := svc.Index.DeleteProduct(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("unindex_product_failed", "product_id", id, "error", err)
	}
	svc.publish(ctx, "product_deleted", p)
	return nil
}

func (svc *CatalogService) LowStock(ctx context.Context, limit int) ([]models.Product, error) {
	return svc.Repo.LowStockProducts(ctx, limit)
}

// applyProduct copies the supplied fields onto p and returns their columns.
func applyProduct(p *models.Product, req transport.ProductRequest) []string {
	var cols []string
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
		cols = append(cols, "name")
	}
	if req.Brand != nil {
		p.Brand = strings.TrimSpace(*req.Brand)
		cols = append(cols, "brand")
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
		cols = append(cols, "description")
	}
	if req.Price != nil {
		p.Price = *req.Price
		cols = append(cols, "price")
	}
	if req.OriginalPrice != nil {
		p.OriginalPrice = *req.OriginalPrice
		cols = append(cols, "original_price")
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
		cols = append(cols, "category_id")
	}
	if req.Images != nil {
		p.Images = req.Images
		cols = append(cols, "images")
	}
	if req.Features != nil {
		p.Features = req.Features
		cols = append(cols, "features")
	}
	if req.Tags != nil {
		p.Tags = req.Tags
		cols = append(cols, "tags")
	}
	if req.SKU != nil {
		cols = append(cols, "sku")
		if sku := strings.TrimSpace(*req.SKU); sku != "" {
			p.SKU = &sku
		} else {
			p.SKU = nil
		}
	}
	if req.Quantity != nil {
		p.Inventory.Quantity = *req.Quantity
		cols = append(cols, "inventory_quantity")
	}
	if req.LowStockThreshold != nil {
		p.Inventory.LowStockThreshold = *req.LowStockThreshold
		cols = append(cols, "inventory_low_stock_threshold")
	}
	if req.TrackInventory != nil {
		p.Inventory.TrackInventory = *req.TrackInventory
		cols = append(cols, "inventory_track_inventory")
	}
	if req.Status != nil {
		p.Status = *req.Status
		cols = append(cols, "status")
	}
	if req.IsBestseller != nil {
		p.IsBestseller = *req.IsBestseller
		cols = append(cols, "is_bestseller")
	}
	if req.IsNew != nil {
		p.IsNew = *req.IsNew
		cols = append(cols, "is_new")
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
		cols = append(cols, "is_featured")
	}
	return cols
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("Product name is required")
	case len(p.Name) > 100:
		return apperr.Validation("Product name cannot exceed 100 characters")
	case p.Brand == "":
		return apperr.Validation("Brand is required")
	case len(p.Brand) > 50:
		return apperr.Validation("Brand name cannot exceed 50 characters")
	case p.Description == "":
		return apperr.Validation("Product description is required")
	case len(p.Description) > 2000:
		return apperr.Validation("Description cannot exceed 2000 characters")
	case p.Price.IsNegative():
		return apperr.Validation("Price cannot be negative")
	case !p.OriginalPrice.IsZero() && p.OriginalPrice.LessThan(p.Price):
		return apperr.Validation("Original price must be greater than or equal to current price")
	case p.OriginalPrice.IsNegative():
		return apperr.Validation("Original price cannot be negative")
	case len(p.Images) > maxProductImages:
		return apperr.Validation("Cannot have more than 10 images")
	case !models.ValidProductStatus(p.Status):
		return apperr.Validation("Invalid product status")
	case p.Inventory.Quantity < 0:
		return apperr.Validation("Quantity cannot be negative")
	case p.Inventory.LowStockThreshold < 0:
		return apperr.Validation("Low stock threshold cannot be negative")
	}

	for _, img := range p.Images {
		if !isHTTPURL(img) {
			return apperr.Validation(fmt.Sprintf("Invalid image URL: %s", img))
		}
	}
	for _, f := range p.Features {
		if len(f) > maxFeatureLength {
			return apperr.Validation("Feature cannot exceed 200 characters")
		}
	}
	p.Price = p.Price.Round(2)
	p.OriginalPrice = p.OriginalPrice.Round(2)
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (svc *CatalogService) checkProduct(ctx context.Context, p *models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if _, err := svc.Repo.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (svc *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if err := svc.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("index_product_failed", "product_id", p.ID, "error", err)
	}
}

func (svc *CatalogService) publish(ctx context.Context, kind string, p *models.Product) {
	events.Emit(ctx, svc.Events, events.TopicProducts, p.ID.String(), events.New(kind, map[string]any{
		"productId": p.ID,
		"name":      p.Name,
		"price":     p.Price,
		"status":    p.Status,
		"quantity":  p.Inventory.Quantity,
	}))
}

// Slugify lower-cases name, drops everything outside [a-z0-9 -] and joins
// words with single dashes.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	slug := strings.Join(fields, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}

func (svc *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return svc.Repo.ListCategories(ctx, true)
}

func (svc *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := svc.Repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (svc *CatalogService) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := svc.Repo.CategoryBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

func (svc *CatalogService) Subcategories(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	if _, err := svc.GetCategory(ctx, parentID); err != nil {
		return nil, err
	}
	return svc.Repo.Subcategories(ctx, parentID)
}

func (svc *CatalogService) CreateCategory(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	c := &models.Category{IsActive: true}
	applyCategory(c, req)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if err := svc.checkCategory(ctx, c); err != nil {
		return nil, err
	}
	if err := svc.Repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (svc *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req transport.CategoryRequest) (*models.Category, error) {
	c, err := svc.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCategory(c, req)
	if c.ParentID != nil && *c.ParentID == c.ID {
		return nil, apperr.Validation("Category cannot be its own parent")
	}
	if err := svc.checkCategory(ctx, c); err != nil {
		return nil, err
	}
	if err := svc.Repo.SaveCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory refuses while anything still points at the category.
func (svc *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := svc.GetCategory(ctx, id); err != nil {
		return err
	}
	products, children, err := svc.Repo.CategoryUsage(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 || children > 0 {
		return ErrCategoryInUse.With(fmt.Sprintf("Category is used by %d products and %d subcategories", products, children))
	}
	return svc.Repo.DeleteCategory(ctx, id)
}

func applyCategory(c *models.Category, req transport.CategoryRequest) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		c.Slug = strings.ToLower(strings.TrimSpace(*req.Slug))
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Image != nil {
		c.Image = strings.TrimSpace(*req.Image)
	}
	if req.ParentID != nil {
		if *req.ParentID == uuid.Nil {
			c.ParentID = nil
		} else {
			parent := *req.ParentID
			c.ParentID = &parent
		}
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
}

func (svc *CatalogService) checkCategory(ctx context.Context, c *models.Category) error {
	switch {
	case c.Name == "":
		return apperr.Validation("Category name is required")
	case len(c.Name) > 50:
		return apperr.Validation("Category name cannot exceed 50 characters")
	case len(c.Description) > 500:
		return apperr.Validation("Description cannot exceed 500 characters")
	case !slugPattern.MatchString(c.Slug):
		return apperr.Validation("Slug can only contain lowercase letters, numbers, and hyphens")
	}

	taken, err := svc.Repo.SlugTaken(ctx, c.Slug, c.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.ErrDuplicateField.With("Category slug already exists")
	}

	if c.ParentID != nil {
		if _, err := svc.GetCategory(ctx, *c.ParentID); err != nil {
			return err
		}
	}
	return nil
}

