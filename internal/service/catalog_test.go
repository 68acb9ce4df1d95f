package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/search"
	"github.com/Skotchmaster/radiant_bloom/internal/testutil"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uuid.UUID]string
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]string{}
	}
	f.indexed[p.ID] = p.Name
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) SearchIDs(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

func newCatalog(t *testing.T, idx search.ProductIndex) (*CatalogService, *repo.GormRepo) {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	return NewCatalogService(r, idx, events.Nop{}, 5), r
}

func ptr[T any](v T) *T { return &v }

func productRequest(catID uuid.UUID) transport.ProductRequest {
	return transport.ProductRequest{
		Name:        ptr("Rose Serum"),
		Brand:       ptr("Radiant Bloom"),
		Description: ptr("Hydrating rose serum"),
		Price:       ptr(decimal.RequireFromString("45.99")),
		CategoryID:  &catID,
		Images:      []string{"https://cdn.example.com/rose.jpg"},
		Quantity:    ptr(12),
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hair Care":           "hair-care",
		"  Skin & Body  ":     "skin-body",
		"Tools -- Brushes":    "tools-brushes",
		"Fragrance!":          "fragrance",
		"-Leading and trail-": "leading-and-trail",
		"Été 2024":            "t-2024",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCatalog_CreateProduct(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{}
	svc, r := newCatalog(t, idx)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "skincare")

	p, err := svc.CreateProduct(ctx, productRequest(cat.ID))
	require.NoError(t, err)

	assert.Equal(t, models.ProductActive, p.Status)
	assert.True(t, p.Inventory.TrackInventory)
	assert.Equal(t, 5, p.Inventory.LowStockThreshold)
	assert.True(t, p.InStock)
	require.NotNil(t, p.Category)
	assert.Equal(t, "skincare", p.Category.Slug)
	assert.Equal(t, "Rose Serum", idx.indexed[p.ID])
}

func TestCatalog_ProductValidation(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, search.Nop{})
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "makeup")

	tests := []struct {
		name   string
		mutate func(*transport.ProductRequest)
		want   error
	}{
		{"missing name", func(p *transport.ProductRequest) { p.Name = ptr("  ") }, apperr.Validation("")},
		{"long brand", func(p *transport.ProductRequest) { p.Brand = ptr(strings.Repeat("b", 51)) }, apperr.Validation("")},
		{"negative price", func(p *transport.ProductRequest) { p.Price = ptr(decimal.NewFromInt(-1)) }, apperr.Validation("")},
		{"original below price", func(p *transport.ProductRequest) { p.OriginalPrice = ptr(decimal.NewFromInt(10)) }, apperr.Validation("")},
		{"too many images", func(p *transport.ProductRequest) { p.Images = make([]string, 11) }, apperr.Validation("")},
		{"non http image", func(p *transport.ProductRequest) { p.Images = []string{"ftp://x/y.png"} }, apperr.Validation("")},
		{"long feature", func(p *transport.ProductRequest) { p.Features = []string{strings.Repeat("f", 201)} }, apperr.Validation("")},
		{"bad status", func(p *transport.ProductRequest) { p.Status = ptr("archived") }, apperr.Validation("")},
		{"unknown category", func(p *transport.ProductRequest) { id := uuid.New(); p.CategoryID = &id }, ErrCategoryNotFound},
		{"no category", func(p *transport.ProductRequest) { p.CategoryID = nil }, apperr.Validation("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := productRequest(cat.ID)
			tc.mutate(&req)
			_, err := svc.CreateProduct(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCatalog_EmptySKUStoredAsNull(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, search.Nop{})
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "tools")

	for range 2 {
		req := productRequest(cat.ID)
		req.SKU = ptr("")
		p, err := svc.CreateProduct(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, p.SKU)
	}
}

func TestCatalog_GetProductVisibility(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, search.Nop{})
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "hair-care")
	draft := testutil.CreateProduct(t, r.DB, cat.ID, "Draft Oil", "12.00", testutil.WithStatus(models.ProductDraft))

	_, err := svc.GetProduct(ctx, draft.ID, false)
	assert.ErrorIs(t, err, ErrProductNotFound)

	got, err := svc.GetProduct(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	_, err = svc.GetProduct(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_UpdateAndDeleteProduct(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{}
	svc, r := newCatalog(t, idx)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "fragrance")
	p := testutil.CreateProduct(t, r.DB, cat.ID, "Oud", "80.00")

	updated, err := svc.UpdateProduct(ctx, p.ID, transport.ProductRequest{
		Price:         ptr(decimal.RequireFromString("60")),
		OriginalPrice: ptr(decimal.RequireFromString("80")),
		IsFeatured:    ptr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(60)), updated.Price.String())
	assert.Equal(t, 25, updated.DiscountPercentage)
	assert.True(t, updated.IsFeatured)
	assert.Equal(t, "Oud", idx.indexed[p.ID])

	featured, err := svc.Featured(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, []uuid.UUID{p.ID}, idx.deleted)
	_, err = svc.GetProduct(ctx, p.ID, true)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_UpdateProductKeepsConcurrentStockAndRating(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, &fakeIndex{})
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "bath")
	p := testutil.CreateProduct(t, r.DB, cat.ID, "Bath Salts", "14.00")

	// An order and a review commit between the edit's read and its write.
	var once sync.Once
	var raceErr error
	err := r.DB.Callback().Update().Before("gorm:update").Register("test:concurrent_writes", func(tx *gorm.DB) {
		if tx.Statement.Table != "products" {
			return
		}
		once.Do(func() {
			raceErr = tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE products SET inventory_quantity = inventory_quantity - 3, rating = 4.5, review_count = 2 WHERE id = ?", p.ID).Error
		})
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, transport.ProductRequest{Description: ptr("Mineral soak")})
	require.NoError(t, err)
	require.NoError(t, raceErr)
	assert.Equal(t, "Mineral soak", updated.Description)
	assert.Equal(t, 7, updated.Inventory.Quantity)
	assert.Equal(t, 4.5, updated.Rating)
	assert.Equal(t, 2, updated.ReviewCount)

	restocked, err := svc.UpdateProduct(ctx, p.ID, transport.ProductRequest{Quantity: ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, 20, restocked.Inventory.Quantity)
	assert.Equal(t, "Mineral soak", restocked.Description)
}

func TestCatalog_ListProducts(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, search.Nop{})
	ctx := context.Background()
	skin := testutil.CreateCategory(t, r.DB, "skincare")
	hair := testutil.CreateCategory(t, r.DB, "hair-care")
	testutil.CreateProduct(t, r.DB, skin.ID, "Rose Serum", "45.99")
	testutil.CreateProduct(t, r.DB, skin.ID, "Night Cream", "30.00")
	testutil.CreateProduct(t, r.DB, hair.ID, "Argan Oil", "20.00")
	testutil.CreateProduct(t, r.DB, hair.ID, "Hidden Mask", "15.00", testutil.WithStatus(models.ProductInactive))

	t.Run("public sees active only", func(t *testing.T) {
		total, _, err := svc.ListProducts(ctx, transport.ProductQuery{}, false, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})

	t.Run("admin may widen status", func(t *testing.T) {
		total, _, err := svc.ListProducts(ctx, transport.ProductQuery{Status: "all"}, true, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)

		total, _, err = svc.ListProducts(ctx, transport.ProductQuery{Status: models.ProductInactive}, false, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})

	t.Run("category by slug or id", func(t *testing.T) {
		total, _, err := svc.ListProducts(ctx, transport.ProductQuery{Category: "skincare"}, false, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		total, _, err = svc.ListProducts(ctx, transport.ProductQuery{Category: hair.ID.String()}, false, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		total, items, err := svc.ListProducts(ctx, transport.ProductQuery{Category: "nope"}, false, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})

	t.Run("search falls back to the database", func(t *testing.T) {
		_, items, err := svc.ListProducts(ctx, transport.ProductQuery{Search: "serum"}, false, 0, 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Rose Serum", items[0].Name)
	})
}

func TestCatalog_SearchUsesIndexRank(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{}
	svc, r := newCatalog(t, idx)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, r.DB, "makeup")
	a := testutil.CreateProduct(t, r.DB, cat.ID, "Lip Tint", "9.00")
	b := testutil.CreateProduct(t, r.DB, cat.ID, "Lip Balm", "5.00")
	c := testutil.CreateProduct(t, r.DB, cat.ID, "Lip Liner", "7.00", testutil.WithStatus(models.ProductDraft))
	idx.hits = []uuid.UUID{b.ID, c.ID, a.ID}

	total, items, err := svc.ListProducts(ctx, transport.ProductQuery{Search: "lip"}, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	_, page, err := svc.ListProducts(ctx, transport.ProductQuery{Search: "lip"}, false, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)

	_, sorted, err := svc.ListProducts(ctx, transport.ProductQuery{Search: "lip", SortBy: "price", SortOrder: "desc"}, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	assert.Equal(t, a.ID, sorted[0].ID)

	idx.err = errors.New("cluster down")
	_, fallback, err := svc.ListProducts(ctx, transport.ProductQuery{Search: "balm"}, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, b.ID, fallback[0].ID)
}

func TestCatalog_Categories(t *testing.T) {
	t.Parallel()
	svc, r := newCatalog(t, search.Nop{})
	ctx := context.Background()

	parent, err := svc.CreateCategory(ctx, transport.CategoryRequest{Name: ptr("Hair Care")})
	require.NoError(t, err)
	assert.Equal(t, "hair-care", parent.Slug)
	assert.True(t, parent.IsActive)

	_, err = svc.CreateCategory(ctx, transport.CategoryRequest{Name: ptr("Hair  Care!")})
	assert.ErrorIs(t, err, apperr.ErrDuplicateField)

	_, err = svc.CreateCategory(ctx, transport.CategoryRequest{Name: ptr("Bad"), Slug: ptr("bad slug")})
	assert.ErrorIs(t, err, apperr.Validation(""))

	child, err := svc.CreateCategory(ctx, transport.CategoryRequest{Name: ptr("Shampoo"), ParentID: &parent.ID})
	require.NoError(t, err)

	subs, err := svc.Subcategories(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, child.ID, subs[0].ID)

	got, err := svc.CategoryBySlug(ctx, "HAIR-CARE")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ID)

	_, err = svc.UpdateCategory(ctx, parent.ID, transport.CategoryRequest{ParentID: &parent.ID})
	assert.ErrorIs(t, err, apperr.Validation(""))

	assert.ErrorIs(t, svc.DeleteCategory(ctx, parent.ID), ErrCategoryInUse)

	testutil.CreateProduct(t, r.DB, child.ID, "Clarifying Shampoo", "14.00")
	assert.ErrorIs(t, svc.DeleteCategory(ctx, child.ID), ErrCategoryInUse)

	_, err = svc.UpdateCategory(ctx, child.ID, transport.CategoryRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = svc.CategoryBySlug(ctx, "shampoo")
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = svc.GetCategory(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
