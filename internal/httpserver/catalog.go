package httpserver

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/internal/util"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func isAdmin(c echo.Context) bool {
	acct := authmw.CurrentAccount(c)
	return acct != nil && acct.IsAdmin()
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	q := transport.ProductQuery{
		Search:       c.QueryParam("search"),
		Category:     c.QueryParam("category"),
		MinPrice:     queryFloat(c, "minPrice"),
		MaxPrice:     queryFloat(c, "maxPrice"),
		Brand:        c.QueryParam("brand"),
		IsBestseller: util.ParseBool(c.QueryParam("isBestseller")),
		IsNew:        util.ParseBool(c.QueryParam("isNew")),
		IsFeatured:   util.ParseBool(c.QueryParam("isFeatured")),
		Status:       strings.ToLower(c.QueryParam("status")),
		SortBy:       c.QueryParam("sortBy"),
		SortOrder:    strings.ToLower(c.QueryParam("sortOrder")),
	}

	pg := pageFrom(c)
	total, items, err := h.Svc.ListProducts(ctx, q, isAdmin(c), pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "get_products_error", err)
	}

	l.Info("get_products_success", "total", total)
	return paginated(c, items, pg, total)
}

func (h *CatalogHTTP) Featured(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.featured")

	items, err := h.Svc.Featured(ctx, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "featured_error", err)
	}
	return response.OK(c, items, "")
}

func (h *CatalogHTTP) Bestsellers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.bestsellers")

	items, err := h.Svc.Bestsellers(ctx, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "bestsellers_error", err)
	}
	return response.OK(c, items, "")
}

func (h *CatalogHTTP) LowStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.low_stock")

	_, limit, _ := util.Calculate(1, util.ParseIntDefault(c.QueryParam("limit"), util.MaxPageSize))
	items, err := h.Svc.LowStock(ctx, limit)
	if err != nil {
		return fail(l, "low_stock_error", err)
	}
	return response.OK(c, items, "")
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := util.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "get_product_failed", service.ErrProductNotFound.Wrap(err))
	}

	p, err := h.Svc.GetProduct(ctx, id, isAdmin(c))
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return response.OK(c, p, "")
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "product_create_error", err)
	}

	p, err := h.Svc.CreateProduct(ctx, req)
	if err != nil {
		return fail(l, "product_create_error", err)
	}

	l.Info("product_create_success", "product_id", p.ID)
	return response.Created(c, p, "Product created successfully")
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "product_update_error", err)
	}
	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "product_update_error", err)
	}

	p, err := h.Svc.UpdateProduct(ctx, id, req)
	if err != nil {
		return fail(l, "product_update_error", err)
	}

	l.Info("product_update_success", "product_id", id)
	return response.OK(c, p, "Product updated successfully")
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "product_delete_error", err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "product_delete_error", err)
	}

	l.Info("product_delete_success", "product_id", id)
	return response.OK(c, nil, "Product deleted successfully")
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories_error", err)
	}
	return response.OK(c, cats, "")
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := util.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "get_category_error", service.ErrCategoryNotFound.Wrap(err))
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return response.OK(c, cat, "")
}

func (h *CatalogHTTP) CategoryBySlug(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.by_slug")

	cat, err := h.Svc.CategoryBySlug(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return response.OK(c, cat, "")
}

func (h *CatalogHTTP) Subcategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.subcategories")

	id, err := util.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "subcategories_error", service.ErrCategoryNotFound.Wrap(err))
	}
	cats, err := h.Svc.Subcategories(ctx, id)
	if err != nil {
		return fail(l, "subcategories_error", err)
	}
	return response.OK(c, cats, "")
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_category_error", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, req)
	if err != nil {
		return fail(l, "create_category_error", err)
	}

	l.Info("create_category_success", "category_id", cat.ID, "slug", cat.Slug)
	return response.Created(c, cat, "Category created successfully")
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_category_error", err)
	}
	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_category_error", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, req)
	if err != nil {
		return fail(l, "update_category_error", err)
	}
	return response.OK(c, cat, "Category updated successfully")
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_category_error", err)
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category_error", err)
	}
	return response.OK(c, nil, "Category deleted successfully")
}

