package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/internal/util"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

type ReviewHTTP struct {
	Svc *service.ReviewService
}

func (h *ReviewHTTP) ListProductReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.list_product")

	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "list_reviews_error", err)
	}

	pg := pageFrom(c)
	rating := util.ParseIntDefault(c.QueryParam("rating"), 0)
	total, reviews, err := h.Svc.ListProductReviews(ctx, productID, rating, c.QueryParam("sort"), pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "list_reviews_error", err)
	}
	return paginated(c, reviews, pg, total)
}

func (h *ReviewHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.summary")

	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "review_summary_error", err)
	}

	summary, err := h.Svc.RatingSummary(ctx, productID)
	if err != nil {
		return fail(l, "review_summary_error", err)
	}
	return response.OK(c, summary, "")
}

func (h *ReviewHTTP) CanReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.can_review")

	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "can_review_error", err)
	}

	res, err := h.Svc.Eligibility(ctx, authmw.CurrentAccount(c), productID)
	if err != nil {
		return fail(l, "can_review_error", err)
	}
	return response.OK(c, res, "")
}

func (h *ReviewHTTP) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.list_mine")

	pg := pageFrom(c)
	total, reviews, err := h.Svc.ListMyReviews(ctx, authmw.CurrentAccount(c), pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "list_reviews_error", err)
	}
	return paginated(c, reviews, pg, total)
}

func (h *ReviewHTTP) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.create")

	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "create_review_error", err)
	}
	var req transport.CreateReviewRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_review_error", err)
	}

	rv, err := h.Svc.CreateReview(ctx, authmw.CurrentAccount(c), productID, req)
	if err != nil {
		return fail(l, "create_review_error", err)
	}

	l.Info("create_review_success", "review_id", rv.ID, "product_id", productID)
	return response.Created(c, rv, "Review created successfully")
}

func (h *ReviewHTTP) UpdateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.update")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_review_error", err)
	}
	var req transport.UpdateReviewRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_review_error", err)
	}

	rv, err := h.Svc.UpdateReview(ctx, authmw.CurrentAccount(c), id, req)
	if err != nil {
		return fail(l, "update_review_error", err)
	}
	return response.OK(c, rv, "Review updated successfully")
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.delete")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_review_error", err)
	}
	if err := h.Svc.DeleteReview(ctx, authmw.CurrentAccount(c), id); err != nil {
		return fail(l, "delete_review_error", err)
	}

	l.Info("delete_review_success", "review_id", id)
	return response.OK(c, nil, "Review deleted successfully")
}

func (h *ReviewHTTP) SetApproval(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.approval")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "review_approval_error", err)
	}
	var req transport.ReviewApprovalRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "review_approval_error", err)
	}

	rv, err := h.Svc.SetApproval(ctx, id, req.IsApproved)
	if err != nil {
		return fail(l, "review_approval_error", err)
	}
	return response.OK(c, rv, "Review approval updated")
}

func (h *ReviewHTTP) MarkHelpful(c echo.Context) error {
	return h.vote(c, true)
}

func (h *ReviewHTTP) UnmarkHelpful(c echo.Context) error {
	return h.vote(c, false)
}

func (h *ReviewHTTP) vote(c echo.Context, helpful bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.helpful", "helpful", helpful)

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "review_vote_error", err)
	}

	var res transport.HelpfulResult
	if helpful {
		res, err = h.Svc.MarkHelpful(ctx, authmw.CurrentAccount(c), id)
	} else {
		res, err = h.Svc.UnmarkHelpful(ctx, authmw.CurrentAccount(c), id)
	}
	if err != nil {
		return fail(l, "review_vote_error", err)
	}
	return response.OK(c, res, "")
}
