package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

var (
	ErrNotPurchased       = apperr.BadRequest("NOT_PURCHASED", "User has not purchased this product")
	ErrAlreadyReviewed    = apperr.BadRequest("ALREADY_REVIEWED", "User has already reviewed this product")
	ErrReviewNotFound     = apperr.NotFound("REVIEW_NOT_FOUND", "Review not found")
	ErrCannotVoteOwn      = apperr.BadRequest("CANNOT_VOTE_OWN_REVIEW", "You cannot mark your own review as helpful")
	errRatingRange        = apperr.Validation("Rating must be between 1 and 5")
	errCommentRequired    = apperr.Validation("Comment is required")
	errCommentTooLong     = apperr.Validation("Comment cannot exceed 1000 characters")
	errReviewTitleTooLong = apperr.Validation("Title cannot exceed 200 characters")
)

const (
	maxReviewComment = 1000
	maxReviewTitle   = 200
)

type ReviewService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func NewReviewService(r *repo.GormRepo, pub events.Publisher) *ReviewService {
	return &ReviewService{Repo: r, Events: pub}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return errRatingRange
	}
	return nil
}

func validateComment(comment string) error {
	if comment == "" {
		return errCommentRequired
	}
	if len(comment) > maxReviewComment {
		return errCommentTooLong
	}
	return nil
}

func validateTitle(title string) error {
	if len(title) > maxReviewTitle {
		return errReviewTitleTooLong
	}
	return nil
}

// CanReview returns the order proving the purchase. Purchase is checked
// before the one-review-per-product rule.
func (svc *ReviewService) CanReview(ctx context.Context, acct *models.User, productID uuid.UUID) (uuid.UUID, error) {
	return canReview(ctx, svc.Repo, acct.ID, productID)
}

func canReview(ctx context.Context, r *repo.GormRepo, userID, productID uuid.UUID) (uuid.UUID, error) {
	orderID, ok, err := r.PurchasedOrderID(ctx, userID, productID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, ErrNotPurchased
	}

	exists, err := r.ReviewExists(ctx, userID, productID)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, ErrAlreadyReviewed
	}
	return orderID, nil
}

// Eligibility reports the CanReview outcome as data instead of an error.
func (svc *ReviewService) Eligibility(ctx context.Context, acct *models.User, productID uuid.UUID) (transport.CanReviewResult, error) {
	orderID, err := svc.CanReview(ctx, acct, productID)
	switch {
	case err == nil:
		return transport.CanReviewResult{CanReview: true, OrderID: &orderID}, nil
	case errors.Is(err, ErrNotPurchased), errors.Is(err, ErrAlreadyReviewed):
		return transport.CanReviewResult{CanReview: false, Reason: apperr.Translate(err).Message}, nil
	}
	return transport.CanReviewResult{}, err
}

func (svc *ReviewService) CreateReview(ctx context.Context, acct *models.User, productID uuid.UUID, req transport.CreateReviewRequest) (*models.Review, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}
	if err := validateComment(req.Comment); err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	if _, err := svc.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	rv := &models.Review{
		UserID:     acct.ID,
		ProductID:  productID,
		Rating:     req.Rating,
		Title:      req.Title,
		Comment:    req.Comment,
		IsVerified: true,
		IsApproved: true,
	}

	err := svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		orderID, err := canReview(ctx, tx, acct.ID, productID)
		if err != nil {
			return err
		}
		rv.OrderID = orderID

		if err := tx.CreateReview(ctx, rv); err != nil {
			if errors.Is(apperr.Translate(err), apperr.ErrDuplicateField) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return recomputeRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}

	svc.publish(ctx, "review_created", rv)
	return svc.load(ctx, rv.ID)
}

func (svc *ReviewService) load(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	rv, err := svc.Repo.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return rv, nil
}

// UpdateReview lets the author edit rating, title and comment.
func (svc *ReviewService) UpdateReview(ctx context.Context, acct *models.User, id uuid.UUID, req transport.UpdateReviewRequest) (*models.Review, error) {
	rv, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.UserID != acct.ID {
		return nil, authmw.ErrAccessDenied
	}

	fields := map[string]any{}
	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return nil, err
		}
		fields["rating"] = *req.Rating
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if req.Comment != nil {
		comment := strings.TrimSpace(*req.Comment)
		if err := validateComment(comment); err != nil {
			return nil, err
		}
		fields["comment"] = comment
	}
	if len(fields) == 0 {
		return rv, nil
	}

	err = svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateReviewFields(ctx, id, fields); err != nil {
			return err
		}
		return recomputeRating(ctx, tx, rv.ProductID)
	})
	if err != nil {
		return nil, err
	}

	updated, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, "review_updated", updated)
	return updated, nil
}

// DeleteReview is allowed to the author and admins.
func (svc *ReviewService) DeleteReview(ctx context.Context, acct *models.User, id uuid.UUID) error {
	rv, err := svc.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authmw.Authorize(acct, rv.UserID); err != nil {
		return err
	}

	err = svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.DeleteReview(ctx, id); err != nil {
			return err
		}
		return recomputeRating(ctx, tx, rv.ProductID)
	})
	if err != nil {
		return err
	}
	svc.publish(ctx, "review_deleted", rv)
	return nil
}

func (svc *ReviewService) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Review, error) {
	rv, err := svc.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateReviewFields(ctx, id, map[string]any{"is_approved": approved}); err != nil {
			return err
		}
		return recomputeRating(ctx, tx, rv.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return svc.load(ctx, id)
}

// MarkHelpful is idempotent per account.
func (svc *ReviewService) MarkHelpful(ctx context.Context, acct *models.User, id uuid.UUID) (transport.HelpfulResult, error) {
	rv, err := svc.load(ctx, id)
	if err != nil {
		return transport.HelpfulResult{}, err
	}
	if rv.UserID == acct.ID {
		return transport.HelpfulResult{}, ErrCannotVoteOwn
	}

	err = svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		_, err := tx.AddVote(ctx, id, acct.ID)
		return err
	})
	if err != nil {
		return transport.HelpfulResult{}, err
	}
	return svc.helpful(ctx, id, true)
}

func (svc *ReviewService) UnmarkHelpful(ctx context.Context, acct *models.User, id uuid.UUID) (transport.HelpfulResult, error) {
	if _, err := svc.load(ctx, id); err != nil {
		return transport.HelpfulResult{}, err
	}

	err := svc.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		_, err := tx.RemoveVote(ctx, id, acct.ID)
		return err
	})
	if err != nil {
		return transport.HelpfulResult{}, err
	}
	return svc.helpful(ctx, id, false)
}

func (svc *ReviewService) helpful(ctx context.Context, id uuid.UUID, voted bool) (transport.HelpfulResult, error) {
	rv, err := svc.load(ctx, id)
	if err != nil {
		return transport.HelpfulResult{}, err
	}
	return transport.HelpfulResult{HelpfulCount: rv.HelpfulCount, Voted: voted}, nil
}

func (svc *ReviewService) ListProductReviews(ctx context.Context, productID uuid.UUID, rating int, sort string, offset, limit int) (int64, []models.Review, error) {
	return svc.Repo.ListReviews(ctx, repo.ReviewFilter{
		ProductID:    &productID,
		Rating:       rating,
		ApprovedOnly: true,
		Sort:         sort,
	}, offset, limit)
}

func (svc *ReviewService) ListMyReviews(ctx context.Context, acct *models.User, offset, limit int) (int64, []models.Review, error) {
	return svc.Repo.ListReviews(ctx, repo.ReviewFilter{UserID: &acct.ID}, offset, limit)
}

func (svc *ReviewService) RatingSummary(ctx context.Context, productID uuid.UUID) (transport.RatingSummary, error) {
	avg, count, err := svc.Repo.RatingAggregate(ctx, productID)
	if err != nil {
		return transport.RatingSummary{}, err
	}
	dist, err := svc.Repo.RatingDistribution(ctx, productID)
	if err != nil {
		return transport.RatingSummary{}, err
	}
	return transport.RatingSummary{
		AverageRating: roundRating(avg),
		TotalReviews:  count,
		Distribution:  dist,
	}, nil
}

// recomputeRating stores the mean of the approved reviews, one decimal,
// and their count on the product.
func recomputeRating(ctx context.Context, tx *repo.GormRepo, productID uuid.UUID) error {
	avg, count, err := tx.RatingAggregate(ctx, productID)
	if err != nil {
		return err
	}
	return tx.UpdateRating(ctx, productID, roundRating(avg), count)
}

func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

func (svc *ReviewService) publish(ctx context.Context, kind string, rv *models.Review) {
	events.Emit(ctx, svc.Events, events.TopicReviews, rv.ProductID.String(), events.New(kind, map[string]any{
		"reviewId":  rv.ID,
		"productId": rv.ProductID,
		"userId":    rv.UserID,
		"rating":    rv.Rating,
	}))
}
