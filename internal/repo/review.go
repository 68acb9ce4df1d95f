package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

type ReviewFilter struct {
	ProductID    *uuid.UUID
	UserID       *uuid.UUID
	Rating       int
	ApprovedOnly bool
	Sort         string
}

var reviewSorts = map[string][]clause.OrderByColumn{
	"newest":  {{Column: clause.Column{Name: "created_at"}, Desc: true}},
	"oldest":  {{Column: clause.Column{Name: "created_at"}}},
	"highest": {{Column: clause.Column{Name: "rating"}, Desc: true}, {Column: clause.Column{Name: "created_at"}, Desc: true}},
	"lowest":  {{Column: clause.Column{Name: "rating"}}, {Column: clause.Column{Name: "created_at"}, Desc: true}},
	"helpful": {{Column: clause.Column{Name: "helpful_count"}, Desc: true}, {Column: clause.Column{Name: "created_at"}, Desc: true}},
}

func (f ReviewFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Rating >= 1 && f.Rating <= 5 {
		q = q.Where("rating = ?", f.Rating)
	}
	if f.ApprovedOnly {
		q = q.Where("is_approved = ?", true)
	}
	return q
}

func (r *GormRepo) ReviewExists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ? AND product_id = ?", userID, productID).Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.DB.WithContext(ctx).Omit("User").Create(rv).Error
}

func (r *GormRepo) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var rv models.Review
	if err := r.DB.WithContext(ctx).Preload("User", preloadReviewer).First(&rv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func preloadReviewer(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name")
}

func (r *GormRepo) UpdateReviewFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("review_id = ?", id).Delete(&models.ReviewVote{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ListReviews(ctx context.Context, f ReviewFilter, offset, limit int) (int64, []models.Review, error) {
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Review{})).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	order, ok := reviewSorts[f.Sort]
	if !ok {
		order = reviewSorts["newest"]
	}

	items := make([]models.Review, 0, limit)
	err := q.Preload("User", preloadReviewer).
		Clauses(clause.OrderBy{Columns: order}).
		Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// RatingAggregate averages the approved reviews of a product.
func (r *GormRepo) RatingAggregate(ctx context.Context, productID uuid.UUID) (float64, int64, error) {
	var row struct {
		Avg   sql.NullFloat64
		Count int64
	}
	err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg.Float64, row.Count, nil
}

func (r *GormRepo) RatingDistribution(ctx context.Context, productID uuid.UUID) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Group("rating").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, row := range rows {
		out[row.Rating] = row.Count
	}
	return out, nil
}

// AddVote records a helpful vote; false when the account already voted.
func (r *GormRepo) AddVote(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	db := r.DB.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ReviewVote{ReviewID: reviewID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := db.Model(&models.Review{}).Where("id = ?", reviewID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count + 1")).Error
	return err == nil, err
}

// RemoveVote withdraws a helpful vote; false when there was none.
func (r *GormRepo) RemoveVote(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	db := r.DB.WithContext(ctx)
	res := db.Where("review_id = ? AND user_id = ?", reviewID, userID).Delete(&models.ReviewVote{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := db.Model(&models.Review{}).Where("id = ? AND helpful_count > 0", reviewID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count - 1")).Error
	return err == nil, err
}
