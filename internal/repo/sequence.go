package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

// NextOrderSequence bumps and returns the counter for day.
func (r *GormRepo) NextOrderSequence(ctx context.Context, day string) (int64, error) {
	var seq models.OrderSequence
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("order_sequences.value + 1")}),
		}).Create(&models.OrderSequence{Day: day, Value: 1}).Error
		if err != nil {
			return err
		}
		return tx.First(&seq, "day = ?", day).Error
	})
	return seq.Value, err
}
