package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskly/internal/model"
)

// RecommendationRepository stores the derived recommendation set per owner.
type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Recommendation, error) {
	var recs []model.Recommendation
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at ASC, rowid ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

func (r *RecommendationRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Delete(&model.Recommendation{}).Error; err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}
	return nil
}

func (r *RecommendationRepository) InsertBatch(ctx context.Context, recs []model.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&recs).Error; err != nil {
		return fmt.Errorf("insert recommendations: %w", err)
	}
	return nil
}
