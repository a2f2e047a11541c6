package repository

import (
	"context"
	"errors"

	"github.com/jennifer7519/fansafe/storage/models"

	"gorm.io/gorm"
)

// AddFeedback 为已存在的分析记录追加反馈；记录不存在返回 ErrNotFound。
func (s *Store) AddFeedback(ctx context.Context, feedback *models.UserFeedback) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists models.Analysis
		err := tx.Select("id").First(&exists, feedback.AnalysisID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return tx.Create(feedback).Error
	})
}

func (s *Store) ListFeedback(ctx context.Context, analysisID uint) ([]models.UserFeedback, error) {
	items := []models.UserFeedback{}
	err := s.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
