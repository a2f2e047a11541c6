package repository

import (
	"context"
	"errors"

	"github.com/jennifer7519/fansafe/storage/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) ListPatterns(ctx context.Context) ([]models.FraudPattern, error) {
	patterns := []models.FraudPattern{}
	err := s.db.WithContext(ctx).Order("id ASC").Find(&patterns).Error
	return patterns, err
}

// CreatePattern 新增诈骗模式，tag 冲突返回 ErrDuplicate。
func (s *Store) CreatePattern(ctx context.Context, pattern *models.FraudPattern) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FraudPattern{}).Where("tag = ?", pattern.Tag).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		err := tx.Create(pattern).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	})
}

// SeedPatterns 写入内置模式，已存在的 tag 保持不变。
func (s *Store) SeedPatterns(ctx context.Context, patterns []models.FraudPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tag"}}, DoNothing: true}).
		Create(&patterns).Error
}
