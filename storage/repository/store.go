package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jennifer7519/fansafe/storage/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store 所有表的读写入口，分析记录只追加，不提供更新。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping 健康检查使用。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveAnalysis 在同一事务中写入分析记录及可选的价格记录。
func (s *Store) SaveAnalysis(ctx context.Context, record *models.Analysis, price *models.PriceHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if price == nil {
			return nil
		}
		return tx.Create(price).Error
	})
}

func (s *Store) GetAnalysis(ctx context.Context, id uint) (*models.Analysis, error) {
	var record models.Analysis
	err := s.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListFilter 分析记录分页查询条件，Page 从 1 开始。
type ListFilter struct {
	AnalysisType string
	Page         int
	PageSize     int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage 保证 (Page-1)*PageSize 不溢出。
	MaxPage = 100000
)

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.AnalysisType = strings.TrimSpace(f.AnalysisType)
	return f
}

// ListAnalyses 按创建时间倒序分页，返回当前页记录与总数。
func (s *Store) ListAnalyses(ctx context.Context, filter ListFilter) ([]models.Analysis, int64, error) {
	filter = filter.normalized()

	// 每次查询重新构造链，避免 Count 与 Find 共享语句状态。
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Analysis{})
		if filter.AnalysisType != "" {
			q = q.Where("analysis_type = ?", filter.AnalysisType)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	records := make([]models.Analysis, 0, filter.PageSize)
	err := query().
		Order("created_at DESC").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// DeleteAnalysis 删除分析记录，关联反馈由外键级联删除。
func (s *Store) DeleteAnalysis(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Analysis{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LevelCount 某一风险等级的记录数。
type LevelCount struct {
	RiskLevel string `json:"riskLevel"`
	Count     int64  `json:"count"`
}

// TypeStats 某一分析类型的汇总。
type TypeStats struct {
	AnalysisType string  `json:"analysisType"`
	Count        int64   `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

// Stats 全局汇总。
type Stats struct {
	TotalAnalyses    int64        `json:"totalAnalyses"`
	ByType           []TypeStats  `json:"byType"`
	ByRiskLevel      []LevelCount `json:"byRiskLevel"`
	FeedbackCount    int64        `json:"feedbackCount"`
	AccurateFeedback int64        `json:"accurateFeedback"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{ByType: []TypeStats{}, ByRiskLevel: []LevelCount{}}

	if err := db.Model(&models.Analysis{}).Count(&stats.TotalAnalyses).Error; err != nil {
		return nil, err
	}
	err := db.Model(&models.Analysis{}).
		Select("analysis_type, COUNT(*) AS count, AVG(risk_score) AS average_score").
		Group("analysis_type").
		Order("analysis_type").
		Scan(&stats.ByType).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.Analysis{}).
		Select("risk_level, COUNT(*) AS count").
		Group("risk_level").
		Order("risk_level").
		Scan(&stats.ByRiskLevel).Error
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.UserFeedback{}).Count(&stats.FeedbackCount).Error; err != nil {
		return nil, err
	}
	err = db.Model(&models.UserFeedback{}).
		Where("is_accurate = ?", true).
		Count(&stats.AccurateFeedback).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
