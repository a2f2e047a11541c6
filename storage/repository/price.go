package repository

import (
	"context"
	"strings"

	"github.com/jennifer7519/fansafe/storage/models"
)

// PriceStats 同名商品的历史价格概况，SampleCount 为 0 时其余字段无意义。
type PriceStats struct {
	SampleCount  int64   `json:"sampleCount"`
	AveragePrice float64 `json:"averagePrice"`
	MinPrice     float64 `json:"minPrice"`
	MaxPrice     float64 `json:"maxPrice"`
}

// PriceStats 按商品名（忽略大小写与首尾空白）汇总历史价格。
func (s *Store) PriceStats(ctx context.Context, itemName string) (PriceStats, error) {
	var stats PriceStats
	name := NormalizeItemName(itemName)
	if name == "" {
		return stats, nil
	}

	var row struct {
		SampleCount  int64
		AveragePrice *float64
		MinPrice     *float64
		MaxPrice     *float64
	}
	err := s.db.WithContext(ctx).Model(&models.PriceHistory{}).
		Select("COUNT(*) AS sample_count, AVG(price) AS average_price, MIN(price) AS min_price, MAX(price) AS max_price").
		Where("item_name = ?", name).
		Scan(&row).Error
	if err != nil {
		return stats, err
	}

	stats.SampleCount = row.SampleCount
	if row.AveragePrice != nil {
		stats.AveragePrice = *row.AveragePrice
	}
	if row.MinPrice != nil {
		stats.MinPrice = *row.MinPrice
	}
	if row.MaxPrice != nil {
		stats.MaxPrice = *row.MaxPrice
	}
	return stats, nil
}

// NormalizeItemName 价格记录使用的商品名键。
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
