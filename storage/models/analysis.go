package models

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis 一次完整分析的落库记录，只插入不更新。
type Analysis struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	URL             string         `gorm:"not null" json:"url"`
	Platform        string         `gorm:"type:varchar(16);not null;index" json:"platform"`
	AnalysisType    string         `gorm:"type:varchar(16);not null;index" json:"analysisType"`
	RiskScore       int            `gorm:"not null" json:"riskScore"`
	RiskLevel       string         `gorm:"type:varchar(16);not null;index" json:"riskLevel"`
	Warnings        datatypes.JSON `gorm:"not null" json:"warnings"`
	Recommendations datatypes.JSON `gorm:"not null" json:"recommendations"`
	Reasoning       string         `gorm:"type:text;not null" json:"reasoning"`
	AnalysisData    datatypes.JSON `json:"analysisData"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	IPAddress       *string        `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`

	Feedback []UserFeedback `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Analysis) TableName() string {
	return "analyses"
}

// UserFeedback 用户对分析结果的评价，随分析记录级联删除。
type UserFeedback struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AnalysisID uint      `gorm:"not null;index" json:"analysisId"`
	IsAccurate bool      `gorm:"not null" json:"isAccurate"`
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	IPAddress  *string   `gorm:"type:varchar(64)" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (UserFeedback) TableName() string {
	return "user_feedback"
}

// FraudPattern 诈骗特征参考表。
type FraudPattern struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Tag         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"tag"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Severity    string    `gorm:"type:varchar(16);not null" json:"severity"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (FraudPattern) TableName() string {
	return "fraud_patterns"
}

// PriceHistory 商品成交/挂牌价格记录，用于价格对比。
type PriceHistory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName  string    `gorm:"type:varchar(200);not null;index" json:"itemName"`
	Price     float64   `gorm:"not null" json:"price"`
	Platform  string    `gorm:"type:varchar(16);not null" json:"platform"`
	SourceURL string    `gorm:"not null" json:"sourceUrl"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

// All 参与自动迁移的全部模型。
func All() []interface{} {
	return []interface{}{&Analysis{}, &UserFeedback{}, &FraudPattern{}, &PriceHistory{}}
}
