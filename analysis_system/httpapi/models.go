package httpapi

import (
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"
)

// envelope 所有 JSON 接口的统一外层结构。
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// ListingAnalysisResponse 帖子分析结果。
type ListingAnalysisResponse struct {
	AnalysisID       uint                   `json:"analysisId"`
	RiskScore        int                    `json:"riskScore"`
	RiskLevel        schema.Level           `json:"riskLevel"`
	Warnings         []string               `json:"warnings"`
	Recommendations  []string               `json:"recommendations"`
	Reasoning        string                 `json:"reasoning"`
	DetectedPatterns []string               `json:"detectedPatterns,omitempty"`
	PriceAnalysis    *schema.PriceAnalysis  `json:"priceAnalysis,omitempty"`
	TranslatedText   *string                `json:"translatedText,omitempty"`
	Platform         schema.Platform        `json:"platform"`
	PriceComparison  *repository.PriceStats `json:"priceComparison,omitempty"`
}

// SellerAnalysisResponse 卖家可信度结果。
type SellerAnalysisResponse struct {
	AnalysisID      uint            `json:"analysisId"`
	TrustScore      int             `json:"trustScore"`
	TrustLevel      schema.Level    `json:"trustLevel"`
	Strengths       []string        `json:"strengths"`
	Concerns        []string        `json:"concerns"`
	Recommendations []string        `json:"recommendations"`
	Reasoning       string          `json:"reasoning"`
	Platform        schema.Platform `json:"platform"`
}

// ImageAnalysisResponse 图片真伪结果。
type ImageAnalysisResponse struct {
	AnalysisID      uint         `json:"analysisId"`
	IsAuthentic     bool         `json:"isAuthentic"`
	Confidence      float64      `json:"confidence"`
	RiskScore       int          `json:"riskScore"`
	RiskLevel       schema.Level `json:"riskLevel"`
	DetectedIssues  []string     `json:"detectedIssues"`
	Observations    []string     `json:"observations"`
	Recommendations []string     `json:"recommendations"`
	Reasoning       string       `json:"reasoning"`
}

// AnalysisListResponse 分页列表。
type AnalysisListResponse struct {
	Items    []models.Analysis `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

type AnalysisDetailResponse struct {
	Analysis models.Analysis       `json:"analysis"`
	Feedback []models.UserFeedback `json:"feedback"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	ModelConfigured bool   `json:"modelConfigured"`
	Database        string `json:"database"`
}
