package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jennifer7519/fansafe/analysis_system/agent"
	"github.com/jennifer7519/fansafe/analysis_system/classifier"
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// MsgSaveFailed 分析成功但落库失败时返回给调用方的消息。
const MsgSaveFailed = "Failed to save analysis results"

// ErrPersistence 推理成功但写库失败。
var ErrPersistence = errors.New(MsgSaveFailed)

// UpstreamError 推理调用失败，Message 原样返回给调用方。
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Analyzer 推理调用方，由 agent.Invoker 实现，测试中可替换。
type Analyzer interface {
	AnalyzeListing(ctx context.Context, req *schema.ListingRequest) agent.Result[schema.ListingAnalysisOutput]
	AnalyzeSeller(ctx context.Context, req *schema.SellerRequest) agent.Result[schema.SellerAnalysisOutput]
	AnalyzeImages(ctx context.Context, req *schema.ImageRequest) agent.Result[schema.ImageAnalysisOutput]
}

// Writer 分析结果的持久化出口。
type Writer interface {
	SaveAnalysis(ctx context.Context, record *models.Analysis, price *models.PriceHistory) error
	PriceStats(ctx context.Context, itemName string) (repository.PriceStats, error)
}

// AnalysisService 串联 推理 -> 分级 -> 平台识别 -> 落库，每个请求最多一次推理调用和一次写入。
type AnalysisService struct {
	analyzer Analyzer
	writer   Writer
	log      logrus.FieldLogger
}

func NewAnalysisService(analyzer Analyzer, writer Writer, log logrus.FieldLogger) *AnalysisService {
	return &AnalysisService{analyzer: analyzer, writer: writer, log: log}
}

// ListingResult 帖子分析的对外结果。
type ListingResult struct {
	AnalysisID      uint
	Output          schema.ListingAnalysisOutput
	RiskLevel       schema.Level
	Platform        schema.Platform
	PriceComparison *repository.PriceStats
}

type SellerResult struct {
	AnalysisID uint
	Output     schema.SellerAnalysisOutput
	Platform   schema.Platform
}

type ImageResult struct {
	AnalysisID uint
	Output     schema.ImageAnalysisOutput
	RiskScore  int
	RiskLevel  schema.Level
}

// AnalyzeListing 入参已通过请求校验。
func (s *AnalysisService) AnalyzeListing(ctx context.Context, req *schema.ListingRequest, clientIP *string) (*ListingResult, error) {
	res := s.analyzer.AnalyzeListing(ctx, req)
	if !res.Success || res.Data == nil {
		return nil, &UpstreamError{Message: res.Error}
	}
	out := *res.Data

	result := &ListingResult{
		Output:    out,
		RiskLevel: classifier.Classify(*out.RiskScore),
		Platform:  classifier.DetectPlatform(req.URL),
	}

	var price *models.PriceHistory
	itemKey := repository.NormalizeItemName(req.ItemName)
	if req.Price != nil && itemKey != "" {
		stats, err := s.writer.PriceStats(ctx, itemKey)
		if err != nil {
			s.log.WithError(err).WithField("item", itemKey).Warn("price comparison lookup failed")
		} else if stats.SampleCount > 0 {
			result.PriceComparison = &stats
		}
		price = &models.PriceHistory{
			ItemName:  itemKey,
			Price:     *req.Price,
			Platform:  string(result.Platform),
			SourceURL: req.URL,
		}
	}

	data := map[string]interface{}{
		"detectedPatterns": nonNil(out.DetectedPatterns),
		"lenient":          res.Lenient,
	}
	if out.PriceAnalysis != nil {
		data["priceAnalysis"] = out.PriceAnalysis
	}
	if out.TranslatedText != nil {
		data["translatedText"] = *out.TranslatedText
	}
	if req.Price != nil {
		data["price"] = *req.Price
	}
	if name := strings.TrimSpace(req.ItemName); name != "" {
		data["itemName"] = name
	}
	if result.PriceComparison != nil {
		data["priceComparison"] = result.PriceComparison
	}
	if len(req.Images) > 0 {
		data["imageCount"] = len(req.Images)
	}

	record, err := newRecord(req.URL, result.Platform, schema.AnalysisTypeListing, *out.RiskScore, result.RiskLevel,
		out.Warnings, out.Recommendations, out.Reasoning, data, clientIP)
	if err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeListing)
	}
	if err := s.writer.SaveAnalysis(ctx, record, price); err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeListing)
	}
	result.AnalysisID = record.ID
	return result, nil
}

// AnalyzeSeller 信任分直接写入 risk_score 列，信任等级以分数分档为准。
func (s *AnalysisService) AnalyzeSeller(ctx context.Context, req *schema.SellerRequest, clientIP *string) (*SellerResult, error) {
	res := s.analyzer.AnalyzeSeller(ctx, req)
	if !res.Success || res.Data == nil {
		return nil, &UpstreamError{Message: res.Error}
	}
	out := *res.Data

	level := classifier.Classify(*out.TrustScore)
	if out.TrustLevel != level {
		s.log.WithFields(logrus.Fields{
			"trust_score": *out.TrustScore,
			"model_level": out.TrustLevel,
			"level":       level,
		}).Warn("model trust level disagrees with score; using score bucket")
		out.TrustLevel = level
	}

	platform := req.Platform
	if platform == "" || platform == schema.PlatformUnknown {
		platform = classifier.DetectPlatform(req.URL)
	}

	data := map[string]interface{}{
		"username":   req.Username,
		"trustLevel": out.TrustLevel,
		"strengths":  nonNil(out.Strengths),
		"concerns":   nonNil(out.Concerns),
		"lenient":    res.Lenient,
	}
	if req.AccountAge != nil {
		data["accountAge"] = *req.AccountAge
	}
	if req.FollowerCount != nil {
		data["followerCount"] = *req.FollowerCount
	}
	if req.FollowingCount != nil {
		data["followingCount"] = *req.FollowingCount
	}
	if req.PostCount != nil {
		data["postCount"] = *req.PostCount
	}

	// 卖家记录的 warnings 列保存 concerns。
	record, err := newRecord(req.URL, platform, schema.AnalysisTypeSeller, *out.TrustScore, level,
		out.Concerns, out.Recommendations, out.Reasoning, data, clientIP)
	if err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeSeller)
	}
	if err := s.writer.SaveAnalysis(ctx, record, nil); err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeSeller)
	}
	return &SellerResult{AnalysisID: record.ID, Output: out, Platform: platform}, nil
}

// AnalyzeImages 记录以第一张图片地址作为 url。
func (s *AnalysisService) AnalyzeImages(ctx context.Context, req *schema.ImageRequest, clientIP *string) (*ImageResult, error) {
	res := s.analyzer.AnalyzeImages(ctx, req)
	if !res.Success || res.Data == nil {
		return nil, &UpstreamError{Message: res.Error}
	}
	out := *res.Data

	score := classifier.ImageRiskScore(*out.IsAuthentic, *out.Confidence)
	level := classifier.Classify(score)
	sourceURL := req.ImageURLs[0]

	data := map[string]interface{}{
		"isAuthentic":    *out.IsAuthentic,
		"confidence":     *out.Confidence,
		"detectedIssues": nonNil(out.DetectedIssues),
		"observations":   nonNil(out.Observations),
		"imageUrls":      req.ImageURLs,
		"lenient":        res.Lenient,
	}
	if name := strings.TrimSpace(req.ItemName); name != "" {
		data["itemName"] = name
	}
	if req.ExpectedCondition != "" {
		data["expectedCondition"] = req.ExpectedCondition
	}

	record, err := newRecord(sourceURL, classifier.DetectPlatform(sourceURL), schema.AnalysisTypeImage, score, level,
		out.DetectedIssues, out.Recommendations, out.Reasoning, data, clientIP)
	if err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeImage)
	}
	if err := s.writer.SaveAnalysis(ctx, record, nil); err != nil {
		return nil, s.persistFailed(err, schema.AnalysisTypeImage)
	}
	return &ImageResult{AnalysisID: record.ID, Output: out, RiskScore: score, RiskLevel: level}, nil
}

func (s *AnalysisService) persistFailed(err error, kind schema.AnalysisType) error {
	s.log.WithError(err).WithField("kind", kind).Error("save analysis failed")
	return ErrPersistence
}

func newRecord(
	url string,
	platform schema.Platform,
	kind schema.AnalysisType,
	score int,
	level schema.Level,
	warnings, recommendations []string,
	reasoning string,
	data map[string]interface{},
	clientIP *string,
) (*models.Analysis, error) {
	warningsJSON, err := json.Marshal(nonNil(warnings))
	if err != nil {
		return nil, err
	}
	recommendationsJSON, err := json.Marshal(nonNil(recommendations))
	if err != nil {
		return nil, err
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &models.Analysis{
		URL:             url,
		Platform:        string(platform),
		AnalysisType:    string(kind),
		RiskScore:       score,
		RiskLevel:       string(level),
		Warnings:        datatypes.JSON(warningsJSON),
		Recommendations: datatypes.JSON(recommendationsJSON),
		Reasoning:       reasoning,
		AnalysisData:    datatypes.JSON(dataJSON),
		IPAddress:       clientIP,
	}, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
