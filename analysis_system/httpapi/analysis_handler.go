package httpapi

import (
	"net/http"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/analysis_system/service"
	"github.com/jennifer7519/fansafe/middleware"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler 对外 HTTP 接口。
type Handler struct {
	analyses        *service.AnalysisService
	store           *repository.Store
	modelConfigured bool
	log             logrus.FieldLogger
}

func NewHandler(analyses *service.AnalysisService, store *repository.Store, modelConfigured bool, log logrus.FieldLogger) *Handler {
	return &Handler{analyses: analyses, store: store, modelConfigured: modelConfigured, log: log}
}

// AnalyzeListingHandle 处理帖子分析请求。
func (h *Handler) AnalyzeListingHandle(c *gin.Context) {
	req, ok := decodeBody(c, schema.ListingRequestSchema)
	if !ok {
		return
	}

	res, err := h.analyses.AnalyzeListing(c.Request.Context(), &req, middleware.ClientIPFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	out := res.Output
	respondOK(c, http.StatusOK, ListingAnalysisResponse{
		AnalysisID:       res.AnalysisID,
		RiskScore:        *out.RiskScore,
		RiskLevel:        res.RiskLevel,
		Warnings:         nonNil(out.Warnings),
		Recommendations:  nonNil(out.Recommendations),
		Reasoning:        out.Reasoning,
		DetectedPatterns: out.DetectedPatterns,
		PriceAnalysis:    out.PriceAnalysis,
		TranslatedText:   out.TranslatedText,
		Platform:         res.Platform,
		PriceComparison:  res.PriceComparison,
	})
}

// AnalyzeSellerHandle 处理卖家可信度分析请求。
func (h *Handler) AnalyzeSellerHandle(c *gin.Context) {
	req, ok := decodeBody(c, schema.SellerRequestSchema)
	if !ok {
		return
	}

	res, err := h.analyses.AnalyzeSeller(c.Request.Context(), &req, middleware.ClientIPFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	out := res.Output
	respondOK(c, http.StatusOK, SellerAnalysisResponse{
		AnalysisID:      res.AnalysisID,
		TrustScore:      *out.TrustScore,
		TrustLevel:      out.TrustLevel,
		Strengths:       nonNil(out.Strengths),
		Concerns:        nonNil(out.Concerns),
		Recommendations: nonNil(out.Recommendations),
		Reasoning:       out.Reasoning,
		Platform:        res.Platform,
	})
}

// AnalyzeImageHandle 处理图片真伪分析请求。
func (h *Handler) AnalyzeImageHandle(c *gin.Context) {
	req, ok := decodeBody(c, schema.ImageRequestSchema)
	if !ok {
		return
	}

	res, err := h.analyses.AnalyzeImages(c.Request.Context(), &req, middleware.ClientIPFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	out := res.Output
	respondOK(c, http.StatusOK, ImageAnalysisResponse{
		AnalysisID:      res.AnalysisID,
		IsAuthentic:     *out.IsAuthentic,
		Confidence:      *out.Confidence,
		RiskScore:       res.RiskScore,
		RiskLevel:       res.RiskLevel,
		DetectedIssues:  nonNil(out.DetectedIssues),
		Observations:    nonNil(out.Observations),
		Recommendations: nonNil(out.Recommendations),
		Reasoning:       out.Reasoning,
	})
}
