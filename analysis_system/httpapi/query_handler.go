package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/middleware"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/gin-gonic/gin"
)

// ListAnalysesHandle 分页查询分析记录，可按 type 过滤。
func (h *Handler) ListAnalysesHandle(c *gin.Context) {
	var issues []schema.FieldIssue

	page, issue := queryInt(c, "page", 1, repository.MaxPage)
	if issue != nil {
		issues = append(issues, *issue)
	}
	pageSize, issue := queryInt(c, "pageSize", repository.DefaultPageSize, 0)
	if issue != nil {
		issues = append(issues, *issue)
	}
	kind := strings.TrimSpace(c.Query("type"))
	if kind != "" && !schema.AnalysisType(kind).Valid() {
		issues = append(issues, schema.FieldIssue{
			Path:    "type",
			Message: "must be one of: listing, seller, image",
			Code:    "invalid_enum_value",
		})
	}
	if len(issues) > 0 {
		respondValidation(c, issues)
		return
	}

	filter := repository.ListFilter{AnalysisType: kind, Page: page, PageSize: pageSize}
	items, total, err := h.store.ListAnalyses(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("list analyses failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	respondOK(c, http.StatusOK, AnalysisListResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// GetAnalysisHandle 查询单条分析记录及其反馈。
func (h *Handler) GetAnalysisHandle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	record, err := h.store.GetAnalysis(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusNotFound, MsgAnalysisNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("get analysis failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	feedback, err := h.store.ListFeedback(c.Request.Context(), id)
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("list feedback failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	respondOK(c, http.StatusOK, AnalysisDetailResponse{Analysis: *record, Feedback: feedback})
}

// SubmitFeedbackHandle 提交对分析结果的评价。
func (h *Handler) SubmitFeedbackHandle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, ok := decodeBody(c, schema.FeedbackRequestSchema)
	if !ok {
		return
	}

	feedback := &models.UserFeedback{
		AnalysisID: id,
		IsAccurate: *req.IsAccurate,
		Comment:    strings.TrimSpace(req.Comment),
		IPAddress:  middleware.ClientIPFrom(c),
	}
	err := h.store.AddFeedback(c.Request.Context(), feedback)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusNotFound, MsgAnalysisNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("save feedback failed")
		respondError(c, http.StatusInternalServerError, "Failed to save feedback")
		return
	}

	respondOK(c, http.StatusCreated, feedback)
}

func (h *Handler) StatsHandle(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("load stats failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

func (h *Handler) ListPatternsHandle(c *gin.Context) {
	patterns, err := h.store.ListPatterns(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("list patterns failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}
	respondOK(c, http.StatusOK, patterns)
}

// HealthHandle 数据库不可达时返回 503。
func (h *Handler) HealthHandle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", ModelConfigured: h.modelConfigured, Database: "ok"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("database ping failed")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, envelope{Success: status == http.StatusOK, Data: resp})
}

// queryInt 解析正整数查询参数，upper 大于 0 时同时检查上限。
func queryInt(c *gin.Context, key string, fallback, upper int) (int, *schema.FieldIssue) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, &schema.FieldIssue{Path: key, Message: "must be a positive integer", Code: "invalid_type"}
	}
	if upper > 0 && value > upper {
		return 0, &schema.FieldIssue{Path: key, Message: "must be less than or equal to " + strconv.Itoa(upper), Code: "too_big"}
	}
	return value, nil
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondValidation(c, []schema.FieldIssue{{Path: "id", Message: "must be a positive integer", Code: "invalid_type"}})
		return 0, false
	}
	return uint(id), true
}
