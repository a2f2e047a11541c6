package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CreatePatternHandle 管理员新增诈骗模式。
func (h *Handler) CreatePatternHandle(c *gin.Context) {
	req, ok := decodeBody(c, schema.FraudPatternRequestSchema)
	if !ok {
		return
	}

	pattern := &models.FraudPattern{
		Tag:         strings.TrimSpace(req.Tag),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Severity:    string(req.Severity),
	}
	err := h.store.CreatePattern(c.Request.Context(), pattern)
	if errors.Is(err, repository.ErrDuplicate) {
		respondError(c, http.StatusConflict, MsgPatternDuplicated)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("create pattern failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.log.WithFields(logrus.Fields{
		"admin": c.GetString("adminUsername"),
		"tag":   pattern.Tag,
	}).Info("fraud pattern created")
	respondOK(c, http.StatusCreated, pattern)
}

// DeleteAnalysisHandle 管理员删除分析记录，反馈随之级联删除。
func (h *Handler) DeleteAnalysisHandle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.store.DeleteAnalysis(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusNotFound, MsgAnalysisNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("delete analysis failed")
		respondError(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.log.WithFields(logrus.Fields{
		"admin": c.GetString("adminUsername"),
		"id":    id,
	}).Info("analysis deleted")
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
