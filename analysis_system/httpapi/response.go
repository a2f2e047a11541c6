package httpapi

import (
	"errors"
	"net/http"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/analysis_system/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	MsgInvalidJSON       = "Invalid JSON"
	MsgValidationFailed  = "Validation failed"
	MsgMethodNotAllowed  = "Method not allowed"
	MsgBodyTooLarge      = "Request body too large"
	MsgInternal          = "Internal server error"
	MsgAnalysisNotFound  = "Analysis not found"
	MsgPatternDuplicated = "Fraud pattern tag already exists"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Success: false, Error: msg})
}

func respondValidation(c *gin.Context, issues []schema.FieldIssue) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: MsgValidationFailed, Details: issues})
}

// decodeBody 读取并校验请求体；失败时已写出 400/413 响应。
func decodeBody[T any](c *gin.Context, s schema.Schema[T]) (T, bool) {
	var zero T
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
			return zero, false
		}
		respondError(c, http.StatusBadRequest, MsgInvalidJSON)
		return zero, false
	}

	value, err := s.Parse(body)
	if err == nil {
		return value, true
	}
	if verr, ok := schema.AsValidationError(err); ok {
		respondValidation(c, verr.Issues)
		return zero, false
	}
	respondError(c, http.StatusBadRequest, MsgInvalidJSON)
	return zero, false
}

// respondServiceError 推理失败原样返回消息，落库失败返回固定消息，二者都是 500。
func respondServiceError(c *gin.Context, log logrus.FieldLogger, err error) {
	var upstream *service.UpstreamError
	switch {
	case errors.As(err, &upstream):
		respondError(c, http.StatusInternalServerError, upstream.Message)
	case errors.Is(err, service.ErrPersistence):
		respondError(c, http.StatusInternalServerError, service.MsgSaveFailed)
	default:
		log.WithError(err).Error("unexpected analysis error")
		respondError(c, http.StatusInternalServerError, MsgInternal)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
