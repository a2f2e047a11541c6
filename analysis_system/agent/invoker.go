package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jennifer7519/fansafe/analysis_system/prompt"
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/config"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	MsgNotConfigured = "OpenAI API key is not configured"
	MsgNoContent     = "No response content from OpenAI"
	MsgUnknown       = "Unknown error occurred"
)

// Result 单次推理调用的结果：成功时 Data 非空，失败时 Error 为可直接返回给调用方的消息。
// Lenient 表示本地复核未通过但按宽松策略仍作为成功返回。
type Result[T any] struct {
	Success bool
	Data    *T
	Error   string
	Lenient bool
}

func failure[T any](msg string) Result[T] {
	if strings.TrimSpace(msg) == "" {
		msg = MsgUnknown
	}
	return Result[T]{Success: false, Error: msg}
}

// Invoker 负责调用外部推理服务并复核其结构化输出。
// 每次分析只发起一次请求，不做重试。
type Invoker struct {
	client       *openai.Client
	model        string
	visionModel  string
	strictOutput bool
	patterns     []prompt.PatternHint
	log          logrus.FieldLogger
}

// NewInvoker 根据配置显式创建客户端；未配置密钥时 client 为空，调用直接失败。
func NewInvoker(cfg *config.Config, patterns []prompt.PatternHint, log logrus.FieldLogger) *Invoker {
	inv := &Invoker{
		model:        cfg.Model,
		visionModel:  cfg.VisionModel,
		strictOutput: cfg.StrictOutputValidation,
		patterns:     patterns,
		log:          log,
	}
	if cfg.IsOpenAIConfigured() {
		openaiCfg := openai.DefaultConfig(cfg.APIKey)
		if strings.TrimSpace(cfg.BaseURL) != "" {
			openaiCfg.BaseURL = cfg.BaseURL
		}
		inv.client = openai.NewClientWithConfig(openaiCfg)
	}
	return inv
}

// Configured 推理服务是否可用。
func (inv *Invoker) Configured() bool {
	return inv.client != nil
}

func (inv *Invoker) AnalyzeListing(ctx context.Context, req *schema.ListingRequest) Result[schema.ListingAnalysisOutput] {
	chatReq := openai.ChatCompletionRequest{
		Model: inv.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.ListingSystemPrompt(inv.patterns)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.BuildListingPrompt(req)},
		},
		ResponseFormat: responseFormat(ListingFormatName, "중고거래 게시글 사기 위험 분석 결과", listingResponseSchema),
		MaxTokens:      1500,
		Temperature:    0.3,
		TopP:           1.0,
	}
	return invoke(ctx, inv, "listing", chatReq, schema.ListingOutputSchema, func(out *schema.ListingAnalysisOutput) bool {
		return out.RiskScore != nil
	})
}

func (inv *Invoker) AnalyzeSeller(ctx context.Context, req *schema.SellerRequest) Result[schema.SellerAnalysisOutput] {
	chatReq := openai.ChatCompletionRequest{
		Model: inv.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SellerSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.BuildSellerPrompt(req)},
		},
		ResponseFormat: responseFormat(SellerFormatName, "판매자 신뢰도 분석 결과", sellerResponseSchema),
		MaxTokens:      1200,
		Temperature:    0.3,
		TopP:           1.0,
	}
	return invoke(ctx, inv, "seller", chatReq, schema.SellerOutputSchema, func(out *schema.SellerAnalysisOutput) bool {
		return out.TrustScore != nil
	})
}

func (inv *Invoker) AnalyzeImages(ctx context.Context, req *schema.ImageRequest) Result[schema.ImageAnalysisOutput] {
	parts := make([]openai.ChatMessagePart, 0, len(req.ImageURLs)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt.BuildImagePrompt(req),
	})
	for _, imageURL := range req.ImageURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model: inv.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.ImageSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: responseFormat(ImageFormatName, "상품 이미지 진위 분석 결과", imageResponseSchema),
		MaxTokens:      1200,
		Temperature:    0.2,
		TopP:           1.0,
	}
	return invoke(ctx, inv, "image", chatReq, schema.ImageOutputSchema, func(out *schema.ImageAnalysisOutput) bool {
		return out.IsAuthentic != nil && out.Confidence != nil
	})
}

// invoke idle -> calling -> succeeded | failed，没有中间状态。
// usable 判断宽松放行时结果是否仍包含后续流程必需的字段。
func invoke[T any](
	ctx context.Context,
	inv *Invoker,
	kind string,
	req openai.ChatCompletionRequest,
	outSchema schema.Schema[T],
	usable func(*T) bool,
) Result[T] {
	if inv.client == nil {
		return failure[T](MsgNotConfigured)
	}

	log := inv.log.WithFields(logrus.Fields{"kind": kind, "model": req.Model})
	started := time.Now()
	resp, err := inv.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.WithError(err).Error("analysis call failed")
		return failure[T](upstreamMessage(err))
	}
	log = log.WithField("elapsed_ms", time.Since(started).Milliseconds())

	if len(resp.Choices) == 0 {
		log.Warn("analysis call returned no choices")
		return failure[T](MsgNoContent)
	}

	msg := resp.Choices[0].Message
	if refusal := strings.TrimSpace(msg.Refusal); refusal != "" {
		log.WithField("refusal", truncateForLog(refusal, 240)).Warn("model refused analysis")
		return failure[T]("OpenAI refused the request: " + refusal)
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		log.Warn("analysis call returned empty content")
		return failure[T](MsgNoContent)
	}

	out, err := outSchema.Parse([]byte(content))
	if err == nil {
		log.Info("analysis completed")
		return Result[T]{Success: true, Data: &out}
	}

	verr, isValidation := schema.AsValidationError(err)
	if !isValidation {
		log.WithError(err).WithField("content", truncateForLog(content, 240)).Error("analysis content is not JSON")
		return failure[T]("Failed to parse OpenAI response: " + err.Error())
	}

	// 上游已按 strict schema 约束输出，本地复核失败默认只记录告警并放行。
	log = log.WithField("issues", verr.Issues)
	if inv.strictOutput {
		log.Warn("analysis output rejected by local schema")
		return failure[T]("OpenAI response failed schema validation: " + verr.Error())
	}
	if !usable(&out) {
		log.Warn("analysis output missing required score")
		return failure[T](MsgNoContent)
	}
	log.Warn("analysis output failed local schema; returned leniently")
	return Result[T]{Success: true, Data: &out, Lenient: true}
}

func upstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return "Invalid OpenAI API key"
		case http.StatusTooManyRequests:
			return "API rate limit exceeded"
		}
		if strings.TrimSpace(apiErr.Message) != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("OpenAI API error (status %d)", apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("OpenAI request failed (status %d)", reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "OpenAI request timed out"
	}
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		return err.Error()
	}
	return MsgUnknown
}

func truncateForLog(input string, maxLen int) string {
	text := strings.TrimSpace(input)
	if text == "" {
		return "<empty>"
	}
	if maxLen <= 3 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}
