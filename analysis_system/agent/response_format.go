package agent

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
)

const (
	ListingFormatName = "listing_analysis"
	SellerFormatName  = "seller_analysis"
	ImageFormatName   = "image_analysis"
)

// jsonSchema 以 map 形式描述的 JSON Schema，满足 go-openai 对 json.Marshaler 的要求。
type jsonSchema map[string]interface{}

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(s))
}

func describedArray(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]string{"type": "string"},
		"description": description,
	}
}

// strict 模式要求所有字段都在 required 中，可选字段用 null 联合类型表示。
var listingResponseSchema = jsonSchema{
	"type": "object",
	"properties": map[string]interface{}{
		"riskScore": map[string]interface{}{
			"type":        "integer",
			"description": "사기 위험도 (0-100, 높을수록 위험)",
		},
		"detectedPatterns": describedArray("발견된 사기 패턴 태그 목록"),
		"warnings":         describedArray("구매자 주의사항 (최소 1개)"),
		"recommendations":  describedArray("권장 행동 (최소 1개)"),
		"reasoning": map[string]interface{}{
			"type":        "string",
			"description": "판단 근거 (50자 이상)",
		},
		"priceAnalysis": map[string]interface{}{
			"type": []string{"object", "null"},
			"properties": map[string]interface{}{
				"isPriceNormal": map[string]interface{}{"type": "boolean"},
				"priceComment":  map[string]interface{}{"type": "string"},
			},
			"required":             []string{"isPriceNormal", "priceComment"},
			"additionalProperties": false,
		},
		"translatedText": map[string]interface{}{
			"type":        []string{"string", "null"},
			"description": "한국어가 아닌 게시글의 한국어 번역",
		},
	},
	"required": []string{
		"riskScore",
		"detectedPatterns",
		"warnings",
		"recommendations",
		"reasoning",
		"priceAnalysis",
		"translatedText",
	},
	"additionalProperties": false,
}

var sellerResponseSchema = jsonSchema{
	"type": "object",
	"properties": map[string]interface{}{
		"trustScore": map[string]interface{}{
			"type":        "integer",
			"description": "신뢰 점수 (0-100, 높을수록 신뢰)",
		},
		"trustLevel": map[string]interface{}{
			"type": "string",
			"enum": []string{"low", "medium", "high"},
		},
		"strengths":       describedArray("신뢰 요소"),
		"concerns":        describedArray("우려 요소"),
		"recommendations": describedArray("권장 행동 (최소 1개)"),
		"reasoning": map[string]interface{}{
			"type":        "string",
			"description": "판단 근거 (50자 이상)",
		},
	},
	"required":             []string{"trustScore", "trustLevel", "strengths", "concerns", "recommendations", "reasoning"},
	"additionalProperties": false,
}

var imageResponseSchema = jsonSchema{
	"type": "object",
	"properties": map[string]interface{}{
		"isAuthentic": map[string]interface{}{
			"type":        "boolean",
			"description": "실물 직접 촬영 여부",
		},
		"confidence": map[string]interface{}{
			"type":        "number",
			"description": "판단 확신도 (0-100)",
		},
		"detectedIssues":  describedArray("발견된 문제점"),
		"observations":    describedArray("객관적 관찰 결과 (최소 1개)"),
		"recommendations": describedArray("권장 행동"),
		"reasoning": map[string]interface{}{
			"type":        "string",
			"description": "판단 근거 (30자 이상)",
		},
	},
	"required":             []string{"isAuthentic", "confidence", "detectedIssues", "observations", "recommendations", "reasoning"},
	"additionalProperties": false,
}

func responseFormat(name, description string, s jsonSchema) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        name,
			Description: description,
			Schema:      s,
			Strict:      true,
		},
	}
}
