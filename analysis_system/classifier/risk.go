package classifier

import "github.com/jennifer7519/fansafe/analysis_system/schema"

const (
	// MediumThreshold 及以上为 medium。
	MediumThreshold = 30
	// HighThreshold 及以上为 high。
	HighThreshold = 70
)

// Classify 将 0-100 的分数映射为三档等级，风险分与信任分共用分界点。
// 取值范围由上游 schema 校验保证，这里不再重复校验。
func Classify(score int) schema.Level {
	switch {
	case score < MediumThreshold:
		return schema.LevelLow
	case score < HighThreshold:
		return schema.LevelMedium
	default:
		return schema.LevelHigh
	}
}

// ImageRiskScore 由图片真伪判断推导风险分：判定为真时风险为 100-置信度，否则为置信度。
func ImageRiskScore(isAuthentic bool, confidence float64) int {
	risk := confidence
	if isAuthentic {
		risk = 100 - confidence
	}
	score := int(risk + 0.5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
