package schema

// AnalysisType 分析类型。
type AnalysisType string

const (
	AnalysisTypeListing AnalysisType = "listing"
	AnalysisTypeSeller  AnalysisType = "seller"
	AnalysisTypeImage   AnalysisType = "image"
)

// Platform 提交链接所属平台的粗分类。
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// Level 风险/信任等级（三档，共用同一组分界点）。
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Condition 图片分析时用户预期的商品成色。
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionUsed    Condition = "used"
	ConditionUnknown Condition = "unknown"
)

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisTypeListing, AnalysisTypeSeller, AnalysisTypeImage:
		return true
	}
	return false
}

func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}
