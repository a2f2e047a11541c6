package schema

// PriceAnalysis 价格合理性判断；出现时两个字段都必须存在。
type PriceAnalysis struct {
	IsPriceNormal *bool   `json:"isPriceNormal" validate:"required"`
	PriceComment  *string `json:"priceComment" validate:"required"`
}

// ListingAnalysisOutput 模型对帖子分析返回的结构化结果。
type ListingAnalysisOutput struct {
	RiskScore        *int           `json:"riskScore" validate:"required,min=0,max=100"`
	DetectedPatterns []string       `json:"detectedPatterns" validate:"required"`
	Warnings         []string       `json:"warnings" validate:"required,min=1"`
	Recommendations  []string       `json:"recommendations" validate:"required,min=1"`
	Reasoning        string         `json:"reasoning" validate:"required,min=50"`
	PriceAnalysis    *PriceAnalysis `json:"priceAnalysis,omitempty" validate:"-"`
	TranslatedText   *string        `json:"translatedText,omitempty"`
}

// ImageAnalysisOutput 模型对图片真伪分析返回的结构化结果。
type ImageAnalysisOutput struct {
	IsAuthentic     *bool    `json:"isAuthentic" validate:"required"`
	Confidence      *float64 `json:"confidence" validate:"required,min=0,max=100"`
	DetectedIssues  []string `json:"detectedIssues" validate:"required"`
	Observations    []string `json:"observations" validate:"required,min=1"`
	Recommendations []string `json:"recommendations" validate:"required"`
	Reasoning       string   `json:"reasoning" validate:"required,min=30"`
}

// SellerAnalysisOutput 模型对卖家可信度分析返回的结构化结果。
type SellerAnalysisOutput struct {
	TrustScore      *int     `json:"trustScore" validate:"required,min=0,max=100"`
	TrustLevel      Level    `json:"trustLevel" validate:"required,oneof=low medium high"`
	Strengths       []string `json:"strengths" validate:"required"`
	Concerns        []string `json:"concerns" validate:"required"`
	Recommendations []string `json:"recommendations" validate:"required,min=1"`
	Reasoning       string   `json:"reasoning" validate:"required,min=50"`
}

var (
	ListingOutputSchema = newSchema[ListingAnalysisOutput]("listing analysis", checkListingOutput)
	ImageOutputSchema   = newSchema[ImageAnalysisOutput]("image analysis", nil)
	SellerOutputSchema  = newSchema[SellerAnalysisOutput]("seller analysis", nil)
)

// ValidateListingOutput 校验帖子分析结果。
func ValidateListingOutput(out *ListingAnalysisOutput) error {
	return ListingOutputSchema.Validate(out)
}

// ValidateImageOutput 校验图片分析结果。
func ValidateImageOutput(out *ImageAnalysisOutput) error {
	return ImageOutputSchema.Validate(out)
}

// ValidateSellerOutput 校验卖家分析结果。
func ValidateSellerOutput(out *SellerAnalysisOutput) error {
	return SellerOutputSchema.Validate(out)
}

// checkListingOutput 校验可选嵌套对象 priceAnalysis：缺省合法，出现则整体校验。
func checkListingOutput(out *ListingAnalysisOutput) []FieldIssue {
	if out.PriceAnalysis == nil {
		return nil
	}
	return structIssues(out.PriceAnalysis, "priceAnalysis")
}
