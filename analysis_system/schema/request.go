package schema

// ListingRequest 单条二手商品帖子分析请求。
type ListingRequest struct {
	URL      string   `json:"url" validate:"required,url"`
	Text     string   `json:"text" validate:"required,min=1,max=10000"`
	Images   []string `json:"images,omitempty" validate:"omitempty,dive,url"`
	Price    *float64 `json:"price,omitempty" validate:"omitnil,gt=0"`
	ItemName string   `json:"itemName,omitempty"`
}

// SellerRequest 卖家账号可信度分析请求。
type SellerRequest struct {
	URL            string   `json:"url" validate:"required,url"`
	Username       string   `json:"username" validate:"required,min=1,max=100"`
	Platform       Platform `json:"platform" validate:"required,oneof=twitter instagram unknown"`
	AccountAge     *int     `json:"accountAge,omitempty" validate:"omitnil,gt=0"`
	FollowerCount  *int     `json:"followerCount,omitempty" validate:"omitnil,gte=0"`
	FollowingCount *int     `json:"followingCount,omitempty" validate:"omitnil,gte=0"`
	PostCount      *int     `json:"postCount,omitempty" validate:"omitnil,gte=0"`
	Bio            string   `json:"bio,omitempty" validate:"max=500"`
	RecentActivity string   `json:"recentActivity,omitempty" validate:"max=5000"`
}

// ImageRequest 商品图片真伪分析请求。
type ImageRequest struct {
	ImageURLs         []string  `json:"imageUrls" validate:"required,min=1,max=10,dive,url"`
	ItemName          string    `json:"itemName,omitempty"`
	ExpectedCondition Condition `json:"expectedCondition,omitempty" validate:"omitempty,oneof=new like_new used unknown"`
}

// FeedbackRequest 用户对某条分析结果的反馈。
type FeedbackRequest struct {
	IsAccurate *bool  `json:"isAccurate" validate:"required"`
	Comment    string `json:"comment,omitempty" validate:"max=1000"`
}

// FraudPatternRequest 管理端新增诈骗模式。
type FraudPatternRequest struct {
	Tag         string `json:"tag" validate:"required,min=1,max=64"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required,min=1,max=1000"`
	Severity    Level  `json:"severity" validate:"required,oneof=low medium high"`
}

// AdminLoginRequest 管理员登录。
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var (
	ListingRequestSchema      = newSchema[ListingRequest]("listing request", nil)
	SellerRequestSchema       = newSchema[SellerRequest]("seller request", nil)
	ImageRequestSchema        = newSchema[ImageRequest]("image request", nil)
	FeedbackRequestSchema     = newSchema[FeedbackRequest]("feedback request", nil)
	FraudPatternRequestSchema = newSchema[FraudPatternRequest]("fraud pattern request", nil)
	AdminLoginRequestSchema   = newSchema[AdminLoginRequest]("admin login request", nil)
)

// DecodeListingRequest 解码并校验帖子分析请求体。
func DecodeListingRequest(data []byte) (ListingRequest, error) {
	return ListingRequestSchema.Parse(data)
}

func DecodeSellerRequest(data []byte) (SellerRequest, error) {
	return SellerRequestSchema.Parse(data)
}

func DecodeImageRequest(data []byte) (ImageRequest, error) {
	return ImageRequestSchema.Parse(data)
}
