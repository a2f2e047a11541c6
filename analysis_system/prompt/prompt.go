package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
)

const (
	listingClosing = "위 게시글의 사기 위험도를 분석하고, 지정된 JSON 형식으로만 답변해주세요."
	sellerClosing  = "위 판매자의 신뢰도를 평가하고, 지정된 JSON 형식으로만 답변해주세요."
	imageClosing   = "첨부된 이미지의 진위 여부와 상태를 분석하고, 지정된 JSON 형식으로만 답변해주세요."
)

// BuildListingPrompt 生成帖子分析指令，段落顺序固定：
// 正文、来源链接、价格/商品名、图片数量、结尾请求。
func BuildListingPrompt(req *schema.ListingRequest) string {
	var b strings.Builder
	b.WriteString("다음 중고거래 게시글을 분석해주세요.\n\n")

	b.WriteString("[게시글 내용]\n")
	b.WriteString(strings.TrimSpace(req.Text))
	b.WriteString("\n\n")

	if url := strings.TrimSpace(req.URL); url != "" {
		b.WriteString("[게시글 URL]\n")
		b.WriteString(url)
		b.WriteString("\n\n")
	}

	itemName := strings.TrimSpace(req.ItemName)
	if req.Price != nil || itemName != "" {
		b.WriteString("[상품 정보]\n")
		if itemName != "" {
			fmt.Fprintf(&b, "상품명: %s\n", itemName)
		}
		if req.Price != nil {
			fmt.Fprintf(&b, "가격: %s원\n", formatPrice(*req.Price))
		}
		b.WriteString("\n")
	}

	if len(req.Images) > 0 {
		fmt.Fprintf(&b, "[첨부 이미지]\n이미지 %d장이 첨부되어 있습니다.\n\n", len(req.Images))
	}

	b.WriteString(listingClosing)
	return b.String()
}

// BuildSellerPrompt 生成卖家分析指令。账号指标块仅在提供账号年龄时输出，
// 其中粉丝/关注/帖子数各自存在时才输出。
func BuildSellerPrompt(req *schema.SellerRequest) string {
	var b strings.Builder
	b.WriteString("다음 판매자 계정의 신뢰도를 분석해주세요.\n\n")

	fmt.Fprintf(&b, "[판매자 정보]\n사용자명: @%s\n플랫폼: %s\n프로필 URL: %s\n\n",
		strings.TrimPrefix(strings.TrimSpace(req.Username), "@"), req.Platform, strings.TrimSpace(req.URL))

	if req.AccountAge != nil {
		b.WriteString("[계정 지표]\n")
		fmt.Fprintf(&b, "계정 나이: %d일\n", *req.AccountAge)
		if req.FollowerCount != nil {
			fmt.Fprintf(&b, "팔로워 수: %d\n", *req.FollowerCount)
		}
		if req.FollowingCount != nil {
			fmt.Fprintf(&b, "팔로잉 수: %d\n", *req.FollowingCount)
		}
		if req.PostCount != nil {
			fmt.Fprintf(&b, "게시물 수: %d\n", *req.PostCount)
		}
		b.WriteString("\n")
	}

	if bio := strings.TrimSpace(req.Bio); bio != "" {
		b.WriteString("[프로필 소개]\n")
		b.WriteString(bio)
		b.WriteString("\n\n")
	}

	if activity := strings.TrimSpace(req.RecentActivity); activity != "" {
		b.WriteString("[최근 활동]\n")
		b.WriteString(activity)
		b.WriteString("\n\n")
	}

	b.WriteString(sellerClosing)
	return b.String()
}

// BuildImagePrompt 生成图片分析指令：图片数量、商品名、预期成色、结尾请求。
func BuildImagePrompt(req *schema.ImageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "상품 이미지 %d장을 분석해주세요.\n\n", len(req.ImageURLs))

	if itemName := strings.TrimSpace(req.ItemName); itemName != "" {
		fmt.Fprintf(&b, "[상품명]\n%s\n\n", itemName)
	}

	if req.ExpectedCondition != "" {
		fmt.Fprintf(&b, "[판매자가 주장하는 상태]\n%s\n\n", conditionLabel(req.ExpectedCondition))
	}

	b.WriteString(imageClosing)
	return b.String()
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func conditionLabel(c schema.Condition) string {
	switch c {
	case schema.ConditionNew:
		return "새 상품 (new)"
	case schema.ConditionLikeNew:
		return "거의 새 것 (like_new)"
	case schema.ConditionUsed:
		return "사용감 있음 (used)"
	default:
		return "알 수 없음 (unknown)"
	}
}
