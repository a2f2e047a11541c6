package prompt

import (
	"strings"
	"testing"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func requireInOrder(t *testing.T, text string, parts ...string) {
	t.Helper()
	last := -1
	for _, part := range parts {
		idx := strings.Index(text, part)
		require.GreaterOrEqual(t, idx, 0, "missing %q in prompt:\n%s", part, text)
		require.Greater(t, idx, last, "%q out of order in prompt:\n%s", part, text)
		last = idx
	}
}

func TestBuildListingPromptSectionOrder(t *testing.T) {
	price := 3000.0
	req := &schema.ListingRequest{
		URL:      "https://twitter.com/user/status/123",
		Text:     "포토카드 양도합니다! 급해요! 선입금만 받아요",
		Images:   []string{"https://a.example/1.jpg", "https://a.example/2.jpg"},
		Price:    &price,
		ItemName: "포토카드",
	}

	out := BuildListingPrompt(req)
	requireInOrder(t, out,
		"[게시글 내용]", req.Text,
		"[게시글 URL]", req.URL,
		"[상품 정보]", "상품명: 포토카드", "가격: 3000원",
		"[첨부 이미지]", "이미지 2장",
		listingClosing,
	)
	require.True(t, strings.HasSuffix(out, listingClosing))
}

func TestBuildListingPromptOmitsOptionalSections(t *testing.T) {
	out := BuildListingPrompt(&schema.ListingRequest{URL: "https://a.example", Text: "hello"})
	require.NotContains(t, out, "[상품 정보]")
	require.NotContains(t, out, "[첨부 이미지]")
	require.Equal(t, out, BuildListingPrompt(&schema.ListingRequest{URL: "https://a.example", Text: "hello"}))
}

func TestBuildListingPromptFormatsFractionalPrice(t *testing.T) {
	price := 0.01
	out := BuildListingPrompt(&schema.ListingRequest{URL: "https://a.example", Text: "t", Price: &price})
	require.Contains(t, out, "가격: 0.01원")
	require.NotContains(t, out, "상품명:")
}

func TestBuildSellerPromptMetricsNeedAccountAge(t *testing.T) {
	req := &schema.SellerRequest{
		URL:           "https://x.com/seller",
		Username:      "@seller",
		Platform:      schema.PlatformTwitter,
		FollowerCount: intPtr(120),
	}
	out := BuildSellerPrompt(req)
	require.Contains(t, out, "사용자명: @seller")
	require.NotContains(t, out, "[계정 지표]")
	require.NotContains(t, out, "팔로워 수")

	req.AccountAge = intPtr(400)
	req.PostCount = intPtr(0)
	req.Bio = "굿즈 정리 계정"
	req.RecentActivity = "최근 30일 거래 후기 5건"
	out = BuildSellerPrompt(req)
	requireInOrder(t, out,
		"[판매자 정보]",
		"[계정 지표]", "계정 나이: 400일", "팔로워 수: 120", "게시물 수: 0",
		"[프로필 소개]", req.Bio,
		"[최근 활동]", req.RecentActivity,
		sellerClosing,
	)
	require.NotContains(t, out, "팔로잉 수")
}

func TestBuildImagePrompt(t *testing.T) {
	req := &schema.ImageRequest{
		ImageURLs:         []string{"https://a.example/1.jpg"},
		ItemName:          "앨범",
		ExpectedCondition: schema.ConditionLikeNew,
	}
	out := BuildImagePrompt(req)
	requireInOrder(t, out, "이미지 1장", "[상품명]", "앨범", "[판매자가 주장하는 상태]", "like_new", imageClosing)

	bare := BuildImagePrompt(&schema.ImageRequest{ImageURLs: []string{"https://a.example/1.jpg", "https://a.example/2.jpg"}})
	require.Contains(t, bare, "이미지 2장")
	require.NotContains(t, bare, "[상품명]")
	require.NotContains(t, bare, "[판매자가 주장하는 상태]")
}

func TestListingSystemPromptListsPatternTags(t *testing.T) {
	out := ListingSystemPrompt(DefaultPatterns)
	for _, p := range DefaultPatterns {
		require.Contains(t, out, p.Tag)
	}
	require.Equal(t, listingSystemBase, ListingSystemPrompt(nil))
}
