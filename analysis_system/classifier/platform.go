package classifier

import (
	"strings"

	"github.com/jennifer7519/fansafe/analysis_system/schema"
)

// DetectPlatform 对链接做小写子串匹配得到平台。
// 只是粗略判断，不解析主机名：例如 "nottwitter.com.evil.example" 也会被识别为 twitter。
func DetectPlatform(rawURL string) schema.Platform {
	lowered := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lowered, "twitter.com"), strings.Contains(lowered, "x.com"):
		return schema.PlatformTwitter
	case strings.Contains(lowered, "instagram.com"):
		return schema.PlatformInstagram
	default:
		return schema.PlatformUnknown
	}
}
