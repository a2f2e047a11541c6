package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jennifer7519/fansafe/admin_system/controllers"
	"github.com/jennifer7519/fansafe/analysis_system/agent"
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/analysis_system/service"
	"github.com/jennifer7519/fansafe/config"
	"github.com/jennifer7519/fansafe/logger"
	"github.com/jennifer7519/fansafe/middleware"
	"github.com/jennifer7519/fansafe/storage/database"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

type stubAnalyzer struct {
	listing agent.Result[schema.ListingAnalysisOutput]
	seller  agent.Result[schema.SellerAnalysisOutput]
	image   agent.Result[schema.ImageAnalysisOutput]
	calls   int
}

func (s *stubAnalyzer) AnalyzeListing(context.Context, *schema.ListingRequest) agent.Result[schema.ListingAnalysisOutput] {
	s.calls++
	return s.listing
}

func (s *stubAnalyzer) AnalyzeSeller(context.Context, *schema.SellerRequest) agent.Result[schema.SellerAnalysisOutput] {
	s.calls++
	return s.seller
}

func (s *stubAnalyzer) AnalyzeImages(context.Context, *schema.ImageRequest) agent.Result[schema.ImageAnalysisOutput] {
	s.calls++
	return s.image
}

type testEnv struct {
	router   *gin.Engine
	handler  *Handler
	store    *repository.Store
	analyzer *stubAnalyzer
	auth     *controllers.AuthController
}

const adminPassword = "Adm1n!pass"

func newTestEnv(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store := repository.NewStore(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	auth, err := controllers.NewAuthController(&config.Config{
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         "router-test-secret",
	}, log)
	require.NoError(t, err)

	analyzer := &stubAnalyzer{}
	handler := NewHandler(service.NewAnalysisService(analyzer, store, log), store, true, log)
	router := NewRouter(RouterDeps{Handler: handler, Auth: auth, Limiter: limiter, Log: log})
	return &testEnv{router: router, handler: handler, store: store, analyzer: analyzer, auth: auth}
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type apiResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   string              `json:"error"`
	Details []schema.FieldIssue `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func stringPtr(v string) *string  { return &v }

func highRiskListing() *schema.ListingAnalysisOutput {
	return &schema.ListingAnalysisOutput{
		RiskScore:        intPtr(85),
		DetectedPatterns: []string{"urgent_language", "prepayment_demand"},
		Warnings:         []string{"선입금만 요구합니다", "거래를 재촉합니다"},
		Recommendations:  []string{"안전거래를 이용하세요", "실물 인증을 요청하세요"},
		Reasoning:        "판매자가 선입금만 받겠다고 하며 급하다는 표현으로 구매자의 판단을 재촉하고 있어 전형적인 사기 수법과 일치합니다.",
		PriceAnalysis:    &schema.PriceAnalysis{IsPriceNormal: boolPtr(true), PriceComment: stringPtr("시세 수준")},
	}
}

const listingBody = `{"url":"https://twitter.com/user/status/123","text":"포토카드 양도합니다! 급해요! 선입금만 받아요","price":3000}`

func TestAnalyzeListingEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}

	w := env.do(http.MethodPost, "/api/analyze/listing", listingBody, "X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	require.True(t, resp.Success)
	var data ListingAnalysisResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, 85, data.RiskScore)
	require.Equal(t, schema.LevelHigh, data.RiskLevel)
	require.Equal(t, []string{"urgent_language", "prepayment_demand"}, data.DetectedPatterns)
	require.True(t, *data.PriceAnalysis.IsPriceNormal)

	rows, total, err := env.store.ListAnalyses(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "twitter", rows[0].Platform)
	require.Equal(t, "listing", rows[0].AnalysisType)
	require.Equal(t, 85, rows[0].RiskScore)
	require.Equal(t, "203.0.113.9", *rows[0].IPAddress)
	require.Equal(t, data.AnalysisID, rows[0].ID)
}

func TestAnalyzeListingMalformedJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/analyze/listing", `{"url": "https://twitter.com/a", "text": `)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.False(t, resp.Success)
	require.Equal(t, MsgInvalidJSON, resp.Error)
	require.Zero(t, env.analyzer.calls)
}

func TestAnalyzeListingValidationFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/analyze/listing", `{"url":"not a url","text":"","price":-1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.Equal(t, MsgValidationFailed, resp.Error)

	paths := map[string]bool{}
	for _, issue := range resp.Details {
		paths[issue.Path] = true
	}
	require.True(t, paths["url"])
	require.True(t, paths["text"])
	require.True(t, paths["price"])
	require.Zero(t, env.analyzer.calls)
}

func TestAnalyzeListingUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Error: "API rate limit exceeded"}

	w := env.do(http.MethodPost, "/api/analyze/listing", listingBody)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	require.False(t, resp.Success)
	require.Equal(t, "API rate limit exceeded", resp.Error)

	_, total, err := env.store.ListAnalyses(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestAnalyzeListingTwiceStoresTwoRows(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/analyze/listing", listingBody).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/analyze/listing", listingBody).Code)

	_, total, err := env.store.ListAnalyses(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, 2, env.analyzer.calls)
}

func TestAnalyzePersistenceFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}

	// 关闭连接池模拟写库失败。
	db, err := database.Open(sqlite.Open("file:closed_store?mode=memory&cache=shared"), logger.Discard())
	require.NoError(t, err)
	closed := repository.NewStore(db)
	raw, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	handler := NewHandler(service.NewAnalysisService(env.analyzer, closed, logger.Discard()), closed, true, logger.Discard())
	router := NewRouter(RouterDeps{Handler: handler, Auth: env.auth, Log: logger.Discard()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze/listing", strings.NewReader(listingBody)))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Failed to save analysis results", decode(t, w).Error)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/analyze/listing", "/api/analyze/seller", "/api/analyze/image"} {
		w := env.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
		require.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
	}
}

func TestAnalyzeSellerEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.seller = agent.Result[schema.SellerAnalysisOutput]{Success: true, Data: &schema.SellerAnalysisOutput{
		TrustScore:      intPtr(25),
		TrustLevel:      schema.LevelMedium,
		Strengths:       []string{},
		Concerns:        []string{"계정 생성 후 1개월 미만"},
		Recommendations: []string{"거래 후기를 확인하세요"},
		Reasoning:       "계정이 만들어진 지 얼마 되지 않았고 팔로워 수에 비해 게시물이 거의 없어 신뢰하기 어렵습니다.",
	}}

	body := `{"url":"https://www.instagram.com/seller","username":"seller","platform":"instagram","accountAge":20,"followerCount":3}`
	w := env.do(http.MethodPost, "/api/analyze/seller", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data SellerAnalysisResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Equal(t, 25, data.TrustScore)
	require.Equal(t, schema.LevelLow, data.TrustLevel)
	require.Equal(t, schema.PlatformInstagram, data.Platform)
}

func TestAnalyzeImageEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.image = agent.Result[schema.ImageAnalysisOutput]{Success: true, Data: &schema.ImageAnalysisOutput{
		IsAuthentic:     boolPtr(false),
		Confidence:      floatPtr(72.4),
		DetectedIssues:  []string{"공식 이미지와 동일"},
		Observations:    []string{"워터마크가 잘려 있음"},
		Recommendations: []string{"손글씨 인증 요청"},
		Reasoning:       "공식 홍보 이미지와 구도와 조명이 완전히 같아 직접 촬영한 사진으로 보기 어렵습니다.",
	}}

	w := env.do(http.MethodPost, "/api/analyze/image", `{"imageUrls":["https://cdn.example.com/a.jpg"],"expectedCondition":"like_new"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data ImageAnalysisResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Equal(t, 72, data.RiskScore)
	require.Equal(t, schema.LevelHigh, data.RiskLevel)
}

func TestReadEndpointsAndFeedback(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/analyze/listing", listingBody).Code)

	w := env.do(http.MethodGet, "/api/analyses?type=listing&page=1&pageSize=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list AnalysisListResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.EqualValues(t, 1, list.Total)
	id := list.Items[0].ID

	w = env.do(http.MethodGet, "/api/analyses?type=video", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/api/analyses/%d/feedback", id), `{"isAccurate":true,"comment":"정확했어요"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/analyses/999/feedback", `{"isAccurate":false}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/api/analyses/%d/feedback", id), `{"comment":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/analyses/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail AnalysisDetailResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &detail))
	require.Len(t, detail.Feedback, 1)
	require.True(t, detail.Feedback[0].IsAccurate)

	w = env.do(http.MethodGet, "/api/analyses/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats repository.Stats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	require.EqualValues(t, 1, stats.TotalAnalyses)
	require.EqualValues(t, 1, stats.FeedbackCount)

	w = env.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &health))
	require.True(t, health.ModelConfigured)
	require.Equal(t, "ok", health.Database)
}

func TestAdminFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/analyze/listing", listingBody).Code)
	rows, _, err := env.store.ListAnalyses(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	id := rows[0].ID
	require.NoError(t, env.store.AddFeedback(context.Background(), &models.UserFeedback{AnalysisID: id, IsAccurate: true}))

	patternBody := `{"tag":"fake_receipt","name":"가짜 입금 내역","description":"조작된 송금 캡처를 보냄","severity":"high"}`
	w := env.do(http.MethodPost, "/api/admin/patterns", patternBody)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/admin/login", fmt.Sprintf(`{"username":"admin","password":%q}`, adminPassword))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))
	bearer := "Bearer " + login.Token

	w = env.do(http.MethodPost, "/api/admin/patterns", patternBody, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/api/admin/patterns", patternBody, "Authorization", bearer)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/analyses/%d", id), "", "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	feedback, err := env.store.ListFeedback(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, feedback)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/analyses/%d", id), "", "Authorization", bearer)
	require.Equal(t, http.StatusNotFound, w.Code)

	limited := NewRouter(RouterDeps{
		Handler:      env.handler,
		Auth:         env.auth,
		LoginLimiter: middleware.NewMemoryLimiter(time.Minute, 2),
		Log:          logger.Discard(),
	})
	wrongLogin := `{"username":"admin","password":"guess"}`
	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(wrongLogin)))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w = httptest.NewRecorder()
	limited.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(wrongLogin)))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAnalyzeRateLimited(t *testing.T) {
	env := newTestEnv(t, middleware.NewMemoryLimiter(time.Minute, 1))
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/analyze/listing", listingBody, "X-Real-IP", "192.0.2.50").Code)
	w := env.do(http.MethodPost, "/api/analyze/listing", listingBody, "X-Real-IP", "192.0.2.50")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, 1, env.analyzer.calls)

	// 查询接口不受限流影响。
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/stats", "", "X-Real-IP", "192.0.2.50").Code)
}

func TestAnalyzeRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	env := newTestEnv(t, middleware.NewMemoryLimiter(time.Minute, 1))
	env.analyzer.listing = agent.Result[schema.ListingAnalysisOutput]{Success: true, Data: highRiskListing()}

	accepted := 0
	for i := 0; i < 20; i++ {
		w := env.do(http.MethodPost, "/api/analyze/listing", listingBody, "X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		if w.Code == http.StatusOK {
			accepted++
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, w.Code)
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, env.analyzer.calls)

	// 请求头推导的 IP 仍然写入记录。
	rows, _, err := env.store.ListAnalyses(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, "198.51.100.1", *rows[0].IPAddress)
}

func TestBareOptionsIsMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodOptions, "/api/analyze/listing", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())

	w = env.do(http.MethodOptions, "/api/analyze/listing", "",
		"Origin", "https://fansafe.example", "Access-Control-Request-Method", http.MethodPost)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestListAnalysesRejectsOversizedPage(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, fmt.Sprintf("/api/analyses?page=%d", repository.MaxPage+1), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.Equal(t, MsgValidationFailed, resp.Error)
	require.Equal(t, "page", resp.Details[0].Path)

	w = env.do(http.MethodGet, "/api/analyses?page=9223372036854775807", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/analyses?page=%d", repository.MaxPage), "")
	require.Equal(t, http.StatusOK, w.Code)
}
