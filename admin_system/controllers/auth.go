package controllers

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jennifer7519/fansafe/admin_system/settings"
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthController 单管理员账号的登录与令牌校验，账号来自配置而非数据库。
type AuthController struct {
	username     string
	passwordHash []byte
	secret       []byte
	now          func() time.Time
	log          logrus.FieldLogger
}

// NewAuthController 未配置 JWT_SECRET 时使用进程级随机密钥，重启后旧令牌失效。
func NewAuthController(cfg *config.Config, log logrus.FieldLogger) (*AuthController, error) {
	secret := []byte(strings.TrimSpace(cfg.JWTSecret))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		log.Warn("JWT_SECRET not set; using a random secret for this process")
	}
	return &AuthController{
		username:     strings.TrimSpace(cfg.AdminUsername),
		passwordHash: []byte(strings.TrimSpace(cfg.AdminPasswordHash)),
		secret:       secret,
		now:          time.Now,
		log:          log,
	}, nil
}

// Enabled 是否配置了管理员密码哈希。
func (a *AuthController) Enabled() bool {
	return len(a.passwordHash) > 0
}

// GenerateJWT 签发管理员令牌。
func (a *AuthController) GenerateJWT(username string) (string, time.Time, error) {
	issuedAt := a.now()
	expiresAt := issuedAt.Add(settings.JWTExpireDuration)
	claims := &Claims{
		Username: username,
		Role:     settings.AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    settings.JWTIssuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 校验签名、有效期与角色。
func (a *AuthController) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(settings.JWTIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != settings.AdminRole || claims.Username != a.username {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// LoginHandle 校验用户名与 bcrypt 密码哈希并签发 JWT。
func (a *AuthController) LoginHandle(c *gin.Context) {
	if !a.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Admin login is not configured"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON"})
		return
	}
	payload, err := schema.AdminLoginRequestSchema.Parse(body)
	if err != nil {
		if verr, ok := schema.AsValidationError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed", "details": verr.Issues})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON"})
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(payload.Username), []byte(a.username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(payload.Password))
	if !usernameOK || passwordErr != nil {
		a.log.WithField("username", payload.Username).Warn("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid username or password"})
		return
	}

	tokenString, expiresAt, err := a.GenerateJWT(a.username)
	if err != nil {
		a.log.WithError(err).Error("sign admin token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":     tokenString,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
			"username":  a.username,
		},
	})
}
