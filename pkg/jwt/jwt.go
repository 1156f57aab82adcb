package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"duochat/config"
	"duochat/internal/model"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// SubjectResolver 校验令牌subject是否仍指向存在的用户
// 返回非nil错误视为认证失败（例如用户已被删除）
type SubjectResolver func(userID uint) error

// JWTService 提供 JWT 生成与校验能力
// 使用对称密钥 HS256；Subject 存放用户ID
// HTTP中间件与WebSocket握手共用同一实例，保证"先认证"不变量一致

type JWTService struct {
	secretKey   []byte          // 对称密钥
	issuer      string          // 签发者
	expireAfter time.Duration   // 过期时间
	resolver    SubjectResolver // subject存在性校验，可为nil
}

// CustomClaims 自定义声明载荷
type CustomClaims struct {
	Username string `json:"username,omitempty"`
	jwtv5.RegisteredClaims
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig, resolver SubjectResolver) *JWTService {
	return &JWTService{
		secretKey:   []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		expireAfter: cfg.ExpireTime,
		resolver:    resolver,
	}
}

// GenerateToken 生成访问令牌
func (s *JWTService) GenerateToken(userID uint, username string) (string, error) {
	if userID == 0 {
		return "", errors.New("userID is required")
	}

	now := time.Now()
	claims := &CustomClaims{
		Username: username,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.expireAfter)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验并解析令牌
func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", model.ErrAuthentication)
	}
	claims := &CustomClaims{}
	parsedToken, err := jwtv5.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwtv5.Token) (interface{}, error) {
			// 验证签名方法
			if token.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		// 验证签发者
		jwtv5.WithIssuer(s.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAuthentication, err)
	}
	if !parsedToken.Valid {
		return nil, fmt.Errorf("%w: invalid token", model.ErrAuthentication)
	}
	return claims, nil
}

// Authenticate 校验令牌并解析出用户身份
// 令牌缺失/格式错误/过期/subject指向不存在的用户均返回认证错误
func (s *JWTService) Authenticate(tokenString string) (uint, string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return 0, "", err
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, "", fmt.Errorf("%w: invalid subject", model.ErrAuthentication)
	}

	// 用户可能在签发令牌后被删除
	if s.resolver != nil {
		if err := s.resolver(uint(userID)); err != nil {
			return 0, "", fmt.Errorf("%w: unknown user", model.ErrAuthentication)
		}
	}

	return uint(userID), claims.Username, nil
}
