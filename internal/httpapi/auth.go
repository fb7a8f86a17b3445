package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const userIDKey ctxKey = iota

// withUser 识别请求所属用户，失败返回 401
func (a *apiServer) withUser(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.identify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		fn(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func userFrom(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func (a *apiServer) identify(r *http.Request) (string, error) {
	if a.jwtSecret == nil {
		userID := strings.TrimSpace(r.Header.Get(a.devHeader))
		if userID == "" {
			return "", fmt.Errorf("缺少用户身份请求头 %s", a.devHeader)
		}
		return userID, nil
	}

	raw := bearerToken(r)
	if raw == "" {
		return "", errors.New("缺少 Bearer token")
	}
	return ParseToken(a.jwtSecret, raw)
}

// bearerToken SSE 无法自定义请求头，允许用 access_token 查询参数
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// ParseToken 校验 HS256 token，返回 sub 作为用户 ID
func ParseToken(secret []byte, raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("token has expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", fmt.Errorf("invalid token signature")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("malformed token")
		default:
			return "", fmt.Errorf("invalid token: %w", err)
		}
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errors.New("token 缺少 sub")
	}
	return sub, nil
}

// IssueToken 签发 HS256 token；ttl 为 0 表示不过期
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret 为空")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
