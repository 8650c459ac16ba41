package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrInvalidToken = errors.New("invalid token")
)

type UserIDKey struct{}

// GetUserIDFromContext はコンテキストからユーザーIDを取り出します。
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// WithUserID は userID を持たせた ctx のコピーを返します。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError はJSONのエラーレスポンスを書き込みます
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator は HS256 の JWT を検証してユーザーIDに変換します。
// bypass が有効な場合は全てのトークンを受け入れ、空でなければトークンをそのままユーザーIDとし、
// 空ならランダムなIDを割り当てます。
type Authenticator struct {
	secret []byte
	bypass bool
}

// NewAuthenticator は secret を使う Authenticator を返します。
func NewAuthenticator(secret string, bypass bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), bypass: bypass}
}

// ParseToken は tokenString のユーザーID（"sub" クレーム）を返します。先頭の "Bearer " は無視します。
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	tokenString = strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer ")

	if a.bypass {
		if tokenString != "" {
			return tokenString, nil
		}
		return uuid.New().String(), nil
	}
	if tokenString == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user ID", ErrInvalidToken)
	}
	return userID, nil
}

// Middleware は有効な "Authorization: Bearer" ヘッダーのないリクエストを拒否し、
// 呼び出し元のユーザーIDをリクエストのコンテキストに格納します。
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && !a.bypass {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if authHeader != "" && !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
			return
		}

		userID, err := a.ParseToken(authHeader)
		if err != nil {
			log.Printf("AuthMiddleware Error: %v", err)
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
