package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSHandler は指定されたオリジンに対して CORS を適用するミドルウェアを返します。
func CORSHandler(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler
}
