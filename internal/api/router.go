// Package api は HTTP のルートを組み立てます。
package api

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
)

// NewRouter はルーティングテーブルを構築します。
//
//	GET    /api/health          public
//	POST   /api/games           auth
//	GET    /api/games/{roomID}  auth
//	DELETE /api/games/{roomID}  auth
//	GET    /ws/games/{roomID}   ソケット上の認証メッセージ
func NewRouter(sessions handlers.SessionService, auth *middleware.Authenticator, origins []string) http.Handler {
	gameHandler := handlers.NewGameHandler(sessions, auth)

	r := mux.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)

	r.Handle("/api/health", handlers.NewHealthHandler()).Methods(http.MethodGet)

	games := r.PathPrefix("/api/games").Subrouter()
	games.Use(auth.Middleware)
	games.HandleFunc("", gameHandler.CreateGame).Methods(http.MethodPost)
	games.HandleFunc("/{roomID}", gameHandler.GetGame).Methods(http.MethodGet)
	games.HandleFunc("/{roomID}", gameHandler.EndGame).Methods(http.MethodDelete)

	r.HandleFunc("/ws/games/{roomID}", gameHandler.HandleWebSocketConnection).Methods(http.MethodGet)

	return middleware.CORSHandler(origins)(r)
}
