package handlers

import (
	"net/http"
	"time"
)

// HealthHandler は死活状態を返します。
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler は HealthHandler を作成します。稼働時間は呼び出し時点から計測します。
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// ServeHTTP は GET /api/health に応答します。
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
