package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
	tetrisservice "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("Invalid piece catalog: %v", err)
	}
	log.Printf("Loaded %d pieces", catalog.Len())

	sessionManager := tetrisservice.NewSessionManager(catalog, tetrisservice.SessionConfig{
		Settings: tetrisservice.Settings{
			GravityInterval: cfg.GravityInterval,
			Lookahead:       tetrisservice.DefaultLookahead,
			LegacySkew:      cfg.LegacySkew,
		},
		FrameInterval: cfg.FrameInterval,
		InputBuffer:   cfg.InputBuffer,
		WaitingTTL:    cfg.WaitingSessionTTL,
	})
	defer sessionManager.Shutdown()

	if cfg.BypassAuth {
		log.Printf("warning: BYPASS_AUTH is enabled, tokens are not verified")
	}
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(sessionManager, auth, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// loadCatalog は path のJSONカタログを読み込みます。path が空なら標準カタログを作ります。
func loadCatalog(path string) (*tetris.Catalog, error) {
	if path == "" {
		return tetris.NewCatalog(tetris.DefaultDefinitions(), tetris.DefaultPalette())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return tetris.ParseCatalog(data)
}
