package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dreamtumulus/andun/internal/config"
	"github.com/dreamtumulus/andun/internal/handler"
	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/provider"
	authService "github.com/dreamtumulus/andun/internal/service/auth"
	"github.com/dreamtumulus/andun/internal/service/dialogue"
	"github.com/dreamtumulus/andun/internal/service/session"
	"github.com/dreamtumulus/andun/internal/service/synthesis"
	"github.com/dreamtumulus/andun/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize subject store
	subjectStore, cleanup, err := newStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to initialize subject store: %v", err)
	}
	defer cleanup()

	if err := store.SeedDemo(ctx, subjectStore); err != nil {
		log.Printf("warning: failed to seed demo records: %v", err)
	}

	// Initialize model backend
	backend, err := provider.New(ctx, cfg.Provider)
	if err != nil {
		log.Fatalf("failed to initialize %s backend: %v - 请检查对应的 API 密钥环境变量", cfg.Provider.Name, err)
	}
	log.Printf("model backend initialized: provider=%s", cfg.Provider.Name)

	assessment := dialogue.NewPipeline(backend, dialogue.DefaultAssessmentAgent(cfg.Agents.AssessmentName))
	counseling := dialogue.NewPipeline(backend, dialogue.DefaultCounselingAgent(cfg.Agents.CounselingName))
	synthSvc := synthesis.NewService(backend)

	controller := session.NewController(subjectStore, assessment, counseling, synthSvc)
	authSvc := authService.NewService(subject.Seed(), cfg.Auth.Secret, cfg.Auth.TokenTTL)

	router := handler.NewRouter(authSvc, controller)

	startServer(ctx, cfg.Server, router)
}

func newStore(cfg config.StoreConfig) (store.Store, func(), error) {
	if cfg.DBPath == "" {
		log.Println("ANDUN_DB_PATH 未配置，使用内存存储（重启后数据丢失）")
		return store.NewMemoryStore(), func() {}, nil
	}

	sqliteStore, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("sqlite store opened at %s", cfg.DBPath)
	return sqliteStore, func() { _ = sqliteStore.Close() }, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Andun backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
