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

	"github.com/zhangyuer/elenchus/backend/internal/config"
	"github.com/zhangyuer/elenchus/backend/internal/handler"
	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	"github.com/zhangyuer/elenchus/backend/internal/service/ai"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
	inquiryservice "github.com/zhangyuer/elenchus/backend/internal/service/inquiry"
	"github.com/zhangyuer/elenchus/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Pick the session store: pebble when a data path is configured,
	// in-memory otherwise.
	var sessionStore chatmodel.SessionStore
	if cfg.Store.Path != "" {
		pebbleStore, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to open session store: %v", err)
		}
		defer func() {
			if err := pebbleStore.Close(); err != nil {
				log.Printf("failed to close session store: %v", err)
			}
		}()
		sessionStore = pebbleStore
	} else {
		log.Println("STORE_PATH not set, sessions are kept in memory only")
		sessionStore = chatmodel.NewMemoryStore()
	}

	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the ARK_* environment variables")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, skipping AI initialization")
	}

	var inquirySvc *inquiryservice.Service
	var streamer chatservice.Streamer
	if aiService != nil {
		inquirySvc = inquiryservice.NewService(aiService)
		streamer = aiService
	} else {
		streamer = unavailableStreamer{}
	}

	manager := chatservice.NewManager(streamer, sessionStore, cfg.Chat.StreamIdleTimeout)
	router := handler.NewRouter(manager, sessionStore, inquirySvc, cfg.Inquiry)

	startServer(ctx, cfg.Server, router)
}

// unavailableStreamer keeps the session endpoints functional when no model
// is configured; turns fail with a clear message instead of a panic.
type unavailableStreamer struct{}

func (unavailableStreamer) StreamReply(context.Context, []chatmodel.Message, string) (chatservice.TokenStream, error) {
	return nil, errors.New("model not configured: set ARK_API_KEY and MODEL")
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Elenchus backend listening on %s", addr)
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
