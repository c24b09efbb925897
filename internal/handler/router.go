package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhangyuer/elenchus/backend/internal/config"
	chathandler "github.com/zhangyuer/elenchus/backend/internal/handler/chat"
	inquiryhandler "github.com/zhangyuer/elenchus/backend/internal/handler/inquiry"
	streamhandler "github.com/zhangyuer/elenchus/backend/internal/handler/stream"
	middlewarePkg "github.com/zhangyuer/elenchus/backend/internal/middleware"
	chatmodel "github.com/zhangyuer/elenchus/backend/internal/model/chat"
	inquiryservice "github.com/zhangyuer/elenchus/backend/internal/service/inquiry"
	"github.com/zhangyuer/elenchus/backend/pkg/utils"

	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
)

// NewRouter wires HTTP routes to core services. inquirySvc may be nil when
// the model is not configured.
func NewRouter(manager *chatservice.Manager, store chatmodel.SessionStore, inquirySvc *inquiryservice.Service, inquiryCfg config.InquiryConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(manager, store)
	wsHandler := chathandler.NewWebSocketHandler(manager)
	streamHandler := streamhandler.New(manager)
	inquiryHandler := inquiryhandler.New(inquirySvc)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)

		api.Group(func(limited chi.Router) {
			limited.Use(middlewarePkg.RateLimit(inquiryCfg.RPS, inquiryCfg.Burst))
			inquiryHandler.RegisterRoutes(limited)
		})

		api.Get("/sessions/{key}/stream", func(w http.ResponseWriter, r *http.Request) {
			key := chi.URLParam(r, "key")
			message := r.URL.Query().Get("message")
			question := r.URL.Query().Get("question")

			if message == "" && question == "" {
				utils.RespondError(w, http.StatusBadRequest, "message or question query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, key, message, question); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
