package inquiry

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	inquiryservice "github.com/zhangyuer/elenchus/backend/internal/service/inquiry"
	"github.com/zhangyuer/elenchus/backend/pkg/utils"
)

// Handler serves inquiry generation.
type Handler struct {
	svc *inquiryservice.Service
}

// New creates the inquiry handler. svc may be nil when the model is not
// configured; requests then fail with 503.
func New(svc *inquiryservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers inquiry routes under the API root.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/inquiries", h.handleGenerate)
}

// handleGenerate turns a topic into a list of provocative questions.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "inquiry generation unavailable")
		return
	}

	var payload struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	questions, err := h.svc.Generate(r.Context(), payload.Topic)
	if errors.Is(err, inquiryservice.ErrTopicRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("[inquiry] generation failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "inquiry generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"topic":     payload.Topic,
		"questions": questions,
	})
}
