package inquiry_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	inquiryhandler "github.com/zhangyuer/elenchus/backend/internal/handler/inquiry"
	inquiryservice "github.com/zhangyuer/elenchus/backend/internal/service/inquiry"
)

type fakeGenerator struct {
	text string
	err  error
}

func (g *fakeGenerator) GenerateInquiries(_ context.Context, _ string) (string, error) {
	return g.text, g.err
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/inquiries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newRouter(gen inquiryservice.Generator) *chi.Mux {
	r := chi.NewRouter()
	var svc *inquiryservice.Service
	if gen != nil {
		svc = inquiryservice.NewService(gen)
	}
	inquiryhandler.New(svc).RegisterRoutes(r)
	return r
}

func TestGenerateInquiries(t *testing.T) {
	r := newRouter(&fakeGenerator{text: "- Why does ice float?\n- Is density destiny?"})

	w := post(r, `{"topic":"ice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Topic     string   `json:"topic"`
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Topic != "ice" || len(resp.Questions) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	r := newRouter(&fakeGenerator{text: "- unused"})

	if w := post(r, `{"topic":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGenerateModelFailure(t *testing.T) {
	r := newRouter(&fakeGenerator{err: errors.New("model down")})

	if w := post(r, `{"topic":"gravity"}`); w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestGenerateWithoutModel(t *testing.T) {
	r := newRouter(nil)

	if w := post(r, `{"topic":"gravity"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
