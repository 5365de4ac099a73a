package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chatdomain "github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	chatservice "github.com/precocity/timeoff-assistant-go/internal/chat/service"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/handler"
	"github.com/precocity/timeoff-assistant-go/internal/infra/cache"
	"github.com/precocity/timeoff-assistant-go/internal/infra/observability"
	"github.com/precocity/timeoff-assistant-go/internal/port"

	"go.uber.org/zap"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, _ string) (*domain.Identity, error) {
	return &domain.Identity{Email: "a@x.com", DisplayName: "Alex"}, nil
}

type stubPoster struct{}

func (stubPoster) Post(_ context.Context, _ string, _ chatdomain.Reply) error { return nil }

type stubRetriever struct{}

func (stubRetriever) RetrieveBalance(_, _ string, _ port.ReplyDestination) {}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	metrics := observability.NewMetrics()
	chatSvc := chatservice.NewChatService(
		stubResolver{},
		stubPoster{},
		stubRetriever{},
		cache.New[domain.Identity](time.Minute),
		"the time-tracking sandbox",
		metrics,
		zap.NewNop(),
	)
	return handler.NewRouter(chatSvc, metrics, zap.NewNop())
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/ping", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestChatEvents(t *testing.T) {
	router := newTestRouter(t)

	body := `{"type":"message","user":"U1","text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reply chatdomain.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if !strings.Contains(reply.Text, "Alex") {
		t.Errorf("expected personalized greeting, got %q", reply.Text)
	}
}

func TestChatEvents_BadRequests(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"user":`},
		{"missing user", `{"type":"message","text":"hello"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/events", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestChatInteractions(t *testing.T) {
	router := newTestRouter(t)

	body := `{"callback_id":"timeoff-options","user":"U1","actions":[{"name":"balance","value":"balance"}],"response_url":"https://hooks.example.com/r/1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/interactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reply chatdomain.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if !strings.Contains(reply.Text, "Checking balances") {
		t.Errorf("expected balance acknowledgement, got %q", reply.Text)
	}
}

func TestChatInteractions_MissingUser(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/interactions", strings.NewReader(`{"actions":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRetrievalMetricsSnapshot(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.IncrRetrievalOutcome("success")
	metrics.IncrRetrievalOutcome("success")
	metrics.IncrRetrievalOutcome("user_not_found")

	chatSvc := chatservice.NewChatService(
		stubResolver{}, stubPoster{}, stubRetriever{},
		cache.New[domain.Identity](time.Minute),
		"the time-tracking sandbox", metrics, zap.NewNop(),
	)
	router := handler.NewRouter(chatSvc, metrics, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/retrievals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap observability.RetrievalSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.Success != 2 || snap.UserNotFound != 1 || snap.Total != 3 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
