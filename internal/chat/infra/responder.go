package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	chatdomain "github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Responder posts replies to per-request response URLs. Unlike the accrual
// service, the chat platform tolerates retries, so delivery gets backoff.
type Responder struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewResponder creates a response-URL poster.
func NewResponder(httpClient *http.Client, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Responder {
	return &Responder{
		httpClient: httpClient,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// Post delivers one reply to the given response URL.
func (r *Responder) Post(ctx context.Context, responseURL string, reply chatdomain.Reply) error {
	ctx, span := tracer.Start(ctx, "Responder.Post")
	defer span.End()

	_, err := r.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, r.cfg, func() error {
			body, err := json.Marshal(reply)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := r.httpClient.Do(req)
			if err != nil {
				r.logger.Error("reply post failed",
					zap.String("response_url", responseURL),
					zap.Error(err),
				)
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("response URL returned status %d", resp.StatusCode)
			}
			return nil
		})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "chat/response_url", Err: err}
	}

	r.logger.Debug("reply posted", zap.String("response_url", responseURL))
	return nil
}
