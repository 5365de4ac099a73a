// Package infra implements the conversation layer's chat-platform adapters:
// the users API client for identity resolution and the response-URL poster
// for asynchronous reply delivery.
package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/infra")

// UsersClient resolves chat-platform user IDs to employee identities via the
// platform's users API.
type UsersClient struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewUsersClient creates a users API client.
func NewUsersClient(httpClient *http.Client, baseURL, botToken string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *UsersClient {
	return &UsersClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		botToken:   botToken,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// usersInfoResponse maps the platform's users.info payload.
type usersInfoResponse struct {
	OK   bool `json:"ok"`
	User struct {
		Profile struct {
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
		} `json:"profile"`
	} `json:"user"`
}

// Resolve fetches the user's profile and returns the identity the accrual
// lookup needs. A user without an email on file resolves to ErrNotFound.
func (c *UsersClient) Resolve(ctx context.Context, userID string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "UsersClient.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("chat.user_id", userID))

	var identity *domain.Identity
	var notFound *domain.ErrNotFound

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/users.info?user=%s", c.baseURL, url.QueryEscape(userID))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+c.botToken)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.logger.Error("users API request failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("users API returned status %d: %s", resp.StatusCode, string(body))
			}

			var info usersInfoResponse
			if err := json.Unmarshal(body, &info); err != nil {
				return fmt.Errorf("failed to decode users API response: %w", err)
			}
			// A definitive "no such profile" is an answer, not a fault:
			// don't retry it and don't count it against the breaker.
			if !info.OK || info.User.Profile.Email == "" {
				notFound = &domain.ErrNotFound{Resource: "chat user profile", ID: userID}
				return nil
			}

			identity = &domain.Identity{
				Email:       info.User.Profile.Email,
				DisplayName: info.User.Profile.FirstName,
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "chat/users", Err: err}
	}
	if notFound != nil {
		return nil, notFound
	}

	return identity, nil
}
