// Package openair provides the client for the remote accrual service: a
// session-oriented query API (login / read / logout) used as the backend for
// leave-accrual balances.
package openair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/precocity/timeoff-assistant-go/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("openair")

// Entity types understood by the accrual service's read operation.
const (
	entityUser    = "User"
	entityAccrual = "Leave_accrual_transaction"
)

// Credentials are the fixed service credentials, loaded once from config.
// They are never user input.
type Credentials struct {
	Namespace  string
	APIKey     string
	Company    string
	User       string
	Password   string
	ClientName string
	Version    string
}

// Client talks to the accrual service. Each method performs exactly one
// network round trip and never retries: the endpoint is a third party with
// unknown rate-limit policy, so retrying is left to callers that know better.
// The circuit breaker only short-circuits calls while the service is down.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	readLimit  int
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates an accrual service client.
func NewClient(httpClient *http.Client, baseURL string, creds Credentials, readLimit int, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		creds:      creds,
		readLimit:  readLimit,
		cb:         cb,
		logger:     logger,
	}
}

type loginRequest struct {
	Namespace  string `json:"api_namespace"`
	APIKey     string `json:"api_key"`
	Company    string `json:"company"`
	User       string `json:"user"`
	Password   string `json:"password"`
	ClientName string `json:"client"`
	Version    string `json:"version"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
}

type readRequest struct {
	SessionID string            `json:"session_id"`
	Type      string            `json:"type"`
	Method    string            `json:"method"`
	Limit     int               `json:"limit"`
	Filter    map[string]string `json:"filter,omitempty"`
}

type readResponse struct {
	Objects []json.RawMessage `json:"objects"`
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

// Login opens an authenticated session. Transport failures, handshake
// problems and explicit rejections all surface as ErrExternalService.
func (c *Client) Login(ctx context.Context) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "OpenAir.Login")
	defer span.End()

	var resp loginResponse

	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, "login", loginRequest{
			Namespace:  c.creds.Namespace,
			APIKey:     c.creds.APIKey,
			Company:    c.creds.Company,
			User:       c.creds.User,
			Password:   c.creds.Password,
			ClientName: c.creds.ClientName,
			Version:    c.creds.Version,
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode login response: %w", err)
		}
		if resp.SessionID == "" {
			return nil, fmt.Errorf("login response carried no session id")
		}
		return nil, nil
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "accrual/login", Err: err}
	}

	c.logger.Debug("accrual service login ok")
	return domain.Session(resp.SessionID), nil
}

// FindUserByEmail resolves the remote user record with an equality filter on
// email. Returns (nil, nil) when nothing matches. The service's data is
// assumed near-unique on email but uniqueness is not enforced: on multiple
// matches the first is taken and a warning is logged.
func (c *Client) FindUserByEmail(ctx context.Context, session domain.Session, email string) (*domain.RemoteUserRecord, error) {
	ctx, span := tracer.Start(ctx, "OpenAir.FindUserByEmail")
	defer span.End()
	span.SetAttributes(attribute.String("user.email", email))

	var record *domain.RemoteUserRecord

	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, "read", readRequest{
			SessionID: string(session),
			Type:      entityUser,
			Method:    "equal to",
			Limit:     c.readLimit,
			Filter:    map[string]string{"addr_email": email},
		})
		if err != nil {
			return nil, err
		}

		var resp readResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode user read response: %w", err)
		}
		if len(resp.Objects) == 0 {
			return nil, nil
		}
		if len(resp.Objects) > 1 {
			c.logger.Warn("multiple user records match email, taking the first",
				zap.String("email", email),
				zap.Int("matches", len(resp.Objects)),
			)
		}

		var row domain.RemoteUserRecord
		if err := json.Unmarshal(resp.Objects[0], &row); err != nil {
			return nil, fmt.Errorf("failed to decode user record: %w", err)
		}
		if row.RemoteUserID == "" {
			return nil, nil
		}
		record = &row
		return nil, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "accrual/user", Err: err}
	}

	return record, nil
}

// FetchAccrualTransactions returns the first page of leave-accrual
// transactions for a remote user. The result is bounded by the configured
// read limit; a truncated result is reflected as-is in the summary.
// Individual records that fail to decode are kept as zero-valued raw records
// so the caller can still tell a non-empty result from an empty one.
func (c *Client) FetchAccrualTransactions(ctx context.Context, session domain.Session, remoteUserID string) ([]domain.RawAccrualRecord, error) {
	ctx, span := tracer.Start(ctx, "OpenAir.FetchAccrualTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.remote_id", remoteUserID))

	var records []domain.RawAccrualRecord

	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, "read", readRequest{
			SessionID: string(session),
			Type:      entityAccrual,
			Method:    "equal to",
			Limit:     c.readLimit,
			Filter:    map[string]string{"userid": remoteUserID},
		})
		if err != nil {
			return nil, err
		}

		var resp readResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode accrual read response: %w", err)
		}

		records = make([]domain.RawAccrualRecord, 0, len(resp.Objects))
		for _, obj := range resp.Objects {
			var row domain.RawAccrualRecord
			if err := json.Unmarshal(obj, &row); err != nil {
				c.logger.Debug("undecodable accrual record, keeping as blank",
					zap.String("remote_user_id", remoteUserID),
					zap.Error(err),
				)
				row = domain.RawAccrualRecord{}
			}
			records = append(records, row)
		}
		return nil, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "accrual/transactions", Err: err}
	}

	return records, nil
}

// Logout releases the session. Best effort: the server expires sessions on
// its own, so a failure here is the caller's to log and ignore.
func (c *Client) Logout(ctx context.Context, session domain.Session) error {
	ctx, span := tracer.Start(ctx, "OpenAir.Logout")
	defer span.End()

	_, err := c.cb.Execute(func() (any, error) {
		_, err := c.doRequest(ctx, "logout", logoutRequest{SessionID: string(session)})
		return nil, err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "accrual/logout", Err: err}
	}
	return nil
}

// doRequest executes one POST against the accrual API.
func (c *Client) doRequest(ctx context.Context, op string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/%s", c.baseURL, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("accrual service request failed",
			zap.String("operation", op),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read accrual service response",
			zap.String("operation", op),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("accrual service non-2xx response",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrRemoteRejected{Operation: op, Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("accrual service request OK",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}
