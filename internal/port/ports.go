// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/precocity/timeoff-assistant-go/internal/domain"
)

// AccrualClient manages one authenticated session against the remote accrual
// service and executes queries within it. Every method performs exactly one
// network round trip; none retry automatically.
type AccrualClient interface {
	// Login opens a session with the fixed configured credentials.
	Login(ctx context.Context) (domain.Session, error)

	// FindUserByEmail resolves the remote user record with an equality
	// filter on email. Returns (nil, nil) when no record matches; when more
	// than one matches, the first is taken.
	FindUserByEmail(ctx context.Context, session domain.Session, email string) (*domain.RemoteUserRecord, error)

	// FetchAccrualTransactions returns the first page of leave-accrual
	// transactions for the remote user. Results past the service-side page
	// limit are not fetched.
	FetchAccrualTransactions(ctx context.Context, session domain.Session, remoteUserID string) ([]domain.RawAccrualRecord, error)

	// Logout releases the session. Best effort: callers log failures and
	// never escalate them.
	Logout(ctx context.Context, session domain.Session) error
}

// ReplyDestination is a one-shot delivery target for the outcome of a
// retrieval request, decoupled from the request/response cycle that
// initiated it. Deliver is called exactly once per request, from the
// asynchronous completion context.
type ReplyDestination interface {
	Deliver(ctx context.Context, outcome domain.RetrievalOutcome)
}

// BalanceRetriever starts an asynchronous balance retrieval for an identity.
// The outcome arrives through the supplied destination; the call itself
// returns immediately.
type BalanceRetriever interface {
	RetrieveBalance(email, displayName string, dest ReplyDestination)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
