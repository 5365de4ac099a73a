// Package port defines the conversation layer's interfaces to the chat
// platform.
package port

import (
	"context"

	chatdomain "github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
)

// IdentityResolver turns a chat-platform user ID into the employee identity
// (email + display name) the accrual lookup needs.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.Identity, error)
}

// ReplyPoster posts a reply to a per-request response URL, outside the
// original request/response cycle.
type ReplyPoster interface {
	Post(ctx context.Context, responseURL string, reply chatdomain.Reply) error
}
