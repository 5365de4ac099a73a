// Package service contains the balance-retrieval orchestration: the linear
// login -> find user -> fetch transactions -> aggregate -> logout sequence,
// with per-stage failure mapping and asynchronous outcome delivery.
package service

import (
	"context"
	"time"

	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/infra/observability"
	"github.com/precocity/timeoff-assistant-go/internal/infra/resilience"
	"github.com/precocity/timeoff-assistant-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/retrieval")

// Retrieval drives balance retrievals end to end. It is stateless between
// requests: every invocation owns an independent session and delivers its
// outcome exactly once through the caller-supplied destination.
type Retrieval struct {
	client   port.AccrualClient
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRetrieval creates the retrieval service with all dependencies injected.
// maxConcurrent caps the number of retrieval tasks in flight at once.
func NewRetrieval(client port.AccrualClient, maxConcurrent int, metrics *observability.Metrics, logger *zap.Logger) *Retrieval {
	return &Retrieval{
		client:   client,
		bulkhead: resilience.NewBulkhead(maxConcurrent),
		metrics:  metrics,
		logger:   logger,
	}
}

// RetrieveBalance starts an asynchronous retrieval for the given identity and
// returns immediately. The conversation that asked is not blocked on the
// remote round trips; the outcome arrives later through dest.
func (s *Retrieval) RetrieveBalance(email, displayName string, dest port.ReplyDestination) {
	identity := domain.Identity{Email: email, DisplayName: displayName}
	requestID := uuid.New().String()

	s.logger.Info("balance retrieval started",
		zap.String("request_id", requestID),
		zap.String("email", email),
	)

	go s.run(requestID, identity, dest)
}

// run executes one retrieval task and delivers its single outcome.
func (s *Retrieval) run(requestID string, identity domain.Identity, dest port.ReplyDestination) {
	ctx, span := tracer.Start(context.Background(), "Retrieval.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.request_id", requestID),
		attribute.String("user.email", identity.Email),
	)

	if err := s.bulkhead.Acquire(ctx); err != nil {
		// Only reachable if ctx is cancelled, which a background task's
		// context never is. Kept for contract completeness.
		s.logger.Error("bulkhead acquire failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	defer s.bulkhead.Release()

	start := time.Now()
	outcome, session, loggedIn := s.execute(ctx, requestID, identity)

	s.metrics.IncrRetrievalOutcome(string(outcome.Status))
	s.metrics.RecordRetrievalDuration(string(outcome.Status), time.Since(start))
	span.SetAttributes(attribute.String("retrieval.status", string(outcome.Status)))

	// The single delivery for this request, on every path. The session is
	// released only afterwards: logout is best effort and must never delay
	// the user's reply.
	dest.Deliver(ctx, outcome)

	if loggedIn {
		s.releaseSession(ctx, requestID, session)
	}

	s.logger.Info("balance retrieval finished",
		zap.String("request_id", requestID),
		zap.String("status", string(outcome.Status)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// execute walks the linear state machine and resolves every failure into one
// of the four terminal outcomes. It does not release the session itself:
// loggedIn tells the caller whether a session was acquired, and the caller
// logs out after delivering the outcome.
func (s *Retrieval) execute(ctx context.Context, requestID string, identity domain.Identity) (outcome domain.RetrievalOutcome, session domain.Session, loggedIn bool) {
	loginStart := time.Now()
	session, err := s.client.Login(ctx)
	s.metrics.RecordRemoteCallDuration("login", time.Since(loginStart))
	if err != nil {
		s.logger.Error("accrual service login failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("accrual")
		return domain.FailureOutcome(requestID, identity, domain.StatusRemoteUnavailable), "", false
	}

	findStart := time.Now()
	user, err := s.client.FindUserByEmail(ctx, session, identity.Email)
	s.metrics.RecordRemoteCallDuration("find_user", time.Since(findStart))
	if err != nil {
		s.logger.Error("user lookup failed",
			zap.String("request_id", requestID),
			zap.String("email", identity.Email),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("accrual")
		return domain.FailureOutcome(requestID, identity, domain.StatusRemoteUnavailable), session, true
	}
	if user == nil {
		s.logger.Info("no remote user record for email",
			zap.String("request_id", requestID),
			zap.String("email", identity.Email),
		)
		return domain.FailureOutcome(requestID, identity, domain.StatusUserNotFound), session, true
	}

	fetchStart := time.Now()
	raws, err := s.client.FetchAccrualTransactions(ctx, session, user.RemoteUserID)
	s.metrics.RecordRemoteCallDuration("fetch_transactions", time.Since(fetchStart))
	if err != nil {
		s.logger.Error("accrual transactions fetch failed",
			zap.String("request_id", requestID),
			zap.String("remote_user_id", user.RemoteUserID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("accrual")
		return domain.FailureOutcome(requestID, identity, domain.StatusRemoteUnavailable), session, true
	}

	summary := SummarizeAccruals(raws)
	if summary.Len() == 0 && len(raws) > 0 {
		// The service reported transactions but none of them parsed:
		// garbage, not an empty balance sheet.
		s.logger.Warn("accrual transactions all unparseable",
			zap.String("request_id", requestID),
			zap.Int("raw_records", len(raws)),
		)
		return domain.FailureOutcome(requestID, identity, domain.StatusMalformedData), session, true
	}

	s.logger.Info("balances aggregated",
		zap.String("request_id", requestID),
		zap.Int("raw_records", len(raws)),
		zap.Int("categories", summary.Len()),
	)
	return domain.SuccessOutcome(requestID, identity, summary), session, true
}

// releaseSession logs out best-effort. The remote session expires server-side
// regardless, so a logout failure is logged and never changes the outcome.
func (s *Retrieval) releaseSession(ctx context.Context, requestID string, session domain.Session) {
	logoutStart := time.Now()
	err := s.client.Logout(ctx, session)
	s.metrics.RecordRemoteCallDuration("logout", time.Since(logoutStart))
	if err != nil {
		s.logger.Warn("accrual service logout failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}
