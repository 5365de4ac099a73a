package openair_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/infra/openair"
	"github.com/precocity/timeoff-assistant-go/internal/infra/resilience"

	"go.uber.org/zap"
)

// fakeAccrualServer is an httptest-backed stand-in for the remote accrual
// API. Handlers are keyed by operation name ("login", "read", "logout").
type fakeAccrualServer struct {
	t *testing.T

	mu       sync.Mutex
	requests map[string][]json.RawMessage
	handlers map[string]http.HandlerFunc

	srv *httptest.Server
}

func newFakeAccrualServer(t *testing.T) *fakeAccrualServer {
	t.Helper()
	f := &fakeAccrualServer{
		t:        t,
		requests: make(map[string][]json.RawMessage),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := r.URL.Path[len("/api/v1/"):]

		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("undecodable %s request body: %v", op, err)
		}
		f.mu.Lock()
		f.requests[op] = append(f.requests[op], body)
		h := f.handlers[op]
		f.mu.Unlock()

		if h == nil {
			t.Errorf("unexpected %s call", op)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAccrualServer) handle(op string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[op] = h
}

func (f *fakeAccrualServer) respondJSON(op string, v any) {
	f.handle(op, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			f.t.Errorf("encoding %s response: %v", op, err)
		}
	})
}

func (f *fakeAccrualServer) lastRequest(op string) map[string]any {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[op]
	if len(reqs) == 0 {
		f.t.Fatalf("no %s request recorded", op)
	}
	var decoded map[string]any
	if err := json.Unmarshal(reqs[len(reqs)-1], &decoded); err != nil {
		f.t.Fatalf("decoding %s request: %v", op, err)
	}
	return decoded
}

func newClient(f *fakeAccrualServer) *openair.Client {
	creds := openair.Credentials{
		Namespace:  "default",
		APIKey:     "key-123",
		Company:    "precocity",
		User:       "svc-bot",
		Password:   "hunter2",
		ClientName: "timeoff-assistant",
		Version:    "1.0",
	}
	return openair.NewClient(
		f.srv.Client(),
		f.srv.URL,
		creds,
		100,
		resilience.NewCircuitBreaker("accrual-test"),
		zap.NewNop(),
	)
}

func TestLogin(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("login", map[string]string{"session_id": "sess-abc"})

	session, err := newClient(f).Login(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != "sess-abc" {
		t.Errorf("expected session sess-abc, got %q", session)
	}

	req := f.lastRequest("login")
	if req["company"] != "precocity" || req["api_key"] != "key-123" {
		t.Errorf("login request missing credentials: %v", req)
	}
}

func TestLogin_Rejected(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.handle("login", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	_, err := newClient(f).Login(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %T", err)
	}
	var rejected *domain.ErrRemoteRejected
	if !errors.As(err, &rejected) || rejected.Status != http.StatusUnauthorized {
		t.Errorf("expected wrapped rejection with status 401, got %v", err)
	}
}

func TestLogin_MissingSessionID(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("login", map[string]string{})

	_, err := newClient(f).Login(context.Background())
	if err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestFindUserByEmail(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("read", map[string]any{
		"objects": []map[string]any{{"id": "42", "name": "Alex"}},
	})

	record, err := newClient(f).FindUserByEmail(context.Background(), "sess-abc", "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil || record.RemoteUserID != "42" {
		t.Fatalf("expected user 42, got %+v", record)
	}

	req := f.lastRequest("read")
	if req["session_id"] != "sess-abc" {
		t.Errorf("expected session carried on read, got %v", req["session_id"])
	}
	if req["type"] != "User" || req["method"] != "equal to" {
		t.Errorf("unexpected read envelope: %v", req)
	}
	filter, _ := req["filter"].(map[string]any)
	if filter["addr_email"] != "a@x.com" {
		t.Errorf("expected email filter, got %v", req["filter"])
	}
	if req["limit"] != float64(100) {
		t.Errorf("expected read limit 100, got %v", req["limit"])
	}
}

func TestFindUserByEmail_NoMatch(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("read", map[string]any{"objects": []map[string]any{}})

	record, err := newClient(f).FindUserByEmail(context.Background(), "sess-abc", "nobody@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record for no match, got %+v", record)
	}
}

func TestFindUserByEmail_MultipleMatchesTakesFirst(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("read", map[string]any{
		"objects": []map[string]any{{"id": "42"}, {"id": "43"}},
	})

	record, err := newClient(f).FindUserByEmail(context.Background(), "sess-abc", "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil || record.RemoteUserID != "42" {
		t.Errorf("expected first match 42, got %+v", record)
	}
}

func TestFetchAccrualTransactions(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("read", map[string]any{
		"objects": []map[string]any{
			{"id": "1", "userid": "42", "amount": "8", "notes": "PTO"},
			{"id": "2", "userid": "42", "amount": "4", "notes": "Sick"},
		},
	})

	records, err := newClient(f).FetchAccrualTransactions(context.Background(), "sess-abc", "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Amount != "8" || records[0].Notes != "PTO" {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	req := f.lastRequest("read")
	if req["type"] != "Leave_accrual_transaction" {
		t.Errorf("expected accrual entity type, got %v", req["type"])
	}
	filter, _ := req["filter"].(map[string]any)
	if filter["userid"] != "42" {
		t.Errorf("expected userid filter, got %v", req["filter"])
	}
}

func TestFetchAccrualTransactions_UndecodableRecordKeptAsBlank(t *testing.T) {
	f := newFakeAccrualServer(t)
	// Second object is a bare string, not a record. It must survive as a
	// blank record so the caller can distinguish garbage from emptiness.
	f.handle("read", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"objects": [{"amount": "8", "notes": "PTO"}, "garbage"]}`))
	})

	records, err := newClient(f).FetchAccrualTransactions(context.Background(), "sess-abc", "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected raw record count preserved, got %d", len(records))
	}
	if records[1] != (domain.RawAccrualRecord{}) {
		t.Errorf("expected blank second record, got %+v", records[1])
	}
}

func TestLogout(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.respondJSON("logout", map[string]any{})

	if err := newClient(f).Logout(context.Background(), "sess-abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.lastRequest("logout")["session_id"] != "sess-abc" {
		t.Error("expected session id on logout request")
	}
}

func TestLogout_ServerError(t *testing.T) {
	f := newFakeAccrualServer(t)
	f.handle("logout", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session unknown", http.StatusBadRequest)
	})

	err := newClient(f).Logout(context.Background(), "sess-gone")
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}
