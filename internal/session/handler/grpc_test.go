package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/session/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/server/interceptors"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
)

// mockSessionRepo implements sessionrepo.Repository for tests.
type mockSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	listErr   error
	deleteErr error
}

func newMockSessionRepo(sessions ...*domain.Session) *mockSessionRepo {
	m := &mockSessionRepo{sessions: map[string]*domain.Session{}}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.WithOwner, error) {
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) DeleteForUser(ctx context.Context, userID, id string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}

type auditCall struct {
	userID, action, resource, metadata string
}

type mockAuditLogger struct {
	calls []auditCall
}

func (m *mockAuditLogger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	m.calls = append(m.calls, auditCall{userID, action, resource, metadata})
}

type chanEmitter chan *telemetry.Event

func (c chanEmitter) Emit(ctx context.Context, ev *telemetry.Event) error {
	c <- ev
	return nil
}

func ctxAs(userID, role string) context.Context {
	return interceptors.WithIdentity(context.Background(), userID, role)
}

func sessionFor(id, userID string) *domain.Session {
	now := time.Now().UTC()
	push := "push-" + id
	return &domain.Session{ID: id, UserID: userID, DeviceInfo: "iPhone", PushToken: &push, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
}

func TestNilRepo(t *testing.T) {
	srv := NewServer(nil, nil, nil)
	ctx := ctxAs("user-1", "USER")
	if _, err := srv.ListSessions(ctx, &sessionv1.ListSessionsRequest{}); status.Code(err) != codes.Unimplemented {
		t.Errorf("ListSessions code = %v, want Unimplemented", status.Code(err))
	}
	if _, err := srv.RevokeSession(ctx, &sessionv1.RevokeSessionRequest{SessionID: "s1"}); status.Code(err) != codes.Unimplemented {
		t.Errorf("RevokeSession code = %v, want Unimplemented", status.Code(err))
	}
}

func TestListSessions_Own(t *testing.T) {
	repo := newMockSessionRepo(sessionFor("s1", "user-1"), sessionFor("s2", "user-1"), sessionFor("s3", "user-2"))
	srv := NewServer(repo, nil, nil)

	resp, err := srv.ListSessions(ctxAs("user-1", "USER"), &sessionv1.ListSessionsRequest{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(resp.Sessions))
	}
	for _, s := range resp.Sessions {
		if s.UserID != "user-1" {
			t.Errorf("leaked session %+v", s)
		}
		if s.PushToken != "push-"+s.ID || s.DeviceInfo != "iPhone" {
			t.Errorf("session fields not mapped: %+v", s)
		}
	}
}

func TestListSessions_OtherUserRequiresAdmin(t *testing.T) {
	repo := newMockSessionRepo(sessionFor("s3", "user-2"))
	srv := NewServer(repo, nil, nil)

	_, err := srv.ListSessions(ctxAs("user-1", "USER"), &sessionv1.ListSessionsRequest{UserID: "user-2"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %v, want PermissionDenied", status.Code(err))
	}
	resp, err := srv.ListSessions(ctxAs("admin-1", "ADMIN"), &sessionv1.ListSessionsRequest{UserID: "user-2"})
	if err != nil {
		t.Fatalf("admin ListSessions: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID != "s3" {
		t.Errorf("admin got %+v", resp.Sessions)
	}
}

func TestListSessions_Errors(t *testing.T) {
	srv := NewServer(newMockSessionRepo(), nil, nil)
	if _, err := srv.ListSessions(context.Background(), &sessionv1.ListSessionsRequest{}); status.Code(err) != codes.Unauthenticated {
		t.Errorf("no identity code = %v, want Unauthenticated", status.Code(err))
	}
	repo := newMockSessionRepo()
	repo.listErr = errors.New("db down")
	srv = NewServer(repo, nil, nil)
	if _, err := srv.ListSessions(ctxAs("user-1", "USER"), &sessionv1.ListSessionsRequest{}); status.Code(err) != codes.Internal {
		t.Errorf("repo error code = %v, want Internal", status.Code(err))
	}
}

func TestRevokeSession_Success(t *testing.T) {
	repo := newMockSessionRepo(sessionFor("s1", "user-1"))
	logger := &mockAuditLogger{}
	events := make(chanEmitter, 1)
	srv := NewServer(repo, logger, events)

	if _, err := srv.RevokeSession(ctxAs("user-1", "USER"), &sessionv1.RevokeSessionRequest{SessionID: "s1"}); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, ok := repo.sessions["s1"]; ok {
		t.Error("session still stored after revoke")
	}
	if len(logger.calls) != 1 || logger.calls[0] != (auditCall{"user-1", audit.ActionSessionRevoked, audit.ResourceSession, "s1"}) {
		t.Errorf("audit calls = %+v", logger.calls)
	}
	select {
	case ev := <-events:
		if ev.Type != telemetry.EventSessionRevoked || ev.SessionID != "s1" || ev.UserID != "user-1" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no session revoked event")
	}
}

func TestRevokeSession_Failures(t *testing.T) {
	repo := newMockSessionRepo(sessionFor("s1", "user-1"))
	logger := &mockAuditLogger{}
	srv := NewServer(repo, logger, nil)

	tests := []struct {
		name string
		ctx  context.Context
		id   string
		code codes.Code
	}{
		{"unauthenticated", context.Background(), "s1", codes.Unauthenticated},
		{"missing id", ctxAs("user-1", "USER"), " ", codes.InvalidArgument},
		{"unknown id", ctxAs("user-1", "USER"), "nope", codes.NotFound},
		{"someone else's session", ctxAs("user-2", "ADMIN"), "s1", codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.RevokeSession(tt.ctx, &sessionv1.RevokeSessionRequest{SessionID: tt.id})
			if status.Code(err) != tt.code {
				t.Errorf("code = %v, want %v", status.Code(err), tt.code)
			}
		})
	}
	if _, ok := repo.sessions["s1"]; !ok {
		t.Error("failed revokes removed the session")
	}
	if len(logger.calls) != 0 {
		t.Errorf("failed revokes were audited: %+v", logger.calls)
	}

	repo.deleteErr = errors.New("db down")
	if _, err := srv.RevokeSession(ctxAs("user-1", "USER"), &sessionv1.RevokeSessionRequest{SessionID: "s1"}); status.Code(err) != codes.Internal {
		t.Errorf("repo error code = %v, want Internal", status.Code(err))
	}
}
