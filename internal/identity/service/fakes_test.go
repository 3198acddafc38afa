package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	sessiondomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// memStore is an in-memory user and session store with copy-on-write transactions.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*userdomain.User // by email
	sessions map[string]*sessiondomain.Session
	// failSessionCreate makes every session insert fail.
	failSessionCreate error
	// raceEmail makes the next user insert fail with ErrEmailTaken, as if another request won.
	raceEmail bool
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*userdomain.User{}, sessions: map[string]*sessiondomain.Session{}}
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.sessions {
		c.sessions[k] = v
	}
	c.failSessionCreate = m.failSessionCreate
	c.raceEmail = m.raceEmail
	return c
}

func (m *memStore) sessionCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.users[email], nil
}

func (r memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.raceEmail {
		return userdomain.ErrEmailTaken
	}
	if _, ok := r.s.users[u.Email]; ok {
		return userdomain.ErrEmailTaken
	}
	c := *u
	r.s.users[u.Email] = &c
	return nil
}

type memSessionRepo struct{ s *memStore }

func (r memSessionRepo) Create(ctx context.Context, sess *sessiondomain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSessionCreate != nil {
		return r.s.failSessionCreate
	}
	if sess.RefreshTokenHash == "" {
		return errors.New("refresh token hash required")
	}
	c := *sess
	c.RefreshToken = ""
	r.s.sessions[sess.ID] = &c
	return nil
}

func (r memSessionRepo) GetByRefreshToken(ctx context.Context, token string) (*sessiondomain.WithOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hash := security.HashRefreshToken(token)
	for _, sess := range r.s.sessions {
		if sess.RefreshTokenHash != hash {
			continue
		}
		for _, u := range r.s.users {
			if u.ID == sess.UserID {
				return &sessiondomain.WithOwner{Session: *sess, Owner: u}, nil
			}
		}
	}
	return nil, nil
}

func (r memSessionRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

// memTransactor stages writes on a copy and swaps it in only when fn succeeds.
type memTransactor struct{ s *memStore }

func (t memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepo, sessions SessionRepo) error) (err error) {
	t.s.mu.Lock()
	staged := t.s.clone()
	t.s.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("panic in transaction")
		}
	}()
	if err := fn(ctx, memUserRepo{staged}, memSessionRepo{staged}); err != nil {
		return err
	}
	t.s.mu.Lock()
	t.s.users = staged.users
	t.s.sessions = staged.sessions
	t.s.mu.Unlock()
	return nil
}

type auditEntry struct {
	userID, action, resource, metadata string
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{userID, action, resource, metadata})
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

type chanEmitter struct{ ch chan *telemetry.Event }

func (e chanEmitter) Emit(ctx context.Context, ev *telemetry.Event) error {
	e.ch <- ev
	return nil
}
