package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	resetrepo "github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/resetrequests"
	sessionrepo "github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/submissions"
	usersrepo "github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/users"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/sessions"
	"github.com/jackc/pgx/v5/pgconn"
)

type memUsers struct {
	mu        sync.Mutex
	byEmail   map[string]models.User
	getErr    error
	createErr error
	touchErr  error
	touched   []string
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byEmail: map[string]models.User{}}
	for _, u := range users {
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: "auth_users_email_unique"})
	}
	m.byEmail[u.Email] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) TouchLogin(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched = append(m.touched, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.Session
	err  error
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]models.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[s.ID] = *s
	return nil
}

func (m *memSessions) Find(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memResets struct {
	rows []models.PasswordResetRequest
	err  error
}

func (m *memResets) Create(_ context.Context, r *models.PasswordResetRequest) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *r)
	return nil
}

type fakeRepoManager struct {
	users    *memUsers
	sessions *memSessions
	resets   *memResets
}

func newFakeRepoManager(users ...models.User) *fakeRepoManager {
	return &fakeRepoManager{
		users:    newMemUsers(users...),
		sessions: newMemSessions(),
		resets:   &memResets{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessionrepo.Repository     { return m.sessions }
func (m *fakeRepoManager) ResetRequests(dbx.DBTX) resetrepo.Repository  { return m.resets }
func (m *fakeRepoManager) Submissions(dbx.DBTX) submissions.Repository  { return nil }

// newService wires a service with sessions kept outside the database.
func newService(m *fakeRepoManager) *AuthService {
	issuer := sessions.NewIssuer(m.sessions, 0, "", logging.Nop{})
	s := NewAuthService(nil, m, issuer, false, logging.Nop{})
	s.hashPassword = fastHash
	return s
}
