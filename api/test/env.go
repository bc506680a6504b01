package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"github.com/techstore/storefront/api"
	"github.com/techstore/storefront/api/background"
	"github.com/techstore/storefront/core/claims"
	"github.com/techstore/storefront/core/user"
	"github.com/techstore/storefront/database"
	"github.com/techstore/storefront/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	containerExpiry = 300 // seconds

	UserEmail  = "user@test.com"
	UserPass   = "userpass123"
	AdminEmail = "admin@test.com"
	AdminPass  = "adminpass123"
)

// MailCapture is the test Mailer: it keeps recovery tokens in memory
// instead of talking to an SMTP relay.
type MailCapture struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *MailCapture) SendRecovery(to string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[to] = token
	return nil
}

// WaitToken polls for a token delivered by a background task.
func (m *MailCapture) WaitToken(to string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		tok, ok := m.tokens[to]
		m.mu.Unlock()
		if ok {
			return tok, true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return "", false
}

type TestEnv struct {
	DB     *sqlx.DB
	Server *httptest.Server
	URL    string
	Mail   *MailCapture

	client *http.Client
}

// NewTestEnv boots a disposable postgres container, migrates the
// schema, seeds one user and one admin, and serves the full API mux
// over httptest. Everything is torn down through t.Cleanup.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	resource, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	resource.Expire(containerExpiry)

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purging postgres container: %v", err)
		}
	})

	cfg := database.Config{
		User:       "postgres",
		Password:   "postgres",
		Host:       resource.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = database.Open(cfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		return nil, fmt.Errorf("connecting to test database: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	if err := seedUsers(db); err != nil {
		return nil, fmt.Errorf("seeding users: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	session := scs.New()
	session.Lifetime = time.Hour

	mail := &MailCapture{}

	mux := api.APIMux(api.APIConfig{
		Log:               logger,
		DB:                db,
		Session:           session,
		Mailer:            mail,
		TokenTimeout:      time.Hour,
		Background:        background.New(logger),
		IdempotencyWindow: 24 * time.Hour,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	env := &TestEnv{
		DB:     db,
		Server: server,
		URL:    server.URL,
		Mail:   mail,
		client: &http.Client{Jar: jar},
	}

	return env, nil
}

// Client returns an http client that keeps session cookies between
// requests.
func (env *TestEnv) Client() *http.Client {
	return env.client
}

func (env *TestEnv) Login(email string, pass string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": pass,
	})
	if err != nil {
		return err
	}

	w, err := env.client.Post(env.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status code %s", w.Status)
	}
	return nil
}

func (env *TestEnv) Logout() error {
	w, err := env.client.Post(env.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed: status code %s", w.Status)
	}
	return nil
}

func seedUsers(db *sqlx.DB) error {
	seed := []struct {
		email string
		pass  string
		role  string
	}{
		{UserEmail, UserPass, claims.RoleUser},
		{AdminEmail, AdminPass, claims.RoleAdmin},
	}

	for i, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.pass), bcrypt.MinCost)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Fullname:     fmt.Sprintf("Test User %d", i),
			Username:     fmt.Sprintf("testuser%d", i),
			Email:        s.email,
			Role:         s.role,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(context.Background(), db, usr); err != nil {
			return err
		}
	}

	return nil
}
