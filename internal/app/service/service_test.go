package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"notekeeper/internal/app/worker"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/repository/repotest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newPool(t *testing.T) *worker.Pool {
	t.Helper()
	p := worker.NewPool(2, zap.NewNop())
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

type fixture struct {
	store  *repotest.Store
	pool   *worker.Pool
	tokens *security.TokenManager
	auth   *AuthService
	otp    *OTPService
	notes  *NoteService
	upl    *fakeUploader
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	pool := newPool(t)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tokens := security.NewTokenManager([]byte(testSecret), 24*time.Hour)
	upl := &fakeUploader{url: "https://img.example/x.png"}
	log := zap.NewNop()
	return &fixture{
		store:  store,
		pool:   pool,
		tokens: tokens,
		auth:   NewAuthService(store.Users(), pool, tokens, bcrypt.MinCost, log),
		otp:    NewOTPService(store.Users(), pool, "NoteKeeperAPI", log).WithClock(clock.Now),
		notes:  NewNoteService(store.Notes(), pool, upl, 10<<20, log),
		upl:    upl,
		clock:  clock,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeUploader struct {
	url   string
	err   error
	calls int
	last  string
}

func (f *fakeUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	f.calls++
	f.last = name
	io.Copy(io.Discard, r)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

var errBoom = errors.New("boom")

func (f *fixture) register(t *testing.T, name string) int64 {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterRequest{Username: name, Email: name + "@example.com", Password: "pw-" + name})
	require.NoError(t, err)
	return u.ID
}
