package http_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/tazhibayda/account-service/internal/domain"
	api "github.com/tazhibayda/account-service/internal/http"
	"github.com/tazhibayda/account-service/internal/service"
)

// fakeStore backs the router with an in-memory UserStore plus the Ping the
// health endpoint wants.
type fakeStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
	down  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.down {
		return errors.New("store down")
	}
	return nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.users {
		if ex.Email == u.Email {
			return service.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return service.ErrNotFound
	}
	for id, ex := range f.users {
		if id != u.ID && ex.Email == u.Email {
			return service.ErrDuplicateEmail
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	delete(f.users, id)
	cp := *u
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeMailer struct {
	mu         sync.Mutex
	fail       bool
	lastVerify string
	lastReset  string
}

func (f *fakeMailer) SendVerificationOtp(_ context.Context, to, firstName, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp: relay refused")
	}
	f.lastVerify = code
	return nil
}

func (f *fakeMailer) SendResetOtp(_ context.Context, to, firstName, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp: relay refused")
	}
	f.lastReset = code
	return nil
}

func (f *fakeMailer) verifyCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastVerify
}

func (f *fakeMailer) resetCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReset
}

type testEnv struct {
	Store  *fakeStore
	Mailer *fakeMailer
	Router *gin.Engine
}

const testJWTSecret = "test-secret"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	mailer := &fakeMailer{}
	engine := service.NewEngine(store, mailer, nil, service.Options{
		JWTSecret:  testJWTSecret,
		BcryptCost: bcrypt.MinCost,
	})

	gin.SetMode(gin.TestMode)
	h := api.NewHandler(engine, store, testJWTSecret)
	return &testEnv{Store: store, Mailer: mailer, Router: api.NewRouter(h)}
}
