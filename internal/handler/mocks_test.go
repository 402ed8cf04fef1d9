package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/repository"
)

// echoCall pairs a prepared context with its recorder for handlers that
// read route params.
type echoCall struct {
	ctx echo.Context
	rec *httptest.ResponseRecorder
}

func newEchoContextWithParam(t *testing.T, id string) echoCall {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return echoCall{ctx: c, rec: rec}
}

// withIdentity pre-attaches an identity the way the access guard would,
// so protected handlers can be exercised directly.
func withIdentity(h echo.HandlerFunc, u model.User) echo.HandlerFunc {
	return func(c echo.Context) error {
		middleware.SetIdentity(c, u)
		return h(c)
	}
}

// fakeUserStore is an in-memory handler.UserStore. Like the real
// repository, default reads strip the password hash.
type fakeUserStore struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.User
	err  error // when set, every call fails with it
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[uint64]model.User{}}
}

func withoutPassword(u model.User) model.User {
	u.PasswordHash = ""
	return u
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return withoutPassword(u), nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := f.getByEmail(email)
	return withoutPassword(u), err
}

func (f *fakeUserStore) GetByEmailWithPassword(ctx context.Context, email string) (model.User, error) {
	return f.getByEmail(email)
}

func (f *fakeUserStore) GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Create(ctx context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.User{}, f.err
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range f.byID {
		if existing.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	f.seq++
	u.ID = f.seq
	u.Email = email
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = u
	return withoutPassword(u), nil
}

func (f *fakeUserStore) UpdateName(ctx context.Context, id uint64, name string) error {
	return f.update(id, func(u *model.User) { u.Name = name })
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return f.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (f *fakeUserStore) UpdateAvatar(ctx context.Context, id uint64, a model.Avatar) error {
	return f.update(id, func(u *model.User) { u.Avatar = a })
}

func (f *fakeUserStore) UpdateRole(ctx context.Context, id uint64, role string) error {
	return f.update(id, func(u *model.User) { u.Role = role })
}

func (f *fakeUserStore) List(ctx context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	users := []model.User{}
	for _, u := range f.byID {
		users = append(users, withoutPassword(u))
	}
	return users, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUserStore) getByEmail(email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.User{}, f.err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) update(id uint64, fn func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	f.byID[id] = u
	return nil
}

// sentMail records one notifier.Send call.
type sentMail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, template string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Template: template, Data: data})
	return nil
}
