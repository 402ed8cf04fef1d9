package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/auth-service/internal/middleware"
	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/repository"
	"github.com/learnhub/auth-service/internal/session"
	"github.com/learnhub/auth-service/internal/utils"
)

type fakeResolver struct {
	users map[uint64]model.User
}

func (f *fakeResolver) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func newGuardFixture(t *testing.T) (*utils.TokenCodec, *session.Store, *fakeResolver, echo.HandlerFunc) {
	t.Helper()
	codec := utils.NewTokenCodec(
		"activation-secret", "access-secret", "refresh-secret",
		5*time.Minute, 5*time.Minute, 72*time.Hour,
	)
	sessions := session.NewStore(session.NewMemoryCache(), time.Hour)
	resolver := &fakeResolver{users: map[uint64]model.User{}}

	guarded := middleware.Authenticate(codec, sessions, resolver)(func(c echo.Context) error {
		u, ok := middleware.IdentityFrom(c)
		require.True(t, ok)
		return c.String(http.StatusOK, u.Email)
	})
	return codec, sessions, resolver, guarded
}

func invoke(h echo.HandlerFunc, bearer string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func TestAuthenticateUniformRejection(t *testing.T) {
	codec, _, _, guarded := newGuardFixture(t)

	refresh, err := codec.SignRefresh(7)
	require.NoError(t, err)

	expiredCodec := utils.NewTokenCodec(
		"activation-secret", "access-secret", "refresh-secret",
		-time.Minute, -time.Minute, -time.Minute,
	)
	expired, err := expiredCodec.SignAccess(7)
	require.NoError(t, err)

	// Missing token, wrong token class and expired token must be
	// indistinguishable in the response.
	cases := map[string]string{
		"missing":     "",
		"wrong class": refresh.Token,
		"expired":     expired.Token,
	}
	var bodies []string
	for name, token := range cases {
		rec := invoke(guarded, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies {
		assert.JSONEq(t, bodies[0], b)
	}
}

func TestAuthenticateFromSession(t *testing.T) {
	codec, sessions, _, guarded := newGuardFixture(t)

	require.NoError(t, sessions.Save(context.Background(), model.User{ID: 7, Email: "a@x.com"}))
	access, err := codec.SignAccess(7)
	require.NoError(t, err)

	rec := invoke(guarded, access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", rec.Body.String())
}

func TestAuthenticateFallsBackToDurableStore(t *testing.T) {
	codec, sessions, resolver, guarded := newGuardFixture(t)

	resolver.users[7] = model.User{ID: 7, Email: "a@x.com"}
	access, err := codec.SignAccess(7)
	require.NoError(t, err)

	rec := invoke(guarded, access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", rec.Body.String())

	// The fallback read must not resurrect the live session: refresh
	// stays revoked after a forced logout.
	_, err = sessions.Get(context.Background(), 7)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestAuthenticateUnknownIdentity(t *testing.T) {
	codec, _, _, guarded := newGuardFixture(t)

	access, err := codec.SignAccess(404)
	require.NoError(t, err)

	rec := invoke(guarded, access.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	protected := middleware.RequireRole(model.RoleAdmin)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	run := func(u model.User, attach bool) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if attach {
			middleware.SetIdentity(c, u)
		}
		_ = protected(c)
		return rec
	}

	rec := run(model.User{ID: 1, Role: model.RoleAdmin}, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = run(model.User{ID: 2, Role: model.RoleUser}, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = run(model.User{}, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
