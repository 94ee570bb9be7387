package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func notJSON(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusBadGateway)
	_, _ = io.WriteString(w, "<html>bad gateway</html>")
}

type harness struct {
	client *Client
	store  *MemoryStore
	clock  *fakeClock
	server *httptest.Server
}

func newHarness(t *testing.T, routes map[string]http.HandlerFunc) *harness {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	api, err := NewAPI(srv.URL, 5*time.Second)
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := &MemoryStore{}
	return &harness{
		client: New(api, store, WithClock(clock.now), WithLogger(logger)),
		store:  store,
		clock:  clock,
		server: srv,
	}
}

func (h *harness) token(t *testing.T) string {
	t.Helper()
	token, err := h.store.Get()
	require.NoError(t, err)
	return token
}

func loginOK(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Login successful!",
			"token":   token,
			"data":    map[string]string{"username": req.Username, "role": "Customer", "uid": "1"},
		})
	}
}

func TestNewAPIRequiresAbsoluteURL(t *testing.T) {
	_, err := NewAPI("", time.Second)
	assert.Error(t, err)
	_, err = NewAPI("/api", time.Second)
	assert.Error(t, err)
	_, err = NewAPI("http://localhost:5000/", time.Second)
	assert.NoError(t, err)
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, nil)
	s := h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, BalancePlaceholder, s.Balance)
	assert.False(t, s.LoggedIn())
}

func TestRegisterSuccess(t *testing.T) {
	var got RegisterRequest
	h := newHarness(t, map[string]http.HandlerFunc{
		"/register": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_ = json.NewDecoder(r.Body).Decode(&got)
			writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "message": "Registration successful!"})
		},
	})
	form := RegisterForm{UID: "7", Username: "asha", Email: "asha@kod.in", Password: "pw", Phone: "123"}
	h.client.ShowRegister()
	h.client.UpdateRegisterForm(func(f *RegisterForm) { *f = form })

	out := h.client.Register(context.Background(), h.client.Snapshot().Register)

	assert.Equal(t, RoleCustomer, got.Role)
	assert.Equal(t, "asha", got.Username)
	assert.Equal(t, Deferred{After: RegisterRedirectDelay, Action: ActionShowLogin}, out.Deferred)
	s := h.client.Snapshot()
	assert.Equal(t, "Registration successful!", s.Banner.Text)
	assert.Equal(t, BannerSuccess, s.Banner.Kind)
	assert.Equal(t, ViewRegister, s.View, "switch happens only after the delay")
	assert.False(t, s.Busy(ControlRegister))

	h.client.Run(context.Background(), out.Deferred.Action)
	s = h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, RegisterForm{}, s.Register)
}

func TestRegisterFailures(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/register": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Username or email already exists"})
		},
	})
	out := h.client.Register(context.Background(), RegisterForm{Username: "asha"})
	assert.Equal(t, ActionNone, out.Deferred.Action)
	s := h.client.Snapshot()
	assert.Equal(t, "Username or email already exists", s.Banner.Text)
	assert.Equal(t, BannerError, s.Banner.Kind)
	assert.False(t, s.Busy(ControlRegister))

	broken := newHarness(t, map[string]http.HandlerFunc{"/register": notJSON})
	broken.client.Register(context.Background(), RegisterForm{})
	s = broken.client.Snapshot()
	assert.Equal(t, MsgRegisterFailed, s.Banner.Text)
	assert.False(t, s.Busy(ControlRegister))
}

func TestLoginStoresBodyToken(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/login": loginOK("body-token")})
	h.client.UpdateLoginForm(func(f *LoginForm) { f.Username, f.Password = "asha", "pw" })

	h.client.Login(context.Background(), "asha", "pw")

	assert.Equal(t, "body-token", h.token(t))
	s := h.client.Snapshot()
	assert.Equal(t, ViewDashboard, s.View)
	assert.Equal(t, "Welcome, asha!", s.Welcome)
	assert.Equal(t, BalancePlaceholder, s.Balance)
	assert.Equal(t, LoginForm{}, s.Login)
	assert.False(t, s.Busy(ControlLogin))
}

func TestLoginFallsBackToCookie(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": func(w http.ResponseWriter, _ *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "other", Value: "1", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: StorageKey, Value: "cookie-token", Path: "/", HttpOnly: true})
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]string{"username": "asha"}})
		},
	})
	h.client.Login(context.Background(), "asha", "pw")

	assert.Equal(t, "cookie-token", h.token(t))
	assert.Equal(t, ViewDashboard, h.client.Snapshot().View)
}

func TestLoginMalformedCookie(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": func(w http.ResponseWriter, _ *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "x", Value: "%zz", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: StorageKey, Value: "cookie-token", Path: "/"})
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]string{"username": "asha"}})
		},
	})
	require.NoError(t, h.store.Set("previous"))

	h.client.Login(context.Background(), "asha", "pw")

	assert.Equal(t, "previous", h.token(t))
	s := h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, MsgLoginFailed, s.Banner.Text)
	assert.False(t, s.Busy(ControlLogin))
}

type brokenStore struct{ MemoryStore }

func (*brokenStore) Set(string) error { return errors.New("disk full") }

func TestLoginTokenNotPersisted(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/login": loginOK("body-token")})
	api, err := NewAPI(h.server.URL, 5*time.Second)
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := New(api, &brokenStore{}, WithClock(h.clock.now), WithLogger(logger))

	client.Login(context.Background(), "asha", "pw")

	s := client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, MsgLoginFailed, s.Banner.Text)
	assert.Equal(t, BannerError, s.Banner.Kind)
	assert.Empty(t, s.Welcome)
	assert.False(t, s.Busy(ControlLogin))
}

func TestLoginWithoutAnyToken(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]string{"username": "asha"}})
		},
	})
	require.NoError(t, h.store.Set("previous"))

	h.client.Login(context.Background(), "asha", "pw")

	assert.Equal(t, "previous", h.token(t), "stored token is unchanged")
	s := h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, MsgTokenMissing, s.Banner.Text)
	assert.Equal(t, BannerError, s.Banner.Kind)
	assert.False(t, s.Busy(ControlLogin))
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Invalid username or password"})
		},
	})
	h.client.Login(context.Background(), "asha", "bad")
	s := h.client.Snapshot()
	assert.Equal(t, "Invalid username or password", s.Banner.Text)
	assert.Equal(t, ViewLogin, s.View)
	assert.Empty(t, h.token(t))

	h.server.Close()
	h.client.Login(context.Background(), "asha", "pw")
	s = h.client.Snapshot()
	assert.Equal(t, MsgLoginFailed, s.Banner.Text)
	assert.False(t, s.Busy(ControlLogin))
}

func TestVerifyOnLoad(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, map[string]http.HandlerFunc{
		"/verify": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.Header.Get("Authorization") != "Bearer good" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "valid": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "valid": true, "data": map[string]string{"username": "asha"}})
		},
	})
	ctx := context.Background()

	h.client.VerifyOnLoad(ctx)
	assert.Zero(t, calls.Load(), "no token, no request")
	assert.Equal(t, ViewLogin, h.client.Snapshot().View)

	require.NoError(t, h.store.Set("stale"))
	h.client.VerifyOnLoad(ctx)
	assert.Empty(t, h.token(t))
	assert.Equal(t, ViewLogin, h.client.Snapshot().View)
	assert.False(t, h.client.Snapshot().Banner.Visible(h.clock.now()), "invalid tokens are dropped silently")

	require.NoError(t, h.store.Set("good"))
	h.client.VerifyOnLoad(ctx)
	assert.Equal(t, "good", h.token(t))
	s := h.client.Snapshot()
	assert.Equal(t, ViewDashboard, s.View)
	assert.Equal(t, "Welcome, asha!", s.Welcome)
}

func TestVerifyOnLoadTransportError(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/verify": notJSON})
	require.NoError(t, h.store.Set("tok"))

	h.client.VerifyOnLoad(context.Background())

	assert.Empty(t, h.token(t))
	assert.Equal(t, ViewLogin, h.client.Snapshot().View)
}

func TestCheckBalance(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": loginOK("tok"),
		"/getBalance": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "success",
				"message": "Your balance is: 1234567.00",
				"data":    map[string]any{"username": "asha", "balance": 1234567},
			})
		},
	})
	ctx := context.Background()
	h.client.Login(ctx, "asha", "pw")

	out := h.client.CheckBalance(ctx)

	assert.True(t, out.Celebrate)
	s := h.client.Snapshot()
	assert.Equal(t, "₹ 1,234,567", s.Balance)
	assert.Equal(t, h.clock.now().Add(ConfettiDuration), s.ConfettiUntil)
	assert.False(t, s.Busy(ControlBalance))
}

func TestCheckBalanceUnauthorized(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": loginOK("tok"),
		"/getBalance": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Invalid or expired token"})
		},
	})
	ctx := context.Background()
	h.client.Login(ctx, "asha", "pw")

	out := h.client.CheckBalance(ctx)

	assert.Empty(t, h.token(t))
	assert.Equal(t, Deferred{After: ReloadDelay, Action: ActionReload}, out.Deferred)
	assert.Equal(t, "Invalid or expired token", h.client.Snapshot().Banner.Text)

	h.client.Run(ctx, out.Deferred.Action)
	s := h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Empty(t, s.Welcome)
	assert.Empty(t, s.Banner.Text)
}

func TestCheckBalanceOtherFailures(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/getBalance": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found"})
		},
	})
	require.NoError(t, h.store.Set("tok"))

	out := h.client.CheckBalance(context.Background())
	assert.Equal(t, ActionNone, out.Deferred.Action)
	assert.Equal(t, "tok", h.token(t), "only a 401 purges the token")
	assert.Equal(t, "User not found", h.client.Snapshot().Banner.Text)

	broken := newHarness(t, map[string]http.HandlerFunc{"/getBalance": notJSON})
	out = broken.client.CheckBalance(context.Background())
	assert.False(t, out.Celebrate)
	assert.Equal(t, MsgBalanceFailed, broken.client.Snapshot().Banner.Text)
	assert.False(t, broken.client.Snapshot().Busy(ControlBalance))
}

func TestCheckBalanceIgnoredWhileBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := newHarness(t, map[string]http.HandlerFunc{
		"/getBalance": func(w http.ResponseWriter, _ *http.Request) {
			close(entered)
			<-release
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"balance": 5}})
		},
	})
	ctx := context.Background()
	done := make(chan Outcome)
	go func() { done <- h.client.CheckBalance(ctx) }()
	<-entered

	assert.True(t, h.client.Snapshot().Busy(ControlBalance))
	assert.True(t, h.client.CheckBalance(ctx).Ignored)

	close(release)
	first := <-done
	assert.True(t, first.Celebrate)
	assert.False(t, h.client.Snapshot().Busy(ControlBalance))
}

func TestLogout(t *testing.T) {
	var sawToken string
	h := newHarness(t, map[string]http.HandlerFunc{
		"/login": loginOK("tok"),
		"/logout": func(w http.ResponseWriter, r *http.Request) {
			sawToken = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		},
	})
	ctx := context.Background()
	h.client.Login(ctx, "asha", "pw")
	h.client.UpdateLoginForm(func(f *LoginForm) { f.Username = "typed" })

	h.client.Logout(ctx)

	assert.Equal(t, "Bearer tok", sawToken)
	assert.Empty(t, h.token(t))
	s := h.client.Snapshot()
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, LoginForm{}, s.Login)
}

func TestLogoutWhenServerUnreachable(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/login": loginOK("tok")})
	ctx := context.Background()
	h.client.Login(ctx, "asha", "pw")
	require.Equal(t, ViewDashboard, h.client.Snapshot().View)
	h.server.Close()

	h.client.Logout(ctx)

	assert.Empty(t, h.token(t))
	assert.Equal(t, ViewLogin, h.client.Snapshot().View)
}

func TestBannerExpires(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/login": notJSON})
	h.client.Login(context.Background(), "asha", "pw")

	b := h.client.Snapshot().Banner
	assert.True(t, b.Visible(h.clock.now()))
	h.clock.advance(BannerTimeout - time.Millisecond)
	assert.True(t, b.Visible(h.clock.now()))
	h.clock.advance(time.Millisecond)
	assert.False(t, b.Visible(h.clock.now()))
}

func TestViewSwitching(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{"/login": loginOK("tok")})

	h.client.ShowRegister()
	assert.Equal(t, ViewRegister, h.client.Snapshot().View)
	h.client.ShowLogin()
	assert.Equal(t, ViewLogin, h.client.Snapshot().View)

	h.client.Login(context.Background(), "asha", "pw")
	h.client.ShowRegister()
	assert.Equal(t, ViewDashboard, h.client.Snapshot().View, "dashboard is left only by logout")
}
