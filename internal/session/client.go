package session

import (
	"context" // Request lifetime
	"fmt"     // Error wrapping
	"sync"    // State lock
	"time"    // Clock and delays

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Timings of the deferred effects.
const (
	RegisterRedirectDelay = 1500 * time.Millisecond
	ReloadDelay           = 1500 * time.Millisecond
	BannerTimeout         = 5 * time.Second
	ConfettiDuration      = 4 * time.Second
)

// Fixed messages for transport failures; the detail only goes to the log.
const (
	MsgRegisterFailed = "Registration failed. Please try again."
	MsgLoginFailed    = "Login failed. Please try again."
	MsgBalanceFailed  = "Failed to fetch balance. Please try again."
	MsgTokenMissing   = "Login successful but token not received. Please try again."
)

// View is the panel currently shown. Exactly one is visible at a time.
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewDashboard
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewRegister:
		return "register"
	case ViewDashboard:
		return "dashboard"
	}
	return "unknown"
}

// Control is a submit button that stays disabled while its request runs.
type Control int

const (
	ControlRegister Control = iota
	ControlLogin
	ControlBalance
	numControls
)

// BannerKind tells success banners from error banners.
type BannerKind int

const (
	BannerSuccess BannerKind = iota
	BannerError
)

// Banner is a transient message.
type Banner struct {
	Text    string
	Kind    BannerKind
	ShownAt time.Time
}

// Visible reports whether the banner has text and has not timed out at now.
func (b Banner) Visible(now time.Time) bool {
	return b.Text != "" && now.Sub(b.ShownAt) < BannerTimeout
}

// LoginForm holds the login fields.
type LoginForm struct {
	Username string
	Password string
}

// RegisterForm holds the registration fields. The role is not a field: it
// is always RoleCustomer.
type RegisterForm struct {
	UID      string
	Username string
	Email    string
	Password string
	Phone    string
}

// State is a copy of everything the UI renders.
type State struct {
	View          View
	Welcome       string
	Balance       string
	Banner        Banner
	Login         LoginForm
	Register      RegisterForm
	ConfettiUntil time.Time
	busy          [numControls]bool
}

// Busy reports whether the control's request is in flight.
func (s State) Busy(c Control) bool {
	return s.busy[c]
}

// LoggedIn reports whether the dashboard is shown.
func (s State) LoggedIn() bool {
	return s.View == ViewDashboard
}

// Action is an effect the UI must run after a delay.
type Action int

const (
	ActionNone Action = iota
	// ActionShowLogin switches to the login view and clears the register form.
	ActionShowLogin
	// ActionReload restarts the session as if the program had been relaunched.
	ActionReload
)

// Deferred schedules Action after the given delay.
type Deferred struct {
	After  time.Duration
	Action Action
}

// Outcome describes what an operation asks the UI to do next.
type Outcome struct {
	Deferred  Deferred
	Celebrate bool
	// Ignored is set when the control was still busy with a previous request.
	Ignored bool
}

// Option customises a Client.
type Option func(*Client)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// Client drives the session lifecycle: it owns the persisted token and the
// view state, and maps API outcomes onto view transitions. Network calls
// are made without holding the lock; state changes happen under it.
type Client struct {
	api   *API
	store TokenStore
	log   logrus.FieldLogger
	now   func() time.Time

	mu    sync.Mutex
	state State
}

// New returns a client in the logged-out login view.
func New(api *API, store TokenStore, opts ...Option) *Client {
	c := &Client{
		api:   api,
		store: store,
		log:   logrus.StandardLogger(),
		now:   time.Now,
		state: State{View: ViewLogin, Balance: BalancePlaceholder},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Client) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the stored token, or "" if none is stored or storage fails.
func (c *Client) Token() string {
	token, err := c.store.Get()
	if err != nil {
		c.log.WithError(err).Warn("read session token")
		return ""
	}
	return token
}

func (c *Client) removeToken() {
	if err := c.store.Remove(); err != nil {
		c.log.WithError(err).Warn("remove session token")
	}
}

// UpdateLoginForm edits the login fields.
func (c *Client) UpdateLoginForm(edit func(*LoginForm)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	edit(&c.state.Login)
}

// UpdateRegisterForm edits the registration fields.
func (c *Client) UpdateRegisterForm(edit func(*RegisterForm)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	edit(&c.state.Register)
}

// ShowRegister switches from the login view to the register view.
func (c *Client) ShowRegister() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View == ViewLogin {
		c.state.View = ViewRegister
	}
}

// ShowLogin switches from the register view to the login view.
func (c *Client) ShowLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View == ViewRegister {
		c.state.View = ViewLogin
	}
}

// begin marks ctl busy; it returns false if it already was.
func (c *Client) begin(ctl Control) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.busy[ctl] {
		return false
	}
	c.state.busy[ctl] = true
	return true
}

func (c *Client) end(ctl Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.busy[ctl] = false
}

// showBanner must be called with mu held.
func (c *Client) showBanner(text string, kind BannerKind) {
	c.state.Banner = Banner{Text: text, Kind: kind, ShownAt: c.now()}
}

func (c *Client) banner(text string, kind BannerKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showBanner(text, kind)
}

// showDashboard must be called with mu held.
func (c *Client) showDashboard(user UserData) {
	c.state.View = ViewDashboard
	c.state.Welcome = "Welcome, " + user.Username + "!"
	c.state.Balance = BalancePlaceholder
}

// Register submits the registration form. On success the UI should run the
// returned deferred ActionShowLogin.
func (c *Client) Register(ctx context.Context, form RegisterForm) Outcome {
	if !c.begin(ControlRegister) {
		return Outcome{Ignored: true}
	}
	defer c.end(ControlRegister)

	message, err := c.api.Register(ctx, RegisterRequest{
		UID:      form.UID,
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Phone:    form.Phone,
		Role:     RoleCustomer,
	})
	if err != nil {
		c.failure(err, MsgRegisterFailed, "register")
		return Outcome{}
	}
	c.banner(message, BannerSuccess)
	return Outcome{Deferred: Deferred{After: RegisterRedirectDelay, Action: ActionShowLogin}}
}

// Login authenticates and, when a token can be obtained from the response
// body or from the jwt_token cookie, stores it and opens the dashboard.
func (c *Client) Login(ctx context.Context, username, password string) Outcome {
	if !c.begin(ControlLogin) {
		return Outcome{Ignored: true}
	}
	defer c.end(ControlLogin)

	resp, err := c.api.Login(ctx, LoginRequest{Username: username, Password: password})
	if err != nil {
		c.failure(err, MsgLoginFailed, "login")
		return Outcome{}
	}
	token := resp.Token
	if token == "" {
		if token, err = TokenFromCookie(c.api.CookieString()); err != nil {
			c.failure(err, MsgLoginFailed, "login")
			return Outcome{}
		}
	}
	if token == "" {
		c.banner(MsgTokenMissing, BannerError)
		return Outcome{}
	}
	if err := c.store.Set(token); err != nil {
		c.failure(fmt.Errorf("persist session token: %w", err), MsgLoginFailed, "login")
		return Outcome{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.showDashboard(resp.User)
	c.state.Login = LoginForm{}
	return Outcome{}
}

// VerifyOnLoad restores the dashboard when the stored token is still valid
// and silently discards it otherwise.
func (c *Client) VerifyOnLoad(ctx context.Context) {
	token := c.Token()
	if token == "" {
		return
	}
	resp, err := c.api.Verify(ctx, token)
	if err != nil || !resp.Valid {
		if err != nil {
			c.log.WithError(err).Debug("not authenticated")
		}
		c.removeToken()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showDashboard(resp.User)
}

// CheckBalance fetches and renders the balance. A 401 purges the token and
// asks the UI to reload after ReloadDelay.
func (c *Client) CheckBalance(ctx context.Context) Outcome {
	if !c.begin(ControlBalance) {
		return Outcome{Ignored: true}
	}
	defer c.end(ControlBalance)

	resp, err := c.api.Balance(ctx, c.Token())
	if err != nil {
		c.failure(err, MsgBalanceFailed, "balance")
		if apiErr, ok := IsAPIError(err); ok && apiErr.Unauthorized() {
			c.removeToken()
			return Outcome{Deferred: Deferred{After: ReloadDelay, Action: ActionReload}}
		}
		return Outcome{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Balance = FormatBalance(resp.Balance)
	c.state.ConfettiUntil = c.now().Add(ConfettiDuration)
	return Outcome{Celebrate: true}
}

// Logout notifies the server when a token exists, ignoring any failure,
// then always drops the token and returns to the login view.
func (c *Client) Logout(ctx context.Context) {
	if token := c.Token(); token != "" {
		if err := c.api.Logout(ctx, token); err != nil {
			c.log.WithError(err).Debug("logout error")
		}
	}
	c.removeToken()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.View = ViewLogin
	c.state.Login = LoginForm{}
}

// Reload discards all in-memory view state and starts over from VerifyOnLoad.
func (c *Client) Reload(ctx context.Context) {
	c.mu.Lock()
	busy := c.state.busy
	c.state = State{View: ViewLogin, Balance: BalancePlaceholder, busy: busy}
	c.mu.Unlock()
	c.VerifyOnLoad(ctx)
}

// Run performs a deferred action.
func (c *Client) Run(ctx context.Context, action Action) {
	switch action {
	case ActionShowLogin:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state.View == ViewRegister {
			c.state.View = ViewLogin
		}
		c.state.Register = RegisterForm{}
	case ActionReload:
		c.Reload(ctx)
	}
}

// failure surfaces err: the server message for business errors, the fixed
// message for transport errors.
func (c *Client) failure(err error, transportMsg, op string) {
	if apiErr, ok := IsAPIError(err); ok {
		c.banner(apiErr.Message, BannerError)
		return
	}
	c.log.WithError(err).WithField("op", op).Warn("request failed")
	c.banner(transportMsg, BannerError)
}
