package session

import (
	"bytes"              // Request bodies
	"context"            // Request lifetime
	"encoding/json"      // JSON encoding/decoding
	"errors"             // Error inspection
	"fmt"                // Error wrapping
	"io"                 // Body draining
	"net/http"           // HTTP client
	"net/http/cookiejar" // Server cookies
	"net/url"            // Base URL handling
	"strings"            // String manipulation
	"time"               // Request timeout
)

// RoleCustomer is the only role the client registers users with.
const RoleCustomer = "Customer"

const statusSuccess = "success"

// APIError is a business failure reported by the server: a decodable body
// whose status is not "success".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the server rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserData identifies the owner of a session.
type UserData struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	UID      string `json:"uid,omitempty"`
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// LoginResponse is the successful answer to POST /login. Token may be
// empty when the server only set it as a cookie.
type LoginResponse struct {
	Message string
	Token   string
	User    UserData
}

// VerifyResponse is the answer to GET /verify.
type VerifyResponse struct {
	Status string   `json:"status"`
	Valid  bool     `json:"valid"`
	User   UserData `json:"data"`
}

// BalanceResponse is the successful answer to POST /getBalance.
type BalanceResponse struct {
	Message  string
	Username string
	Balance  float64
}

// API talks to the Kodbank HTTP endpoints. Errors of type *APIError are
// business failures; every other error is a transport failure.
type API struct {
	base   *url.URL
	client *http.Client
}

// NewAPI returns a client for the API rooted at baseURL. Cookies set by the
// server are kept in a jar, which is where the login cookie fallback reads from.
func NewAPI(baseURL string, timeout time.Duration) (*API, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base %q must be an absolute URL", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{base: base, client: &http.Client{Jar: jar, Timeout: timeout}}, nil
}

// Register creates an account and returns the server's message.
func (a *API) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var out envelope
	code, err := a.do(ctx, http.MethodPost, "/register", "", req, &out)
	if err != nil {
		return "", err
	}
	if out.Status != statusSuccess {
		return "", &APIError{StatusCode: code, Message: out.Message}
	}
	return out.Message, nil
}

// Login exchanges credentials for a session token.
func (a *API) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var out struct {
		envelope
		Token string   `json:"token"`
		Data  UserData `json:"data"`
	}
	code, err := a.do(ctx, http.MethodPost, "/login", "", req, &out)
	if err != nil {
		return LoginResponse{}, err
	}
	if out.Status != statusSuccess {
		return LoginResponse{}, &APIError{StatusCode: code, Message: out.Message}
	}
	return LoginResponse{Message: out.Message, Token: out.Token, User: out.Data}, nil
}

// Verify asks whether token is still accepted. A 401 is not an error here:
// it is reported through VerifyResponse.Valid.
func (a *API) Verify(ctx context.Context, token string) (VerifyResponse, error) {
	var out VerifyResponse
	if _, err := a.do(ctx, http.MethodGet, "/verify", token, nil, &out); err != nil {
		return VerifyResponse{}, err
	}
	return out, nil
}

// Balance fetches the balance of the token's owner.
func (a *API) Balance(ctx context.Context, token string) (BalanceResponse, error) {
	var out struct {
		envelope
		Data struct {
			Username string  `json:"username"`
			Balance  float64 `json:"balance"`
		} `json:"data"`
	}
	code, err := a.do(ctx, http.MethodPost, "/getBalance", token, nil, &out)
	if err != nil {
		return BalanceResponse{}, err
	}
	if out.Status != statusSuccess {
		return BalanceResponse{}, &APIError{StatusCode: code, Message: out.Message}
	}
	return BalanceResponse{Message: out.Message, Username: out.Data.Username, Balance: out.Data.Balance}, nil
}

// Logout tells the server to drop the session. The response body is ignored.
func (a *API) Logout(ctx context.Context, token string) error {
	_, err := a.do(ctx, http.MethodPost, "/logout", token, nil, nil)
	return err
}

// CookieString renders the cookies held for the API origin in the
// "name=value; name2=value2" form of a browser cookie string. Unlike a
// browser it includes HttpOnly cookies, so the login cookie is readable.
func (a *API) CookieString() string {
	cookies := a.client.Jar.Cookies(a.base)
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// do sends one request and decodes the JSON body into out when out is non-nil.
// It returns the HTTP status code.
func (a *API) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base.String()+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response (status %d): %w", path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// IsAPIError unwraps err into an *APIError when it is one.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
