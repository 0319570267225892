// Package auth signs the user in against the account server and keeps the
// session stored on disk.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	// ErrMissingBaseURL is returned by New when no account server is configured.
	ErrMissingBaseURL = errors.New("missing auth base URL")

	// ErrInvalidCredentials is returned when the server rejects an email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrConfirmationPending is returned by SignUp when the account exists
	// but must be confirmed before a session is issued.
	ErrConfirmationPending = errors.New("account created; confirmation pending")

	// ErrInvalidToken is returned when an access token carries no usable identity.
	ErrInvalidToken = errors.New("invalid access token")

	// ErrRateLimited is returned when the server keeps answering 429 after retries.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// EventType names a session change.
type EventType string

// EventType values.
const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventTokenRefreshed EventType = "token_refreshed"
)

// Event is delivered to subscribers on every session change. User is nil
// for EventSignedOut.
type Event struct {
	Type EventType
	User *User
}

// Config holds the account server settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// JWTSecret verifies HS256 access tokens. When empty, claims are read
	// without verification; the server still validates every token it receives.
	JWTSecret string
}

// Client talks to the account server.
type Client struct {
	oauth      *oauth2.Config
	session    *SessionFile
	httpClient *http.Client
	signUpURL  string
	jwtSecret  []byte
	delays     []time.Duration

	mu          sync.Mutex // guards the stored session
	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
}

// New creates a Client. Returns ErrMissingBaseURL if cfg.BaseURL is empty.
func New(cfg Config, session *SessionFile) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		session: session,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		signUpURL:   base + "/signup",
		delays:      []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		subscribers: make(map[int]func(Event)),
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// SignInWithPassword exchanges credentials for a session and stores it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	token, err := c.oauth.PasswordCredentialsToken(c.oauthContext(ctx), strings.TrimSpace(email), password)
	if err != nil {
		if rejected(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	return c.establish(token)
}

// SignUp registers a new account. If the server issues a session right away
// the user is signed in; otherwise ErrConfirmationPending is returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	token, err := c.postSignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrConfirmationPending
	}
	return c.establish(token)
}

func (c *Client) establish(token *oauth2.Token) (*User, error) {
	user, err := c.userFromToken(token)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	err = c.session.Save(token)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("caching session: %w", err)
	}

	c.publish(Event{Type: EventSignedIn, User: user})
	return user, nil
}

// CurrentUser returns the signed-in user, refreshing the token when it has
// expired. Returns (nil, nil) when nobody is signed in. A refresh the server
// rejects ends the session.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	token, err := c.session.Load()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if token == nil {
		c.mu.Unlock()
		return nil, nil
	}

	fresh, err := c.oauth.TokenSource(c.oauthContext(ctx), token).Token()
	if err != nil {
		if rejected(err) || (token.RefreshToken == "" && !token.Valid()) {
			derr := c.session.Delete()
			c.mu.Unlock()
			if derr != nil {
				return nil, derr
			}
			c.publish(Event{Type: EventSignedOut})
			return nil, nil
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("refreshing session: %w", err)
	}

	refreshed := fresh.AccessToken != token.AccessToken
	if refreshed {
		if err := c.session.Save(fresh); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("caching refreshed session: %w", err)
		}
	}
	c.mu.Unlock()

	user, err := c.userFromToken(fresh)
	if err != nil {
		return nil, err
	}
	if refreshed {
		c.publish(Event{Type: EventTokenRefreshed, User: user})
	}
	return user, nil
}

// SignOut forgets the stored session.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	err := c.session.Delete()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.publish(Event{Type: EventSignedOut})
	return nil
}

// Subscribe registers fn for session changes and returns a function that
// removes it. fn is called synchronously from the goroutine that caused the
// change.
func (c *Client) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Client) publish(ev Event) {
	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// rejected reports whether the token endpoint refused the request, as
// opposed to being unreachable.
func rejected(err error) bool {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return false
	}
	return rerr.Response.StatusCode >= 400 && rerr.Response.StatusCode < 500 &&
		rerr.Response.StatusCode != http.StatusTooManyRequests
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Client) userFromToken(token *oauth2.Token) (*User, error) {
	var cl claims
	if c.jwtSecret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, &cl); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	} else {
		_, err := jwt.ParseWithClaims(token.AccessToken, &cl, func(*jwt.Token) (any, error) {
			return c.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(time.Minute))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	if cl.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &User{ID: cl.Subject, Email: cl.Email}, nil
}
