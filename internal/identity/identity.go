// package identity supplies the signed-in user that scoped state is keyed by.
package identity

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
	"github.com/desertthunder/focusync/internal/storage"
)

// SessionKey is the logical key the session is persisted under.
const SessionKey = "session"

// Provider reports the current user and signals sign-in, sign-out and account switches.
type Provider interface {
	CurrentUserID() (string, bool)
	Subscribe(fn func(userID string)) (unsubscribe func())
}

// Session is the persisted sign-in state of this device.
type Session struct {
	UserID     string    `json:"user_id,omitempty"`
	Token      string    `json:"token,omitempty"`
	SignedInAt time.Time `json:"signed_in_at,omitzero"`
}

// SignedIn reports whether the session has a user.
func (s Session) SignedIn() bool { return s.UserID != "" }

// SessionProvider is a [Provider] backed by a persisted [Session].
//
// The session lives in a device-wide scope, so signing in from one process is observed by every other process
// sharing the store.
type SessionProvider struct {
	st       *state.PersistedState[Session]
	fallback string
	logger   *log.Logger
}

// NewSessionProvider loads the persisted session. fallbackToken, if set, is used when the session has no token.
func NewSessionProvider(adapter storage.Adapter, broadcaster storage.Broadcaster, fallbackToken string, logger *log.Logger) *SessionProvider {
	return &SessionProvider{
		st: state.New(adapter, broadcaster, state.Options[Session]{
			Key:    SessionKey,
			Logger: logger,
		}),
		fallback: fallbackToken,
		logger:   shared.WithLogger(logger, "component", "identity"),
	}
}

// Session returns the current session.
func (p *SessionProvider) Session() Session { return p.st.Read() }

func (p *SessionProvider) CurrentUserID() (string, bool) {
	s := p.st.Read()
	return s.UserID, s.SignedIn()
}

// SignIn replaces the session.
func (p *SessionProvider) SignIn(userID, token string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	if userID == shared.AnonymousScope {
		return fmt.Errorf("%w: %q is reserved", shared.ErrInvalidArgument, userID)
	}

	p.st.Write(func(Session) Session {
		return Session{UserID: userID, Token: token, SignedInAt: time.Now()}
	})
	p.logger.Info("signed in", "user", userID)
	return p.st.LastPersistError()
}

// SignOut clears the session.
func (p *SessionProvider) SignOut() error {
	prev := p.st.Read()
	p.st.Write(func(Session) Session { return Session{} })
	if prev.SignedIn() {
		p.logger.Info("signed out", "user", prev.UserID)
	}
	return p.st.LastPersistError()
}

// Subscribe calls fn when the signed-in user changes. Token refreshes for the same user are not reported.
func (p *SessionProvider) Subscribe(fn func(userID string)) func() {
	var mu sync.Mutex
	last := p.st.Read().UserID

	return p.st.Subscribe(func(s Session) {
		mu.Lock()
		changed := s.UserID != last
		last = s.UserID
		mu.Unlock()

		if changed {
			fn(s.UserID)
		}
	})
}

// Token implements [oauth2.TokenSource] with the session token.
func (p *SessionProvider) Token() (*oauth2.Token, error) {
	token := p.st.Read().Token
	if token == "" {
		token = p.fallback
	}
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Close stops watching the persisted session.
func (p *SessionProvider) Close() error { return p.st.Close() }

// Static is a fixed [Provider]. An empty user means nobody is signed in.
type Static string

func (s Static) CurrentUserID() (string, bool) { return string(s), s != "" }
func (s Static) Subscribe(func(string)) func() { return func() {} }

// UserID returns the provider's current user, or the anonymous scope.
func UserID(p Provider) string {
	if p == nil {
		return shared.AnonymousScope
	}
	if id, ok := p.CurrentUserID(); ok {
		return id
	}
	return shared.AnonymousScope
}
