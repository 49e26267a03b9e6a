package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

// Authenticator is the part of the gateway the materializer calls.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*gateway.LoginResult, error)
}

// Outcome of AfterVerification.
type Outcome int

const (
	// OutcomeNoSession: login failed and nothing was stored before.
	OutcomeNoSession Outcome = iota
	// OutcomeLoggedIn: the login credential is now current.
	OutcomeLoggedIn
	// OutcomeKeptRegistration: login failed; the registration credential stays.
	OutcomeKeptRegistration
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged-in"
	case OutcomeKeptRegistration:
		return "kept-registration"
	default:
		return "no-session"
	}
}

// Materializer makes sure a finished registration ends with exactly one
// stored credential. Writes are skipped once ctx is done, so a cancelled
// workflow never touches the store.
type Materializer struct {
	auth  Authenticator
	store Store
	log   logging.Logger
}

func NewMaterializer(auth Authenticator, store Store, log logging.Logger) *Materializer {
	if log == nil {
		log = logging.Nop()
	}
	return &Materializer{auth: auth, store: store, log: log}
}

// Attempt identifies the registration AfterVerification finishes.
type Attempt struct {
	AccountID string
	Email     string
	Password  string
	// Adopted is the credential AdoptRegistration stored for this
	// registration, nil when register returned no token.
	Adopted *Credential
}

// AdoptRegistration stores the token a register call returned directly and
// returns the stored credential. It returns nil when there was no token.
func (m *Materializer) AdoptRegistration(ctx context.Context, res *gateway.RegisterResult, email, fullName string) (*Credential, error) {
	if res == nil || res.AccessToken == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cred := FromRegistration(res, email, fullName)
	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("store registration session: %w", err)
	}
	m.log.Info(ctx, "registration session stored", "user_id", res.AccountID)
	return &cred, nil
}

// AfterVerification logs in with the registration credentials. A failed
// login is swallowed only when the attempt adopted its own credential, which
// then stays current. Otherwise a stored credential of another account is
// cleared so nothing acts on its behalf.
func (m *Materializer) AfterVerification(ctx context.Context, at Attempt) (Outcome, error) {
	res, err := m.auth.Login(ctx, at.Email, at.Password)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OutcomeNoSession, ctxErr
	}

	if err == nil {
		if err := m.store.Save(ctx, FromLogin(res)); err != nil {
			return OutcomeNoSession, fmt.Errorf("store login session: %w", err)
		}
		m.log.Info(ctx, "post-verification login stored", "user_id", res.UserID)
		return OutcomeLoggedIn, nil
	}

	existing, lerr := m.store.Load(ctx)
	if lerr != nil && !errors.Is(lerr, ErrNoSession) {
		m.log.Error(ctx, "read session", "error", lerr)
		existing = nil
	}

	if at.Adopted != nil {
		if existing == nil || existing.AccessToken != at.Adopted.AccessToken {
			if serr := m.store.Save(ctx, *at.Adopted); serr != nil {
				return OutcomeNoSession, fmt.Errorf("restore registration session: %w", serr)
			}
		}
		m.log.Warn(ctx, "post-verification login failed, keeping registration session", "error", err)
		return OutcomeKeptRegistration, nil
	}

	if existing != nil {
		if existing.BelongsTo(at.AccountID, at.Email) {
			m.log.Warn(ctx, "post-verification login failed, keeping stored session", "error", err)
			return OutcomeKeptRegistration, nil
		}
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.log.Error(ctx, "clear foreign session", "error", cerr)
		} else {
			m.log.Info(ctx, "cleared session of another account", "user_id", existing.UserID)
		}
	}
	return OutcomeNoSession, fmt.Errorf("post-verification login: %w", err)
}
