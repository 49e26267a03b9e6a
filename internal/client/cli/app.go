package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/masaclient/internal/client/config"
	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/passwordreset"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/client/services"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

// App is the interactive Masa client. It owns the session database, the
// gateway and the account service, and creates one workflow controller per
// registration or password reset.
type App struct {
	config      *config.Config
	log         logging.Logger
	authService services.AuthService
	store       session.Store
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	newRegistration func() *registration.Controller
	newReset        func(method gateway.VerificationKind) *passwordreset.Controller
}

// NewApp opens the session database and wires the HTTP gateway. Requests
// are authorized with the access token of the stored session.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := session.OpenDatabase(ctx, c.SessionDB)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.SessionDB, "error", err)
		return nil, err
	}

	store := session.NewSQLiteStore(db)
	gw := gateway.NewHTTPGateway(c.BaseURL, c.BucketID, c.RequestTimeout, session.Tokens{Store: store}, log)

	a := newApp(c, log, gw, store)
	a.db = db
	return a, nil
}

// newApp builds an App around any gateway implementation.
func newApp(c *config.Config, log logging.Logger, gw gateway.Gateway, store session.Store) *App {
	policy := registration.Policy{
		NationalNumberLength: c.NationalNumberLength,
		PasswordMinLength:    c.PasswordMinLength,
	}
	return &App{
		config:      c,
		log:         log,
		authService: services.NewAuthService(gw, store, log),
		store:       store,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		newRegistration: func() *registration.Controller {
			return registration.New(registration.Options{
				Gateway:  gw,
				Store:    store,
				Policy:   policy,
				Cooldown: c.VerificationCooldown,
				Logger:   log,
			})
		},
		newReset: func(method gateway.VerificationKind) *passwordreset.Controller {
			return passwordreset.New(passwordreset.Options{
				Gateway:           gw,
				Method:            method,
				Cooldown:          c.VerificationCooldown,
				PasswordMinLength: c.PasswordMinLength,
				Logger:            log,
			})
		},
	}
}

// Run starts the REPL on stdin and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	printlnFn("Welcome to Masa CLI (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.status(ctx) }, bufio.NewScanner(a.reader))
}

// Close releases the session database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	c, err := a.store.Load(context.Background())
	return err == nil && c != nil
}

// status renders the prompt label: the signed-in email, or nothing.
func (a *App) status(ctx context.Context) string {
	c, err := a.store.Load(ctx)
	if err != nil || c == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", c.Email)
}
