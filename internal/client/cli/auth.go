package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/client/services"
	"github.com/dmitrijs2005/masaclient/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// explain turns a service error into a line for the user.
func explain(err error) string {
	switch {
	case errors.Is(err, services.ErrNotLoggedIn):
		return "You are not logged in."
	case errors.Is(err, services.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, gateway.ErrVerificationNeeded):
		return "Your account is not verified yet."
	case errors.Is(err, gateway.ErrUnauthorized):
		return "Wrong email or password."
	case errors.Is(err, gateway.ErrRateLimited):
		return "Too many requests. Please wait."
	case errors.Is(err, gateway.ErrUnavailable):
		return "The service is unavailable. Please try again later."
	default:
		return err.Error()
	}
}

// lastEmailer is implemented by stores that remember the previous login.
type lastEmailer interface {
	LastEmail(ctx context.Context) (string, error)
}

// Login prompts for an email (or mobile) and password and signs in. The
// password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	var last string
	if le, ok := a.store.(lastEmailer); ok {
		last, _ = le.LastEmail(ctx)
	}
	identifier, err := a.ask("Enter email or mobile", last)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	cred, err := a.authService.Login(ctx, identifier, password)
	if err != nil {
		a.log.Warn(ctx, "login unsuccessful", "error", err)
		fmt.Fprintln(a.out, explain(err))
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", cred.Email)
	return nil
}

// Logout ends the session. The local session is gone even when the server
// could not be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		if errors.Is(err, services.ErrNotLoggedIn) || errors.Is(err, services.ErrSessionExpired) {
			fmt.Fprintln(a.out, explain(err))
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// WhoAmI refreshes the session and prints who is signed in.
func (a *App) WhoAmI(ctx context.Context) error {
	cred, err := a.authService.WhoAmI(ctx)
	if err != nil {
		fmt.Fprintln(a.out, explain(err))
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\n", cred.FullName, cred.Email)
	fmt.Fprintf(a.out, "user id: %s\n", cred.UserID)
	if !cred.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "session expires: %s\n", cred.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// Social finishes a social login started in the browser. Unknown social
// accounts continue with registration, prefilled from the provider.
func (a *App) Social(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Enter the social login code", a.out)
	if err != nil {
		return err
	}
	if code == "" {
		fmt.Fprintln(a.out, "No code given.")
		return nil
	}

	res, err := a.authService.SocialLogin(ctx, code)
	if err != nil {
		a.log.Warn(ctx, "social login unsuccessful", "error", err)
		fmt.Fprintln(a.out, explain(err))
		return nil
	}
	if res.Session != nil {
		fmt.Fprintf(a.out, "Logged in as %s\n", res.Session.Email)
		return nil
	}

	fmt.Fprintln(a.out, "This social account is not registered yet. Let's finish the registration.")
	return a.register(ctx, registration.Draft{
		FullName:   res.AccountInfo.FullName,
		Email:      res.AccountInfo.Email,
		SocialCode: res.SocialCode,
	})
}
