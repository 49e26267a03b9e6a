package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/dmitrijs2005/masaclient/internal/common"
)

const (
	answerResend = "resend"
	answerCancel = "cancel"
)

// Register runs the signup wizard: account details, code verification,
// then an optional avatar.
func (a *App) Register(ctx context.Context) error {
	return a.register(ctx, registration.Draft{})
}

// register runs the wizard starting from prefill. Leaving the wizard at any
// point abandons the attempt, so late responses are ignored.
func (a *App) register(ctx context.Context, prefill registration.Draft) error {
	ctl := a.newRegistration()
	defer ctl.Abandon()

	if err := ctl.LoadCountries(ctx); err != nil {
		a.report(ctl.Snapshot().FieldErrors, ctl.Snapshot().Banner)
	}
	if prefill.SocialCode != "" {
		if err := ctl.SetSocialCode(prefill.SocialCode); err != nil {
			return err
		}
	}

	if done, err := a.collectInfo(ctx, ctl, prefill); err != nil || !done {
		return err
	}
	if done, err := a.verifyCodes(ctx, ctl); err != nil || !done {
		return err
	}
	if err := a.collectAvatar(ctx, ctl); err != nil {
		return err
	}

	s := ctl.Snapshot()
	a.report(nil, s.Banner)
	fmt.Fprintln(a.out, "Registration complete.")
	switch s.Session {
	case session.OutcomeLoggedIn, session.OutcomeKeptRegistration:
		fmt.Fprintf(a.out, "Logged in as %s\n", s.Draft.Email)
	default:
		fmt.Fprintln(a.out, "Please log in with your new account.")
	}
	return nil
}

// ask prompts for a line; an empty answer keeps def.
func (a *App) ask(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	v, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// report prints field errors in a stable order, then the banner.
func (a *App) report(fieldErrors map[string]string, b registration.Banner) {
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(a.out, "  %s: %s\n", f, fieldErrors[f])
	}
	if b.Kind != registration.BannerNone && b.Text != "" {
		fmt.Fprintln(a.out, b.Text)
	}
}

func countryList(cs []gateway.Country) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, fmt.Sprintf("%s %s", c.Code, c.Country))
	}
	return strings.Join(parts, ", ")
}

// collectInfo prompts for the account details until registration goes
// through or the user gives up.
func (a *App) collectInfo(ctx context.Context, ctl *registration.Controller, prefill registration.Draft) (bool, error) {
	d := prefill
	if d.CountryCode == "" {
		d.CountryCode = ctl.Snapshot().Draft.CountryCode
	}

	for {
		var err error
		if d.FullName, err = a.ask("Full name", d.FullName); err != nil {
			return false, err
		}
		if d.Email, err = a.ask("Email", d.Email); err != nil {
			return false, err
		}
		if cs := ctl.Snapshot().Countries; len(cs) > 0 {
			fmt.Fprintln(a.out, "Supported country codes:", countryList(cs))
		}
		if d.CountryCode, err = a.ask("Country code", d.CountryCode); err != nil {
			return false, err
		}
		if d.NationalNumber, err = a.ask("Mobile number (digits only)", d.NationalNumber); err != nil {
			return false, err
		}
		pw, err := getPassword("Choose a password", a.out)
		if err != nil {
			return false, err
		}
		d.Password = string(pw)
		common.WipeByteArray(pw)

		for _, set := range []error{
			ctl.SetFullName(d.FullName),
			ctl.SetEmail(d.Email),
			ctl.SetCountryCode(d.CountryCode),
			ctl.SetNationalNumber(d.NationalNumber),
			ctl.SetPassword(d.Password),
		} {
			if set != nil {
				return false, set
			}
		}
		d.Password = ""

		err = ctl.SubmitInfo(ctx)
		s := ctl.Snapshot()
		a.report(s.FieldErrors, s.Banner)
		if s.State != registration.CollectingInfo {
			return true, nil
		}
		if errors.Is(err, registration.ErrBusy) || errors.Is(err, registration.ErrAbandoned) {
			return false, err
		}

		again, err := getSimpleText(a.reader, "Try again? [Y/n]", a.out)
		if err != nil {
			return false, err
		}
		if !yes(again, true) {
			fmt.Fprintln(a.out, "Registration cancelled.")
			return false, nil
		}
	}
}

// verifyCodes asks for each verification code in turn. "resend" requests a
// fresh code once the countdown is over.
func (a *App) verifyCodes(ctx context.Context, ctl *registration.Controller) (bool, error) {
	for {
		s := ctl.Snapshot()
		if s.State != registration.AwaitingVerification {
			return true, nil
		}

		if s.TestCode != "" {
			fmt.Fprintf(a.out, "(test mode code: %s)\n", s.TestCode)
		}
		dest := s.Destination
		if dest == "" {
			dest = "you"
		}
		prompt := fmt.Sprintf("Enter the %s code sent to %s ('%s' for a new one, '%s' to stop)", s.Challenge, dest, answerResend, answerCancel)
		answer, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return false, err
		}

		switch answer {
		case answerCancel:
			fmt.Fprintln(a.out, "Registration cancelled. Your account exists; verify it later by logging in.")
			return false, nil
		case answerResend:
			err = ctl.ResendCode(ctx)
			if errors.Is(err, registration.ErrResendNotEligible) {
				fmt.Fprintf(a.out, "You can request a new code in %d seconds.\n", ctl.Snapshot().Remaining)
				continue
			}
		default:
			err = ctl.SubmitCode(ctx, answer)
		}

		if errors.Is(err, registration.ErrBusy) || errors.Is(err, registration.ErrAbandoned) {
			return false, err
		}
		s = ctl.Snapshot()
		a.report(s.FieldErrors, s.Banner)
	}
}

// collectAvatar offers an avatar upload. A file that cannot be read is
// reported and the step is skipped.
func (a *App) collectAvatar(ctx context.Context, ctl *registration.Controller) error {
	if ctl.Snapshot().State != registration.CollectingAvatar {
		return nil
	}
	path, err := getSimpleText(a.reader, "Avatar image path (leave empty to skip)", a.out)
	if err != nil {
		return err
	}

	var avatar *gateway.AvatarFile
	if path != "" {
		if avatar, err = LoadAvatar(path); err != nil {
			fmt.Fprintf(a.out, "Skipping avatar: %s\n", err)
			avatar = nil
		}
	}
	return ctl.UploadOrSkipAvatar(ctx, avatar)
}
