package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/passwordreset"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/common"
)

// Reset sets a new password using a code sent to the account's mobile or
// email.
func (a *App) Reset(ctx context.Context) error {
	method, err := a.ask("Send the code by 'mobile' or 'email'", string(gateway.KindMobile))
	if err != nil {
		return err
	}
	kind := gateway.VerificationKind(method)
	if kind != gateway.KindMobile && kind != gateway.KindEmail {
		fmt.Fprintf(a.out, "Unknown reset method: %s\n", method)
		return nil
	}

	ctl := a.newReset(kind)
	defer ctl.Abandon()

	email, err := getSimpleText(a.reader, "Enter account email", a.out)
	if err != nil {
		return err
	}
	_ = ctl.Start(ctx, email)
	s := ctl.Snapshot()
	a.report(s.FieldErrors, s.Banner)
	if s.Stage != passwordreset.AwaitingCode {
		return nil
	}

	for {
		s := ctl.Snapshot()
		if s.Stage == passwordreset.Done {
			return nil
		}
		if s.TestCode != "" {
			fmt.Fprintf(a.out, "(test mode code: %s)\n", s.TestCode)
		}

		prompt := fmt.Sprintf("Enter the reset code ('%s' for a new one, '%s' to stop)", answerResend, answerCancel)
		answer, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return err
		}

		switch answer {
		case answerCancel:
			fmt.Fprintln(a.out, "Password reset cancelled.")
			return nil
		case answerResend:
			err = ctl.Resend(ctx)
			if errors.Is(err, registration.ErrResendNotEligible) {
				fmt.Fprintf(a.out, "You can request a new code in %d seconds.\n", ctl.Snapshot().Remaining)
				continue
			}
		default:
			err = a.completeReset(ctx, ctl, answer)
		}

		if errors.Is(err, registration.ErrBusy) || errors.Is(err, registration.ErrAbandoned) {
			return err
		}
		s = ctl.Snapshot()
		a.report(s.FieldErrors, s.Banner)
	}
}

func (a *App) completeReset(ctx context.Context, ctl *passwordreset.Controller, code string) error {
	pw, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := getPassword("Repeat new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	return ctl.Complete(ctx, code, string(pw), string(confirm))
}
