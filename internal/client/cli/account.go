package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/common"
)

const confirmDelete = "DELETE"

// ChangePassword replaces the password of the signed-in account.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "You are not logged in.")
		return nil
	}

	current, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	next, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)
	confirm, err := getPassword("Repeat new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(next, confirm) {
		fmt.Fprintln(a.out, "Passwords do not match.")
		return nil
	}
	if msg := registration.ValidatePassword(string(next), a.config.PasswordMinLength); msg != "" {
		fmt.Fprintln(a.out, msg)
		return nil
	}

	if err := a.authService.ChangePassword(ctx, current, next); err != nil {
		a.log.Warn(ctx, "password change failed", "error", err)
		if errors.Is(err, gateway.ErrUnauthorized) {
			fmt.Fprintln(a.out, "Current password is wrong.")
			return nil
		}
		fmt.Fprintln(a.out, explain(err))
		return nil
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

// DeleteAccount archives the signed-in account after an explicit
// confirmation and logs out.
func (a *App) DeleteAccount(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "You are not logged in.")
		return nil
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Type %s to archive your account", confirmDelete), a.out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) != confirmDelete {
		fmt.Fprintln(a.out, "Account kept.")
		return nil
	}

	if err := a.authService.DeleteAccount(ctx); err != nil {
		a.log.Warn(ctx, "account archive failed", "error", err)
		fmt.Fprintln(a.out, "Account not deleted:", explain(err))
		return nil
	}
	fmt.Fprintln(a.out, "Your account was deleted.")
	return nil
}
