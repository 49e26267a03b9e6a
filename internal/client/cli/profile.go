package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
)

// Profile edits the signed-in account: the display name, the avatar, or both.
func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "You are not logged in.")
		return nil
	}

	name, err := getSimpleText(a.reader, "New full name (leave empty to keep)", a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Avatar image path (leave empty to keep)", a.out)
	if err != nil {
		return err
	}
	if name == "" && path == "" {
		fmt.Fprintln(a.out, "Nothing to change.")
		return nil
	}

	if name != "" {
		u, err := a.authService.UpdateProfile(ctx, gateway.ProfileUpdate{FullName: &name})
		if err != nil {
			a.log.Warn(ctx, "profile update failed", "error", err)
			fmt.Fprintln(a.out, explain(err))
			return nil
		}
		fmt.Fprintf(a.out, "Name changed to %s\n", u.FullName)
	}

	if path != "" {
		avatar, err := LoadAvatar(path)
		if err != nil {
			fmt.Fprintf(a.out, "Avatar not changed: %s\n", err)
			return nil
		}
		if _, err := a.authService.ChangeAvatar(ctx, *avatar); err != nil {
			a.log.Warn(ctx, "avatar change failed", "error", err)
			fmt.Fprintln(a.out, "Avatar not changed:", explain(err))
			return nil
		}
		fmt.Fprintln(a.out, "Avatar updated.")
	}
	return nil
}
