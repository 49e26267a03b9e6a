// Package services contains application services for the Masa client.
// This file defines the account service: sign-in, sign-out, session refresh,
// social login results and profile edits, all on top of the stored session.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired")
)

// Remote lists the gateway calls the account service makes.
type Remote interface {
	Login(ctx context.Context, identifier, password string) (*gateway.LoginResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*gateway.LoginResult, error)
	SocialLoginResult(ctx context.Context, socialCode string) (*gateway.SocialLoginResult, error)
	UploadAvatar(ctx context.Context, bucketToken string, avatar gateway.AvatarFile) (string, error)
	UpdateProfile(ctx context.Context, accountID string, fields gateway.ProfileUpdate) (*gateway.User, error)
	UpdatePassword(ctx context.Context, accountID, oldPassword, newPassword string) (*gateway.User, error)
	ArchiveProfile(ctx context.Context, accountID string) (*gateway.User, error)
}

// AuthService defines account operations for the CLI.
//
// Contract:
//   - Login: authenticate and make the result the current session.
//   - Logout: end the session on the server and always clear it locally.
//   - WhoAmI: refresh the current session; a rejected session is cleared.
//   - SocialLogin: finish a social redirect, either signing in or asking to register.
//   - UpdateProfile / ChangeAvatar: edit the signed-in account.
//   - ChangePassword: replace the password of the signed-in account.
//   - DeleteAccount: archive the signed-in account and clear the session.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, identifier string, password []byte) (*session.Credential, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*session.Credential, error)
	SocialLogin(ctx context.Context, socialCode string) (*gateway.SocialLoginResult, error)
	UpdateProfile(ctx context.Context, fields gateway.ProfileUpdate) (*gateway.User, error)
	ChangeAvatar(ctx context.Context, avatar gateway.AvatarFile) (*gateway.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error
	DeleteAccount(ctx context.Context) error
}

type authService struct {
	remote Remote
	store  session.Store
	log    logging.Logger
	now    func() time.Time
}

// NewAuthService constructs an AuthService bound to the given gateway and
// session store.
func NewAuthService(remote Remote, store session.Store, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{remote: remote, store: store, log: log, now: time.Now}
}

// Login always replaces the stored session, even when one already exists.
func (a *authService) Login(ctx context.Context, identifier string, password []byte) (*session.Credential, error) {
	res, err := a.remote.Login(ctx, identifier, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	cred := session.FromLogin(res)
	if err := a.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	a.log.Info(ctx, "logged in", "user_id", cred.UserID)
	return &cred, nil
}

// Logout tells the gateway the session is over and clears the local copy
// whatever the gateway answered.
func (a *authService) Logout(ctx context.Context) error {
	if _, err := a.current(ctx); err != nil {
		return err
	}

	remoteErr := a.remote.Logout(ctx)
	if remoteErr != nil && !errors.Is(remoteErr, gateway.ErrUnauthorized) {
		a.log.Warn(ctx, "remote logout failed", "error", remoteErr)
	}

	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("session clearing error: %w", err)
	}
	return nil
}

func (a *authService) current(ctx context.Context) (*session.Credential, error) {
	cred, err := a.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}
	if cred.Expired(a.now()) {
		a.dropSession(ctx)
		return nil, ErrSessionExpired
	}
	return cred, nil
}

func (a *authService) dropSession(ctx context.Context) {
	if err := a.store.Clear(ctx); err != nil {
		a.log.Error(ctx, "clear session", "error", err)
	}
}

// WhoAmI asks the gateway for the current user. A rejected token clears
// the stored session.
func (a *authService) WhoAmI(ctx context.Context) (*session.Credential, error) {
	cred, err := a.current(ctx)
	if err != nil {
		return nil, err
	}

	res, err := a.remote.CurrentUser(ctx)
	if errors.Is(err, gateway.ErrUnauthorized) {
		a.dropSession(ctx)
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("current user error: %w", err)
	}

	refreshed := *cred
	if res.UserID != "" {
		refreshed.UserID = res.UserID
	}
	if res.Email != "" {
		refreshed.Email = res.Email
	}
	if res.FullName != "" {
		refreshed.FullName = res.FullName
	}
	if res.SessionID != "" {
		refreshed.SessionID = res.SessionID
	}
	if res.UserBucketToken != "" {
		refreshed.BucketToken = res.UserBucketToken
	}
	if res.AccessToken != "" && res.AccessToken != cred.AccessToken {
		next := session.FromLogin(res)
		refreshed.AccessToken, refreshed.ExpiresAt = next.AccessToken, next.ExpiresAt
	}

	if err := a.store.Save(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &refreshed, nil
}

// SocialLogin stores the session when the social account is known. When it
// is not, the result carries the account info for a registration draft.
func (a *authService) SocialLogin(ctx context.Context, socialCode string) (*gateway.SocialLoginResult, error) {
	res, err := a.remote.SocialLoginResult(ctx, socialCode)
	if err != nil {
		return nil, fmt.Errorf("social login error: %w", err)
	}
	if res.Session != nil {
		if err := a.store.Save(ctx, session.FromLogin(res.Session)); err != nil {
			return nil, fmt.Errorf("session saving error: %w", err)
		}
	}
	return res, nil
}

func (a *authService) UpdateProfile(ctx context.Context, fields gateway.ProfileUpdate) (*gateway.User, error) {
	cred, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	u, err := a.remote.UpdateProfile(ctx, cred.UserID, fields)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			a.dropSession(ctx)
		}
		return nil, fmt.Errorf("update profile error: %w", err)
	}

	if fields.FullName != nil {
		cred.FullName = u.FullName
		if err := a.store.Save(ctx, *cred); err != nil {
			return nil, fmt.Errorf("session saving error: %w", err)
		}
	}
	return u, nil
}

// ChangeAvatar uploads avatar with the session's bucket token and points
// the profile at it.
func (a *authService) ChangeAvatar(ctx context.Context, avatar gateway.AvatarFile) (*gateway.User, error) {
	cred, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	url, err := a.remote.UploadAvatar(ctx, cred.BucketToken, avatar)
	if err != nil {
		return nil, fmt.Errorf("avatar upload error: %w", err)
	}
	return a.UpdateProfile(ctx, gateway.ProfileUpdate{Avatar: &url})
}

func (a *authService) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	cred, err := a.current(ctx)
	if err != nil {
		return err
	}
	if _, err := a.remote.UpdatePassword(ctx, cred.UserID, string(oldPassword), string(newPassword)); err != nil {
		return fmt.Errorf("update password error: %w", err)
	}
	a.log.Info(ctx, "password changed", "user_id", cred.UserID)
	return nil
}

// DeleteAccount archives the account. The local session goes with it once
// the gateway confirmed.
func (a *authService) DeleteAccount(ctx context.Context) error {
	cred, err := a.current(ctx)
	if err != nil {
		return err
	}
	if _, err := a.remote.ArchiveProfile(ctx, cred.UserID); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			a.dropSession(ctx)
		}
		return fmt.Errorf("archive profile error: %w", err)
	}
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("session clearing error: %w", err)
	}
	a.log.Info(ctx, "account archived", "user_id", cred.UserID)
	return nil
}
