// Package users implements the account side of the development gateway:
// registration, verification, login sessions, password reset, profile edits
// and social login results.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/server/auth"
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/config"
	"github.com/dmitrijs2005/masaclient/internal/server/sessions"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^\+?[0-9]{8,16}$`)
)

const minPasswordLength = common.DefaultPasswordMinLength

type Service struct {
	repo     Repository
	sessions sessions.Repository
	codes    *codes.Store

	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	hashCost                    int

	mu     sync.Mutex
	social map[string]SocialAccount
}

func NewService(repo Repository, sessionRepo sessions.Repository, codeStore *codes.Store, cfg *config.Config) *Service {
	cost := cfg.PasswordHashCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:                        repo,
		sessions:                    sessionRepo,
		codes:                       codeStore,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		hashCost:                    cost,
		social:                      map[string]SocialAccount{},
	}
}

// LoginSession is a signed-in session with its tokens.
type LoginSession struct {
	SessionID   string
	User        *User
	AccessToken string
	BucketToken string
}

type RegisterInput struct {
	FullName   string
	Email      string
	Password   string
	Mobile     string
	IsPublic   bool
	SocialCode string
}

type Registration struct {
	User                     *User
	MobileVerificationNeeded bool
	EmailVerificationNeeded  bool
	// Session is set when nothing is left to verify.
	Session *LoginSession
}

// Challenge is an issued verification or reset code.
type Challenge struct {
	Code        codes.Code
	Destination string
}

func validPassword(pw string) bool {
	return utf8.RuneCountInString(pw) >= minPasswordLength
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.FullName == "":
		return nil, ErrInvalidFullname
	case !emailPattern.MatchString(in.Email):
		return nil, ErrInvalidEmail
	case !mobilePattern.MatchString(in.Mobile):
		return nil, ErrInvalidMobile
	case !validPassword(in.Password):
		return nil, ErrWeakPassword
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailExists
	}
	if _, err := s.repo.GetByMobile(ctx, in.Mobile); err == nil {
		return nil, ErrMobileExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &User{
		Email:        in.Email,
		FullName:     in.FullName,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		IsPublic:     in.IsPublic,
		RoleID:       "user",
	}
	if in.SocialCode != "" {
		if acct, ok := s.socialAccount(in.SocialCode); ok {
			user.SocialCode = in.SocialCode
			// the provider already proved the address
			user.EmailVerified = strings.EqualFold(acct.Email, in.Email)
		}
	}

	user, err = s.repo.Create(ctx, user)
	if errors.Is(err, common.ErrorAlreadyExists) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	if user.SocialCode != "" {
		s.forgetSocialAccount(user.SocialCode)
	}

	reg := &Registration{
		User:                     user,
		MobileVerificationNeeded: !user.MobileVerified,
		EmailVerificationNeeded:  !user.EmailVerified,
	}
	if !reg.MobileVerificationNeeded && !reg.EmailVerificationNeeded {
		if reg.Session, err = s.newSession(ctx, user); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *Service) newSession(ctx context.Context, user *User) (*LoginSession, error) {
	sess, err := s.sessions.Create(ctx, user.ID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	access, err := auth.GenerateToken(user.ID, sess.ID, auth.ScopeAccess, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	bucket, err := s.bucketToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginSession{SessionID: sess.ID, User: user, AccessToken: access, BucketToken: bucket}, nil
}

func (s *Service) bucketToken(userID string) (string, error) {
	return auth.GenerateToken(userID, "", auth.ScopeBucket, s.jwtSecret, s.accessTokenValidityDuration)
}

// lookup finds an account by email or, failing that, by mobile.
func (s *Service) lookup(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := s.repo.GetByEmail(ctx, identifier)
	if errors.Is(err, common.ErrorNotFound) {
		u, err = s.repo.GetByMobile(ctx, identifier)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Login checks the password and opens a session. Unverified accounts are
// refused, mobile first.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginSession, error) {
	user, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, ErrWrongPassword
	}
	if user.Archived {
		return nil, ErrUserArchived
	}
	if !user.MobileVerified {
		return nil, ErrMobileVerificationNeeded
	}
	if !user.EmailVerified {
		return nil, ErrEmailVerificationNeeded
	}
	return s.newSession(ctx, user)
}

// Authenticate resolves an access token to its live session and user.
func (s *Service) Authenticate(ctx context.Context, token string) (*sessions.Session, *User, error) {
	claims, err := auth.ParseToken(token, auth.ScopeAccess, s.jwtSecret)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, common.ErrorUnauthorized
	}
	user, err := s.repo.GetByID(ctx, sess.UserID)
	if err != nil || user.Archived {
		return nil, nil, common.ErrorUnauthorized
	}
	return sess, user, nil
}

// AuthenticateBucket checks a bucket upload token and returns its user id.
func (s *Service) AuthenticateBucket(token string) (string, error) {
	claims, err := auth.ParseToken(token, auth.ScopeBucket, s.jwtSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// Current describes an existing session. The access token is left empty,
// the caller already has it.
func (s *Service) Current(sess *sessions.Session, user *User) (*LoginSession, error) {
	bucket, err := s.bucketToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginSession{SessionID: sess.ID, User: user, BucketToken: bucket}, nil
}

func maskMobile(m string) string {
	if len(m) <= 4 {
		return m
	}
	return m[:2] + strings.Repeat("*", len(m)-4) + m[len(m)-2:]
}

func maskEmail(e string) string {
	name, domain, ok := strings.Cut(e, "@")
	if !ok || len(name) < 2 {
		return e
	}
	return name[:1] + strings.Repeat("*", len(name)-1) + "@" + domain
}

// StartVerification sends a mobile or email verification code.
func (s *Service) StartVerification(ctx context.Context, purpose codes.Purpose, email string) (*Challenge, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	var dest string
	switch purpose {
	case codes.MobileVerification:
		if user.MobileVerified {
			return nil, ErrAlreadyVerified
		}
		dest = maskMobile(user.Mobile)
	case codes.EmailVerification:
		if user.EmailVerified {
			return nil, ErrAlreadyVerified
		}
		dest = maskEmail(user.Email)
	default:
		return nil, fmt.Errorf("unknown verification purpose %q", purpose)
	}

	code, err := s.codes.Issue(purpose, user.ID)
	if err != nil {
		return nil, err
	}
	return &Challenge{Code: code, Destination: dest}, nil
}

func (s *Service) CompleteVerification(ctx context.Context, purpose codes.Purpose, email, code string) error {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := s.codes.Verify(purpose, user.ID, code); err != nil {
		return err
	}
	switch purpose {
	case codes.MobileVerification:
		user.MobileVerified = true
	case codes.EmailVerification:
		user.EmailVerified = true
	}
	return s.repo.Update(ctx, user)
}

// StartPasswordReset sends a reset code to the mobile or the address bound
// to email, depending on purpose.
func (s *Service) StartPasswordReset(ctx context.Context, purpose codes.Purpose, email string) (*Challenge, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	var dest string
	switch purpose {
	case codes.PasswordResetByMobile:
		if user.Mobile == "" {
			return nil, ErrInvalidMobile
		}
		dest = maskMobile(user.Mobile)
	case codes.PasswordResetByEmail:
		dest = maskEmail(user.Email)
	default:
		return nil, fmt.Errorf("unknown password reset purpose %q", purpose)
	}

	code, err := s.codes.Issue(purpose, user.ID)
	if err != nil {
		return nil, err
	}
	return &Challenge{Code: code, Destination: dest}, nil
}

func (s *Service) CompletePasswordReset(ctx context.Context, purpose codes.Purpose, email, code, password string) error {
	if !validPassword(password) {
		return ErrWeakPassword
	}
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := s.codes.Verify(purpose, user.ID, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	user.PasswordHash = hash
	// delivery proves the channel
	switch purpose {
	case codes.PasswordResetByMobile:
		user.MobileVerified = true
	case codes.PasswordResetByEmail:
		user.EmailVerified = true
	}
	return s.repo.Update(ctx, user)
}

// ownAccount loads targetID for actorID. Users may only act on themselves.
func (s *Service) ownAccount(ctx context.Context, actorID, targetID string) (*User, error) {
	if actorID != targetID {
		return nil, ErrForbidden
	}
	user, err := s.repo.GetByID(ctx, targetID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actorID, targetID, oldPassword, newPassword string) (*User, error) {
	user, err := s.ownAccount(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)) != nil {
		return nil, ErrWrongPassword
	}
	if !validPassword(newPassword) {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Archive deactivates the account and ends all of its sessions. The record
// stays, so the email and mobile remain taken.
func (s *Service) Archive(ctx context.Context, actorID, targetID string) (*User, error) {
	user, err := s.ownAccount(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	user.Archived = true
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("error ending sessions: %w", err)
	}
	return user, nil
}

// ProfileUpdate holds the fields to change; nil means unchanged.
type ProfileUpdate struct {
	FullName *string
	Avatar   *string
	Mobile   *string
	IsPublic *bool
}

// UpdateProfile edits targetID on behalf of actorID. Users may only edit
// themselves. A changed mobile has to be verified again.
func (s *Service) UpdateProfile(ctx context.Context, actorID, targetID string, upd ProfileUpdate) (*User, error) {
	user, err := s.ownAccount(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, ErrInvalidFullname
		}
		user.FullName = name
	}
	if upd.Avatar != nil {
		user.Avatar = *upd.Avatar
	}
	if upd.Mobile != nil && *upd.Mobile != user.Mobile {
		if !mobilePattern.MatchString(*upd.Mobile) {
			return nil, ErrInvalidMobile
		}
		user.Mobile = *upd.Mobile
		user.MobileVerified = false
	}
	if upd.IsPublic != nil {
		user.IsPublic = *upd.IsPublic
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, ErrMobileExists
		}
		return nil, err
	}
	return user, nil
}

// AddSocialAccount records a social login that finished at the provider.
// The code is later exchanged with SocialLoginResult.
func (s *Service) AddSocialAccount(code string, acct SocialAccount) {
	s.mu.Lock()
	s.social[code] = acct
	s.mu.Unlock()
}

func (s *Service) socialAccount(code string) (SocialAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.social[code]
	return acct, ok
}

func (s *Service) forgetSocialAccount(code string) {
	s.mu.Lock()
	delete(s.social, code)
	s.mu.Unlock()
}

// SocialResult is either a session for a linked account or the provider's
// account info for one that still has to register.
type SocialResult struct {
	Session *LoginSession
	Account *SocialAccount
}

func (s *Service) SocialLoginResult(ctx context.Context, code string) (*SocialResult, error) {
	user, err := s.repo.GetBySocialCode(ctx, code)
	if err == nil {
		if user.Archived {
			return nil, ErrUserArchived
		}
		if !user.MobileVerified {
			return nil, ErrMobileVerificationNeeded
		}
		sess, err := s.newSession(ctx, user)
		if err != nil {
			return nil, err
		}
		return &SocialResult{Session: sess}, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if acct, ok := s.socialAccount(code); ok {
		return &SocialResult{Account: &acct}, nil
	}
	return nil, ErrSocialCodeNotFound
}
