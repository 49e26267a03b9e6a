// Package gateway is the client's view of the Masa backend: the auth API,
// verification services, profile, settings and bucket upload services.
//
// Gateway is the contract the registration workflow is written against;
// HTTPGateway implements it over HTTPS JSON. Failures are returned as
// *APIError values that unwrap to the Err* kinds in errors.go.
package gateway

import (
	"context"
)

// VerificationKind selects the verification channel.
type VerificationKind string

const (
	KindMobile VerificationKind = "mobile"
	KindEmail  VerificationKind = "email"
)

// Gateway lists the remote operations the client depends on.
//
// All methods honor context cancellation.
type Gateway interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	StartVerification(ctx context.Context, kind VerificationKind, email string) (*StartVerificationResult, error)
	CompleteVerification(ctx context.Context, kind VerificationKind, email, code string) (*CompleteVerificationResult, error)
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	UploadAvatar(ctx context.Context, bucketToken string, avatar AvatarFile) (string, error)
	UpdateProfile(ctx context.Context, accountID string, fields ProfileUpdate) (*User, error)

	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*LoginResult, error)
	SupportedCountries(ctx context.Context) ([]Country, error)
	SocialLoginResult(ctx context.Context, socialCode string) (*SocialLoginResult, error)
	StartPasswordReset(ctx context.Context, kind VerificationKind, email string) (*StartVerificationResult, error)
	CompletePasswordReset(ctx context.Context, kind VerificationKind, email, code, password string) (*CompleteVerificationResult, error)
	UpdatePassword(ctx context.Context, accountID, oldPassword, newPassword string) (*User, error)
	ArchiveProfile(ctx context.Context, accountID string) (*User, error)
}

// TokenSource yields the bearer token attached to authenticated requests.
// An empty token means "send the request anonymously".
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type RegisterRequest struct {
	FullName   string `json:"fullname"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Mobile     string `json:"mobile,omitempty"`
	IsPublic   bool   `json:"isPublic"`
	SocialCode string `json:"socialCode,omitempty"`
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"fullname"`
	Avatar         string `json:"avatar,omitempty"`
	RoleID         string `json:"roleId,omitempty"`
	Mobile         string `json:"mobile,omitempty"`
	MobileVerified bool   `json:"mobileVerified"`
	EmailVerified  bool   `json:"emailVerified"`
	IsActive       *bool  `json:"isActive,omitempty"`
}

// RegisterResult is the outcome of a successful registration. A non-empty
// AccessToken means the account is already signed in.
type RegisterResult struct {
	AccountID                string `json:"userId"`
	User                     *User  `json:"user,omitempty"`
	AccessToken              string `json:"accessToken,omitempty"`
	UserBucketToken          string `json:"userBucketToken,omitempty"`
	EmailVerificationNeeded  bool   `json:"emailVerificationNeeded,omitempty"`
	MobileVerificationNeeded bool   `json:"mobileVerificationNeeded,omitempty"`
}

// StartVerificationResult describes an issued code. ExpireTime is the code
// lifetime in seconds; SecretCode is only filled by backends in test mode.
type StartVerificationResult struct {
	CodeIndex        int    `json:"codeIndex"`
	TimeStamp        int64  `json:"timeStamp"`
	ExpireTime       int    `json:"expireTime"`
	VerificationType string `json:"verificationType"`
	Destination      string `json:"destination,omitempty"`
	SecretCode       string `json:"secretCode,omitempty"`
}

type CompleteVerificationResult struct {
	Verified bool `json:"isVerified"`
}

// LoginResult is the backend session object.
type LoginResult struct {
	SessionID       string `json:"sessionId"`
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	FullName        string `json:"fullname"`
	RoleID          string `json:"roleId,omitempty"`
	AccessToken     string `json:"accessToken"`
	UserBucketToken string `json:"userBucketToken,omitempty"`
}

type AvatarFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ProfileUpdate holds the fields to patch; nil pointers are left alone.
type ProfileUpdate struct {
	FullName *string `json:"fullname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	IsPublic *bool   `json:"isPublic,omitempty"`
}

// Country is one entry of the supported calling codes list.
type Country struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Country   string `json:"country"`
	SortOrder int    `json:"sortOrder"`
}

// SocialRegisterNeeded is the SocialLoginResult.Type of an unknown social
// account that has to finish registration first.
const SocialRegisterNeeded = "RegisterNeededForSocialLogin"

type SocialAccountInfo struct {
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

// SocialLoginResult is either a finished login (Session set) or a request
// to register (Type == SocialRegisterNeeded).
type SocialLoginResult struct {
	Type        string
	SocialCode  string
	AccountInfo SocialAccountInfo
	Session     *LoginResult
}
