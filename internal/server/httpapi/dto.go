package httpapi

import (
	"github.com/dmitrijs2005/masaclient/internal/server/users"
)

type registerRequest struct {
	FullName   string `json:"fullname"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Mobile     string `json:"mobile"`
	IsPublic   bool   `json:"isPublic"`
	SocialCode string `json:"socialCode"`
}

type userDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"fullname"`
	Avatar         string `json:"avatar,omitempty"`
	RoleID         string `json:"roleId,omitempty"`
	Mobile         string `json:"mobile,omitempty"`
	IsPublic       bool   `json:"isPublic"`
	MobileVerified bool   `json:"mobileVerified"`
	EmailVerified  bool   `json:"emailVerified"`
	IsActive       bool   `json:"isActive"`
}

func toUserDTO(u *users.User) *userDTO {
	return &userDTO{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Avatar:         u.Avatar,
		RoleID:         u.RoleID,
		Mobile:         u.Mobile,
		IsPublic:       u.IsPublic,
		MobileVerified: u.MobileVerified,
		EmailVerified:  u.EmailVerified,
		IsActive:       !u.Archived,
	}
}

type registerResponse struct {
	UserID                   string   `json:"userId"`
	User                     *userDTO `json:"user"`
	AccessToken              string   `json:"accessToken,omitempty"`
	UserBucketToken          string   `json:"userBucketToken,omitempty"`
	EmailVerificationNeeded  bool     `json:"emailVerificationNeeded"`
	MobileVerificationNeeded bool     `json:"mobileVerificationNeeded"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	SessionID       string `json:"sessionId"`
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	FullName        string `json:"fullname"`
	RoleID          string `json:"roleId,omitempty"`
	AccessToken     string `json:"accessToken"`
	UserBucketToken string `json:"userBucketToken,omitempty"`
}

func toLoginResponse(ls *users.LoginSession) loginResponse {
	return loginResponse{
		SessionID:       ls.SessionID,
		UserID:          ls.User.ID,
		Email:           ls.User.Email,
		FullName:        ls.User.FullName,
		RoleID:          ls.User.RoleID,
		AccessToken:     ls.AccessToken,
		UserBucketToken: ls.BucketToken,
	}
}

type startRequest struct {
	Email string `json:"email" binding:"required"`
}

type startResponse struct {
	CodeIndex        int    `json:"codeIndex"`
	TimeStamp        int64  `json:"timeStamp"`
	ExpireTime       int    `json:"expireTime"`
	VerificationType string `json:"verificationType"`
	Destination      string `json:"destination"`
	SecretCode       string `json:"secretCode,omitempty"`
}

type completeRequest struct {
	Email      string `json:"email" binding:"required"`
	SecretCode string `json:"secretCode" binding:"required"`
	Password   string `json:"password"`
}

type completeResponse struct {
	IsVerified bool `json:"isVerified"`
}

type profileRequest struct {
	FullName *string `json:"fullname"`
	Avatar   *string `json:"avatar"`
	Mobile   *string `json:"mobile"`
	IsPublic *bool   `json:"isPublic"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type userEnvelope struct {
	UserID string   `json:"userId"`
	User   *userDTO `json:"user"`
}

type country struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Country   string `json:"country"`
	SortOrder int    `json:"sortOrder"`
}

// supportedCountries is the fixed calling code list of the gateway.
var supportedCountries = []country{
	{ID: "tr", Code: "+90", Country: "TR", SortOrder: 1},
	{ID: "us", Code: "+1", Country: "US", SortOrder: 2},
	{ID: "gb", Code: "+44", Country: "GB", SortOrder: 3},
	{ID: "de", Code: "+49", Country: "DE", SortOrder: 4},
}

type socialRequest struct {
	SocialCode string `json:"socialCode" binding:"required"`
}

type accountInfo struct {
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

type socialRegisterResponse struct {
	Type        string      `json:"type"`
	SocialCode  string      `json:"socialCode"`
	AccountInfo accountInfo `json:"accountInfo"`
}

type socialAccountRequest struct {
	SocialCode string `json:"socialCode"`
	Email      string `json:"email" binding:"required"`
	FullName   string `json:"fullname"`
}

type uploadedFile struct {
	FileID      string `json:"fileId"`
	DownloadURL string `json:"downloadUrl"`
}

type uploadResponse struct {
	Success bool           `json:"success"`
	Data    []uploadedFile `json:"data"`
}
