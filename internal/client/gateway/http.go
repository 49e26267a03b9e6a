package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/logging"
	"github.com/dmitrijs2005/masaclient/internal/netx"
	"github.com/google/uuid"
)

// Service prefixes appended to the deployment base URL.
const (
	authAPIPrefix     = "/auth-api"
	settingsAPIPrefix = "/masasettings-api"
	bucketAPIPrefix   = "/bucket"
)

// HTTPGateway talks to the backend over HTTPS JSON.
type HTTPGateway struct {
	baseURL  string
	bucketID string
	client   *http.Client
	tokens   TokenSource
	log      logging.Logger
}

// NewHTTPGateway builds a gateway rooted at baseURL. tokens may be nil, in
// which case every request is anonymous.
func NewHTTPGateway(baseURL, bucketID string, timeout time.Duration, tokens TokenSource, log logging.Logger) *HTTPGateway {
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		bucketID: bucketID,
		client:   &http.Client{Timeout: timeout},
		tokens:   tokens,
		log:      log,
	}
}

func (g *HTTPGateway) authURL(path string) string     { return g.baseURL + authAPIPrefix + path }
func (g *HTTPGateway) settingsURL(path string) string { return g.baseURL + settingsAPIPrefix + path }
func (g *HTTPGateway) bucketURL(path string) string   { return g.baseURL + bucketAPIPrefix + path }

// do sends in (if non-nil) as JSON and decodes a 2xx body into out (if
// non-nil). Every request carries a fresh request id and, when available,
// the current access token.
func (g *HTTPGateway) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, reqID)

	if err := g.authorize(ctx, req); err != nil {
		return err
	}

	log := g.log.With("method", method, "url", url, "request_id", reqID)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn(ctx, "gateway request failed", "error", err)
		return &APIError{Kind: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, netx.MaxResponseBytes))
	if err != nil {
		return &APIError{Kind: ErrUnavailable, Message: err.Error(), Status: resp.StatusCode}
	}

	log.Debug(ctx, "gateway response", "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: ErrGeneric, Message: "malformed response: " + err.Error(), Status: resp.StatusCode}
	}
	return nil
}

func (g *HTTPGateway) authorize(ctx context.Context, req *http.Request) error {
	if g.tokens == nil {
		return nil
	}
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		body.Message = strings.TrimSpace(string(raw))
	}
	return classify(status, body)
}

func (g *HTTPGateway) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var out RegisterResult
	if err := g.do(ctx, http.MethodPost, g.authURL("/v1/registeruser"), req, &out); err != nil {
		return nil, err
	}
	if out.AccountID == "" && out.User != nil {
		out.AccountID = out.User.ID
	}
	return &out, nil
}

// startResponse accepts both the "mobile" and "email" destination spellings
// used by the verification services.
type startResponse struct {
	StartVerificationResult
	Mobile string `json:"mobile"`
	Email  string `json:"email"`
}

func (r startResponse) result() *StartVerificationResult {
	res := r.StartVerificationResult
	if res.Destination == "" {
		res.Destination = r.Mobile
	}
	if res.Destination == "" {
		res.Destination = r.Email
	}
	return &res
}

func verificationPath(kind VerificationKind, step string) (string, error) {
	switch kind {
	case KindMobile, KindEmail:
		return fmt.Sprintf("/verification-services/%s-verification/%s", kind, step), nil
	default:
		return "", &APIError{Kind: ErrInvalidField, Message: fmt.Sprintf("unknown verification kind %q", kind)}
	}
}

func (g *HTTPGateway) StartVerification(ctx context.Context, kind VerificationKind, email string) (*StartVerificationResult, error) {
	path, err := verificationPath(kind, "start")
	if err != nil {
		return nil, err
	}
	var out startResponse
	if err := g.do(ctx, http.MethodPost, g.authURL(path), map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

func (g *HTTPGateway) CompleteVerification(ctx context.Context, kind VerificationKind, email, code string) (*CompleteVerificationResult, error) {
	path, err := verificationPath(kind, "complete")
	if err != nil {
		return nil, err
	}
	var out CompleteVerificationResult
	in := map[string]string{"email": email, "secretCode": code}
	if err := g.do(ctx, http.MethodPost, g.authURL(path), in, &out); err != nil {
		return nil, codeRejected(err)
	}
	return &out, nil
}

// codeRejected reads a bare 403 from a complete step as a wrong or expired
// code; the verification services answer that way without an errCode.
func codeRejected(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden && apiErr.Code == "" {
		apiErr.Kind, apiErr.Field = ErrInvalidCode, FieldCode
	}
	return err
}

func (g *HTTPGateway) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"username": identifier, "password": password}
	if err := g.do(ctx, http.MethodPost, g.authURL("/login"), in, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &APIError{Kind: ErrGeneric, Message: "login response without access token"}
	}
	return &out, nil
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		FileID      string `json:"fileId"`
		DownloadURL string `json:"downloadUrl"`
	} `json:"data"`
}

// UploadAvatar posts the file to the bucket service and returns its download
// URL. The bucket token is checked before any request is made.
func (g *HTTPGateway) UploadAvatar(ctx context.Context, bucketToken string, avatar AvatarFile) (string, error) {
	if bucketToken == "" {
		return "", &APIError{Kind: ErrBucketTokenMissing, Message: "session has no bucket upload token"}
	}

	status, raw, err := netx.PostMultipart(ctx, g.client, g.bucketURL("/upload"),
		map[string]string{
			common.AuthorizationHeaderName: "Bearer " + bucketToken,
			common.RequestIDHeaderName:     uuid.NewString(),
		},
		map[string]string{"bucketId": g.bucketID},
		netx.FilePart{Field: "files", Name: avatar.Name, ContentType: avatar.ContentType, Data: avatar.Data},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &APIError{Kind: ErrUnavailable, Message: err.Error()}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", &APIError{Kind: ErrBucketTokenMissing, Message: "bucket token rejected", Status: status}
	}
	if status >= http.StatusBadRequest {
		return "", decodeError(status, raw)
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &APIError{Kind: ErrGeneric, Message: "malformed upload response: " + err.Error(), Status: status}
	}
	if !out.Success || len(out.Data) == 0 || out.Data[0].DownloadURL == "" {
		return "", &APIError{Kind: ErrGeneric, Message: "upload response without download url", Status: status}
	}
	return out.Data[0].DownloadURL, nil
}

type userEnvelope struct {
	UserID string `json:"userId"`
	User   *User  `json:"user"`
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, accountID string, fields ProfileUpdate) (*User, error) {
	return g.userCall(ctx, http.MethodPatch, "/v1/profile/"+url.PathEscape(accountID), fields)
}

func (g *HTTPGateway) Logout(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, g.authURL("/logout"), nil, nil)
}

func (g *HTTPGateway) CurrentUser(ctx context.Context) (*LoginResult, error) {
	var out LoginResult
	if err := g.do(ctx, http.MethodGet, g.authURL("/currentuser"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SupportedCountries returns the calling codes ordered by SortOrder.
func (g *HTTPGateway) SupportedCountries(ctx context.Context) ([]Country, error) {
	var out struct {
		SupportedCountries []Country `json:"supportedCountries"`
	}
	if err := g.do(ctx, http.MethodGet, g.settingsURL("/v1/supportedcountries"), nil, &out); err != nil {
		return nil, err
	}
	countries := out.SupportedCountries
	sort.SliceStable(countries, func(i, j int) bool { return countries[i].SortOrder < countries[j].SortOrder })
	return countries, nil
}

type socialResponse struct {
	LoginResult
	Type        string            `json:"type"`
	SocialCode  string            `json:"socialCode"`
	AccountInfo SocialAccountInfo `json:"accountInfo"`
	Result      string            `json:"result"`
	ErrCode     string            `json:"errCode"`
	Message     string            `json:"message"`
}

func (g *HTTPGateway) SocialLoginResult(ctx context.Context, socialCode string) (*SocialLoginResult, error) {
	var out socialResponse
	in := map[string]string{"socialCode": socialCode}
	if err := g.do(ctx, http.MethodPost, g.authURL("/auth/social-login-result"), in, &out); err != nil {
		return nil, err
	}

	// The social endpoint may report failures inside a 200 body.
	if out.Result == "ERR" || out.ErrCode != "" {
		return nil, classify(http.StatusOK, errorBody{Result: out.Result, ErrCode: out.ErrCode, Message: out.Message})
	}

	res := &SocialLoginResult{Type: out.Type, SocialCode: out.SocialCode, AccountInfo: out.AccountInfo}
	if res.SocialCode == "" {
		res.SocialCode = socialCode
	}
	if out.AccessToken != "" {
		login := out.LoginResult
		res.Session = &login
	}
	if res.Type != SocialRegisterNeeded && res.Session == nil {
		return nil, &APIError{Kind: ErrGeneric, Message: "unexpected social login response"}
	}
	return res, nil
}

func passwordResetPath(kind VerificationKind, step string) (string, error) {
	switch kind {
	case KindMobile, KindEmail:
		return fmt.Sprintf("/verification-services/password-reset-by-%s/%s", kind, step), nil
	default:
		return "", &APIError{Kind: ErrInvalidField, Message: fmt.Sprintf("unknown reset method %q", kind)}
	}
}

// StartPasswordReset sends a reset code over the chosen channel to the
// account registered with email.
func (g *HTTPGateway) StartPasswordReset(ctx context.Context, kind VerificationKind, email string) (*StartVerificationResult, error) {
	path, err := passwordResetPath(kind, "start")
	if err != nil {
		return nil, err
	}
	var out startResponse
	if err := g.do(ctx, http.MethodPost, g.authURL(path), map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

func (g *HTTPGateway) CompletePasswordReset(ctx context.Context, kind VerificationKind, email, code, password string) (*CompleteVerificationResult, error) {
	path, err := passwordResetPath(kind, "complete")
	if err != nil {
		return nil, err
	}
	var out CompleteVerificationResult
	in := map[string]string{"email": email, "secretCode": code, "password": password}
	if err := g.do(ctx, http.MethodPost, g.authURL(path), in, &out); err != nil {
		return nil, codeRejected(err)
	}
	return &out, nil
}

func (g *HTTPGateway) userCall(ctx context.Context, method, path string, in any) (*User, error) {
	var out userEnvelope
	if err := g.do(ctx, method, g.authURL(path), in, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &APIError{Kind: ErrGeneric, Message: "response without user"}
	}
	return out.User, nil
}

// UpdatePassword changes the password of a signed-in account.
func (g *HTTPGateway) UpdatePassword(ctx context.Context, accountID, oldPassword, newPassword string) (*User, error) {
	in := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return g.userCall(ctx, http.MethodPatch, "/v1/userpassword/"+url.PathEscape(accountID), in)
}

// ArchiveProfile deactivates the account. The backend keeps the record with
// isActive set to false.
func (g *HTTPGateway) ArchiveProfile(ctx context.Context, accountID string) (*User, error) {
	return g.userCall(ctx, http.MethodDelete, "/v1/archiveprofile/"+url.PathEscape(accountID), nil)
}

var _ Gateway = (*HTTPGateway)(nil)
