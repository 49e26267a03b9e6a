package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/masaclient/internal/client/config"
	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

// fakeGateway is an in-memory backend. Codes equal to code are accepted.
type fakeGateway struct {
	mu sync.Mutex

	code        string
	registerRes *gateway.RegisterResult
	registerErr error
	loginErr    error
	social      *gateway.SocialLoginResult

	registered []gateway.RegisterRequest
	started    []gateway.VerificationKind
	uploads    int
	profile    []gateway.ProfileUpdate
	loggedOut  bool
	resetPass  string
	resetKinds []gateway.VerificationKind
	password   [2]string
	passErr    error
	archived   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{code: "123456"}
}

func (f *fakeGateway) Register(_ context.Context, req gateway.RegisterRequest) (*gateway.RegisterResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, req)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	if f.registerRes != nil {
		return f.registerRes, nil
	}
	return &gateway.RegisterResult{AccountID: "u1", UserBucketToken: "bkt", MobileVerificationNeeded: true}, nil
}

func (f *fakeGateway) StartVerification(_ context.Context, kind gateway.VerificationKind, _ string) (*gateway.StartVerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, kind)
	return &gateway.StartVerificationResult{Destination: "+1*******67", SecretCode: f.code}, nil
}

func (f *fakeGateway) CompleteVerification(_ context.Context, _ gateway.VerificationKind, _, code string) (*gateway.CompleteVerificationResult, error) {
	return &gateway.CompleteVerificationResult{Verified: code == f.code}, nil
}

func (f *fakeGateway) session(identifier string) *gateway.LoginResult {
	return &gateway.LoginResult{
		SessionID: "s1", UserID: "u1", Email: identifier, FullName: "Jane Doe",
		AccessToken: "tok", UserBucketToken: "bkt",
	}
}

func (f *fakeGateway) Login(_ context.Context, identifier, _ string) (*gateway.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session(identifier), nil
}

func (f *fakeGateway) UploadAvatar(context.Context, string, gateway.AvatarFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return "https://cdn.example/avatar.png", nil
}

func (f *fakeGateway) UpdateProfile(_ context.Context, accountID string, fields gateway.ProfileUpdate) (*gateway.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = append(f.profile, fields)
	u := &gateway.User{ID: accountID, FullName: "Jane Doe"}
	if fields.FullName != nil {
		u.FullName = *fields.FullName
	}
	return u, nil
}

func (f *fakeGateway) Logout(context.Context) error {
	f.loggedOut = true
	return nil
}

func (f *fakeGateway) CurrentUser(context.Context) (*gateway.LoginResult, error) {
	return f.session("jane@example.com"), nil
}

func (f *fakeGateway) SupportedCountries(context.Context) ([]gateway.Country, error) {
	return []gateway.Country{{Code: "+1", Country: "US"}, {Code: "+90", Country: "TR"}}, nil
}

func (f *fakeGateway) SocialLoginResult(context.Context, string) (*gateway.SocialLoginResult, error) {
	return f.social, nil
}

func (f *fakeGateway) StartPasswordReset(_ context.Context, kind gateway.VerificationKind, email string) (*gateway.StartVerificationResult, error) {
	f.resetKinds = append(f.resetKinds, kind)
	dest := "+1*******67"
	if kind == gateway.KindEmail {
		dest = email
	}
	return &gateway.StartVerificationResult{Destination: dest, SecretCode: f.code}, nil
}

func (f *fakeGateway) CompletePasswordReset(_ context.Context, _ gateway.VerificationKind, _, code, password string) (*gateway.CompleteVerificationResult, error) {
	ok := code == f.code
	if ok {
		f.resetPass = password
	}
	return &gateway.CompleteVerificationResult{Verified: ok}, nil
}

func (f *fakeGateway) UpdatePassword(_ context.Context, accountID, oldPassword, newPassword string) (*gateway.User, error) {
	if f.passErr != nil {
		return nil, f.passErr
	}
	f.password = [2]string{oldPassword, newPassword}
	return &gateway.User{ID: accountID}, nil
}

func (f *fakeGateway) ArchiveProfile(_ context.Context, accountID string) (*gateway.User, error) {
	f.archived = accountID
	inactive := false
	return &gateway.User{ID: accountID, IsActive: &inactive}, nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func newTestApp(t *testing.T, gw gateway.Gateway) (*App, *bytes.Buffer, *session.MemoryStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	store := session.NewMemoryStore()
	a := newApp(cfg, logging.Nop(), gw, store)
	out := &bytes.Buffer{}
	a.out = out
	a.reader = bufio.NewReader(strings.NewReader(""))
	return a, out, store
}

// scriptAnswers replaces the line prompt with a fixed list of answers and
// records the prompts it was shown. Running out of answers yields io.EOF.
func scriptAnswers(t *testing.T, answers ...string) *[]string {
	t.Helper()
	orig := getSimpleText
	t.Cleanup(func() { getSimpleText = orig })

	var prompts []string
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		prompts = append(prompts, prompt)
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	return &prompts
}

func scriptPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })

	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
}
