package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/services"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	gw := newFakeGateway()
	a, out, store := newTestApp(t, gw)
	scriptAnswers(t, "jane@example.com")
	scriptPasswords(t, "secret1")

	require.NoError(t, a.Login(context.Background()))

	assert.Contains(t, out.String(), "Logged in as jane@example.com")
	cred, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", cred.AccessToken)
}

type rememberingStore struct {
	*session.MemoryStore
	last string
}

func (r rememberingStore) LastEmail(context.Context) (string, error) { return r.last, nil }

func TestLogin_PrefillsLastEmail(t *testing.T) {
	gw := newFakeGateway()
	a, out, _ := newTestApp(t, gw)
	a.store = rememberingStore{MemoryStore: session.NewMemoryStore(), last: "jane@example.com"}
	a.authService = services.NewAuthService(gw, a.store, a.log)
	prompts := scriptAnswers(t, "")
	scriptPasswords(t, "secret1")

	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, []string{"Enter email or mobile [jane@example.com]"}, *prompts)
	assert.Contains(t, out.String(), "Logged in as jane@example.com")
}

func TestLogin_WrongPassword(t *testing.T) {
	gw := newFakeGateway()
	gw.loginErr = &gateway.APIError{Kind: gateway.ErrUnauthorized, Status: 401}
	a, out, _ := newTestApp(t, gw)
	scriptAnswers(t, "jane@example.com")
	scriptPasswords(t, "nope")

	require.NoError(t, a.Login(context.Background()))

	assert.Contains(t, out.String(), "Wrong email or password.")
	assert.False(t, a.isLoggedIn())
}

func TestLogout(t *testing.T) {
	gw := newFakeGateway()
	a, out, store := newTestApp(t, gw)

	require.NoError(t, a.Logout(context.Background()))
	assert.Contains(t, out.String(), "You are not logged in.")
	assert.False(t, gw.loggedOut)

	require.NoError(t, store.Save(context.Background(), session.Credential{AccessToken: "tok"}))
	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, gw.loggedOut)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Logged out.")
}

func TestWhoAmI(t *testing.T) {
	a, out, store := newTestApp(t, newFakeGateway())

	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "You are not logged in.")

	require.NoError(t, store.Save(context.Background(), session.Credential{AccessToken: "tok", UserID: "u1"}))
	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "Jane Doe <jane@example.com>")
	assert.Contains(t, out.String(), "user id: u1")
}

func TestSocial_KnownAccountLogsIn(t *testing.T) {
	gw := newFakeGateway()
	gw.social = &gateway.SocialLoginResult{Session: gw.session("jane@example.com")}
	a, out, _ := newTestApp(t, gw)
	scriptAnswers(t, "sc1")

	require.NoError(t, a.Social(context.Background()))

	assert.Contains(t, out.String(), "Logged in as jane@example.com")
	assert.True(t, a.isLoggedIn())
}

func TestSocial_NewAccountRegistersWithPrefill(t *testing.T) {
	gw := newFakeGateway()
	gw.social = &gateway.SocialLoginResult{
		Type:        gateway.SocialRegisterNeeded,
		SocialCode:  "sc1",
		AccountInfo: gateway.SocialAccountInfo{Email: "jane@example.com", FullName: "Jane Doe"},
	}
	a, out, _ := newTestApp(t, gw)
	prompts := scriptAnswers(t, "sc1", "", "", "", "5551234567", "123456", "")
	scriptPasswords(t, "secret1")

	require.NoError(t, a.Social(context.Background()))

	require.Len(t, gw.registered, 1)
	req := gw.registered[0]
	assert.Equal(t, "sc1", req.SocialCode)
	assert.Equal(t, "Jane Doe", req.FullName)
	assert.Equal(t, "jane@example.com", req.Email)
	assert.Contains(t, (*prompts)[1], "[Jane Doe]")
	assert.Contains(t, out.String(), "Registration complete.")
}

func TestSocial_EmptyCode(t *testing.T) {
	a, out, _ := newTestApp(t, newFakeGateway())
	scriptAnswers(t, "")

	require.NoError(t, a.Social(context.Background()))
	assert.Contains(t, out.String(), "No code given.")
}
