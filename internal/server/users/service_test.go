package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/server/auth"
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/config"
	"github.com/dmitrijs2005/masaclient/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		PasswordHashCost:            bcrypt.MinCost,
	}
	// resend interval 0, тесты запрашивают коды подряд
	return NewService(NewMemoryRepository(), sessions.NewMemoryRepository(), codes.NewStore(time.Minute, 0), cfg)
}

func validInput() RegisterInput {
	return RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "secret1",
		Mobile:   "+15551234567",
	}
}

// registerVerified creates an account and walks it through both
// verifications.
func registerVerified(t *testing.T, s *Service) *User {
	t.Helper()
	ctx := context.Background()
	reg, err := s.Register(ctx, validInput())
	require.NoError(t, err)

	for _, p := range []codes.Purpose{codes.MobileVerification, codes.EmailVerification} {
		ch, err := s.StartVerification(ctx, p, reg.User.Email)
		require.NoError(t, err)
		require.NoError(t, s.CompleteVerification(ctx, p, reg.User.Email, ch.Code.Value))
	}
	return reg.User
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(in *RegisterInput)
		want   error
	}{
		{"empty name", func(in *RegisterInput) { in.FullName = "  " }, ErrInvalidFullname},
		{"bad email", func(in *RegisterInput) { in.Email = "no-at-sign" }, ErrInvalidEmail},
		{"bad mobile", func(in *RegisterInput) { in.Mobile = "12ab" }, ErrInvalidMobile},
		{"short password", func(in *RegisterInput) { in.Password = "123" }, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			_, err := s.Register(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_CreatesUnverifiedAccount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, reg.User.ID)
	assert.True(t, reg.MobileVerificationNeeded)
	assert.True(t, reg.EmailVerificationNeeded)
	assert.Nil(t, reg.Session)
	require.NoError(t, bcrypt.CompareHashAndPassword(reg.User.PasswordHash, []byte("secret1")))

	_, err = s.Register(ctx, validInput())
	assert.ErrorIs(t, err, ErrEmailExists)

	in := validInput()
	in.Email = "other@example.com"
	_, err = s.Register(ctx, in)
	assert.ErrorIs(t, err, ErrMobileExists)
}

func TestRegister_SocialCodeVerifiesEmail(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	s.AddSocialAccount("sc1", SocialAccount{Email: "ada@example.com", FullName: "Ada"})

	res, err := s.SocialLoginResult(ctx, "sc1")
	require.NoError(t, err)
	require.NotNil(t, res.Account)
	assert.Equal(t, "Ada", res.Account.FullName)

	in := validInput()
	in.SocialCode = "sc1"
	reg, err := s.Register(ctx, in)
	require.NoError(t, err)
	assert.False(t, reg.EmailVerificationNeeded)
	assert.True(t, reg.MobileVerificationNeeded)

	// пока мобильный не подтвержден, вход через соцсеть закрыт
	_, err = s.SocialLoginResult(ctx, "sc1")
	assert.ErrorIs(t, err, ErrMobileVerificationNeeded)

	ch, err := s.StartVerification(ctx, codes.MobileVerification, in.Email)
	require.NoError(t, err)
	require.NoError(t, s.CompleteVerification(ctx, codes.MobileVerification, in.Email, ch.Code.Value))

	res, err = s.SocialLoginResult(ctx, "sc1")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, reg.User.ID, res.Session.User.ID)
}

func TestSocialLoginResult_UnknownCode(t *testing.T) {
	s := newTestService(t)
	_, err := s.SocialLoginResult(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSocialCodeNotFound)
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	reg, err := s.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = s.Login(ctx, "ada@example.com", "wrong!!")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = s.Login(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrMobileVerificationNeeded)

	ch, err := s.StartVerification(ctx, codes.MobileVerification, reg.User.Email)
	require.NoError(t, err)
	require.NoError(t, s.CompleteVerification(ctx, codes.MobileVerification, reg.User.Email, ch.Code.Value))

	_, err = s.Login(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailVerificationNeeded)

	ch, err = s.StartVerification(ctx, codes.EmailVerification, reg.User.Email)
	require.NoError(t, err)
	require.NoError(t, s.CompleteVerification(ctx, codes.EmailVerification, reg.User.Email, ch.Code.Value))

	// по номеру телефона тоже пускает
	ls, err := s.Login(ctx, "+15551234567", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, ls.User.ID)
	assert.NotEmpty(t, ls.SessionID)

	claims, err := auth.ParseToken(ls.AccessToken, auth.ScopeAccess, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, ls.SessionID, claims.SessionID)

	owner, err := s.AuthenticateBucket(ls.BucketToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, owner)
}

func TestAuthenticateAndLogout(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	ls, err := s.Login(ctx, u.Email, "secret1")
	require.NoError(t, err)

	sess, user, err := s.Authenticate(ctx, ls.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, ls.SessionID, sess.ID)
	assert.Equal(t, u.ID, user.ID)

	cur, err := s.Current(sess, user)
	require.NoError(t, err)
	assert.Equal(t, ls.SessionID, cur.SessionID)
	assert.Empty(t, cur.AccessToken)
	assert.NotEmpty(t, cur.BucketToken)

	// bucket token is not an access token
	_, _, err = s.Authenticate(ctx, ls.BucketToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	require.NoError(t, s.Logout(ctx, ls.SessionID))
	_, _, err = s.Authenticate(ctx, ls.AccessToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	// повторный logout не ошибка
	require.NoError(t, s.Logout(ctx, ls.SessionID))
}

func TestVerification(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	reg, err := s.Register(ctx, validInput())
	require.NoError(t, err)

	ch, err := s.StartVerification(ctx, codes.MobileVerification, reg.User.Email)
	require.NoError(t, err)
	assert.Equal(t, "+1********67", ch.Destination)

	err = s.CompleteVerification(ctx, codes.MobileVerification, reg.User.Email, "000000x")
	assert.ErrorIs(t, err, codes.ErrInvalidCode)
	require.NoError(t, s.CompleteVerification(ctx, codes.MobileVerification, reg.User.Email, ch.Code.Value))

	_, err = s.StartVerification(ctx, codes.MobileVerification, reg.User.Email)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	ch, err = s.StartVerification(ctx, codes.EmailVerification, reg.User.Email)
	require.NoError(t, err)
	assert.Equal(t, "a**@example.com", ch.Destination)

	_, err = s.StartVerification(ctx, codes.EmailVerification, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordReset(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	ch, err := s.StartPasswordReset(ctx, codes.PasswordResetByMobile, u.Email)
	require.NoError(t, err)

	err = s.CompletePasswordReset(ctx, codes.PasswordResetByMobile, u.Email, ch.Code.Value, "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
	err = s.CompletePasswordReset(ctx, codes.PasswordResetByMobile, u.Email, "bad", "newpass1")
	assert.ErrorIs(t, err, codes.ErrInvalidCode)

	require.NoError(t, s.CompletePasswordReset(ctx, codes.PasswordResetByMobile, u.Email, ch.Code.Value, "newpass1"))

	_, err = s.Login(ctx, u.Email, "secret1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = s.Login(ctx, u.Email, "newpass1")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	name, avatar := "Ada King", "http://files/a.png"
	_, err := s.UpdateProfile(ctx, "someone-else", u.ID, ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := s.UpdateProfile(ctx, u.ID, u.ID, ProfileUpdate{FullName: &name, Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.FullName)
	assert.Equal(t, avatar, updated.Avatar)
	assert.True(t, updated.MobileVerified)

	empty := " "
	_, err = s.UpdateProfile(ctx, u.ID, u.ID, ProfileUpdate{FullName: &empty})
	assert.ErrorIs(t, err, ErrInvalidFullname)

	mobile := "+905551112233"
	updated, err = s.UpdateProfile(ctx, u.ID, u.ID, ProfileUpdate{Mobile: &mobile})
	require.NoError(t, err)
	assert.False(t, updated.MobileVerified, "new mobile must be verified again")
}

func TestPasswordResetByEmail(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	ch, err := s.StartPasswordReset(ctx, codes.PasswordResetByEmail, u.Email)
	require.NoError(t, err)
	assert.Equal(t, "a**@example.com", ch.Destination)

	// код по почте не подходит для сброса по мобильному
	err = s.CompletePasswordReset(ctx, codes.PasswordResetByMobile, u.Email, ch.Code.Value, "newpass1")
	assert.Error(t, err)

	require.NoError(t, s.CompletePasswordReset(ctx, codes.PasswordResetByEmail, u.Email, ch.Code.Value, "newpass1"))
	_, err = s.Login(ctx, u.Email, "newpass1")
	require.NoError(t, err)

	_, err = s.StartPasswordReset(ctx, codes.Purpose("fax"), u.Email)
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	_, err := s.ChangePassword(ctx, "someone-else", u.ID, "secret1", "newpass1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ChangePassword(ctx, u.ID, u.ID, "wrong", "newpass1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = s.ChangePassword(ctx, u.ID, u.ID, "secret1", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.ChangePassword(ctx, u.ID, u.ID, "secret1", "newpass1")
	require.NoError(t, err)
	_, err = s.Login(ctx, u.Email, "secret1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = s.Login(ctx, u.Email, "newpass1")
	require.NoError(t, err)
}

func TestArchive(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, s)

	sess, err := s.Login(ctx, u.Email, "secret1")
	require.NoError(t, err)

	_, err = s.Archive(ctx, "someone-else", u.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	archived, err := s.Archive(ctx, u.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, _, err = s.Authenticate(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.Login(ctx, u.Email, "secret1")
	assert.ErrorIs(t, err, ErrUserArchived)

	// email stays taken
	_, err = s.Register(ctx, validInput())
	assert.ErrorIs(t, err, ErrEmailExists)
}
