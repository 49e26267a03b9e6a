package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) AccessToken(context.Context) (string, error) { return "", errors.New("db closed") }

func newTestGateway(t *testing.T, h http.HandlerFunc, tokens TokenSource) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(srv.URL+"/", "public-user-bucket", 2*time.Second, tokens, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRegister_SendsBodyAndDecodes(t *testing.T) {
	var got map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth-api/v1/registeruser", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{
			"userId":                   "u-1",
			"mobileVerificationNeeded": true,
			"emailVerificationNeeded":  false,
		})
	}, nil)

	res, err := g.Register(context.Background(), RegisterRequest{
		FullName: "Ann Lee", Email: "ann@x.io", Password: "secret1", Mobile: "+15551234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.AccountID)
	assert.True(t, res.MobileVerificationNeeded)
	assert.False(t, res.EmailVerificationNeeded)

	assert.Equal(t, "Ann Lee", got["fullname"])
	assert.Equal(t, "+15551234567", got["mobile"])
}

func TestRegister_AccountIDFromUser(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u-9", "email": "a@b.co"}})
	}, nil)

	res, err := g.Register(context.Background(), RegisterRequest{Email: "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "u-9", res.AccountID)
}

func TestDo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      any
		wantKind  error
		wantField string
	}{
		{"duplicate email", http.StatusBadRequest, map[string]any{"result": "ERR", "errCode": "EmailAlreadyExists", "message": "taken"}, ErrDuplicateEmail, FieldEmail},
		{"duplicate mobile", http.StatusBadRequest, map[string]any{"result": "ERR", "errCode": "MobileAlreadyExists"}, ErrDuplicateMobile, FieldMobile},
		{"weak password", http.StatusBadRequest, map[string]any{"errCode": "WeakPassword"}, ErrWeakPassword, FieldPassword},
		{"unknown code 400", http.StatusBadRequest, map[string]any{"errCode": "Whatever"}, ErrGeneric, ""},
		{"401 plain", http.StatusUnauthorized, map[string]any{}, ErrUnauthorized, ""},
		{"429", http.StatusTooManyRequests, map[string]any{}, ErrRateLimited, ""},
		{"500", http.StatusInternalServerError, "boom", ErrUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, nil)

			_, err := g.Register(context.Background(), RegisterRequest{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantField, FieldOf(err))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestDo_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewHTTPGateway(url, "b", time.Second, nil, nil)
	_, err := g.Login(context.Background(), "a@b.co", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTransient(err))
}

func TestDo_ContextCanceledIsReturnedAsIs(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Login(ctx, "a@b.co", "pw")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestDo_AttachesBearerToken(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth-api/currentuser", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"userId": "u-1", "email": "a@b.co", "accessToken": "tok-1"})
	}, staticToken("tok-1"))

	res, err := g.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.UserID)
}

func TestDo_TokenSourceError(t *testing.T) {
	called := false
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, failingToken{})

	err := g.Logout(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read access token")
	assert.False(t, called)
}

func TestStartVerification_PathAndDestination(t *testing.T) {
	for _, kind := range []VerificationKind{KindMobile, KindEmail} {
		t.Run(string(kind), func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth-api/verification-services/"+string(kind)+"-verification/start", r.URL.Path)
				var in map[string]string
				_ = json.NewDecoder(r.Body).Decode(&in)
				assert.Equal(t, "a@b.co", in["email"])
				writeJSON(w, http.StatusOK, map[string]any{
					"codeIndex": 1, "timeStamp": 1700000000000, "expireTime": 300,
					string(kind): "dest-" + string(kind),
				})
			}, nil)

			res, err := g.StartVerification(context.Background(), kind, "a@b.co")
			require.NoError(t, err)
			assert.Equal(t, 300, res.ExpireTime)
			assert.Equal(t, "dest-"+string(kind), res.Destination)
		})
	}
}

func TestStartVerification_UnknownKind(t *testing.T) {
	g := NewHTTPGateway("http://127.0.0.1:1", "b", time.Second, nil, nil)
	_, err := g.StartVerification(context.Background(), VerificationKind("fax"), "a@b.co")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestCompleteVerification_InvalidCode(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "123456", in["secretCode"])
		writeJSON(w, http.StatusForbidden, map[string]any{"errCode": "InvalidVerificationCode"})
	}, nil)

	_, err := g.CompleteVerification(context.Background(), KindMobile, "a@b.co", "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, FieldCode, FieldOf(err))
}

func TestLogin_MissingTokenIsError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"userId": "u-1"})
	}, nil)

	_, err := g.Login(context.Background(), "a@b.co", "pw")
	assert.ErrorIs(t, err, ErrGeneric)
}

func TestUploadAvatar(t *testing.T) {
	t.Run("missing bucket token makes no request", func(t *testing.T) {
		called := false
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) { called = true }, nil)

		_, err := g.UploadAvatar(context.Background(), "", AvatarFile{Name: "a.png", Data: []byte{1}})
		assert.ErrorIs(t, err, ErrBucketTokenMissing)
		assert.False(t, called)
	})

	t.Run("ok", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bucket/upload", r.URL.Path)
			assert.Equal(t, "Bearer bucket-1", r.Header.Get("Authorization"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "public-user-bucket", r.FormValue("bucketId"))
			f, hdr, err := r.FormFile("files")
			require.NoError(t, err)
			defer f.Close()
			data, _ := io.ReadAll(f)
			assert.Equal(t, "a.png", hdr.Filename)
			assert.Equal(t, []byte("png"), data)
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    []map[string]any{{"fileId": "f1", "downloadUrl": "https://cdn/f1"}},
			})
		}, nil)

		url, err := g.UploadAvatar(context.Background(), "bucket-1", AvatarFile{Name: "a.png", ContentType: "image/png", Data: []byte("png")})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/f1", url)
	})

	t.Run("rejected token", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{})
		}, nil)

		_, err := g.UploadAvatar(context.Background(), "stale", AvatarFile{Name: "a.png", Data: []byte{1}})
		assert.ErrorIs(t, err, ErrBucketTokenMissing)
	})

	t.Run("empty data", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
		}, nil)

		_, err := g.UploadAvatar(context.Background(), "b", AvatarFile{Name: "a.png", Data: []byte{1}})
		assert.ErrorIs(t, err, ErrGeneric)
	})
}

func TestUpdateProfile(t *testing.T) {
	avatar := "https://cdn/f1"
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/auth-api/v1/profile/u-1", r.URL.Path)
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, map[string]any{"avatar": avatar}, in)
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u-1", "avatar": avatar}})
	}, staticToken("tok"))

	u, err := g.UpdateProfile(context.Background(), "u-1", ProfileUpdate{Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, avatar, u.Avatar)
}

func TestSupportedCountries_Sorted(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/masasettings-api/v1/supportedcountries", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"supportedCountries": []map[string]any{
			{"id": "2", "code": "+44", "country": "UK", "sortOrder": 2},
			{"id": "1", "code": "+1", "country": "US", "sortOrder": 1},
		}})
	}, nil)

	cs, err := g.SupportedCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "+1", cs[0].Code)
	assert.Equal(t, "+44", cs[1].Code)
}

func TestSocialLoginResult(t *testing.T) {
	t.Run("register needed", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"type":        SocialRegisterNeeded,
				"accountInfo": map[string]any{"email": "a@b.co", "fullname": "A B"},
			})
		}, nil)

		res, err := g.SocialLoginResult(context.Background(), "sc-1")
		require.NoError(t, err)
		assert.Equal(t, SocialRegisterNeeded, res.Type)
		assert.Equal(t, "sc-1", res.SocialCode)
		assert.Equal(t, "a@b.co", res.AccountInfo.Email)
		assert.Nil(t, res.Session)
	})

	t.Run("session", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"userId": "u-1", "accessToken": "tok"})
		}, nil)

		res, err := g.SocialLoginResult(context.Background(), "sc-1")
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.Equal(t, "tok", res.Session.AccessToken)
	})

	t.Run("error in 200 body", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"result": "ERR", "errCode": "UserIsBlocked"})
		}, nil)

		_, err := g.SocialLoginResult(context.Background(), "sc-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestPasswordReset(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		switch r.URL.Path {
		case "/auth-api/verification-services/password-reset-by-mobile/start":
			writeJSON(w, http.StatusOK, map[string]any{"codeIndex": 1, "expireTime": 300, "mobile": "+1***67"})
		case "/auth-api/verification-services/password-reset-by-mobile/complete":
			assert.Equal(t, "newpass1", in["password"])
			writeJSON(w, http.StatusOK, map[string]any{"isVerified": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, nil)

	start, err := g.StartPasswordReset(context.Background(), KindMobile, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "+1***67", start.Destination)

	done, err := g.CompletePasswordReset(context.Background(), KindMobile, "a@b.co", "123456", "newpass1")
	require.NoError(t, err)
	assert.True(t, done.Verified)
}

func TestPasswordResetByEmail(t *testing.T) {
	var paths []string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"codeIndex": 1, "email": "a@b.co", "isVerified": true})
	}, nil)

	start, err := g.StartPasswordReset(context.Background(), KindEmail, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", start.Destination)

	_, err = g.CompletePasswordReset(context.Background(), KindEmail, "a@b.co", "123456", "newpass1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/auth-api/verification-services/password-reset-by-email/start",
		"/auth-api/verification-services/password-reset-by-email/complete",
	}, paths)

	_, err = g.StartPasswordReset(context.Background(), VerificationKind("fax"), "a@b.co")
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.Len(t, paths, 2)
}

func TestUpdatePasswordAndArchive(t *testing.T) {
	active := false
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/auth-api/v1/userpassword/u-1":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			assert.Equal(t, map[string]string{"oldPassword": "old1234", "newPassword": "new1234"}, in)
			writeJSON(w, http.StatusOK, map[string]any{"userId": "u-1", "user": map[string]any{"id": "u-1"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/auth-api/v1/archiveprofile/u-1":
			writeJSON(w, http.StatusOK, map[string]any{"userId": "u-1", "user": map[string]any{"id": "u-1", "isActive": active}})
		case r.URL.Path == "/auth-api/v1/userpassword/u-2":
			writeJSON(w, http.StatusUnauthorized, map[string]any{"result": "ERR", "errCode": "WrongPassword"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}, staticToken("tok"))

	u, err := g.UpdatePassword(context.Background(), "u-1", "old1234", "new1234")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	u, err = g.ArchiveProfile(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, u.IsActive)
	assert.False(t, *u.IsActive)

	_, err = g.UpdatePassword(context.Background(), "u-2", "bad", "new1234")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, FieldPassword, FieldOf(err))
}

func TestAPIError_Error(t *testing.T) {
	e := &APIError{Kind: ErrDuplicateEmail, Code: "EmailAlreadyExists", Message: "taken"}
	assert.Equal(t, "email already registered: taken (EmailAlreadyExists)", e.Error())

	e = &APIError{Kind: ErrGeneric}
	assert.Equal(t, "gateway error", e.Error())
}

func TestCompleteVerification_Bare403IsInvalidCode(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"result": "ERR", "message": "code mismatch"})
	}, nil)

	_, err := g.CompleteVerification(context.Background(), KindEmail, "a@b.co", "x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = g.CompletePasswordReset(context.Background(), KindMobile, "a@b.co", "x", "pw")
	assert.ErrorIs(t, err, ErrInvalidCode)

	// start steps keep 403 as rate limiting
	_, err = g.StartPasswordReset(context.Background(), KindMobile, "a@b.co")
	assert.ErrorIs(t, err, ErrRateLimited)
}
