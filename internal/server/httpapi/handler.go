package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/storage"
	"github.com/dmitrijs2005/masaclient/internal/server/users"
	"github.com/gin-gonic/gin"
)

const (
	socialRegisterNeeded = "RegisterNeededForSocialLogin"
	maxUploadBytes       = 5 << 20
)

func (s *HTTPServer) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) registerUser(c *gin.Context) {
	var req registerRequest
	if !s.bind(c, &req) {
		return
	}

	s.logger.Info(c.Request.Context(), "Registration request", "email", req.Email)

	reg, err := s.users.Register(c.Request.Context(), users.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   req.Password,
		Mobile:     req.Mobile,
		IsPublic:   req.IsPublic,
		SocialCode: req.SocialCode,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := registerResponse{
		UserID:                   reg.User.ID,
		User:                     toUserDTO(reg.User),
		EmailVerificationNeeded:  reg.EmailVerificationNeeded,
		MobileVerificationNeeded: reg.MobileVerificationNeeded,
	}
	if reg.Session != nil {
		resp.AccessToken = reg.Session.AccessToken
		resp.UserBucketToken = reg.Session.BucketToken
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", reg.User.ID)
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	ls, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(ls))
}

func (s *HTTPServer) logout(c *gin.Context) {
	sess, _ := currentSession(c)
	if err := s.users.Logout(c.Request.Context(), sess.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "OK"})
}

func (s *HTTPServer) currentUser(c *gin.Context) {
	sess, user := currentSession(c)
	ls, err := s.users.Current(sess, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	ls.AccessToken = c.GetString(tokenKey)
	c.JSON(http.StatusOK, toLoginResponse(ls))
}

func (s *HTTPServer) challenge(ch *users.Challenge, kind string) startResponse {
	resp := startResponse{
		CodeIndex:        ch.Code.Index,
		TimeStamp:        ch.Code.IssuedAt.UnixMilli(),
		ExpireTime:       int(ch.Code.ExpiresAt.Sub(ch.Code.IssuedAt).Seconds()),
		VerificationType: kind,
		Destination:      ch.Destination,
	}
	if s.config.TestMode {
		resp.SecretCode = ch.Code.Value
	}
	return resp
}

func (s *HTTPServer) startVerification(purpose codes.Purpose) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startRequest
		if !s.bind(c, &req) {
			return
		}
		ch, err := s.users.StartVerification(c.Request.Context(), purpose, req.Email)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.logger.Info(c.Request.Context(), "verification code issued", "purpose", purpose, "index", ch.Code.Index)
		c.JSON(http.StatusOK, s.challenge(ch, "byCode"))
	}
}

func (s *HTTPServer) completeVerification(purpose codes.Purpose) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req completeRequest
		if !s.bind(c, &req) {
			return
		}
		if err := s.users.CompleteVerification(c.Request.Context(), purpose, req.Email, req.SecretCode); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, completeResponse{IsVerified: true})
	}
}

func (s *HTTPServer) startPasswordReset(purpose codes.Purpose) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startRequest
		if !s.bind(c, &req) {
			return
		}
		ch, err := s.users.StartPasswordReset(c.Request.Context(), purpose, req.Email)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.logger.Info(c.Request.Context(), "password reset code issued", "purpose", purpose, "index", ch.Code.Index)
		c.JSON(http.StatusOK, s.challenge(ch, "byCode"))
	}
}

func (s *HTTPServer) completePasswordReset(purpose codes.Purpose) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req completeRequest
		if !s.bind(c, &req) {
			return
		}
		err := s.users.CompletePasswordReset(c.Request.Context(), purpose, req.Email, req.SecretCode, req.Password)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, completeResponse{IsVerified: true})
	}
}

func (s *HTTPServer) updatePassword(c *gin.Context) {
	var req passwordRequest
	if !s.bind(c, &req) {
		return
	}
	_, actor := currentSession(c)
	u, err := s.users.ChangePassword(c.Request.Context(), actor.ID, c.Param("id"), req.OldPassword, req.NewPassword)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userEnvelope{UserID: u.ID, User: toUserDTO(u)})
}

func (s *HTTPServer) archiveProfile(c *gin.Context) {
	_, actor := currentSession(c)
	u, err := s.users.Archive(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info(c.Request.Context(), "account archived", "user_id", u.ID)
	c.JSON(http.StatusOK, userEnvelope{UserID: u.ID, User: toUserDTO(u)})
}

func (s *HTTPServer) updateProfile(c *gin.Context) {
	var req profileRequest
	if !s.bind(c, &req) {
		return
	}
	_, actor := currentSession(c)
	u, err := s.users.UpdateProfile(c.Request.Context(), actor.ID, c.Param("id"), users.ProfileUpdate{
		FullName: req.FullName,
		Avatar:   req.Avatar,
		Mobile:   req.Mobile,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userEnvelope{UserID: u.ID, User: toUserDTO(u)})
}

func (s *HTTPServer) supportedCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supportedCountries": supportedCountries})
}

// socialLoginResult reports its failures inside a 200 body.
func (s *HTTPServer) socialLoginResult(c *gin.Context) {
	var req socialRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.users.SocialLoginResult(c.Request.Context(), req.SocialCode)
	if err != nil {
		status, errCode := lookupError(err)
		c.JSON(http.StatusOK, errorResponse{Result: "ERR", Status: status, ErrCode: errCode, Message: err.Error()})
		return
	}
	if res.Session != nil {
		c.JSON(http.StatusOK, toLoginResponse(res.Session))
		return
	}
	c.JSON(http.StatusOK, socialRegisterResponse{
		Type:        socialRegisterNeeded,
		SocialCode:  req.SocialCode,
		AccountInfo: accountInfo{Email: res.Account.Email, FullName: res.Account.FullName},
	})
}

// addSocialAccount stands in for the provider callback in test mode. A
// code is generated when none is given.
func (s *HTTPServer) addSocialAccount(c *gin.Context) {
	var req socialAccountRequest
	if !s.bind(c, &req) {
		return
	}
	if req.SocialCode == "" {
		code, err := common.MakeRandHexString(16)
		if err != nil {
			s.fail(c, err)
			return
		}
		req.SocialCode = code
	}
	s.users.AddSocialAccount(req.SocialCode, users.SocialAccount{Email: req.Email, FullName: req.FullName})
	c.JSON(http.StatusOK, gin.H{"result": "OK", "socialCode": req.SocialCode})
}

func (s *HTTPServer) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		abort(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	if ids := form.Value["bucketId"]; len(ids) == 0 || ids[0] != s.config.BucketID {
		abort(c, http.StatusBadRequest, errCodeInvalidBucket, "unknown bucket")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		abort(c, http.StatusBadRequest, errCodeBadRequest, "no files")
		return
	}

	owner := c.GetString(ownerKey)
	resp := uploadResponse{Success: true}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.fail(c, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.fail(c, err)
			return
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		key := storage.NewKey(owner, fh.Filename)
		url, err := s.avatars.Put(c.Request.Context(), key, contentType, data)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp.Data = append(resp.Data, uploadedFile{FileID: key, DownloadURL: url})
	}

	s.logger.Info(c.Request.Context(), "files uploaded", "owner", owner, "count", len(resp.Data))
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) download(mem *storage.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		o, err := mem.Get(c.Request.Context(), key)
		if errors.Is(err, common.ErrorNotFound) {
			abort(c, http.StatusNotFound, "FileNotFound", "no such file")
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, o.ContentType, o.Data)
	}
}
