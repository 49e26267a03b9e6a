// Package passwordreset runs the "forgot password" flow: a code is sent to
// the mobile number or the email address bound to an account, and the new
// password is set with it. Resends share the cooldown rules of registration.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/client/cooldown"
	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/registration"
	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

const FieldConfirm = "passwordConfirm"

const (
	msgEmailInvalid    = "Enter a valid email address."
	msgPasswordsDiffer = "Passwords do not match."
	msgCodeSent        = "A reset code was sent to your phone."
	msgCodeResent      = "A new reset code was sent. Please check your phone."
	msgMailSent        = "A reset code was sent to your email."
	msgMailResent      = "A new reset code was sent. Please check your inbox."
	msgResetDone       = "Your password was reset. Sign in with the new password."
	msgResetFailed     = "Password could not be reset. Please try again."
	msgWait            = "Please wait before requesting a new code."
	msgTooFrequent     = "Too many requests. Please wait."
	msgCodeRejected    = "The code is wrong or has expired. Please try again."
)

type Stage int

const (
	RequestingCode Stage = iota
	AwaitingCode
	Done
)

// Remote is the part of the gateway the reset flow calls.
type Remote interface {
	StartPasswordReset(ctx context.Context, kind gateway.VerificationKind, email string) (*gateway.StartVerificationResult, error)
	CompletePasswordReset(ctx context.Context, kind gateway.VerificationKind, email, code, password string) (*gateway.CompleteVerificationResult, error)
}

type Snapshot struct {
	Stage          Stage
	Email          string
	Destination    string
	TestCode       string
	Remaining      int
	ResendEligible bool
	FieldErrors    map[string]string
	Banner         registration.Banner
	Busy           bool
}

type Options struct {
	Gateway Remote
	// Method is the channel the code goes to; mobile when empty.
	Method            gateway.VerificationKind
	Cooldown          time.Duration
	PasswordMinLength int
	Logger            logging.Logger
	TimerOptions      []cooldown.Option
}

type Controller struct {
	gw        Remote
	method    gateway.VerificationKind
	timer     *cooldown.Timer
	cooldown  time.Duration
	minLength int
	log       logging.Logger

	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	stage       Stage
	email       string
	destination string
	testCode    string
	fieldErrors map[string]string
	banner      registration.Banner
	busy        bool
	abandoned   bool
}

func New(opts Options) *Controller {
	if opts.Cooldown <= 0 {
		opts.Cooldown = common.DefaultVerificationCooldown
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = common.DefaultPasswordMinLength
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Method == "" {
		opts.Method = gateway.KindMobile
	}
	life, cancel := context.WithCancel(context.Background())
	return &Controller{
		gw:          opts.Gateway,
		method:      opts.Method,
		timer:       cooldown.New(opts.TimerOptions...),
		cooldown:    opts.Cooldown,
		minLength:   opts.PasswordMinLength,
		log:         opts.Logger.With("component", "password-reset", "method", opts.Method),
		life:        life,
		cancel:      cancel,
		fieldErrors: map[string]string{},
	}
}

func (c *Controller) Snapshot() Snapshot {
	ts := c.timer.State()

	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		errs[k] = v
	}
	s := Snapshot{
		Stage:       c.stage,
		Email:       c.email,
		Destination: c.destination,
		TestCode:    c.testCode,
		FieldErrors: errs,
		Banner:      c.banner,
		Busy:        c.busy,
	}
	if c.stage == AwaitingCode {
		s.Remaining, s.ResendEligible = ts.Remaining, ts.Eligible
	}
	return s
}

func (c *Controller) begin(ctx context.Context, want Stage) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.abandoned:
		return nil, nil, registration.ErrAbandoned
	case c.busy:
		return nil, nil, registration.ErrBusy
	case c.stage != want:
		return nil, nil, registration.ErrWrongState
	}
	c.busy = true
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return opCtx, func() {
		stop()
		cancel()
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}, nil
}

// Start requests a reset code for email.
func (c *Controller) Start(ctx context.Context, email string) error {
	opCtx, done, err := c.begin(ctx, RequestingCode)
	if err != nil {
		return err
	}
	defer done()

	email = strings.TrimSpace(email)
	if !registration.ValidEmail(email) {
		fields := map[string]string{gateway.FieldEmail: msgEmailInvalid}
		c.mu.Lock()
		c.fieldErrors = fields
		c.mu.Unlock()
		return &registration.ValidationError{Fields: fields}
	}

	return c.send(opCtx, email, c.sentText(false))
}

// Method reports the channel codes are sent to.
func (c *Controller) Method() gateway.VerificationKind { return c.method }

func (c *Controller) sentText(resend bool) string {
	switch {
	case c.method == gateway.KindEmail && resend:
		return msgMailResent
	case c.method == gateway.KindEmail:
		return msgMailSent
	case resend:
		return msgCodeResent
	default:
		return msgCodeSent
	}
}

// Resend issues a new code once the countdown has reached zero.
func (c *Controller) Resend(ctx context.Context) error {
	opCtx, done, err := c.begin(ctx, AwaitingCode)
	if err != nil {
		return err
	}
	defer done()

	if !c.timer.Eligible() {
		c.mu.Lock()
		c.banner = registration.Banner{Kind: registration.BannerInfo, Text: msgWait}
		c.mu.Unlock()
		return registration.ErrResendNotEligible
	}

	c.mu.Lock()
	email := c.email
	c.mu.Unlock()
	return c.send(opCtx, email, c.sentText(true))
}

func (c *Controller) send(ctx context.Context, email, okText string) error {
	res, err := c.gw.StartPasswordReset(ctx, c.method, email)

	c.mu.Lock()
	if c.abandoned {
		c.mu.Unlock()
		return registration.ErrAbandoned
	}
	if err != nil {
		c.banner = registration.Banner{Kind: registration.BannerError, Text: sendFailure(err)}
		if f := gateway.FieldOf(err); f != "" {
			c.fieldErrors[f] = c.banner.Text
		}
		c.mu.Unlock()
		c.log.Warn(ctx, "start password reset failed", "error", err)
		return err
	}
	c.stage = AwaitingCode
	c.email = email
	c.destination = res.Destination
	c.testCode = res.SecretCode
	c.fieldErrors = map[string]string{}
	c.banner = registration.Banner{Kind: registration.BannerInfo, Text: okText}
	c.mu.Unlock()

	c.timer.Start(c.life, c.cooldown)
	c.log.Info(ctx, "password reset code sent")
	return nil
}

func sendFailure(err error) string {
	if errors.Is(err, gateway.ErrRateLimited) {
		return msgTooFrequent
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "The code could not be sent."
}

// Complete sets the new password. confirm must equal password.
func (c *Controller) Complete(ctx context.Context, code, password, confirm string) error {
	opCtx, done, err := c.begin(ctx, AwaitingCode)
	if err != nil {
		return err
	}
	defer done()

	fields := map[string]string{}
	if verr := registration.ValidateCode(c.method, code); verr != nil {
		var ve *registration.ValidationError
		errors.As(verr, &ve)
		fields[gateway.FieldCode] = ve.Fields[gateway.FieldCode]
	}
	if password != confirm {
		fields[FieldConfirm] = msgPasswordsDiffer
	} else if msg := registration.ValidatePassword(password, c.minLength); msg != "" {
		fields[gateway.FieldPassword] = msg
	}
	if len(fields) > 0 {
		c.mu.Lock()
		c.fieldErrors = fields
		c.mu.Unlock()
		return &registration.ValidationError{Fields: fields}
	}

	c.mu.Lock()
	email := c.email
	c.mu.Unlock()

	res, err := c.gw.CompletePasswordReset(opCtx, c.method, email, strings.TrimSpace(code), password)
	if err == nil && !res.Verified {
		err = &gateway.APIError{Kind: gateway.ErrGeneric, Message: msgResetFailed}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return registration.ErrAbandoned
	}
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidCode), errors.Is(err, gateway.ErrExpiredCode):
			c.fieldErrors = map[string]string{gateway.FieldCode: msgCodeRejected}
		case errors.Is(err, gateway.ErrWeakPassword):
			c.fieldErrors = map[string]string{gateway.FieldPassword: "Password is too weak."}
		default:
			c.banner = registration.Banner{Kind: registration.BannerError, Text: msgResetFailed}
		}
		return fmt.Errorf("complete password reset: %w", err)
	}

	c.stage = Done
	c.fieldErrors = map[string]string{}
	c.banner = registration.Banner{Kind: registration.BannerSuccess, Text: msgResetDone}
	c.testCode = ""
	c.timer.Stop()
	return nil
}

// Abandon stops the countdown and drops any response still in flight.
func (c *Controller) Abandon() {
	c.mu.Lock()
	c.abandoned = true
	c.mu.Unlock()
	c.cancel()
	c.timer.Stop()
}
