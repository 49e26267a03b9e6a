package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/client/cooldown"
	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/client/session"
	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/logging"
)

var (
	// ErrBusy is returned while another step of the same workflow is in flight.
	ErrBusy = errors.New("another step is in progress")
	// ErrWrongState is returned for a step that the current state does not allow.
	ErrWrongState = errors.New("step not allowed in current state")
	// ErrAbandoned is returned once Abandon has been called.
	ErrAbandoned = errors.New("registration abandoned")
	// ErrResendNotEligible is returned by ResendCode before the countdown ends.
	ErrResendNotEligible = errors.New("resend not available yet")
)

// Remote is the part of the gateway the workflow calls.
type Remote interface {
	Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.RegisterResult, error)
	StartVerification(ctx context.Context, kind gateway.VerificationKind, email string) (*gateway.StartVerificationResult, error)
	CompleteVerification(ctx context.Context, kind gateway.VerificationKind, email, code string) (*gateway.CompleteVerificationResult, error)
	Login(ctx context.Context, identifier, password string) (*gateway.LoginResult, error)
	UploadAvatar(ctx context.Context, bucketToken string, avatar gateway.AvatarFile) (string, error)
	UpdateProfile(ctx context.Context, accountID string, fields gateway.ProfileUpdate) (*gateway.User, error)
	SupportedCountries(ctx context.Context) ([]gateway.Country, error)
}

type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerInfo
	BannerSuccess
	BannerError
)

type Banner struct {
	Kind BannerKind
	Text string
}

// Snapshot is what a front-end renders.
type Snapshot struct {
	State       State
	Draft       Draft
	FieldErrors map[string]string
	Banner      Banner
	Busy        bool

	// Challenge is the active verification kind, or "".
	Challenge      gateway.VerificationKind
	Destination    string
	Remaining      int
	ResendEligible bool
	// TestCode is the code echoed by backends running in test mode.
	TestCode string

	AccountID string
	Countries []gateway.Country
	Session   session.Outcome
}

type Options struct {
	Gateway Remote
	Store   session.Store
	Policy  Policy
	// Cooldown between code sends. Defaults to common.DefaultVerificationCooldown.
	Cooldown time.Duration
	Logger   logging.Logger
	// TimerOptions are passed to the resend countdown.
	TimerOptions []cooldown.Option
}

// Controller runs one registration attempt. Its methods are safe for
// concurrent use; mutating steps run one at a time.
type Controller struct {
	gw       Remote
	store    session.Store
	mat      *session.Materializer
	timer    *cooldown.Timer
	policy   Policy
	cooldown time.Duration
	log      logging.Logger

	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	draft       Draft
	fieldErrors map[string]string
	banner      Banner
	busy        bool
	abandoned   bool

	// set once registration succeeded
	accountID   string
	email       string
	fullName    string
	password    string
	bucketToken string
	adopted     *session.Credential
	pending     []gateway.VerificationKind
	destination string
	testCode    string
	outcome     session.Outcome
	countries   []gateway.Country
}

func New(opts Options) *Controller {
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = common.DefaultVerificationCooldown
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore()
	}

	life, cancel := context.WithCancel(context.Background())
	return &Controller{
		gw:          opts.Gateway,
		store:       opts.Store,
		mat:         session.NewMaterializer(opts.Gateway, opts.Store, opts.Logger),
		timer:       cooldown.New(opts.TimerOptions...),
		policy:      opts.Policy,
		cooldown:    opts.Cooldown,
		log:         opts.Logger.With("component", "registration"),
		life:        life,
		cancel:      cancel,
		fieldErrors: map[string]string{},
	}
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	ts := c.timer.State()

	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		errs[k] = v
	}
	s := Snapshot{
		State:       c.state,
		Draft:       c.draft,
		FieldErrors: errs,
		Banner:      c.banner,
		Busy:        c.busy,
		Destination: c.destination,
		TestCode:    c.testCode,
		AccountID:   c.accountID,
		Countries:   append([]gateway.Country(nil), c.countries...),
		Session:     c.outcome,
	}
	if c.state == AwaitingVerification && len(c.pending) > 0 {
		s.Challenge = c.pending[0]
		s.Remaining = ts.Remaining
		s.ResendEligible = ts.Eligible
	}
	return s
}

// ---- draft setters ----

func (c *Controller) edit(field string, fn func(d *Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return ErrAbandoned
	}
	if c.state != CollectingInfo {
		return ErrWrongState
	}
	fn(&c.draft)
	delete(c.fieldErrors, field)
	return nil
}

func (c *Controller) SetFullName(v string) error {
	return c.edit(gateway.FieldFullName, func(d *Draft) { d.FullName = v })
}

func (c *Controller) SetEmail(v string) error {
	return c.edit(gateway.FieldEmail, func(d *Draft) { d.Email = v })
}

func (c *Controller) SetCountryCode(v string) error {
	return c.edit(gateway.FieldCountryCode, func(d *Draft) { d.CountryCode = v })
}

func (c *Controller) SetNationalNumber(v string) error {
	return c.edit(gateway.FieldMobile, func(d *Draft) { d.NationalNumber = v })
}

func (c *Controller) SetPassword(v string) error {
	return c.edit(gateway.FieldPassword, func(d *Draft) { d.Password = v })
}

func (c *Controller) SetSocialCode(v string) error {
	return c.edit("", func(d *Draft) { d.SocialCode = v })
}

// ---- step plumbing ----

// begin marks the workflow busy for a step allowed in want. The returned
// context ends when either ctx or the workflow ends; done must be called.
func (c *Controller) begin(ctx context.Context, want State) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.abandoned:
		return nil, nil, ErrAbandoned
	case c.busy:
		return nil, nil, ErrBusy
	case c.state != want:
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongState, c.state)
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

// apply runs fn under the lock unless the workflow was abandoned while the
// remote call was in flight, in which case the response is dropped.
func (c *Controller) apply(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return ErrAbandoned
	}
	fn()
	return nil
}

// recordLocked converts err into a field error when the gateway attributed
// it to a field, or into a banner.
func (c *Controller) recordLocked(err error, fallback string) {
	if field := gateway.FieldOf(err); field != "" && !gateway.IsTransient(err) {
		c.fieldErrors[field] = fieldMessage(err)
		c.banner = Banner{}
		return
	}
	c.banner = Banner{Kind: BannerError, Text: bannerMessage(err, fallback)}
}

// ---- steps ----

// LoadCountries fetches the supported calling codes. The first entry becomes
// the default country code when none is chosen yet.
func (c *Controller) LoadCountries(ctx context.Context) error {
	opCtx, done, err := c.begin(ctx, CollectingInfo)
	if err != nil {
		return err
	}
	defer done()

	countries, err := c.gw.SupportedCountries(opCtx)
	if aerr := c.apply(func() {
		if err != nil {
			c.banner = Banner{Kind: BannerError, Text: msgCountriesFailed}
			return
		}
		c.countries = countries
		if c.draft.CountryCode == "" && len(countries) > 0 {
			c.draft.CountryCode = countries[0].Code
		}
	}); aerr != nil {
		return aerr
	}
	if err != nil {
		c.log.Warn(opCtx, "supported countries", "error", err)
	}
	return err
}

// SubmitInfo validates the draft and registers the account. Validation
// failures are reported per field and never reach the gateway.
func (c *Controller) SubmitInfo(ctx context.Context) error {
	opCtx, done, err := c.begin(ctx, CollectingInfo)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	draft := c.draft
	if verr := Validate(draft, c.policy); verr != nil {
		var ve *ValidationError
		errors.As(verr, &ve)
		c.fieldErrors = ve.Fields
		c.banner = Banner{}
		c.mu.Unlock()
		return verr
	}
	c.fieldErrors = map[string]string{}
	c.banner = Banner{}
	c.state = Advance(c.state, InfoValidated)
	c.mu.Unlock()

	res, err := c.gw.Register(opCtx, gateway.RegisterRequest{
		FullName:   draft.FullName,
		Email:      draft.Email,
		Password:   draft.Password,
		Mobile:     draft.Mobile(),
		IsPublic:   true,
		SocialCode: draft.SocialCode,
	})

	if aerr := c.apply(func() {
		if err != nil {
			c.recordLocked(err, msgRegistrationFailed)
			return
		}
		c.state = Advance(c.state, RegistrationSucceeded)
		c.accountID = res.AccountID
		c.email = draft.Email
		c.fullName = draft.FullName
		c.password = draft.Password
		c.bucketToken = res.UserBucketToken
		c.pending = neededKinds(res)
		c.draft = Draft{Email: draft.Email, FullName: draft.FullName}
	}); aerr != nil {
		return aerr
	}
	if err != nil {
		c.log.Warn(opCtx, "register failed", "error", err)
		return err
	}
	c.log.Info(opCtx, "account registered", "account_id", res.AccountID,
		"mobile_verification", res.MobileVerificationNeeded, "email_verification", res.EmailVerificationNeeded)

	adopted, err := c.mat.AdoptRegistration(opCtx, res, draft.Email, draft.FullName)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c.abandonedOr(err)
		}
		c.log.Error(opCtx, "store registration session", "error", err)
	}
	if aerr := c.apply(func() { c.adopted = adopted }); aerr != nil {
		return aerr
	}

	return c.nextChallenge(opCtx)
}

// neededKinds orders the required verifications: mobile first, then email.
func neededKinds(res *gateway.RegisterResult) []gateway.VerificationKind {
	var kinds []gateway.VerificationKind
	if res.MobileVerificationNeeded {
		kinds = append(kinds, gateway.KindMobile)
	}
	if res.EmailVerificationNeeded {
		kinds = append(kinds, gateway.KindEmail)
	}
	return kinds
}

// nextChallenge starts the head of the pending queue, or finishes
// verification when nothing is left.
func (c *Controller) nextChallenge(ctx context.Context) error {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return c.verified(ctx)
	}
	kind := c.pending[0]
	c.destination, c.testCode = "", ""
	c.mu.Unlock()

	// a fresh challenge never inherits the previous countdown
	c.timer.Reset()
	return c.sendCode(ctx, kind, msgCodeSent)
}

// sendCode asks the gateway for a code and restarts the countdown on
// success. On failure the countdown is left as it was.
func (c *Controller) sendCode(ctx context.Context, kind gateway.VerificationKind, okText string) error {
	c.mu.Lock()
	email := c.email
	c.mu.Unlock()

	res, err := c.gw.StartVerification(ctx, kind, email)
	if aerr := c.apply(func() {
		if err != nil {
			c.recordLocked(err, msgGeneric)
			return
		}
		c.destination = res.Destination
		c.testCode = res.SecretCode
		delete(c.fieldErrors, gateway.FieldCode)
		c.banner = Banner{Kind: BannerInfo, Text: okText}
	}); aerr != nil {
		return aerr
	}
	if err != nil {
		c.log.Warn(ctx, "start verification failed", "kind", kind, "error", err)
		return err
	}
	c.timer.Start(c.life, c.cooldown)
	c.log.Info(ctx, "verification code sent", "kind", kind)
	return nil
}

// ResendCode issues a new code for the active challenge. It is refused
// until the countdown has reached zero. A failed resend keeps resend
// eligible.
func (c *Controller) ResendCode(ctx context.Context) error {
	opCtx, done, err := c.begin(ctx, AwaitingVerification)
	if err != nil {
		return err
	}
	defer done()

	if !c.timer.Eligible() {
		_ = c.apply(func() { c.banner = Banner{Kind: BannerInfo, Text: msgResendNotYet} })
		return ErrResendNotEligible
	}

	kind, ok := c.activeKind()
	if !ok {
		return ErrWrongState
	}
	return c.sendCode(opCtx, kind, msgCodeResent)
}

func (c *Controller) activeKind() (gateway.VerificationKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return "", false
	}
	return c.pending[0], true
}

// SubmitCode completes the active challenge. Wrong or expired codes are
// reported on the code field; the countdown keeps running.
func (c *Controller) SubmitCode(ctx context.Context, code string) error {
	opCtx, done, err := c.begin(ctx, AwaitingVerification)
	if err != nil {
		return err
	}
	defer done()

	kind, ok := c.activeKind()
	if !ok {
		return ErrWrongState
	}

	c.mu.Lock()
	email := c.email
	if verr := ValidateCode(kind, code); verr != nil {
		var ve *ValidationError
		errors.As(verr, &ve)
		c.fieldErrors[gateway.FieldCode] = ve.Fields[gateway.FieldCode]
		c.mu.Unlock()
		return verr
	}
	c.mu.Unlock()

	res, err := c.gw.CompleteVerification(opCtx, kind, email, code)
	if err == nil && !res.Verified {
		err = &gateway.APIError{Kind: gateway.ErrInvalidCode, Field: gateway.FieldCode, Message: msgCodeNotVerified}
	}

	if aerr := c.apply(func() {
		if err != nil {
			if errors.Is(err, gateway.ErrInvalidCode) || errors.Is(err, gateway.ErrExpiredCode) {
				c.fieldErrors[gateway.FieldCode] = fieldMessage(err)
				c.banner = Banner{}
				return
			}
			c.recordLocked(err, msgGeneric)
			return
		}
		delete(c.fieldErrors, gateway.FieldCode)
		c.pending = c.pending[1:]
	}); aerr != nil {
		return aerr
	}
	if err != nil {
		c.log.Warn(opCtx, "complete verification failed", "kind", kind, "error", err)
		return err
	}
	c.log.Info(opCtx, "verification completed", "kind", kind)

	return c.nextChallenge(opCtx)
}

// verified moves to CollectingAvatar and then tries to log in. The login
// outcome is recorded but never holds the workflow back.
func (c *Controller) verified(ctx context.Context) error {
	var at session.Attempt
	if aerr := c.apply(func() {
		c.state = Advance(c.state, VerificationSucceeded)
		c.destination, c.testCode = "", ""
		at = session.Attempt{AccountID: c.accountID, Email: c.email, Password: c.password, Adopted: c.adopted}
	}); aerr != nil {
		return aerr
	}
	c.timer.Stop()

	outcome, err := c.mat.AfterVerification(ctx, at)
	if errors.Is(err, context.Canceled) {
		return c.abandonedOr(err)
	}

	return c.apply(func() {
		c.outcome = outcome
		c.password = ""
		if err != nil {
			c.log.Warn(ctx, "post-verification login failed", "error", err)
			c.banner = Banner{Kind: BannerInfo, Text: msgLoginLater}
			return
		}
		c.banner = Banner{Kind: BannerSuccess, Text: msgVerified}
	})
}

// UploadOrSkipAvatar finishes the workflow. With a nil avatar it completes
// straight away. Upload or profile failures are shown in the banner and the
// workflow still completes.
func (c *Controller) UploadOrSkipAvatar(ctx context.Context, avatar *gateway.AvatarFile) error {
	opCtx, done, err := c.begin(ctx, CollectingAvatar)
	if err != nil {
		return err
	}
	defer done()

	if avatar == nil {
		return c.finish(Banner{})
	}

	banner := Banner{Kind: BannerSuccess, Text: msgAvatarSaved}
	if err := c.uploadAvatar(opCtx, *avatar); err != nil {
		if errors.Is(err, context.Canceled) {
			return c.abandonedOr(err)
		}
		c.log.Warn(opCtx, "avatar not saved", "error", err)
		banner = Banner{Kind: BannerError, Text: msgAvatarFailed}
	}
	return c.finish(banner)
}

func (c *Controller) uploadAvatar(ctx context.Context, avatar gateway.AvatarFile) error {
	c.mu.Lock()
	accountID, token := c.accountID, c.bucketToken
	c.mu.Unlock()

	// a login after verification may have issued a fresher grant
	if cred, err := c.store.Load(ctx); err == nil && cred.BucketToken != "" && cred.BelongsTo(accountID, "") {
		token = cred.BucketToken
	}

	url, err := c.gw.UploadAvatar(ctx, token, avatar)
	if err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}
	if _, err := c.gw.UpdateProfile(ctx, accountID, gateway.ProfileUpdate{Avatar: &url}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	c.log.Info(ctx, "avatar saved", "account_id", accountID)
	return nil
}

func (c *Controller) finish(b Banner) error {
	return c.apply(func() {
		c.state = Advance(c.state, AvatarHandled)
		c.banner = b
		c.pending = nil
		c.password = ""
	})
}

// abandonedOr reports ErrAbandoned when the workflow was abandoned, err
// otherwise.
func (c *Controller) abandonedOr(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return ErrAbandoned
	}
	c.banner = Banner{Kind: BannerError, Text: bannerMessage(err, msgGeneric)}
	return err
}

// Abandon tears the workflow down: the countdown stops, in-flight calls are
// cancelled and any response that still arrives is dropped.
func (c *Controller) Abandon() {
	c.mu.Lock()
	c.abandoned = true
	c.draft = Draft{}
	c.password = ""
	c.mu.Unlock()

	c.cancel()
	c.timer.Stop()
}
