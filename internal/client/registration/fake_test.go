package registration

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/client/cooldown"
	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
)

// ---- fake gateway ----

type call struct {
	Op   string
	Kind gateway.VerificationKind
	Arg  string
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []call

	registerRes *gateway.RegisterResult
	registerErr error
	// registerGate, when set, blocks Register until closed; registerStarted is
	// closed when Register is entered.
	registerGate    chan struct{}
	registerStarted chan struct{}

	startErrs   []error // consumed one per StartVerification call
	completeRes *gateway.CompleteVerificationResult
	completeErr error

	loginRes *gateway.LoginResult
	loginErr error

	uploadURL string
	uploadErr error
	updateErr error

	countries    []gateway.Country
	countriesErr error
}

func (f *fakeRemote) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeRemote) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		if c.Kind != "" {
			out = append(out, c.Op+":"+string(c.Kind))
		} else {
			out = append(out, c.Op)
		}
	}
	return out
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) lastArg(op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == op {
			return f.calls[i].Arg
		}
	}
	return ""
}

func (f *fakeRemote) Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.RegisterResult, error) {
	f.record(call{Op: "register", Arg: req.Mobile})
	if f.registerStarted != nil {
		close(f.registerStarted)
	}
	if f.registerGate != nil {
		<-f.registerGate
	}
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	res := *f.registerRes
	return &res, nil
}

func (f *fakeRemote) StartVerification(ctx context.Context, kind gateway.VerificationKind, email string) (*gateway.StartVerificationResult, error) {
	f.record(call{Op: "start", Kind: kind, Arg: email})
	f.mu.Lock()
	var err error
	if len(f.startErrs) > 0 {
		err, f.startErrs = f.startErrs[0], f.startErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &gateway.StartVerificationResult{CodeIndex: 1, ExpireTime: 300, Destination: "dest-" + string(kind), SecretCode: "123456"}, nil
}

func (f *fakeRemote) CompleteVerification(ctx context.Context, kind gateway.VerificationKind, email, code string) (*gateway.CompleteVerificationResult, error) {
	f.record(call{Op: "complete", Kind: kind, Arg: code})
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if f.completeRes != nil {
		return f.completeRes, nil
	}
	return &gateway.CompleteVerificationResult{Verified: true}, nil
}

func (f *fakeRemote) Login(ctx context.Context, identifier, password string) (*gateway.LoginResult, error) {
	f.record(call{Op: "login", Arg: identifier})
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.loginRes != nil {
		return f.loginRes, nil
	}
	return &gateway.LoginResult{UserID: "acc-1", Email: "ayse@example.com", AccessToken: "login-token", UserBucketToken: "bucket-login"}, nil
}

func (f *fakeRemote) UploadAvatar(ctx context.Context, bucketToken string, avatar gateway.AvatarFile) (string, error) {
	f.record(call{Op: "upload", Arg: bucketToken})
	return f.uploadURL, f.uploadErr
}

func (f *fakeRemote) UpdateProfile(ctx context.Context, accountID string, fields gateway.ProfileUpdate) (*gateway.User, error) {
	avatar := ""
	if fields.Avatar != nil {
		avatar = *fields.Avatar
	}
	f.record(call{Op: "profile", Arg: accountID + "|" + avatar})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &gateway.User{ID: accountID, Avatar: avatar}, nil
}

func (f *fakeRemote) SupportedCountries(ctx context.Context) ([]gateway.Country, error) {
	f.record(call{Op: "countries"})
	return f.countries, f.countriesErr
}

// ---- manual clock ----

type stepTicker struct {
	c chan time.Time
}

func (s *stepTicker) C() <-chan time.Time { return s.c }
func (s *stepTicker) Stop()               {}

type stepClock struct {
	mu      sync.Mutex
	tickers []*stepTicker
}

func (s *stepClock) NewTicker(time.Duration) cooldown.Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &stepTicker{c: make(chan time.Time)}
	s.tickers = append(s.tickers, t)
	return t
}

func (s *stepClock) latest() *stepTicker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickers[len(s.tickers)-1]
}

func (s *stepClock) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickers)
}
