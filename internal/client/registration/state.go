package registration

// State is the position of the registration workflow. It only moves
// forward.
type State int

const (
	CollectingInfo State = iota
	AwaitingVerification
	CollectingAvatar
	Complete
)

func (s State) String() string {
	switch s {
	case CollectingInfo:
		return "collecting-info"
	case AwaitingVerification:
		return "awaiting-verification"
	case CollectingAvatar:
		return "collecting-avatar"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Trigger is an event fed to Advance.
type Trigger int

const (
	InfoValidated Trigger = iota
	RegistrationSucceeded
	VerificationSucceeded
	AvatarHandled
)

func (t Trigger) String() string {
	switch t {
	case InfoValidated:
		return "info-validated"
	case RegistrationSucceeded:
		return "registration-succeeded"
	case VerificationSucceeded:
		return "verification-succeeded"
	case AvatarHandled:
		return "avatar-handled"
	default:
		return "unknown"
	}
}

// transitions is the whole state machine. InfoValidated keeps the workflow
// in CollectingInfo; it only opens the register call.
var transitions = map[State]map[Trigger]State{
	CollectingInfo: {
		InfoValidated:         CollectingInfo,
		RegistrationSucceeded: AwaitingVerification,
	},
	AwaitingVerification: {
		VerificationSucceeded: CollectingAvatar,
	},
	CollectingAvatar: {
		AvatarHandled: Complete,
	},
}

// Advance returns the state after trigger. Triggers that are not valid in
// s leave it unchanged.
func Advance(s State, trigger Trigger) State {
	if next, ok := transitions[s][trigger]; ok {
		return next
	}
	return s
}

// Accepts reports whether trigger is valid in s.
func Accepts(s State, trigger Trigger) bool {
	_, ok := transitions[s][trigger]
	return ok
}
