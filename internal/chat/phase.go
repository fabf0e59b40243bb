package chat

// Phase is a step of one send. Every send starts and ends in PhaseIdle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSafetyCheck
	PhaseBlocked
	PhaseConfigCheck
	PhaseConfigMissing
	PhaseUsageCheck
	PhaseExhausted
	PhaseSending
	PhaseSuccess
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:          "idle",
	PhaseSafetyCheck:   "safety_check",
	PhaseBlocked:       "blocked",
	PhaseConfigCheck:   "config_check",
	PhaseConfigMissing: "config_missing",
	PhaseUsageCheck:    "usage_check",
	PhaseExhausted:     "exhausted",
	PhaseSending:       "sending",
	PhaseSuccess:       "success",
	PhaseFailed:        "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// ToneKind selects the notification sound for a send or a reply.
type ToneKind int

const (
	ToneSend ToneKind = iota
	ToneReceive
)

// Notifier plays the send and receive notifications. Failures are the
// notifier's own business and never affect a send.
type Notifier interface {
	PlayTone(kind ToneKind)
}

type nopNotifier struct{}

func (nopNotifier) PlayTone(ToneKind) {}
