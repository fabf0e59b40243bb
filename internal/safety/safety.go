// Package safety flags crisis and abuse language before a message reaches the
// model. Detection is a static, case-insensitive substring match: it errs
// toward caution and will flag phrases like "kill myself at this game".
package safety

import "strings"

// Verdict is the outcome of scanning one message.
type Verdict int

const (
	None Verdict = iota
	Crisis
	Abuse
)

func (v Verdict) String() string {
	switch v {
	case Crisis:
		return "crisis"
	case Abuse:
		return "abuse"
	default:
		return "none"
	}
}

var crisisKeywords = []string{
	"kill myself",
	"suicide",
	"end it all",
	"hurt myself",
	"self harm",
	"want to die",
	"better off dead",
	"no point living",
	"can't take this anymore",
	"cant take this anymore",
	"can't do this anymore",
	"cant do this anymore",
	"i give up",
	"i'm done with life",
	"im done with life",
}

var abuseKeywords = []string{
	"hits me",
	"beats me",
	"physically abusive",
	"threatens to kill",
	"punches",
	"violent",
}

// CrisisResponse is appended instead of calling the model when crisis
// language is detected.
const CrisisResponse = "I'm hearing crisis language. Please reach out to trained professionals right now:\n\n" +
	"• Suicide & Crisis Lifeline: 988\n" +
	"• Crisis Text Line: Text HOME to 741741\n" +
	"• Emergency services: 911\n\n" +
	"I care about your safety and can't handle emergencies. Please contact someone who can help immediately."

// AbuseResponse is appended instead of calling the model when violence is
// described.
const AbuseResponse = "I'm hearing that you may be in a situation involving physical harm or violence. Your safety is the most important thing. Please consider:\n\n" +
	"• National Domestic Violence Hotline: 1-800-799-7233\n" +
	"• Emergency services: 911\n\n" +
	"I can provide emotional support and guidance, but if you're in danger, please reach out to professionals who can help ensure your safety."

// DetectCrisis reports whether message contains suicide or self-harm phrases.
func DetectCrisis(message string) bool {
	return containsAny(message, crisisKeywords)
}

// DetectAbuse reports whether message describes physical violence.
func DetectAbuse(message string) bool {
	return containsAny(message, abuseKeywords)
}

// Scan runs both detectors. Crisis wins when both match.
func Scan(message string) Verdict {
	switch {
	case DetectCrisis(message):
		return Crisis
	case DetectAbuse(message):
		return Abuse
	default:
		return None
	}
}

// Response returns the fixed resource message for v, or "" for None.
func (v Verdict) Response() string {
	switch v {
	case Crisis:
		return CrisisResponse
	case Abuse:
		return AbuseResponse
	default:
		return ""
	}
}

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
