package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectCommand       = "cap.tts.gateway.v1"
	SubjectTradePrefix   = "cap.tts.trade.v1"
	SubjectCommandEvents = "tts.gateway.commands"
)

// BuildTradeSubject builds the subject a trading operation is forwarded to.
func BuildTradeSubject(prefix, op string) string {
	return fmt.Sprintf("%s.%s", prefix, subjectToken(op))
}

// BuildCommandEventSubject builds a granular command event subject.
func BuildCommandEventSubject(base, fn string) string {
	return fmt.Sprintf("%s.%s", base, subjectToken(fn))
}

// subjectToken maps arbitrary text onto a single NATS subject token.
// Wildcards, separators and whitespace become underscores.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
