// Session identifiers name one run of a host process (one cmd/auroraview
// invocation, one embedding DCC process). Every Window constructed in
// that run shares the same session ID in its log lines via the
// "session" field root.go attaches to the base logger, so a host
// running several windows still gets one log file per process run
// rather than one per window.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const sessionFilePrefix = "session_"
const sessionFileSuffix = ".log"

// GenerateSessionID returns a new session identifier: a timestamp plus
// 2 random bytes so two sessions started in the same second still sort
// uniquely. Example: 20251217_205106_a7b3
func GenerateSessionID() string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return time.Now().Format("20060102_150405") + "_" + hex.EncodeToString(suffix)
}

// ShortSessionID returns the trailing random hex suffix of a session ID,
// for compact display in console log lines (the "session" field root.go
// attaches).
func ShortSessionID(sessionID string) string {
	if len(sessionID) < 4 {
		return sessionID
	}
	return sessionID[len(sessionID)-4:]
}

// SessionFilename returns the log filename for a session ID.
func SessionFilename(sessionID string) string {
	return sessionFilePrefix + sessionID + sessionFileSuffix
}

// ParseSessionFilename extracts the session ID from a filename produced
// by SessionFilename, for a log-directory sweep that needs to group
// files by session.
func ParseSessionFilename(filename string) (sessionID string, ok bool) {
	rest, ok := strings.CutPrefix(filename, sessionFilePrefix)
	if !ok {
		return "", false
	}
	sessionID, ok = strings.CutSuffix(rest, sessionFileSuffix)
	if !ok || sessionID == "" {
		return "", false
	}
	return sessionID, true
}
