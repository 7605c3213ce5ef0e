// fingerprint.go generates stable hashes of an event's identifying attributes.

package aisen

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrames is the number of leading frames of the raised exception
// that contribute to the fingerprint.
const fingerprintFrames = 3

// Fingerprint generates a hash of one event's stable attributes:
//   - error_type, operation, agent_name, tool_name
//   - the error class of every exception, in order
//   - the first 3 frame methods of the raised exception
//
// It ignores variable data like timestamps, event IDs, messages,
// file paths and line numbers.
func Fingerprint(event ErrorEvent) string {
	var parts []string
	parts = append(parts, event.ErrorType)
	parts = append(parts, event.Operation)
	parts = append(parts, event.AgentName)
	parts = append(parts, event.ToolName)

	for exc := range event.Exceptions.All() {
		parts = append(parts, exc.ErrorClass())
	}
	if first, ok := event.Exceptions.First(); ok {
		parts = append(parts, fingerprintMethods(first.Stacktrace())...)
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

// fingerprintMethods returns up to fingerprintFrames method names, skipping
// frames without a method.
func fingerprintMethods(frames []StackFrame) []string {
	var methods []string
	for _, f := range frames {
		if f.Method == "" {
			continue
		}
		methods = append(methods, f.Method)
		if len(methods) >= fingerprintFrames {
			break
		}
	}
	return methods
}
