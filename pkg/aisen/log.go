// log.go parses engine log messages into an error class and message.

package aisen

import (
	"regexp"
	"strings"
)

// LogType is the severity tag attached to an engine log message.
type LogType string

const (
	LogTypeError     LogType = "Error"
	LogTypeAssert    LogType = "Assert"
	LogTypeWarning   LogType = "Warning"
	LogTypeLog       LogType = "Log"
	LogTypeException LogType = "Exception"
)

// Severity maps the log type onto an event severity. Warning and plain log
// lines are warnings; everything else is an error.
func (t LogType) Severity() Severity {
	switch t {
	case LogTypeWarning, LogTypeLog:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// LogMessage is a log event handed over by the engine.
type LogMessage struct {
	// Condition is the logged text, usually "ErrorClass: message".
	Condition string

	// StackTrace is the raw trace text logged with the condition.
	StackTrace string

	// Type is the log severity tag.
	Type LogType
}

// logConditionPattern matches "<class>: <message>" across all lines. The
// class excludes Unicode spaces, vertical tab and NEL as well as ASCII
// whitespace.
var logConditionPattern = regexp.MustCompile(`(?s)^([^\s\v\x{85}\p{Z}]+):\s*(.*)`)

// ParseLogCondition extracts the error class and message from a log
// condition. When the condition has no "Class:" prefix the class is
// prefix+logType and the message is the untouched condition.
func ParseLogCondition(condition string, logType LogType, prefix string) (errorClass, message string) {
	if m := logConditionPattern.FindStringSubmatch(condition); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return prefix + string(logType), condition
}
