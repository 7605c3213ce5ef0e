// scrubber.go implements fail-closed sensitive data redaction for error events
// and their exception chains.

package aisen

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitivePatterns contains additional regex patterns for sensitive metadata keys.
	SensitivePatterns []string

	// MaxMessageSize is the maximum length for exception messages (default: 4096).
	MaxMessageSize int

	// MaxStackFrames is the maximum number of frames kept per exception (default: 256).
	MaxStackFrames int

	// MaxExceptions is the maximum number of exceptions kept per event (default: 64).
	MaxExceptions int

	// MaxToolArgsSize is the maximum length for tool arguments (default: 8192).
	MaxToolArgsSize int

	// MaxMetadataKeySize is the maximum size per metadata value (default: 1024).
	MaxMetadataKeySize int

	// ScrubMessages enables scrubbing of exception messages for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed enables fail-closed behavior: on any scrub error, fully redact (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:     4096,
		MaxStackFrames:     256,
		MaxExceptions:      64,
		MaxToolArgsSize:    8192,
		MaxMetadataKeySize: 1024,
		ScrubMessages:      true,
		FailClosed:         true,
	}
}

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                                    // OpenAI-style keys (including sk-proj-)
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),                                                      // GitHub tokens
	regexp.MustCompile(`(?i)gho_[a-zA-Z0-9]{36}`),                                                      // GitHub OAuth tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                                             // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                                            // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),                     // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                               // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),          // Credit card
}

// Sensitive metadata key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// Path patterns to normalize in stack traces
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

// memAddrPattern matches memory addresses like "0x1234abcd".
var memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// Scrubber redacts sensitive data from error events.
type Scrubber struct {
	cfg           ScrubberConfig
	extraKeyRegex []*regexp.Regexp
}

// NewScrubber creates a new scrubber with the given configuration.
// Invalid SensitivePatterns are skipped.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	s := &Scrubber{cfg: cfg}
	for _, p := range cfg.SensitivePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		s.extraKeyRegex = append(s.extraKeyRegex, re)
	}
	return s
}

// ScrubExceptions scrubs every record's message and frames and caps the
// number of records. Record order is preserved.
func (s *Scrubber) ScrubExceptions(excs Exceptions) Exceptions {
	if s.cfg.MaxExceptions > 0 && excs.Len() > s.cfg.MaxExceptions {
		excs = ExceptionsOf(excs.Slice()[:s.cfg.MaxExceptions]...)
	}
	return excs.Map(func(e Exception) Exception {
		return NewException(e.ErrorClass(), s.ScrubMessage(e.Message()), s.ScrubStackTrace(e.Stacktrace()))
	})
}

// ScrubMessage scrubs sensitive patterns from an error message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages {
		return msg
	}

	// Truncate if too large first
	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	// Apply all scrubbing patterns
	result := msg
	for _, pattern := range messageScrubPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}

	return result
}

// ScrubMetadata redacts sensitive keys from metadata. Values of keys ending
// in "_json" are scrubbed as JSON documents.
func (s *Scrubber) ScrubMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}

	result := make(map[string]string, len(meta))
	for key, value := range meta {
		if s.isSensitiveKey(key) {
			result[key] = "[REDACTED]"
		} else if strings.HasSuffix(key, "_json") {
			result[key] = s.ScrubJSON(value)
		} else {
			// Truncate long values
			if s.cfg.MaxMetadataKeySize > 0 && len(value) > s.cfg.MaxMetadataKeySize {
				value = truncateWithMarker(value, s.cfg.MaxMetadataKeySize)
			}
			result[key] = value
		}
	}

	return result
}

// ScrubStackTrace normalizes file paths and limits the number of frames.
func (s *Scrubber) ScrubStackTrace(frames []StackFrame) []StackFrame {
	if s.cfg.MaxStackFrames > 0 && len(frames) > s.cfg.MaxStackFrames {
		frames = frames[:s.cfg.MaxStackFrames]
	}

	result := make([]StackFrame, len(frames))
	for i, f := range frames {
		// Remove user-specific directories
		for _, pattern := range pathNormalizationPatterns {
			f.File = pattern.ReplaceAllString(f.File, "/[PATH]/")
		}
		f.Method = memAddrPattern.ReplaceAllString(f.Method, "0x...")
		result[i] = f
	}
	return result
}

// isSensitiveKey checks if a metadata key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, re := range s.extraKeyRegex {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}

// ScrubJSON recursively scrubs sensitive data from a JSON string.
// Returns scrubbed JSON or "[REDACTED:SCRUB_ERROR]" on any error (fail-closed).
func (s *Scrubber) ScrubJSON(jsonStr string) string {
	maxSize := s.cfg.MaxToolArgsSize

	// Parse JSON into generic structure
	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		// Fail closed: invalid JSON gets fully redacted
		if s.cfg.FailClosed {
			return "[REDACTED:SCRUB_ERROR]"
		}
		return jsonStr
	}

	// Recursively scrub the data
	scrubbed := s.scrubJSONValue(data)

	// Re-serialize to JSON
	result, err := json.Marshal(scrubbed)
	if err != nil {
		// Fail closed on marshal error
		if s.cfg.FailClosed {
			return "[REDACTED:SCRUB_ERROR]"
		}
		return jsonStr
	}

	// Truncate after marshalling if too large
	resultStr := string(result)
	if maxSize > 0 && len(resultStr) > maxSize {
		resultStr = truncateWithMarker(resultStr, maxSize)
	}

	return resultStr
}

// scrubJSONValue recursively scrubs a JSON value (map, array, or primitive).
func (s *Scrubber) scrubJSONValue(val interface{}) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		return s.scrubJSONMap(v)
	case []interface{}:
		return s.scrubJSONArray(v)
	case string:
		return s.ScrubMessage(v) // Apply message scrubbing to string values
	default:
		return v // Numbers, booleans, null pass through
	}
}

// scrubJSONMap scrubs a JSON object (map).
func (s *Scrubber) scrubJSONMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for key, value := range m {
		// If key is sensitive, redact the entire value
		if s.isSensitiveKey(key) {
			result[key] = "[REDACTED]"
		} else if str, ok := value.(string); ok && strings.HasSuffix(key, "_json") {
			result[key] = s.ScrubJSON(str)
		} else {
			// Recursively scrub the value
			result[key] = s.scrubJSONValue(value)
		}
	}
	return result
}

// scrubJSONArray scrubs a JSON array.
func (s *Scrubber) scrubJSONArray(arr []interface{}) []interface{} {
	result := make([]interface{}, len(arr))
	for i, value := range arr {
		result[i] = s.scrubJSONValue(value)
	}
	return result
}
