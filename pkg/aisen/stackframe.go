// stackframe.go defines stack frame descriptors and the capture collaborators
// that produce them from errors and from raw trace text.

package aisen

import (
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// StackFrame describes one frame of a stack trace, innermost frame first.
type StackFrame struct {
	// Method is the fully qualified function name (e.g. "main.(*Server).Serve").
	Method string `json:"method"`

	// File is the source file path, if known.
	File string `json:"file,omitempty"`

	// LineNumber is the 1-based line within File, or 0 if unknown.
	LineNumber int `json:"lineNumber,omitempty"`

	// InProject reports whether the frame belongs to application code rather
	// than the Go runtime or test harness.
	InProject bool `json:"inProject"`
}

// StackCapture produces stack frames for errors and raw trace text.
// Implementations must be deterministic and free of side effects.
type StackCapture interface {
	// Capture returns the trace captured by err itself (not by its causes).
	// Errors that carry no trace yield an empty, non-nil slice.
	Capture(err error) ([]StackFrame, error)

	// CaptureFromText parses a textual stack trace.
	CaptureFromText(raw string) ([]StackFrame, error)
}

// StackTracer is implemented by errors that record the program counters of
// their creation site, such as github.com/go-errors/errors.Error.
type StackTracer interface {
	Callers() []uintptr
}

// defaultLibraryPrefixes mark frames that are not application code.
var defaultLibraryPrefixes = []string{
	"runtime.",
	"runtime/",
	"testing.",
	"reflect.",
}

// RuntimeStackCapture is the default StackCapture backed by the Go runtime.
type RuntimeStackCapture struct {
	// LibraryPrefixes lists method prefixes treated as non-project frames.
	// Nil means the runtime, testing and reflect packages.
	LibraryPrefixes []string
}

// Capture resolves the program counters recorded by a StackTracer error.
func (c RuntimeStackCapture) Capture(err error) ([]StackFrame, error) {
	tracer, ok := err.(StackTracer)
	if !ok {
		return []StackFrame{}, nil
	}
	return c.framesFromPCs(tracer.Callers()), nil
}

// CaptureFromText parses goroutine dumps as printed by panics and
// runtime/debug.Stack. Text in any other shape yields one frame per
// non-empty line, recognising a trailing "(at file:line)" location.
func (c RuntimeStackCapture) CaptureFromText(raw string) ([]StackFrame, error) {
	if strings.TrimSpace(raw) == "" {
		return []StackFrame{}, nil
	}
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if start := goroutineHeaderIndex(lines); start >= 0 {
		return c.parseGoroutineDump(lines[start+1:]), nil
	}
	return c.parseFreeForm(lines), nil
}

// callerFrames captures the current goroutine's stack, skipping skip frames
// above the caller of callerFrames.
func (c RuntimeStackCapture) callerFrames(skip int) []StackFrame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	return c.framesFromPCs(pcs[:n])
}

func (c RuntimeStackCapture) framesFromPCs(pcs []uintptr) []StackFrame {
	frames := make([]StackFrame, 0, len(pcs))
	if len(pcs) == 0 {
		return frames
	}
	iter := runtime.CallersFrames(pcs)
	for {
		frame, more := iter.Next()
		if frame.Function != "" {
			frames = append(frames, StackFrame{
				Method:     frame.Function,
				File:       frame.File,
				LineNumber: frame.Line,
				InProject:  c.inProject(frame.Function),
			})
		}
		if !more {
			break
		}
	}
	return frames
}

func (c RuntimeStackCapture) inProject(method string) bool {
	prefixes := c.LibraryPrefixes
	if prefixes == nil {
		prefixes = defaultLibraryPrefixes
	}
	for _, p := range prefixes {
		if strings.HasPrefix(method, p) {
			return false
		}
	}
	return true
}

// Patterns for goroutine dump parsing
var (
	// Match headers like "goroutine 1 [running]:"
	goroutineHeaderPattern = regexp.MustCompile(`^goroutine \d+ .*\[[^\]]*\]:$`)

	// Match offset suffixes like " +0x1d"
	offsetPattern = regexp.MustCompile(`\s+\+0x[0-9a-fA-F]+$`)

	// Match "Method (args) (at path/File.cs:42)" style locations
	atLocationPattern = regexp.MustCompile(`^(.*?)\s*\(at (.+):(\d+)\)$`)
)

func goroutineHeaderIndex(lines []string) int {
	for i, line := range lines {
		if goroutineHeaderPattern.MatchString(strings.TrimSpace(line)) {
			return i
		}
	}
	return -1
}

// parseGoroutineDump reads function/location line pairs of a single
// goroutine, stopping at the next goroutine header.
func (c RuntimeStackCapture) parseGoroutineDump(lines []string) []StackFrame {
	frames := []StackFrame{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if goroutineHeaderPattern.MatchString(strings.TrimSpace(line)) {
			break
		}

		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
			if len(frames) == 0 {
				continue
			}
			file, lineNo := parseFileLine(strings.TrimSpace(line))
			last := &frames[len(frames)-1]
			last.File = file
			last.LineNumber = lineNo
			continue
		}

		method := parseFunctionLine(line)
		if method == "" {
			continue
		}
		frames = append(frames, StackFrame{
			Method:    method,
			InProject: c.inProject(method),
		})
	}
	return frames
}

func (c RuntimeStackCapture) parseFreeForm(lines []string) []StackFrame {
	frames := []StackFrame{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		frame := StackFrame{Method: line}
		if m := atLocationPattern.FindStringSubmatch(line); m != nil {
			frame.Method = m[1]
			frame.File = m[2]
			frame.LineNumber, _ = strconv.Atoi(m[3])
		}
		frame.InProject = c.inProject(frame.Method)
		frames = append(frames, frame)
	}
	return frames
}

// parseFunctionLine turns "main.(*T).Run(0xc000010000, {0x1, 0x2})" into
// "main.(*T).Run" and "created by main.start in goroutine 1" into "main.start".
func parseFunctionLine(line string) string {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "created by "); ok {
		if idx := strings.Index(rest, " in goroutine "); idx > 0 {
			rest = rest[:idx]
		}
		return rest
	}
	if strings.HasSuffix(line, ")") {
		if idx := strings.LastIndex(line, "("); idx > 0 {
			line = line[:idx]
		}
	}
	return strings.TrimSpace(line)
}

// parseFileLine splits "/app/main.go:42 +0x1d" into its path and line.
func parseFileLine(loc string) (string, int) {
	loc = offsetPattern.ReplaceAllString(loc, "")
	idx := strings.LastIndex(loc, ":")
	if idx <= 0 {
		return loc, 0
	}
	n, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return loc, 0
	}
	return loc[:idx], n
}

// truncateAtBoundary drops the first frame whose method equals boundary and
// every frame after it. Without a match the trace is returned unchanged.
func truncateAtBoundary(frames []StackFrame, boundary string) []StackFrame {
	if boundary == "" {
		return frames
	}
	for i, f := range frames {
		if f.Method == boundary {
			return frames[:i]
		}
	}
	return frames
}
