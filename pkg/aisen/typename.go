// typename.go renders runtime error types as human-readable class names.

package aisen

import (
	"reflect"
	"strings"
)

// TypeNameResolver renders a runtime type as an error class name.
type TypeNameResolver interface {
	DisplayName(t reflect.Type) string
}

// DisplayTypeNames is the default TypeNameResolver.
//
// Pointers are dereferenced and package paths dropped, so *fs.PathError
// renders as "PathError". Generic instantiations use angle brackets with
// unqualified arguments: Pair[int,github.com/acme/app.Key] renders as
// "Pair<int,Key>".
type DisplayTypeNames struct{}

// DisplayName returns the display name of t, or "" for a nil type.
func (DisplayTypeNames) DisplayName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return renderTypeName(name)
	}
	return renderTypeName(t.String())
}

// renderTypeName rewrites one textual type expression as produced by
// reflect. Unrecognised shapes (func, struct, chan literals) pass through.
func renderTypeName(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return s
	case strings.HasPrefix(s, "*"):
		return "*" + renderTypeName(s[1:])
	case strings.HasPrefix(s, "[]"):
		return "[]" + renderTypeName(s[2:])
	case strings.HasPrefix(s, "map["):
		end := matchingBracket(s, len("map"))
		if end < 0 {
			return s
		}
		return "map[" + renderTypeName(s[len("map["):end]) + "]" + renderTypeName(s[end+1:])
	case strings.HasPrefix(s, "func(") || strings.HasPrefix(s, "struct {") ||
		strings.HasPrefix(s, "interface {") || strings.HasPrefix(s, "chan "):
		return s
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		return unqualify(s)
	}
	if open == 0 {
		// Array type such as [4]int.
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return s
		}
		return s[:end+1] + renderTypeName(s[end+1:])
	}

	end := matchingBracket(s, open)
	if end < 0 {
		return unqualify(s)
	}
	args := splitTypeArgs(s[open+1 : end])
	for i, arg := range args {
		args[i] = renderTypeName(arg)
	}
	return unqualify(s[:open]) + "<" + strings.Join(args, ",") + ">" + s[end+1:]
}

// unqualify strips the import path and package name from a named type.
func unqualify(name string) string {
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// matchingBracket returns the index of the ']' closing the '[' at open.
func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTypeArgs splits a generic argument list on top-level commas.
func splitTypeArgs(s string) []string {
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	return append(args, s[start:])
}
