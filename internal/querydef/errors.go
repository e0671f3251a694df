package querydef

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes reported by LoadError.
const (
	ErrCodeNotFound    = "Q001"
	ErrCodeFormat      = "Q002"
	ErrCodeParse       = "Q003"
	ErrCodeBuildFailed = "Q004"
	ErrCodeInvalid     = "Q005"
	ErrCodeUnknownRef  = "Q006"
)

// LoadError describes why a definition could not be loaded or compiled.
// Path locates the offending element inside the definition, for example
// "pipeline[1].filter.and[0]".
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.position(), e.Code, e.message())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.message())
}

// Detail returns the error text without the code.
func (e *LoadError) Detail() string {
	if e.Pos.IsValid() {
		return e.position() + ": " + e.message()
	}
	return e.message()
}

func (e *LoadError) position() string {
	return fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
}

func (e *LoadError) message() string {
	if e.Path != "" {
		return e.Path + ": " + e.Message
	}
	return e.Message
}

func invalid(path, format string, args ...any) *LoadError {
	return &LoadError{Code: ErrCodeInvalid, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Code returns the LoadError code carried by err, or "" if there is none.
func Code(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
