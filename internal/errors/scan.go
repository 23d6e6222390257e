package errors

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind int

const (
	// KindConfig means the scan root could not be resolved.
	KindConfig Kind = iota + 1
	// KindNotFound means the root or an explicitly requested path is missing.
	KindNotFound
	// KindIO covers read and permission failures.
	KindIO
	// KindParse means a config file had malformed content.
	KindParse
	// KindValidation means a validator received input outside its expected shape.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindNotFound:
		return "NotFound"
	case KindIO:
		return "IoError"
	case KindParse:
		return "ParseError"
	case KindValidation:
		return "ValidationError"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is matching against a *ScanError.
var (
	ErrConfig     = errors.New("config error")
	ErrNotFound   = errors.New("not found")
	ErrIO         = errors.New("io error")
	ErrParse      = errors.New("parse error")
	ErrValidation = errors.New("validation error")
)

var kindSentinels = map[Kind]error{
	KindConfig:     ErrConfig,
	KindNotFound:   ErrNotFound,
	KindIO:         ErrIO,
	KindParse:      ErrParse,
	KindValidation: ErrValidation,
}

// ScanError is the error type produced by the discovery engine.
type ScanError struct {
	Kind Kind
	Op   string // scanner or validator name, or "resolve-root"
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += fmt.Sprintf(" [%s]", e.Op)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *ScanError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewConfigError reports an unresolvable scan root.
func NewConfigError(op string, err error) error {
	return &ScanError{Kind: KindConfig, Op: op, Err: err}
}

// NewNotFound reports a missing path.
func NewNotFound(path string, err error) error {
	return &ScanError{Kind: KindNotFound, Op: "resolve-root", Path: path, Err: err}
}

// NewIOError reports a read or permission failure.
func NewIOError(op, path string, err error) error {
	return &ScanError{Kind: KindIO, Op: op, Path: path, Err: err}
}

// NewParseError reports malformed content in path.
func NewParseError(op, path string, format string, args ...interface{}) error {
	return &ScanError{Kind: KindParse, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// NewValidationError reports a candidate a validator cannot judge.
func NewValidationError(op string, err error) error {
	return &ScanError{Kind: KindValidation, Op: op, Err: err}
}

// KindOf returns the Kind of err, or 0 if err is not a *ScanError.
func KindOf(err error) Kind {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Kind
	}
	return 0
}
