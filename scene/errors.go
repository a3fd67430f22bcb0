package scene

import (
	"errors"
	"fmt"
)

// ParseError reports input that is not a well-formed scene document.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parse scene: %v", e.Err)
	}
	return fmt.Sprintf("parse scene %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed document whose content cannot be
// exported. Object is -1 when the problem is not tied to a single object.
type ValidationError struct {
	File   string
	Layer  LayerPath
	Object int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	loc := "document"
	if e.Object >= 0 {
		loc = fmt.Sprintf("layer %s object %d", e.Layer, e.Object)
	}
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid scene %s: %s", loc, e.Reason)
	}
	return fmt.Sprintf("invalid scene %s: %s: %s", loc, e.Field, e.Reason)
}

// WithFile records path on a *ParseError or *ValidationError found in err's
// chain and returns err.
func WithFile(err error, path string) error {
	var perr *ParseError
	if errors.As(err, &perr) && perr.File == "" {
		perr.File = path
	}
	var verr *ValidationError
	if errors.As(err, &verr) && verr.File == "" {
		verr.File = path
	}
	return err
}
