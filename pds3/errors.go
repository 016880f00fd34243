// Package pds3 reads PDS3 data products: a label describing one or more
// binary or ASCII data objects, decoded lazily on first access.
package pds3

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/hooks"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
	"github.com/robert-malhotra/go-pds3/internal/pointer"
)

// Common errors
var (
	ErrNotFound      = errors.New("object not found")
	ErrClosed        = errors.New("session is closed")
	ErrAlreadyLoaded = errors.New("object already loaded")
	ErrNoLabel       = errors.New("no PDS3 label found")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrNotNumeric    = errors.New("object is not numeric")
)

// Load steps reported in LoadError.Step.
const (
	StepResolve  = "resolve"
	StepLayout   = "layout"
	StepCodec    = "codec"
	StepRead     = "read"
	StepHook     = "hook"
	StepDispatch = "dispatch"
)

// LoadError records the failure of one object. Sibling objects are not
// affected by it. A NonFatal error is a diagnostic about an object that
// still decoded.
type LoadError struct {
	Object   string
	Step     string
	Params   map[string]any
	Err      error
	NonFatal bool
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s (%s): %v", e.Object, e.Step, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// stepOf classifies err by the layer that produced it.
func stepOf(err error, fallback string) string {
	var (
		codec    *dtype.CodecError
		lay      *layout.LayoutError
		res      *pointer.ResolutionError
		hook     *hooks.ApplyError
		dispatch *object.DispatchFailure
	)
	switch {
	case errors.As(err, &hook):
		return StepHook
	case errors.As(err, &codec):
		return StepCodec
	case errors.As(err, &lay):
		return StepLayout
	case errors.As(err, &res):
		return StepResolve
	case errors.As(err, &dispatch):
		return StepDispatch
	}
	return fallback
}

func newLoadError(d *object.Descriptor, fallback string, err error) *LoadError {
	le := &LoadError{Object: d.Name, Step: stepOf(err, fallback), Err: err}
	le.Params = map[string]any{
		"category": d.Category.String(),
		"file":     d.File,
		"offset":   d.Pointer.Offset,
	}
	var codec *dtype.CodecError
	if errors.As(err, &codec) {
		le.Params["data_type"] = codec.Token
		le.Params["width"] = codec.Width
	}
	var lay *layout.LayoutError
	if errors.As(err, &lay) && lay.Field != "" {
		le.Params["field"] = lay.Field
	}
	return le
}
