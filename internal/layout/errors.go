package layout

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNoColumns      = errors.New("no columns defined")
	ErrMissingKeyword = errors.New("required keyword missing")
	ErrRowBytes       = errors.New("declared row length shorter than columns")
	ErrRowPadding     = errors.New("declared row length exceeds columns")
	ErrAnomaly        = errors.New("layout anomaly")
	ErrBitOverlap     = errors.New("overlapping bit fields")
	ErrBitRange       = errors.New("bit field outside its column")
	ErrItemOffset     = errors.New("item offset smaller than item bytes")
	ErrStructureCycle = errors.New("structure references itself")
	ErrStructureDepth = errors.New("structure nesting too deep")
	ErrNoLoader       = errors.New("no structure loader configured")
	ErrBandStorage    = errors.New("band storage type required for multiband image")
	ErrLinefix        = errors.New("unsupported line prefix or suffix")
	ErrAxisPlanes     = errors.New("unsupported qube suffix planes")
	ErrSampleBits     = errors.New("sample bits not a whole number of bytes")
	ErrShortData      = errors.New("data shorter than layout")
)

// LayoutError reports a layout that cannot be computed.
type LayoutError struct {
	Object string
	Field  string
	Err    error
}

func (e *LayoutError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("layout of %s, field %s: %v", e.Object, e.Field, e.Err)
	}
	return fmt.Sprintf("layout of %s: %v", e.Object, e.Err)
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}

// Issue is a non-fatal layout anomaly. The layout was computed but may not
// match what the producer intended.
type Issue struct {
	Field string
	Msg   string
	Err   error // sentinel classifying the issue, may be nil
}

// LayoutError returns the issue as a LayoutError of object.
func (i Issue) LayoutError(object string) *LayoutError {
	err := i.Err
	if err == nil {
		err = ErrAnomaly
	}
	return &LayoutError{Object: object, Field: i.Field, Err: fmt.Errorf("%w: %s", err, i.Msg)}
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Msg
	}
	return i.Field + ": " + i.Msg
}
