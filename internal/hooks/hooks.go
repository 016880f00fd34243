// Package hooks defines the contract for special-case corrections.
//
// Products from some missions need reinterpretation that no label keyword
// expresses. A [Hook] claims such objects by predicate and either rewrites
// their descriptor or supplies the decoded payload itself. Hooks are
// consulted, in registration order, before default dispatch; the first
// match wins.
package hooks

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/robert-malhotra/go-pds3/internal/object"
)

// Errors
var (
	ErrDuplicateHook = errors.New("hook already registered")
	ErrEmptyOverride = errors.New("hook returned neither descriptor nor payload")
)

// Override is the result of applying a hook. A non-nil Payload is returned
// to the caller as the decoded object. Otherwise Descriptor replaces the
// one passed to the hook and default dispatch continues with it.
type Override struct {
	Descriptor *object.Descriptor
	Payload    any
}

// Hook is a predicate and override pair.
type Hook interface {
	Name() string
	Match(d *object.Descriptor) bool
	Apply(d *object.Descriptor, r io.ReaderAt) (Override, error)
}

// Func adapts a pair of functions to the Hook interface.
type Func struct {
	ID        string
	Predicate func(d *object.Descriptor) bool
	Transform func(d *object.Descriptor, r io.ReaderAt) (Override, error)
}

func (f Func) Name() string {
	return f.ID
}

func (f Func) Match(d *object.Descriptor) bool {
	return f.Predicate != nil && f.Predicate(d)
}

func (f Func) Apply(d *object.Descriptor, r io.ReaderAt) (Override, error) {
	return f.Transform(d, r)
}

// Rewrite returns a hook that edits the descriptor of matching objects.
func Rewrite(name string, match func(d *object.Descriptor) bool, edit func(d *object.Descriptor)) Hook {
	return Func{
		ID:        name,
		Predicate: match,
		Transform: func(d *object.Descriptor, _ io.ReaderAt) (Override, error) {
			c := d.Clone()
			edit(c)
			return Override{Descriptor: c}, nil
		},
	}
}

// ApplyError reports a hook that failed while applying.
type ApplyError struct {
	Hook   string
	Object string
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("hook %s on %s: %v", e.Hook, e.Object, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Registry is an ordered set of hooks. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewRegistry returns a registry holding hooks in order.
func NewRegistry(hooks ...Hook) *Registry {
	r := &Registry{}
	for _, h := range hooks {
		_ = r.Register(h)
	}
	return r
}

// Register appends a hook. Names must be unique.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.hooks {
		if o.Name() == h.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateHook, h.Name())
		}
	}
	r.hooks = append(r.hooks, h)
	return nil
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Names returns the hook names in order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.hooks))
	for i, h := range r.hooks {
		names[i] = h.Name()
	}
	return names
}

// Match returns the first hook whose predicate accepts d.
func (r *Registry) Match(d *object.Descriptor) (Hook, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.hooks {
		if h.Match(d) {
			return h, true
		}
	}
	return nil, false
}

// Apply runs the first matching hook. It reports false when no hook claims
// the object. A returned descriptor is marked as an override.
func (r *Registry) Apply(d *object.Descriptor, src io.ReaderAt) (Override, bool, error) {
	h, ok := r.Match(d)
	if !ok {
		return Override{}, false, nil
	}
	ov, err := h.Apply(d, src)
	if err != nil {
		return Override{}, true, &ApplyError{Hook: h.Name(), Object: d.Name, Err: err}
	}
	if ov.Payload == nil && ov.Descriptor == nil {
		return Override{}, true, &ApplyError{Hook: h.Name(), Object: d.Name, Err: ErrEmptyOverride}
	}
	if ov.Descriptor != nil {
		ov.Descriptor.Inference = object.InferOverride
	}
	return ov, true, nil
}
