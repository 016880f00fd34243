package pds3

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Velocidex/ordereddict"
	"github.com/charmbracelet/log"

	"github.com/robert-malhotra/go-pds3/internal/diag"
	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
	"github.com/robert-malhotra/go-pds3/internal/pointer"
)

// LabelObject is the name under which the label itself is always listed.
const LabelObject = "LABEL"

// Status is the load state of an object.
type Status uint8

// Load states
const (
	StatusNotLoaded Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotLoaded:
		return "not loaded"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type cacheEntry struct {
	desc       *object.Descriptor
	status     Status
	payload    any
	err        error
	generation uint64 // descriptor generation the payload was computed for
	loads      int
}

func (e *cacheEntry) current() bool {
	return e.status != StatusNotLoaded && e.generation == e.desc.Generation
}

// Session is an opened product. Objects are decoded on first access and
// cached until a metadata edit changes what they were derived from.
// A Session is safe for concurrent use.
type Session struct {
	mu         sync.RWMutex
	opts       *options
	log        *log.Logger
	path       string
	labelPath  string
	ownFile    string // target of pointers that name no file
	root       *label.Node
	warnings   []label.Warning
	pointers   *pointer.Set
	index      *ordereddict.Dict // object name -> *cacheEntry
	generation uint64
	sources    map[string]*source
	failures   []*LoadError
	recorder   *diag.Recorder
	closed     bool
}

// Open opens a product. path may name a detached label, a file with an
// attached label, or a data file with a sibling .LBL label.
func Open(path string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}

	s := &Session{
		opts:    o,
		log:     o.logger,
		path:    path,
		sources: make(map[string]*source),
	}
	if o.debug && o.failureDir != "" {
		rec, err := diag.NewRecorder(o.fs, o.failureDir, o.failureFormat)
		if err != nil {
			return nil, err
		}
		s.recorder = rec
	}

	var err error
	if o.dialect != nil && o.dialect.Detect(path) {
		err = s.openExternal(path)
	} else {
		err = s.openLabel(path)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) openLabel(p string) error {
	labelPath, attached := p, true
	s.ownFile = p
	if isLabelName(p) {
		attached = false
	} else if sib, ok := siblingLabel(s.opts.fs, p); ok {
		labelPath, attached = sib, false
	}

	data, err := readLabel(s.opts.fs, labelPath, s.opts.labelLimit, attached)
	if err != nil {
		return err
	}
	lbl, err := label.Parse(data)
	if err != nil {
		if errors.Is(err, label.ErrEmptyLabel) {
			return fmt.Errorf("%w: %s", ErrNoLabel, labelPath)
		}
		return fmt.Errorf("parsing label %s: %w", labelPath, err)
	}
	for _, w := range lbl.Warnings {
		s.log.Warn("label", "file", labelPath, "line", w.Line, "msg", w.Msg)
	}
	s.labelPath = labelPath
	s.root = lbl.Root
	s.warnings = lbl.Warnings

	set, descs := s.describe(s.root)
	s.install(set, descs)
	return nil
}

func (s *Session) openExternal(p string) error {
	src, err := openSource(s.opts.fs, p)
	if err != nil {
		return fmt.Errorf("opening label: %w", err)
	}
	objs, err := s.opts.dialect.Read(src.r, src.size)
	src.Close()
	if err != nil {
		return fmt.Errorf("reading label %s: %w", p, err)
	}
	s.labelPath, s.ownFile = p, p
	s.root = externalRoot(objs)

	var descs []*object.Descriptor
	for _, o := range objs {
		name := o.Name
		if name == "" {
			name = object.ExternalName(o.ID)
		}
		d := &object.Descriptor{
			Name:      name,
			Key:       "^" + name,
			Category:  o.Category,
			Inference: object.InferExact,
			Pointer:   pointer.Entry{Name: name, Key: "^" + name, File: o.File, Offset: o.Offset, Length: o.Length},
			Block:     s.root.Block(name),
		}
		d.File, d.Missing = s.resolveFile(o.File)
		descs = append(descs, d)
	}
	s.install(nil, append(descs, s.labelDescriptor(descs)...))
	return nil
}

// describe resolves pointers and derives a descriptor for every object.
func (s *Session) describe(root *label.Node) (*pointer.Set, []*object.Descriptor) {
	set, warnings := pointer.Resolve(root)
	for _, w := range warnings {
		s.log.Warn("pointer", "line", w.Line, "msg", w.Msg)
	}
	var descs []*object.Descriptor
	for _, e := range set.Entries() {
		d := &object.Descriptor{
			Name:    e.Name,
			Key:     e.Key,
			Pointer: e,
			Ignored: e.Ignored,
			Block:   blockFor(root, e),
		}
		d.File, d.Missing = s.resolveFile(e.File)
		target := e.File
		if target == "" {
			target = d.File
		}
		d.Category, d.Inference = object.Classify(e.Name, d.Block, target)
		descs = append(descs, d)
	}
	descs = append(descs, prefixTables(descs)...)
	return set, append(descs, s.labelDescriptor(descs)...)
}

func (s *Session) labelDescriptor(descs []*object.Descriptor) []*object.Descriptor {
	for _, d := range descs {
		if d.Name == LabelObject {
			return nil
		}
	}
	return []*object.Descriptor{{
		Name:      LabelObject,
		Key:       LabelObject,
		Category:  object.CategoryLabel,
		Inference: object.InferExact,
		Pointer:   pointer.Entry{Name: LabelObject, Offset: 0, Length: -1},
		File:      s.labelPath,
	}}
}

func (s *Session) install(set *pointer.Set, descs []*object.Descriptor) {
	s.pointers = set
	s.index = ordereddict.NewDict()
	for _, d := range descs {
		d.Generation = s.generation
		s.index.Set(d.Name, &cacheEntry{desc: d})
	}
}

// blockFor finds the label block an entry describes. Duplicate pointers
// numbered NAME_0, NAME_1 take the matching block in document order.
func blockFor(root *label.Node, e pointer.Entry) *label.Node {
	base := pointer.Depointerize(e.Key)
	scope := root
	if e.Parent != "" {
		if b := root.Find(e.Parent); b != nil && b.IsBlock() {
			scope = b
		}
	}
	blocks := scope.Blocks(base)
	if len(blocks) == 0 && scope != root {
		blocks = root.Blocks(base)
	}
	if len(blocks) == 0 {
		if n := root.Find(base); n != nil && n.IsBlock() {
			return n
		}
		return nil
	}
	idx := 0
	if e.Name != base {
		if n, err := strconv.Atoi(e.Name[strings.LastIndex(e.Name, "_")+1:]); err == nil && n < len(blocks) {
			idx = n
		}
	}
	return blocks[idx]
}

func (s *Session) searchDirs() []string {
	dir := filepath.Dir(s.labelPath)
	dirs := append([]string{dir}, s.opts.searchPaths...)
	return append(dirs, filepath.Join(dir, "..", "LABEL"))
}

// resolveFile finds the file a pointer targets. An empty name is the
// product's own file.
func (s *Session) resolveFile(name string) (string, bool) {
	if name == "" {
		return s.ownFile, false
	}
	if p, ok := findFile(s.opts.fs, s.searchDirs(), name); ok {
		return p, false
	}
	return filepath.Join(filepath.Dir(s.labelPath), name), true
}

// source returns the opened file at p, opening it on first use.
func (s *Session) source(p string) (*source, error) {
	if src, ok := s.sources[p]; ok {
		return src, nil
	}
	src, err := openSource(s.opts.fs, p)
	if err != nil {
		return nil, err
	}
	s.sources[p] = src
	return src, nil
}

// Close closes every opened data file.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.sources = nil
	return errors.Join(errs...)
}

// Path returns the path passed to Open.
func (s *Session) Path() string {
	return s.path
}

// LabelPath returns the path of the label that was parsed.
func (s *Session) LabelPath() string {
	return s.labelPath
}

// Warnings returns the label parse warnings.
func (s *Session) Warnings() []label.Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]label.Warning(nil), s.warnings...)
}

// Keys returns the object names in declaration order, LABEL last unless
// the label declares it.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Keys()
}

func (s *Session) entry(name string) (*cacheEntry, bool) {
	v, ok := s.index.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*cacheEntry), true
}

func (s *Session) notFound(name string) error {
	if best := closest(name, s.index.Keys()); best != "" {
		return fmt.Errorf("%w: %s (did you mean %s?)", ErrNotFound, name, best)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Descriptor returns a copy of the descriptor of an object.
func (s *Session) Descriptor(name string) (*object.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.entry(name)
	if !ok {
		return nil, s.notFound(name)
	}
	return ent.desc.Clone(), nil
}

// Status returns the load state of an object.
func (s *Session) Status(name string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.entry(name)
	if !ok {
		return StatusNotLoaded, s.notFound(name)
	}
	if !ent.current() {
		return StatusNotLoaded, nil
	}
	return ent.status, nil
}

// LoadCount returns how many times an object has been decoded.
func (s *Session) LoadCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ent, ok := s.entry(name); ok {
		return ent.loads
	}
	return 0
}

// Get returns the decoded object, decoding it on first access. A failed
// object returns its recorded error until it is reloaded.
func (s *Session) Get(name string) (any, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	if ent, ok := s.entry(name); ok && ent.current() && ent.status == StatusLoaded {
		p := ent.payload
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()
	return s.load(name, false)
}

// Load decodes an object. Without reload, an object that is already loaded
// is left alone and ErrAlreadyLoaded is returned.
func (s *Session) Load(name string, reload bool) error {
	s.mu.RLock()
	ent, ok := s.entry(name)
	loaded := ok && ent.current() && ent.status == StatusLoaded
	s.mu.RUnlock()
	if loaded && !reload {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	_, err := s.load(name, reload)
	return err
}

// Reload decodes an object again, replacing any cached result.
func (s *Session) Reload(name string) (any, error) {
	return s.load(name, true)
}

func (s *Session) load(name string, force bool) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	ent, ok := s.entry(name)
	if !ok {
		return nil, s.notFound(name)
	}
	if !force && ent.current() {
		switch ent.status {
		case StatusLoaded:
			return ent.payload, nil
		case StatusFailed:
			return nil, ent.err
		}
	}

	ent.status = StatusLoading
	payload, err := s.decode(ent.desc)
	ent.loads++
	ent.generation = ent.desc.Generation
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			le = newLoadError(ent.desc, StepRead, err)
		}
		ent.status, ent.payload, ent.err = StatusFailed, nil, le
		s.fail(le)
		return nil, le
	}
	ent.status, ent.payload, ent.err = StatusLoaded, payload, nil
	return payload, nil
}

// LoadAll decodes every object, skipping ignored ones unless configured
// otherwise. Failures do not stop the loop; they are joined in the result.
func (s *Session) LoadAll() error {
	var errs []error
	for _, name := range s.Keys() {
		s.mu.RLock()
		ent, _ := s.entry(name)
		skip := ent != nil && ent.desc.Ignored && s.opts.skipIgnored
		s.mu.RUnlock()
		if skip {
			continue
		}
		if _, err := s.Get(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Errors returns the failures retained in diagnostic mode, including
// non-fatal layout diagnostics of objects that did decode.
func (s *Session) Errors() []*LoadError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*LoadError(nil), s.failures...)
}

// fail logs a failure and, in diagnostic mode, retains and persists it.
// The caller holds s.mu.
func (s *Session) fail(le *LoadError) {
	s.log.Warn("object failed", "object", le.Object, "step", le.Step, "err", le.Err)
	s.retain(le)
}

// noteIssues logs layout anomalies of an object that still decodes. In
// diagnostic mode each is retained as a non-fatal LayoutError.
func (s *Session) noteIssues(d *object.Descriptor, issues []layout.Issue) {
	for _, is := range issues {
		s.log.Warn("layout", "object", d.Name, "field", is.Field, "msg", is.Msg)
		le := newLoadError(d, StepLayout, is.LayoutError(d.Name))
		le.NonFatal = true
		le.Params["non_fatal"] = true
		s.retain(le)
	}
}

func (s *Session) retain(le *LoadError) {
	if !s.opts.debug {
		return
	}
	s.failures = append(s.failures, le)
	if s.recorder == nil {
		return
	}
	rec := diag.NewFailure(s.labelPath, le.Object, le.Step, le.Err, le.Params)
	if b := s.blockText(le.Object); b != "" {
		rec.Snippet = b
	}
	if p, err := s.recorder.Write(rec); err != nil {
		s.log.Error("writing failure record", "err", err)
	} else {
		s.log.Debug("failure record written", "path", p)
	}
}

func (s *Session) blockText(name string) string {
	ent, ok := s.entry(name)
	if !ok || ent.desc.Block == nil {
		return ""
	}
	return string(label.Format(ent.desc.Block))
}

// Pointers returns the resolved pointer entries in declaration order.
func (s *Session) Pointers() []pointer.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pointers == nil {
		return nil
	}
	return s.pointers.Entries()
}

// readerFor returns the reader hooks see for a descriptor, or nil.
func (s *Session) readerFor(d *object.Descriptor) io.ReaderAt {
	if d.Missing || d.Category == object.CategoryLabel {
		return nil
	}
	src, err := s.source(d.File)
	if err != nil {
		return nil
	}
	return src.r
}

// Aliases returns the other objects whose pointers resolve to the same
// bytes as name.
func (s *Session) Aliases(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pointers == nil {
		return nil
	}
	return s.pointers.Aliases(name)
}
