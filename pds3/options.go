package pds3

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/go-pds3/internal/config"
	"github.com/robert-malhotra/go-pds3/internal/diag"
	"github.com/robert-malhotra/go-pds3/internal/hooks"
	"github.com/robert-malhotra/go-pds3/internal/layout"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	fs                afero.Fs
	logger            *log.Logger
	labelLimit        int
	debug             bool
	searchPaths       []string
	failureDir        string
	failureFormat     diag.Format
	skipIgnored       bool
	maxStructureDepth int
	hooks             *hooks.Registry
	dialect           DialectReader
	container         ContainerReader
}

func defaultOptions() *options {
	return &options{
		fs:                afero.NewOsFs(),
		labelLimit:        config.DefaultLabelLimit,
		failureFormat:     diag.FormatYAML,
		skipIgnored:       true,
		maxStructureDepth: layout.DefaultMaxStructureDepth,
	}
}

func defaultLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Prefix: "pds3", Level: log.WarnLevel})
}

// WithFS reads the label and every data file from fs.
func WithFS(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithLogger sets the logger for parse warnings, layout issues and
// heuristic dispatch.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLabelLimit sets how many bytes are searched for an attached label.
func WithLabelLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.labelLimit = n
		}
	}
}

// WithDebug enables diagnostic mode: failures are retained and returned by
// Session.Errors, and written to the failure directory when one is set.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithSearchPaths adds directories searched for data and format files after
// the label's own directory.
func WithSearchPaths(dirs ...string) Option {
	return func(o *options) {
		o.searchPaths = append(o.searchPaths, dirs...)
	}
}

// WithFailureDir persists failure records in diagnostic mode.
func WithFailureDir(dir string, format diag.Format) Option {
	return func(o *options) {
		o.failureDir = dir
		o.failureFormat = format
	}
}

// WithSkipIgnored controls whether LoadAll skips objects that are listed
// but not loaded by default, such as DESCRIPTION pointers.
func WithSkipIgnored(skip bool) Option {
	return func(o *options) {
		o.skipIgnored = skip
	}
}

// WithMaxStructureDepth bounds nested ^STRUCTURE format files.
func WithMaxStructureDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxStructureDepth = n
		}
	}
}

// WithHooks sets the special-case hooks consulted before default dispatch.
func WithHooks(r *hooks.Registry) Option {
	return func(o *options) {
		o.hooks = r
	}
}

// WithDialect sets the reader for self-describing labels in another
// dialect. Files it detects bypass the PDS3 label parser.
func WithDialect(d DialectReader) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithContainer sets the reader used for objects stored in general-purpose
// container files.
func WithContainer(c ContainerReader) Option {
	return func(o *options) {
		o.container = c
	}
}

// FromConfig applies loaded configuration. Later options override it.
func FromConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.labelLimit = cfg.LabelLimit
		o.debug = cfg.Debug
		o.searchPaths = append(o.searchPaths, cfg.SearchPaths...)
		o.failureDir = cfg.FailureDir
		o.failureFormat = cfg.FailureFormat
		o.skipIgnored = cfg.SkipIgnored
		if o.logger == nil {
			o.logger = defaultLogger()
		}
		o.logger.SetLevel(cfg.LogLevel)
	}
}
