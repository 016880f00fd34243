// Package diag records per-object load failures for offline reproduction.
//
// A [Failure] names the object, the step that failed and the parameters
// that step ran with. In diagnostic mode a [Recorder] writes each failure to
// its own YAML or TOML file under a failure directory.
package diag

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format selects the failure record encoding.
type Format string

// Record formats
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts "yaml", "yml" and "toml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// Errors
var (
	ErrFormat = errors.New("unknown failure record format")
	ErrNoDir  = errors.New("no failure directory configured")
)

// Failure is one failed decode step.
type Failure struct {
	Label   string            `yaml:"label" toml:"label"`
	Object  string            `yaml:"object" toml:"object"`
	Step    string            `yaml:"step" toml:"step"`
	Error   string            `yaml:"error" toml:"error"`
	Params  map[string]string `yaml:"params,omitempty" toml:"params,omitempty"`
	Time    time.Time         `yaml:"time" toml:"time"`
	Snippet string            `yaml:"label_snippet,omitempty" toml:"label_snippet,omitempty"`
}

// NewFailure builds a record. Parameter values are rendered with %v.
func NewFailure(labelPath, object, step string, err error, params map[string]any) Failure {
	f := Failure{
		Label:  labelPath,
		Object: object,
		Step:   step,
		Time:   time.Now().UTC().Truncate(time.Second),
	}
	if err != nil {
		f.Error = err.Error()
	}
	if len(params) > 0 {
		f.Params = make(map[string]string, len(params))
		for k, v := range params {
			if v != nil {
				f.Params[k] = fmt.Sprintf("%v", v)
			}
		}
	}
	return f
}

// Summary renders the record on one line with sorted parameters.
func (f Failure) Summary() string {
	keys := make([]string, 0, len(f.Params))
	for k := range f.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]: %s", f.Object, f.Step, f.Error)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, f.Params[k])
	}
	return sb.String()
}

// Encode marshals the record.
func (f Failure) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatTOML:
		return toml.Marshal(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, format)
}

// Decode unmarshals a record written by Encode.
func Decode(data []byte, format Format) (Failure, error) {
	var f Failure
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatTOML:
		err = toml.Unmarshal(data, &f)
	default:
		err = fmt.Errorf("%w: %q", ErrFormat, format)
	}
	return f, err
}

// Recorder persists failures as individual files.
type Recorder struct {
	fs     afero.Fs
	dir    string
	format Format
	seq    int
}

// NewRecorder writes records under dir on fs.
func NewRecorder(fs afero.Fs, dir string, format Format) (*Recorder, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	if format != FormatYAML && format != FormatTOML {
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating failure directory: %w", err)
	}
	return &Recorder{fs: fs, dir: dir, format: format}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Write stores f and returns the path written. Names are built from the
// label base name, the object and a per-recorder sequence number.
func (r *Recorder) Write(f Failure) (string, error) {
	data, err := f.Encode(r.format)
	if err != nil {
		return "", fmt.Errorf("encoding failure record: %w", err)
	}
	r.seq++
	stem := strings.TrimSuffix(path.Base(f.Label), path.Ext(f.Label))
	name := fmt.Sprintf("%s_%s_%03d.%s", stem, f.Object, r.seq, r.format)
	p := path.Join(r.dir, unsafeChars.ReplaceAllString(name, "_"))
	if err := afero.WriteFile(r.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing failure record: %w", err)
	}
	return p, nil
}
