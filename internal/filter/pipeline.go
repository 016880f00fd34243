package filter

import (
	"fmt"
	"path"
	"strings"
)

// Pipeline represents the compression layers of one file.
type Pipeline struct {
	filters []Filter // innermost first
}

// NewPipeline creates a pipeline from the compression extensions at the end
// of name. It returns the name with those extensions removed.
func NewPipeline(name string) (*Pipeline, string) {
	p := &Pipeline{}
	for {
		ext := path.Ext(name)
		f, ok := ForExtension(ext)
		if !ok {
			return p, name
		}
		p.filters = append([]Filter{f}, p.filters...)
		name = strings.TrimSuffix(name, ext)
	}
}

// Append adds an outer layer.
func (p *Pipeline) Append(f Filter) {
	p.filters = append(p.filters, f)
}

// Decode applies the filter pipeline to encoded data.
// Filters are applied in reverse order (outermost layer first).
func (p *Pipeline) Decode(input []byte) ([]byte, error) {
	if len(p.filters) == 0 {
		return input, nil
	}

	data := input

	for i := len(p.filters) - 1; i >= 0; i-- {
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s decode: %w", p.filters[i].Name(), err)
		}
	}

	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}

// Names returns the filter names, innermost first.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	return names
}
