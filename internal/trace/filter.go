package trace

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Filter selects events by glob patterns over their Kind, e.g. "*PROCESSING"
// or "ERROR". A Filter with no patterns matches everything.
type Filter struct {
	patterns []glob.Glob
	sources  []string
}

// NewFilter compiles patterns. Matching is case-insensitive.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.ToUpper(p))
		if err != nil {
			return nil, fmt.Errorf("invalid trace kind pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, g)
		f.sources = append(f.sources, p)
	}
	return f, nil
}

// Match reports whether ev passes the filter.
func (f *Filter) Match(ev Event) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	kind := string(ev.Kind)
	for _, g := range f.patterns {
		if g.Match(kind) {
			return true
		}
	}
	return false
}

// String returns the patterns joined by commas.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.sources, ",")
}
