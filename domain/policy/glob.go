package policy

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobSet matches dotted property paths against doublestar patterns written
// over the same dotted form, e.g. "Object.prototype.__*" or "process.**".
type GlobSet struct {
	patterns []string
}

// NewGlobSet validates and compiles patterns.
func NewGlobSet(patterns ...string) (*GlobSet, error) {
	g := &GlobSet{}
	for _, p := range patterns {
		slashed := toSlashes(p)
		if !doublestar.ValidatePattern(slashed) {
			return nil, fmt.Errorf("invalid path pattern %q", p)
		}
		g.patterns = append(g.patterns, slashed)
	}
	return g, nil
}

// ValidPattern reports whether p is a well-formed path pattern.
func ValidPattern(p string) bool {
	return doublestar.ValidatePattern(toSlashes(p))
}

// Match reports whether path matches any pattern. A nil set matches nothing.
func (g *GlobSet) Match(path string) bool {
	if g == nil {
		return false
	}
	target := toSlashes(path)
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (g *GlobSet) Len() int {
	if g == nil {
		return 0
	}
	return len(g.patterns)
}

func toSlashes(path string) string {
	return strings.ReplaceAll(path, ".", "/")
}
