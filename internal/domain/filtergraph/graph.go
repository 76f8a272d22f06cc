// Package filtergraph models an ffmpeg filter_complex description as a typed
// list of chains. Composition logic builds graphs from values instead of
// concatenating strings, and String serializes to the textual form the render
// backend expects.
package filtergraph

import (
	"fmt"
	"sort"
	"strings"
)

// Filter is one operation with ordered parameters. Args preserve insertion
// order; ffmpeg is order-sensitive for positional parameters.
type Filter struct {
	Name string
	args []arg
}

type arg struct {
	key string
	val string
}

// NewFilter creates a filter with no parameters.
func NewFilter(name string) Filter { return Filter{Name: name} }

// WithArg appends a key=value parameter. An empty key emits a positional
// value.
func (f Filter) WithArg(key, val string) Filter {
	f.args = append(f.args[:len(f.args):len(f.args)], arg{key: key, val: val})
	return f
}

// WithOption appends a valueless positional parameter.
func (f Filter) WithOption(val string) Filter { return f.WithArg("", val) }

func (f Filter) String() string {
	if len(f.args) == 0 {
		return f.Name
	}
	parts := make([]string, 0, len(f.args))
	for _, a := range f.args {
		if a.key == "" {
			parts = append(parts, a.val)
			continue
		}
		parts = append(parts, a.key+"="+a.val)
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is a linear sequence of filters between named pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Graph is an ordered list of chains.
type Graph struct {
	chains []Chain
}

// Add appends a chain and returns the graph for call chaining.
func (g *Graph) Add(c Chain) *Graph {
	g.chains = append(g.chains, c)
	return g
}

// AddChain is shorthand for a single-filter chain.
func (g *Graph) AddChain(inputs []string, f Filter, outputs ...string) *Graph {
	return g.Add(Chain{Inputs: inputs, Filters: []Filter{f}, Outputs: outputs})
}

// Len reports the number of chains.
func (g *Graph) Len() int { return len(g.chains) }

// Outputs returns every pad name that is produced but never consumed, sorted
// for determinism. These are the pads to map in the encode step.
func (g *Graph) Outputs() []string {
	produced := map[string]bool{}
	consumed := map[string]bool{}
	for _, c := range g.chains {
		for _, in := range c.Inputs {
			consumed[in] = true
		}
		for _, out := range c.Outputs {
			produced[out] = true
		}
	}
	var out []string
	for p := range produced {
		if !consumed[p] {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// String serializes to filter_complex syntax: chains separated by
// semicolons, filters within a chain by commas, pads in brackets.
func (g *Graph) String() string {
	lines := make([]string, 0, len(g.chains))
	for _, c := range g.chains {
		var b strings.Builder
		for _, in := range c.Inputs {
			fmt.Fprintf(&b, "[%s]", in)
		}
		fparts := make([]string, 0, len(c.Filters))
		for _, f := range c.Filters {
			fparts = append(fparts, f.String())
		}
		b.WriteString(strings.Join(fparts, ","))
		for _, out := range c.Outputs {
			fmt.Fprintf(&b, "[%s]", out)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, ";")
}

// Escape quotes a value for use inside a filter argument. Paths with colons
// or quotes would otherwise terminate the argument early.
func Escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	v = strings.ReplaceAll(v, `:`, `\:`)
	return v
}
