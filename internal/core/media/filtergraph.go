// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package media

import (
	"math"
	"strconv"
	"strings"
)

// Arg is one filter option. An Arg with an empty Key is positional.
type Arg struct {
	Key   string
	Value string
}

// Filter is a single ffmpeg filter, e.g. scale=1080:1920.
type Filter struct {
	Name string
	Args []Arg
}

// NewFilter creates a filter with key/value arguments given as pairs.
func NewFilter(name string, kv ...string) Filter {
	f := Filter{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Args = append(f.Args, Arg{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// Arg returns the value for key and whether it is present.
func (f Filter) Arg(key string) (string, bool) {
	for _, a := range f.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	parts := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		v := quoteValue(a.Value)
		if a.Key == "" {
			parts = append(parts, v)
		} else {
			parts = append(parts, a.Key+"="+v)
		}
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is a linear run of filters between labelled pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Names lists the filter names in order.
func (c Chain) Names() []string {
	out := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		out[i] = f.Name
	}
	return out
}

// Find returns the first filter named name.
func (c Chain) Find(name string) (Filter, bool) {
	for _, f := range c.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

func (c Chain) String() string {
	var sb strings.Builder
	for _, in := range c.Inputs {
		sb.WriteString("[" + in + "]")
	}
	for i, f := range c.Filters {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(f.String())
	}
	for _, out := range c.Outputs {
		sb.WriteString("[" + out + "]")
	}
	return sb.String()
}

// Graph is a complete -filter_complex description.
type Graph struct {
	Chains []Chain
}

// Add appends chains to the graph.
func (g *Graph) Add(c ...Chain) {
	g.Chains = append(g.Chains, c...)
}

// Filters returns every filter named name, in graph order.
func (g *Graph) Filters(name string) []Filter {
	var out []Filter
	for _, c := range g.Chains {
		for _, f := range c.Filters {
			if f.Name == name {
				out = append(out, f)
			}
		}
	}
	return out
}

func (g *Graph) String() string {
	parts := make([]string, len(g.Chains))
	for i, c := range g.Chains {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// quoteValue wraps values holding filtergraph separators in single quotes.
func quoteValue(v string) string {
	if strings.ContainsAny(v, ",:;[]=") {
		return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
	}
	return v
}

// Seconds formats a duration for filter arguments and command line flags,
// rounded to the millisecond.
func Seconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
