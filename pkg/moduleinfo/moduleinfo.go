// Package moduleinfo defines Info, the static description of a module class
// harvested from a supermodule at load time.
//
// © 2026 pulsar authors. MIT License.
package moduleinfo

import "github.com/pulsarchem/pulsar/pkg/options"

// Info describes a module class: its identity, the supermodule it came
// from, and its default OptionMap. A Tree node stores a copy of Info taken
// at instantiation time, carrying the effective (not default) OptionMap.
type Info struct {
	Name        string
	Type        string
	Path        string
	Version     string
	Description string
	Authors     []string
	Refs        []string
	Options     *options.OptionMap
}

// Clone returns a deep copy; mutating the clone (including its Options)
// never affects info.
func (info Info) Clone() Info {
	out := info
	out.Authors = append([]string(nil), info.Authors...)
	out.Refs = append([]string(nil), info.Refs...)
	if info.Options != nil {
		out.Options = info.Options.Clone()
	}
	return out
}

// WithOptions returns a copy of info carrying opts as its effective option
// map, leaving info itself untouched. Used by ModuleManager when snapshotting
// a tree node at instantiation time.
func (info Info) WithOptions(opts *options.OptionMap) Info {
	out := info.Clone()
	out.Options = opts
	return out
}
