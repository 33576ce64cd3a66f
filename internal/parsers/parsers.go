// Package parsers wires every ticket layout parser into a registry.
package parsers

import (
	"uzpass/internal/parsers/labeled"
	"uzpass/internal/parsers/positional"
	"uzpass/internal/registry"
)

// NewRegistry returns a sorted registry holding all ticket parsers.
func NewRegistry() *registry.Registry {
	r := registry.New()
	r.Register(&labeled.Parser{})
	r.Register(&positional.Parser{})
	r.Sort()
	return r
}
