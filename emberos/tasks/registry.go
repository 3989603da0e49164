// Package tasks holds the built-in programs the boot manifest can
// schedule, keyed by kind.
package tasks

import (
	"sort"

	"ember/machine"
)

// Config is what a program learns about itself at spawn time.
type Config struct {
	Name string
	Arg  uint64
}

// Builder constructs the entry point for one manifest task.
type Builder func(cfg Config) machine.Entry

var registry = map[string]Builder{
	"greet": greet,
	"count": count,
	"hog":   hog,
	"spin":  spin,
}

// Lookup returns the builder for a kind.
func Lookup(kind string) (Builder, bool) {
	b, ok := registry[kind]
	return b, ok
}

// Kinds lists the registered kinds, sorted.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
