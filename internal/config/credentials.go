package config

import (
	"log/slog"
	"os"
	"strings"
)

// LookupFunc reads a single environment variable. It has the shape of
// os.LookupEnv so tests can substitute a map.
type LookupFunc func(name string) (string, bool)

// EnvLookup reads from the process environment.
var EnvLookup LookupFunc = os.LookupEnv

// MapLookup adapts a static map to a LookupFunc.
func MapLookup(values map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

// Credential is the outcome of probing a provider's accepted names.
type Credential struct {
	// Value is the secret. It is never logged.
	Value string
	// Source is the accepted name that supplied Value, empty when absent.
	Source string
	// Accepted lists every name that was probed, in priority order.
	Accepted []string
}

// Present reports whether any accepted name supplied a value.
func (c Credential) Present() bool {
	return c.Value != ""
}

// LogValue keeps the secret out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("present", c.Present()),
		slog.String("source", c.Source),
	)
}

// ResolveCredential returns the first non-blank value among names, checked in
// order. Whitespace-only values count as absent.
func ResolveCredential(lookup LookupFunc, names []string) Credential {
	if lookup == nil {
		lookup = EnvLookup
	}

	cred := Credential{Accepted: append([]string(nil), names...)}
	for _, name := range names {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		cred.Value = value
		cred.Source = name
		return cred
	}
	return cred
}
