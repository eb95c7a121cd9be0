// Package virtualmod defines the synthetic module identifiers exchanged
// with the bundler.
//
// A virtual module has no backing file; it is served entirely from
// in-memory content. Its identifier carries a reserved prefix so it can
// never collide with a real path, the flat scope id it serves, and an
// extension that selects the served shape:
//
//	virtual:vanilla-extract:src/theme.css.ts.ts.css
//
// Identifiers are constructed with Make and recognized with Parse. Parse
// returns a definite "not a virtual id" outcome instead of leaving callers
// to substring-match the raw string.
package virtualmod

import "strings"

// Prefix is the reserved namespace prefix of every virtual module id.
const Prefix = "virtual:vanilla-extract:"

// Kind selects the served shape of a virtual module.
type Kind int

const (
	// KindCSS serves the raw CSS text; used for one-shot builds.
	KindCSS Kind = iota

	// KindJS serves the live style-injection shim; used while a dev
	// server is attached.
	KindJS
)

// Ext returns the textual extension for the kind.
func (k Kind) Ext() string {
	if k == KindJS {
		return ".js"
	}
	return ".css"
}

// String returns a human-readable kind name.
func (k Kind) String() string {
	if k == KindJS {
		return "js"
	}
	return "css"
}

// ID is a parsed virtual module identifier.
type ID struct {
	// ScopeID is the flat scope id the module serves.
	ScopeID string

	// Kind selects raw CSS or the injection shim.
	Kind Kind
}

// Make constructs the identifier for a scope.
func Make(scopeID string, kind Kind) ID {
	return ID{ScopeID: scopeID, Kind: kind}
}

// String renders the identifier in its exact wire form.
func (id ID) String() string {
	return Prefix + id.ScopeID + id.Kind.Ext()
}

// Parse attempts to recognize a raw module id as a virtual module
// identifier. The second return is false for anything outside the
// reserved namespace or without a known extension.
func Parse(raw string) (ID, bool) {
	rest, ok := strings.CutPrefix(raw, Prefix)
	if !ok {
		return ID{}, false
	}

	switch {
	case strings.HasSuffix(rest, ".js"):
		scope := strings.TrimSuffix(rest, ".js")
		if scope == "" {
			return ID{}, false
		}
		return ID{ScopeID: scope, Kind: KindJS}, true
	case strings.HasSuffix(rest, ".css"):
		scope := strings.TrimSuffix(rest, ".css")
		if scope == "" {
			return ID{}, false
		}
		return ID{ScopeID: scope, Kind: KindCSS}, true
	}
	return ID{}, false
}
