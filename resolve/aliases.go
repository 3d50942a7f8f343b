package resolve

import (
	"strings"

	"github.com/lumenweave/lumen/tag"
)

// AliasTable maps short names to contract identifiers, sourced from
// {{aliases ...}} tags. Later definitions override earlier ones within
// one document.
type AliasTable map[string]string

// NewAliasTable returns an empty table.
func NewAliasTable() AliasTable {
	return make(AliasTable)
}

// Collect folds every aliases tag in text into the table, in document
// order, so later tags win.
func (t AliasTable) Collect(text string) {
	for _, aliases := range tag.ParseAliases(text) {
		for _, def := range aliases.Defs {
			t[def.Name] = def.Value
		}
	}
}

// ResolveValues performs the one permitted second pass: alias values that
// are themselves @references get replaced if the referenced name is
// defined. Substitution reads a snapshot of the table, so chains are not
// chased and iteration order cannot change the outcome.
func (t AliasTable) ResolveValues() {
	snapshot := make(map[string]string, len(t))
	for name, value := range t {
		snapshot[name] = value
	}
	for name, value := range snapshot {
		if ref, ok := strings.CutPrefix(value, "@"); ok {
			if target, defined := snapshot[ref]; defined {
				t[name] = target
			}
		}
	}
}

// Resolve maps a contract reference to a concrete identifier. @name and
// bare alias names look up the table. An unresolved reference falls back
// to the literal string, deferring the failure to the fetch; the
// downstream error names the unresolvable target, which is at least
// diagnosable. Callers log a warning when ok is false for an @reference.
func (t AliasTable) Resolve(ref string) (resolved string, ok bool) {
	if name, isRef := strings.CutPrefix(ref, "@"); isRef {
		if target, defined := t[name]; defined {
			return target, true
		}
		return ref, false
	}
	if target, defined := t[ref]; defined {
		return target, true
	}
	return ref, true
}
