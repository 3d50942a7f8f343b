// Package resolve turns contract markup containing {{include ...}} tags
// into flat documents. It owns the recursion: alias resolution, cycle
// detection through an ancestor chain, a TTL cache shared across page
// loads, and noparse protection for literal tag text.
package resolve

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/lumenweave/lumen/tag"
)

// Key identifies one include resolution. It doubles as the cycle-detection
// identity and the cache key, so it must be stable regardless of attribute
// order in the source tag: params are sorted alphabetically, flags
// serialize as bare names, valued params as name=value.
type Key string

// BuildKey builds the key for a resolved contract id + call shape.
// The contract id here is post-alias-resolution; two tags spelled
// differently but hitting the same call collapse to one key.
func BuildKey(contractID, function, path string, params tag.Attrs) Key {
	var b strings.Builder
	b.WriteString(contractID)
	b.WriteByte('|')
	b.WriteString(function)
	b.WriteByte('|')
	b.WriteString(path)
	b.WriteByte('|')
	b.WriteString(params.Canonical())
	return Key(b.String())
}

// Digest returns a compact, filesystem- and URL-safe form of the key:
// base58 of its SHA-256. Used by the snapshot store and log output.
func (k Key) Digest() string {
	sum := sha256.Sum256([]byte(k))
	return base58.Encode(sum[:])
}

// AncestorSet is the chain of in-progress resolution keys for one
// top-level call. It is extended copy-on-recurse: a child sees only its
// own lineage, never a sibling's.
type AncestorSet map[Key]struct{}

// Has reports whether k is already being resolved in this lineage.
func (a AncestorSet) Has(k Key) bool {
	_, ok := a[k]
	return ok
}

// With returns a new set containing this lineage plus k. The receiver is
// not modified.
func (a AncestorSet) With(k Key) AncestorSet {
	next := make(AncestorSet, len(a)+1)
	for key := range a {
		next[key] = struct{}{}
	}
	next[k] = struct{}{}
	return next
}
