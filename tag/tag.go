// Package tag extracts render directives from contract-produced markup.
//
// Contracts emit plain markdown with embedded {{...}} tags:
//   - {{include contract=<id|SELF|@alias> [func="name"] [path="p"] [params...]}}
//   - {{noparse}}...{{/noparse}} (case-insensitive, protects literal text)
//   - {{aliases name=value ...}}
//   - {{chunk collection="c" index=N}}
//   - {{continue collection="c" [from=N] [total=N]}}
//   - {{render path="p"}}
//
// The grammar is intentionally flat: tags never nest except for the
// explicitly paired noparse block. Scanning is regex-based and stateless;
// parsing the same text twice yields identical results. Malformed tags
// (an include without a contract, a chunk without an index) are dropped,
// not reported; a broken tag renders as literal text downstream.
//
// All offsets are byte offsets into the exact string that was parsed and
// are invalidated by any edit to it.
package tag

// Kind identifies which directive a Tag carries.
type Kind string

const (
	KindInclude  Kind = "include"
	KindAliases  Kind = "aliases"
	KindChunk    Kind = "chunk"
	KindContinue Kind = "continue"
	KindRender   Kind = "render"
)

// Tag is one parsed directive. Immutable once parsed.
type Tag struct {
	Kind  Kind
	Raw   string // original text including the {{ }} braces
	Start int    // byte offset of "{{" in the parsed string
	End   int    // byte offset just past "}}"
	Attrs Attrs
}

// Reserved include attribute names. Everything else in an include tag is a
// call parameter.
const (
	attrContract = "contract"
	attrFunc     = "func"
	attrPath     = "path"
)

// Include is a parsed {{include ...}} tag. Contract is the raw reference
// as written: a literal contract id, "SELF", or an @alias. Params holds
// every non-reserved attribute; resolution keys sort them by name so
// insertion order never matters.
type Include struct {
	Tag
	Contract string
	Func     string
	Path     string
	Params   Attrs
}

// Parameterized reports whether this include uses the named-parameter
// calling convention. Contracts opt in either by taking any non-standard
// attribute or by the _include function suffix; everything else goes
// through the conventional (path, viewer) signature.
func (inc Include) Parameterized() bool {
	if len(inc.Params) > 0 {
		return true
	}
	return hasSuffix(inc.Func, "_include")
}

// TargetFunction maps the func attribute to the on-chain function name:
// func="header" calls render_header, no func calls render. Parameterized
// functions ending in _include are called verbatim.
func (inc Include) TargetFunction() string {
	if inc.Func == "" {
		return "render"
	}
	if hasSuffix(inc.Func, "_include") {
		return inc.Func
	}
	return "render_" + inc.Func
}

// Chunk is a parsed {{chunk ...}} tag: one indexed unit of a collection.
type Chunk struct {
	Tag
	Collection string
	Index      int
}

// Continuation is a parsed {{continue ...}} tag: an open-ended request for
// chunks From..Total-1. Total may be absent (HasTotal false), in which case
// the loader bounds it with a chunk-count query.
type Continuation struct {
	Tag
	Collection string
	From       int
	Total      int
	HasTotal   bool
}

// Render is a parsed {{render ...}} tag: a whole sub-page fetch by path.
type Render struct {
	Tag
	Path string
}

// AliasDef is one name=value pair from an {{aliases ...}} tag, in source
// order. Later definitions override earlier ones when the table is built.
type AliasDef struct {
	Name  string
	Value string
}

// Aliases is a parsed {{aliases ...}} tag.
type Aliases struct {
	Tag
	Defs []AliasDef
}

// NoparseBlock is one {{noparse}}...{{/noparse}} span. Inner is preserved
// byte-for-byte; Start/End cover the whole block including the paired tags.
type NoparseBlock struct {
	Inner string
	Start int
	End   int
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
