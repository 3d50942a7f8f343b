package tag

import (
	"regexp"
	"sort"
	"strings"
)

// Attr is one attribute value: either a bare flag (present with no value)
// or a string value. The two cases are distinct: a flag is not an empty
// string, and downstream parameter-type inference treats them differently.
type Attr struct {
	IsFlag bool
	Value  string
}

// FlagAttr returns the flag variant.
func FlagAttr() Attr { return Attr{IsFlag: true} }

// ValueAttr returns the valued variant.
func ValueAttr(v string) Attr { return Attr{Value: v} }

// Attrs maps attribute name to its parsed value.
type Attrs map[string]Attr

// Get returns the string value for name. Flags and absent attributes
// return "".
func (a Attrs) Get(name string) string {
	attr, ok := a[name]
	if !ok || attr.IsFlag {
		return ""
	}
	return attr.Value
}

// Has reports whether name is present, as a flag or with a value.
func (a Attrs) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Flag reports whether name is present as a bare flag.
func (a Attrs) Flag(name string) bool {
	attr, ok := a[name]
	return ok && attr.IsFlag
}

// SortedNames returns the attribute names in alphabetical order. Used for
// deterministic key construction.
func (a Attrs) SortedNames() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canonical serializes the attrs deterministically: params sorted by name,
// flags as bare names, values as name=value, joined by "&".
func (a Attrs) Canonical() string {
	var parts []string
	for _, name := range a.SortedNames() {
		attr := a[name]
		if attr.IsFlag {
			parts = append(parts, name)
		} else {
			parts = append(parts, name+"="+attr.Value)
		}
	}
	return strings.Join(parts, "&")
}

// attrPattern matches one attribute inside a tag body:
// name="double quoted", name='single quoted', name=unquoted, or a bare flag.
var attrPattern = regexp.MustCompile(
	`([A-Za-z_][A-Za-z0-9_-]*)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'}]+)))?`,
)

// parseAttrs parses the attribute list of a tag body. The body is the text
// between the tag name and the closing braces.
func parseAttrs(body string) Attrs {
	attrs := make(Attrs)
	for _, m := range attrPattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		switch {
		case m[2] != "" || strings.Contains(m[0], `""`):
			attrs[name] = ValueAttr(m[2])
		case m[3] != "" || strings.Contains(m[0], `''`):
			attrs[name] = ValueAttr(m[3])
		case m[4] != "":
			attrs[name] = ValueAttr(m[4])
		case strings.Contains(m[0], "="):
			// name= with nothing usable after it; treat as empty value
			attrs[name] = ValueAttr("")
		default:
			attrs[name] = FlagAttr()
		}
	}
	return attrs
}
