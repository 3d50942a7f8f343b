package tag

import (
	"regexp"
	"strconv"
)

// Tag patterns. Bodies stop at the first "}}" so tags never swallow each
// other; noparse is the only paired construct and is matched non-greedily.
var (
	includePattern  = regexp.MustCompile(`\{\{include\s+([^}]*)\}\}`)
	aliasesPattern  = regexp.MustCompile(`\{\{aliases\s+([^}]*)\}\}`)
	chunkPattern    = regexp.MustCompile(`\{\{chunk\s+([^}]*)\}\}`)
	continuePattern = regexp.MustCompile(`\{\{continue\s+([^}]*)\}\}`)
	renderPattern   = regexp.MustCompile(`\{\{render\s+([^}]*)\}\}`)
	noparsePattern  = regexp.MustCompile(`(?is)\{\{noparse\}\}(.*?)\{\{/noparse\}\}`)

	// aliasDefPattern is attrPattern restricted to valued attributes,
	// used to recover source order for alias definitions.
	aliasDefPattern = regexp.MustCompile(
		`([A-Za-z_][A-Za-z0-9_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'}]+))`,
	)
)

// scan runs pattern over text and hands each match to build. A nil return
// from build drops the match (malformed tag).
func scan[T any](pattern *regexp.Regexp, kind Kind, text string, build func(t Tag) *T) []T {
	var out []T
	for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		body := ""
		if m[2] >= 0 {
			body = text[m[2]:m[3]]
		}
		t := Tag{
			Kind:  kind,
			Raw:   text[start:end],
			Start: start,
			End:   end,
			Attrs: parseAttrs(body),
		}
		if built := build(t); built != nil {
			out = append(out, *built)
		}
	}
	return out
}

// ParseIncludes returns every well-formed include tag in document order.
// Includes without a contract attribute are dropped.
func ParseIncludes(text string) []Include {
	return scan(includePattern, KindInclude, text, func(t Tag) *Include {
		contract := t.Attrs.Get(attrContract)
		if contract == "" {
			return nil
		}
		params := make(Attrs)
		for name, attr := range t.Attrs {
			switch name {
			case attrContract, attrFunc, attrPath:
			default:
				params[name] = attr
			}
		}
		return &Include{
			Tag:      t,
			Contract: contract,
			Func:     t.Attrs.Get(attrFunc),
			Path:     t.Attrs.Get(attrPath),
			Params:   params,
		}
	})
}

// ParseAliases returns every aliases tag in document order, each with its
// definitions in source order.
func ParseAliases(text string) []Aliases {
	return scan(aliasesPattern, KindAliases, text, func(t Tag) *Aliases {
		body := t.Raw[len("{{aliases") : len(t.Raw)-len("}}")]
		var defs []AliasDef
		for _, m := range aliasDefPattern.FindAllStringSubmatch(body, -1) {
			value := m[2]
			if value == "" {
				value = m[3]
			}
			if value == "" {
				value = m[4]
			}
			if value == "" {
				continue
			}
			defs = append(defs, AliasDef{Name: m[1], Value: value})
		}
		if len(defs) == 0 {
			return nil
		}
		return &Aliases{Tag: t, Defs: defs}
	})
}

// ParseChunks returns every well-formed chunk tag in document order.
// A chunk needs a collection and a numeric index.
func ParseChunks(text string) []Chunk {
	return scan(chunkPattern, KindChunk, text, func(t Tag) *Chunk {
		collection := t.Attrs.Get("collection")
		if collection == "" {
			return nil
		}
		index, err := strconv.Atoi(t.Attrs.Get("index"))
		if err != nil || index < 0 {
			return nil
		}
		return &Chunk{Tag: t, Collection: collection, Index: index}
	})
}

// ParseContinuations returns every well-formed continue tag in document
// order. from defaults to 0; total is optional and left unresolved here.
func ParseContinuations(text string) []Continuation {
	return scan(continuePattern, KindContinue, text, func(t Tag) *Continuation {
		collection := t.Attrs.Get("collection")
		if collection == "" {
			return nil
		}
		cont := &Continuation{Tag: t, Collection: collection}
		if from := t.Attrs.Get("from"); from != "" {
			n, err := strconv.Atoi(from)
			if err != nil || n < 0 {
				return nil
			}
			cont.From = n
		}
		if total := t.Attrs.Get("total"); total != "" {
			n, err := strconv.Atoi(total)
			if err != nil || n < 0 {
				return nil
			}
			cont.Total = n
			cont.HasTotal = true
		}
		return cont
	})
}

// ParseRenders returns every well-formed render tag in document order.
func ParseRenders(text string) []Render {
	return scan(renderPattern, KindRender, text, func(t Tag) *Render {
		path := t.Attrs.Get("path")
		if path == "" {
			return nil
		}
		return &Render{Tag: t, Path: path}
	})
}

// ParseNoparseBlocks returns every paired noparse block in document order.
// Tag names match case-insensitively; inner content is untouched.
func ParseNoparseBlocks(text string) []NoparseBlock {
	var out []NoparseBlock
	for _, m := range noparsePattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, NoparseBlock{
			Inner: text[m[2]:m[3]],
			Start: m[0],
			End:   m[1],
		})
	}
	return out
}

// Detection helpers. Each is defined in terms of its parse function so the
// two can never disagree about what counts as a tag.

func HasIncludeTags(text string) bool      { return len(ParseIncludes(text)) > 0 }
func HasAliasTags(text string) bool        { return len(ParseAliases(text)) > 0 }
func HasChunkTags(text string) bool        { return len(ParseChunks(text)) > 0 }
func HasContinuationTags(text string) bool { return len(ParseContinuations(text)) > 0 }
func HasRenderTags(text string) bool       { return len(ParseRenders(text)) > 0 }
func HasNoparseBlocks(text string) bool    { return len(ParseNoparseBlocks(text)) > 0 }
