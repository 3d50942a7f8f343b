package chunk

import (
	"sort"
	"strings"

	"github.com/lumenweave/lumen/tag"
)

// Apply substitutes loaded chunk content into text. Each {{chunk}} tag
// whose (collection, index) appears in results is replaced by that
// chunk's content; each {{continue}} tag is replaced by the loaded
// chunks of its collection from its starting index onward, concatenated
// in index order. Tags whose collection loaded nothing are left in
// place so a later pass can retry them.
func Apply(text string, results []Result) string {
	if len(results) == 0 {
		return text
	}

	byID := make(map[string]string, len(results))
	byCollection := make(map[string][]Result)
	for _, r := range results {
		byID[chunkID(r.Collection, r.Index)] = r.Content
		byCollection[r.Collection] = append(byCollection[r.Collection], r)
	}
	for _, rs := range byCollection {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Index < rs[j].Index })
	}

	type span struct {
		start, end  int
		replacement string
	}
	var spans []span

	for _, c := range tag.ParseChunks(text) {
		content, ok := byID[chunkID(c.Collection, c.Index)]
		if !ok {
			continue
		}
		spans = append(spans, span{start: c.Start, end: c.End, replacement: content})
	}

	for _, cont := range tag.ParseContinuations(text) {
		loaded := byCollection[cont.Collection]
		var parts []string
		for _, r := range loaded {
			if r.Index >= cont.From {
				parts = append(parts, r.Content)
			}
		}
		if len(parts) == 0 {
			continue
		}
		spans = append(spans, span{start: cont.Start, end: cont.End, replacement: strings.Join(parts, "")})
	}

	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		b.WriteString(text[cursor:s.start])
		b.WriteString(s.replacement)
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String()
}
