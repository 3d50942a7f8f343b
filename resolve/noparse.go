package resolve

import (
	"strings"

	"github.com/google/uuid"

	"github.com/lumenweave/lumen/tag"
)

// noparseGuard extracts {{noparse}}...{{/noparse}} spans to opaque
// placeholders before include resolution and restores the inner content
// verbatim afterwards. The noparse tags themselves are stripped, not
// restored. Each block gets its own random placeholder id so repeated or
// identical blocks round-trip independently.
type noparseGuard struct {
	blocks []guardedBlock
}

type guardedBlock struct {
	placeholder string
	inner       string
}

// extractNoparse replaces every noparse block in text with a placeholder
// and returns the rewritten text plus the guard needed to restore it.
func extractNoparse(text string) (string, *noparseGuard) {
	blocks := tag.ParseNoparseBlocks(text)
	if len(blocks) == 0 {
		return text, &noparseGuard{}
	}

	guard := &noparseGuard{blocks: make([]guardedBlock, 0, len(blocks))}
	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, block := range blocks {
		placeholder := "\x00lumen-noparse:" + uuid.NewString() + "\x00"
		guard.blocks = append(guard.blocks, guardedBlock{
			placeholder: placeholder,
			inner:       block.Inner,
		})
		b.WriteString(text[last:block.Start])
		b.WriteString(placeholder)
		last = block.End
	}
	b.WriteString(text[last:])

	return b.String(), guard
}

// restore substitutes each placeholder with its original inner content.
// Placeholders that disappeared during resolution (e.g. inside a region a
// failed include replaced) are simply skipped.
func (g *noparseGuard) restore(text string) string {
	for _, block := range g.blocks {
		text = strings.Replace(text, block.placeholder, block.inner, 1)
	}
	return text
}
