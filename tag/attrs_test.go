package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAttrs_QuoteVariants(t *testing.T) {
	attrs := parseAttrs(`a="double" b='single' c=bare flag`)

	assert.Equal(t, "double", attrs.Get("a"))
	assert.Equal(t, "single", attrs.Get("b"))
	assert.Equal(t, "bare", attrs.Get("c"))
	assert.True(t, attrs.Flag("flag"))
}

func TestParseAttrs_FlagIsNotEmptyValue(t *testing.T) {
	attrs := parseAttrs(`flag empty=""`)

	assert.True(t, attrs.Flag("flag"))
	assert.False(t, attrs.Flag("empty"), `name="" is a valued attribute, not a flag`)
	assert.Equal(t, "", attrs.Get("empty"))
	assert.True(t, attrs.Has("empty"))
}

func TestParseAttrs_ValueWithSpaces(t *testing.T) {
	attrs := parseAttrs(`title="hello world" path="/a b/c"`)
	assert.Equal(t, "hello world", attrs.Get("title"))
	assert.Equal(t, "/a b/c", attrs.Get("path"))
}

func TestAttrs_Canonical_OrderIndependent(t *testing.T) {
	a := parseAttrs(`b="2" a="1" flag`)
	b := parseAttrs(`flag a="1" b="2"`)

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "a=1&b=2&flag", a.Canonical())
}

func TestAttrs_SortedNames(t *testing.T) {
	attrs := parseAttrs(`zeta="1" alpha="2" mid`)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, attrs.SortedNames())
}

func TestAttrs_GetOnFlagReturnsEmpty(t *testing.T) {
	attrs := parseAttrs(`verbose`)
	assert.Equal(t, "", attrs.Get("verbose"))
	assert.True(t, attrs.Has("verbose"))
}
