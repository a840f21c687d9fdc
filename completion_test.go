package scarpetls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionByLabel(items []CompletionItem) map[string]CompletionItem {
	m := make(map[string]CompletionItem, len(items))
	for _, it := range items {
		if _, dup := m[it.Label]; !dup {
			m[it.Label] = it
		}
	}
	return m
}

func TestCompletions_Expression(t *testing.T) {
	t.Parallel()
	src := "abc = 1; helper(x) -> x; ab"
	doc := plainDoc(t, src)

	items := doc.Completions(len(src))
	byLabel := completionByLabel(items)

	abc, ok := byLabel["abc"]
	require.True(t, ok)
	assert.Equal(t, CompletionVariable, abc.Kind)
	assert.Equal(t, "variable", abc.Detail)

	helper, ok := byLabel["helper"]
	require.True(t, ok)
	assert.Equal(t, CompletionFunction, helper.Kind)
	assert.Equal(t, "helper(x)", helper.Detail)

	assert.Equal(t, CompletionKeyword, byLabel["pi"].Kind)
	assert.Equal(t, CompletionFunction, byLabel["print"].Kind)
	assert.Equal(t, "print(expr)", byLabel["print"].Detail)
	assert.True(t, byLabel["material"].Deprecated)

	tick, ok := byLabel["__on_tick"]
	require.True(t, ok)
	assert.Equal(t, CompletionSnippet, tick.Kind)
	assert.Equal(t, "__on_tick() -> ", tick.InsertText)

	start := offsetOf(t, src, "ab", 1)
	for _, it := range items {
		assert.Equal(t, start, it.Range.Start.Offset, it.Label)
		assert.Equal(t, len(src), it.Range.End.Offset, it.Label)
	}
}

func TestCompletions_EmptyRangeAfterOperator(t *testing.T) {
	t.Parallel()
	src := "a = 1; a + "
	doc := plainDoc(t, src)

	items := doc.Completions(len(src))
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.Equal(t, len(src), it.Range.Start.Offset)
		assert.Equal(t, len(src), it.Range.End.Offset)
	}
}

func TestCompletions_FunctionString(t *testing.T) {
	t.Parallel()
	src := "helper() -> 1; v = 2; call('he')"
	doc := plainDoc(t, src)

	items := doc.Completions(offsetOf(t, src, "he')", 0) + 2)
	byLabel := completionByLabel(items)

	helper, ok := byLabel["helper"]
	require.True(t, ok)
	assert.Equal(t, CompletionConstant, helper.Kind)
	assert.Equal(t, "'helper'", helper.InsertText)
	assert.Equal(t, "'print'", byLabel["print"].InsertText)

	for _, label := range []string{"v", "pi", "__on_tick"} {
		_, ok := byLabel[label]
		assert.False(t, ok, label)
	}
}

func TestCompletions_NothingInCommentsOrPlainStrings(t *testing.T) {
	t.Parallel()
	src := "x = 1; // he"
	assert.Nil(t, plainDoc(t, src).Completions(len(src)))

	src = "print('he')"
	assert.Nil(t, plainDoc(t, src).Completions(offsetOf(t, src, "he'", 0)+2))
}

func TestCompletions_CallbacksAreNotOfferedAsFunctions(t *testing.T) {
	t.Parallel()
	src := "__on_tick() -> 1; "
	doc := plainDoc(t, src)

	var count int
	for _, it := range doc.Completions(len(src)) {
		if it.Label == "__on_tick" {
			count++
			assert.Equal(t, CompletionSnippet, it.Kind)
		}
	}
	assert.Equal(t, 1, count)
}
