package scarpetls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scarpetls/internal/builtins"
)

// testBuiltins is a small table with predictable documentation.
func testBuiltins() *builtins.Table {
	return &builtins.Table{
		Functions: map[string]builtins.Function{
			"print": {
				Plain: "Prints a value.", Markdown: "Prints a *value*.",
				Signatures: []builtins.Signature{{Params: []builtins.Param{{Name: "expr"}}}},
			},
			"call":     {Plain: "Calls a function."},
			"schedule": {Plain: "Schedules a call."},
			"outer":    {Plain: "Captures a variable."},
			"material": {Plain: "Material of a block.", Deprecated: "Deprecated: gone."},
		},
		Constants: map[string]builtins.Constant{
			"pi":   {Plain: "Ratio of a circle.", Markdown: "Ratio of a circle."},
			"true": {Plain: "Boolean true."},
		},
		Callbacks: map[string]builtins.Callback{
			"__on_tick": {Plain: "Called every tick."},
			"__on_old":  {Plain: "Old event.", Deprecated: "Deprecated: use __on_tick."},
		},
	}
}

func plainDoc(t *testing.T, src string) *Document {
	t.Helper()
	return NewAnalyzer(WithBuiltins(testBuiltins()), WithMarkdown(false)).Analyze("file:///h.sc", 1, src)
}

func TestHover_UserFunction(t *testing.T) {
	t.Parallel()
	src := "// Doubles x.\ndouble(x) -> x * 2; double(3)"
	doc := NewAnalyzer(WithBuiltins(testBuiltins())).Analyze("file:///h.sc", 1, src)

	off := offsetOf(t, src, "double(3)", 0)
	h := doc.Hover(off + 1)
	require.NotNil(t, h)
	assert.True(t, h.Markdown)
	assert.Contains(t, h.Contents, "```scarpet\ndouble(x) -> ...\n```")
	assert.Contains(t, h.Contents, "Doubles x.")
	assert.Equal(t, off, h.Range.Start.Offset)
	assert.Equal(t, off+len("double"), h.Range.End.Offset)

	h = doc.Hover(offsetOf(t, src, "double", 0))
	require.NotNil(t, h, "declaration name")
	assert.Contains(t, h.Contents, "Doubles x.")

	assert.Nil(t, doc.Hover(offsetOf(t, src, "*", 0)), "body operator")
}

func TestHover_Builtins(t *testing.T) {
	t.Parallel()
	doc := plainDoc(t, "print(pi); material(1)")

	h := doc.Hover(0)
	require.NotNil(t, h)
	assert.False(t, h.Markdown)
	assert.Equal(t, "print(expr)\n\nPrints a value.", h.Contents)

	h = doc.Hover(offsetOf(t, doc.Text, "pi", 0))
	require.NotNil(t, h)
	assert.Equal(t, "pi\n\nRatio of a circle.", h.Contents)

	h = doc.Hover(offsetOf(t, doc.Text, "material", 0))
	require.NotNil(t, h)
	assert.Equal(t, "material()\n\nDeprecated: gone.\nMaterial of a block.", h.Contents)
}

func TestHover_CallbackDeclaration(t *testing.T) {
	t.Parallel()
	doc := plainDoc(t, "__on_tick() -> 1")
	h := doc.Hover(2)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "__on_tick() -> ...")
	assert.Contains(t, h.Contents, "Called every tick.")
}

func TestHover_Variables(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src    string
		needle string
		nth    int
		want   string
	}{
		{"f(...args) -> args", "args", 1, "(parameter) ...args"},
		{"f(a) -> a", "a", 1, "(parameter) a"},
		{"global_a = 1; global_a", "global_a", 1, "(global) global_a"},
		{"v = 1; v", "v", 1, "v"},
		{"b = 1; f(outer(b)) -> b", "b", 1, "(outer) b"},
		{"unset", "unset", 0, "unset"},
		{"x = 0xff", "0xff", 0, "255 (0xFF)"},
		{"x = 2.5", "2.5", 0, "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			doc := plainDoc(t, tt.src)
			h := doc.Hover(offsetOf(t, tt.src, tt.needle, tt.nth))
			require.NotNil(t, h)
			assert.Equal(t, tt.want, h.Contents)
		})
	}
}

func TestHover_Strings(t *testing.T) {
	t.Parallel()
	src := "job() -> 1; schedule(5, 'job'); print('job')"
	doc := plainDoc(t, src)

	h := doc.Hover(offsetOf(t, src, "'job'", 0) + 1)
	require.NotNil(t, h)
	assert.Equal(t, "job() -> ...", h.Contents)

	assert.Nil(t, doc.Hover(offsetOf(t, src, "'job'", 1)+1), "ordinary string")
}

func TestHover_OutsideTree(t *testing.T) {
	t.Parallel()
	doc := plainDoc(t, "x = 1   ")
	assert.Nil(t, doc.Hover(100))
	assert.Nil(t, plainDoc(t, "").Hover(0))
}

func TestSignature(t *testing.T) {
	t.Parallel()
	doc := plainDoc(t, "b = 1; f(a, ...rest, outer(b)) -> a")
	fns := doc.Tables().Functions()
	require.Len(t, fns, 1)
	assert.Equal(t, "f(a, ...rest, outer(b))", Signature(fns[0]))
}
