package scarpetls

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// benchSource is a realistic app script: callbacks, helpers, captures,
// lambdas and function strings.
const benchSource = `// Shop app.
global_prices = {'diamond' -> 100, 'emerald' -> 40};
global_sales = 0;

__config() -> {'scope' -> 'global'};

// Price of an item, or null.
price(item) -> global_prices:item;

sell(player, item, count) -> (
    p = price(item);
    if(p == null, return(false));
    total = p * count;
    global_sales = global_sales + total;
    print(player, 'sold ' + count + ' ' + item + ' for ' + total);
    true
);

restock(outer(global_prices), factor) -> (
    for(keys(global_prices), global_prices:_ = global_prices:_ * factor);
    schedule(1200, 'restock', factor)
);

report(...names) -> (
    totals = map(names, _(n) -> price(n));
    filter(totals, _ != null)
);

__on_player_uses_item(player, item_tuple, hand) -> (
    [item, count, nbt] = item_tuple;
    sell(player, item, count)
);

restock(1);
`

func benchDir(b *testing.B, files int) []string {
	b.Helper()
	dir := b.TempDir()
	paths := make([]string, files)
	for i := range paths {
		src := strings.ReplaceAll(benchSource, "sell", fmt.Sprintf("sell_%d", i))
		paths[i] = filepath.Join(dir, fmt.Sprintf("app_%d.sc", i))
		if err := os.WriteFile(paths[i], []byte(src), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return paths
}

func BenchmarkAnalyze(b *testing.B) {
	a := NewAnalyzer()
	b.ReportAllocs()
	for b.Loop() {
		a.Analyze("file:///bench.sc", 1, benchSource)
	}
}

func BenchmarkDefinitionAt(b *testing.B) {
	doc := NewAnalyzer().Analyze("file:///bench.sc", 1, benchSource)
	offsets := make([]int, 0, len(benchSource)/8)
	for off := 0; off < len(benchSource); off += 8 {
		offsets = append(offsets, off)
	}
	b.ResetTimer()
	for b.Loop() {
		for _, off := range offsets {
			_, _ = doc.DefinitionAt(off)
		}
	}
}

func BenchmarkCompletions(b *testing.B) {
	doc := NewAnalyzer().Analyze("file:///bench.sc", 1, benchSource)
	off := strings.Index(benchSource, "total = p")
	for b.Loop() {
		doc.Completions(off)
	}
}

func benchmarkIndex(b *testing.B, opts ...Option) {
	paths := benchDir(b, 50)
	b.ResetTimer()
	for b.Loop() {
		b.StopTimer()
		e, err := New(filepath.Join(b.TempDir(), "bench.db"), opts...)
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		if err := e.IndexFiles(context.Background(), paths); err != nil {
			b.Fatal(err)
		}
		b.StopTimer()
		e.Close()
		b.StartTimer()
	}
}

func BenchmarkIndexFiles_Serial(b *testing.B) {
	benchmarkIndex(b, WithParallel(false))
}

func BenchmarkIndexFiles_Parallel(b *testing.B) {
	benchmarkIndex(b, WithParallel(true))
}
