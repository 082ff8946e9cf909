package adblock

import (
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/require"
	"github.com/traychrome/adblock/filterlist"
)

// benchRules returns n generated block rules of all shapes.
func benchRules(n int) (lines []string) {
	lines = make([]string, 0, n)
	for i := range n {
		switch i % 4 {
		case 0:
			lines = append(lines, fmt.Sprintf("||tracker%d.example^", i))
		case 1:
			lines = append(lines, fmt.Sprintf("|https://cdn%d.example/ads/", i))
		case 2:
			lines = append(lines, fmt.Sprintf("/banner%d[a-z]+/", i))
		default:
			lines = append(lines, fmt.Sprintf("pixel%d", i))
		}
	}

	return lines
}

// benchURIs returns n request URIs some of which match the benchRules.
func benchURIs(n int) (uris []string) {
	uris = make([]string, 0, n)
	for i := range n {
		if i%3 == 0 {
			uris = append(uris, fmt.Sprintf("https://tracker%d.example/script.js", i))
		} else {
			uris = append(uris, fmt.Sprintf("https://site%d.example/page/%d.html", i, i))
		}
	}

	return uris
}

func TestBenchEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}

	startHeap, startRSS := alloc(t)
	t.Logf("Allocated before loading rules (heap/RSS, kiB): %d/%d", startHeap, startRSS)

	e := newBenchEngine(t, 1024)

	startParse := time.Now()
	e.SetBlockRules(append(benchRules(2000), filterlist.DefaultBlockRules()...))
	t.Logf("Elapsed on parsing rules: %v", time.Since(startParse))
	t.Logf("Rules count: %d", len(e.BlockRules()))

	loadHeap, loadRSS := alloc(t)
	t.Logf(
		"Allocated after loading rules (heap/RSS, kiB): %d/%d (%d/%d diff)",
		loadHeap,
		loadRSS,
		loadHeap-startHeap,
		loadRSS-startRSS,
	)

	uris := benchURIs(5000)
	totalMatches := 0
	totalElapsed := time.Duration(0)
	maxElapsed := time.Duration(0)
	for _, uri := range uris {
		start := time.Now()
		res := e.Decide(uri)
		elapsed := time.Since(start)

		totalElapsed += elapsed
		maxElapsed = max(maxElapsed, elapsed)
		if res.Blocked() {
			totalMatches++
		}
	}

	t.Logf("Total matches: %d", totalMatches)
	t.Logf("Average per request: %v", totalElapsed/time.Duration(len(uris)))
	t.Logf("Max per request: %v", maxElapsed)
	t.Logf("Cache length: %d", e.cache.len())

	matchHeap, matchRSS := alloc(t)
	t.Logf(
		"Allocated after matching (heap/RSS, kiB): %d/%d (%d/%d diff)",
		matchHeap,
		matchRSS,
		matchHeap-loadHeap,
		matchRSS-loadRSS,
	)
}

func BenchmarkEngine_Decide(b *testing.B) {
	uris := benchURIs(100)
	lines := benchRules(1000)

	for _, size := range []int{0, 1024} {
		b.Run(fmt.Sprintf("cache_%d", size), func(b *testing.B) {
			e := newBenchEngine(b, size)
			e.SetBlockRules(lines)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = e.Decide(uris[i%len(uris)])
			}
		})
	}
}

// newBenchEngine returns a detached engine with the given decision cache size.
func newBenchEngine(tb testing.TB, cacheSize int) (e *Engine) {
	tb.Helper()

	e, err := NewEngine(&Config{CacheSize: cacheSize})
	require.NoError(tb, err)

	return e
}

// alloc returns the heap and RSS sizes of the test process in kiB.
func alloc(tb testing.TB) (heap, rss uint64) {
	tb.Helper()

	p, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(tb, err)

	mi, err := p.MemoryInfo()
	require.NoError(tb, err)

	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)

	return ms.Alloc / 1024, mi.RSS / 1024
}
