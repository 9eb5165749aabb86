package annoindex

import (
	"math"
	"sort"

	"github.com/korpling/graphANNIS-sub001"
)

// The histogram for a key is built by sorting up to 2,500 sampled values
// and taking uniformly spaced quantiles as bucket boundaries, capped at
// 251 boundaries.
const (
	maxHistogramSamples = 2500
	maxHistogramBuckets = 251
)

// CalculateStatistics (re)builds the histogram for every known
// AnnotationKey from the current contents of by_anno. It should be called
// once corpus import has finished; histograms are not kept incrementally
// consistent with Add, they are batch-recomputed the same way graph-storage
// statistics are.
func (ix *Index) CalculateStatistics() {
	ix.mu.Lock()
	keys := make([]annis.AnnotationKey, 0, len(ix.byAnno))
	for k := range ix.byAnno {
		keys = append(keys, k)
	}
	ix.mu.Unlock()

	for _, key := range keys {
		ix.mu.RLock()
		list := ix.byAnno[key]
		samples := sampleValues(list, maxHistogramSamples)
		ix.mu.RUnlock()

		boundaries := buildBuckets(samples, ix.valStr, maxHistogramBuckets)

		ix.mu.Lock()
		ix.histograms[key] = boundaries
		ix.mu.Unlock()
	}
}

// sampleValues takes up to n values from list, deterministically striding
// across it so the sample represents the full value distribution rather
// than just a prefix.
func sampleValues(list []entry, n int) []annis.StringId {
	if len(list) <= n {
		out := make([]annis.StringId, len(list))
		for i, e := range list {
			out[i] = e.Val
		}
		return out
	}
	out := make([]annis.StringId, 0, n)
	stride := float64(len(list)) / float64(n)
	for i := 0; i < n; i++ {
		idx := int(float64(i) * stride)
		if idx >= len(list) {
			idx = len(list) - 1
		}
		out = append(out, list[idx].Val)
	}
	return out
}

// buildBuckets sorts samples by their resolved string content and picks
// up to maxBuckets uniformly spaced quantile boundaries.
func buildBuckets(samples []annis.StringId, resolve func(annis.StringId) string, maxBuckets int) []annis.StringId {
	if len(samples) == 0 {
		return nil
	}
	sorted := append([]annis.StringId(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return resolve(sorted[i]) < resolve(sorted[j]) })

	n := maxBuckets
	if n > len(sorted) {
		n = len(sorted)
	}
	if n < 1 {
		n = 1
	}

	boundaries := make([]annis.StringId, 0, n)
	for i := 0; i < n; i++ {
		pos := int(math.Round(float64(i) / float64(n-1) * float64(len(sorted)-1)))
		if n == 1 {
			pos = 0
		}
		boundaries = append(boundaries, sorted[pos])
	}
	return boundaries
}

// GuessCount estimates the number of (node) matches for key whose value
// lies in [lowerVal, upperVal]:
//
//	universe = by_key[key]
//	m        = number of histogram buckets [h[i], h[i+1]] overlapping the range
//	B        = total number of buckets
//	estimate = round(universe * m / B); 0 if B == 0
//
// When ns is WildcardId the estimate unions over every key sharing name
// (and vice versa): universe, m and B all accumulate across the matching
// keys before the final division.
func (ix *Index) GuessCount(ns, name annis.StringId, lowerVal, upperVal annis.StringId, hasLower, hasUpper bool) int {
	keys := ix.MatchingKeys(ns, name)
	if len(keys) == 0 {
		return 0
	}

	var universe, m, bTotal int
	lowerS, upperS := "", ""
	if hasLower {
		lowerS = ix.valStr(lowerVal)
	}
	if hasUpper {
		upperS = ix.valStr(upperVal)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, key := range keys {
		universe += ix.byKey[key]
		buckets := ix.histograms[key]
		if len(buckets) >= 2 {
			bTotal += len(buckets) - 1
		}
		for i := 0; i+1 < len(buckets); i++ {
			lo := ix.valStr(buckets[i])
			hi := ix.valStr(buckets[i+1])
			if rangesOverlap(lo, hi, lowerS, upperS, hasLower, hasUpper) {
				m++
			}
		}
	}

	if bTotal == 0 {
		return 0
	}
	return int(math.Round(float64(universe) * float64(m) / float64(bTotal)))
}

func rangesOverlap(bucketLo, bucketHi, queryLo, queryHi string, hasLo, hasHi bool) bool {
	if hasHi && bucketLo > queryHi {
		return false
	}
	if hasLo && bucketHi < queryLo {
		return false
	}
	return true
}

// GuessRegexCount estimates the match count for a regex search on key by
// deriving its literal prefix range (bounded to 10 runes) and delegating to
// the same bucket-overlap routine used for explicit value ranges.
func (ix *Index) GuessRegexCount(ns, name annis.StringId, pattern string, prefixRange func(string, int) (string, string, bool), findId func(string) (annis.StringId, bool)) int {
	lo, hi, bounded := prefixRange(pattern, 10)
	if !bounded {
		// No usable prefix: fall back to the full key universe as the
		// estimate, matching "can't narrow, don't claim zero" semantics.
		total := 0
		for _, key := range ix.MatchingKeys(ns, name) {
			total += ix.KeyCount(key)
		}
		return total
	}
	// lo/hi are literal prefix bounds and need not be interned values
	// themselves; findId is only consulted by callers that already have an
	// interned id handy; comparisons here happen against resolved string
	// content via guessCountByStrings instead.
	return ix.guessCountByStrings(ns, name, lo, hi)
}

// guessCountByStrings is GuessCount but bounds are given as raw strings
// rather than pre-interned StringIds (used by regex estimation, whose
// prefix bounds may not correspond to any interned value).
func (ix *Index) guessCountByStrings(ns, name annis.StringId, lowerS, upperS string) int {
	keys := ix.MatchingKeys(ns, name)
	if len(keys) == 0 {
		return 0
	}

	var universe, m, bTotal int

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, key := range keys {
		universe += ix.byKey[key]
		buckets := ix.histograms[key]
		if len(buckets) >= 2 {
			bTotal += len(buckets) - 1
		}
		for i := 0; i+1 < len(buckets); i++ {
			lo := ix.valStr(buckets[i])
			hi := ix.valStr(buckets[i+1])
			if rangesOverlap(lo, hi, lowerS, upperS, true, true) {
				m++
			}
		}
	}

	if bTotal == 0 {
		return 0
	}
	return int(math.Round(float64(universe) * float64(m) / float64(bTotal)))
}
