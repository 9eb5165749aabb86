package stringpool

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIsIdempotent(t *testing.T) {
	p := New()

	first := p.Add("pos")
	second := p.Add("pos")
	assert.Equal(t, first, second)
	assert.Equal(t, annis.StringId(1), first, "real ids start at 1")

	other := p.Add("cat")
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, p.Len())
}

func TestStrAndFindId(t *testing.T) {
	p := New()
	id := p.Add("Bilharziose")

	s, ok := p.Str(id)
	require.True(t, ok)
	assert.Equal(t, "Bilharziose", s)

	_, ok = p.Str(annis.StringId(999))
	assert.False(t, ok)
	_, ok = p.Str(annis.WildcardId)
	assert.False(t, ok, "the wildcard id never resolves to a string")

	got, ok := p.FindId("Bilharziose")
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = p.FindId("missing")
	assert.False(t, ok)
}

func TestFindRegexFullMatchesOnly(t *testing.T) {
	p := New()
	tok := p.Add("tok")
	token := p.Add("token")
	p.Add("cat")

	ids := p.FindRegex("tok")
	assert.Contains(t, ids, tok)
	assert.NotContains(t, ids, token, "the pattern must match the whole string")

	ids = p.FindRegex("tok.*")
	assert.Contains(t, ids, tok)
	assert.Contains(t, ids, token)
	assert.Len(t, ids, 2)
}

func TestFindRegexInvalidPatternIsEmpty(t *testing.T) {
	p := New()
	p.Add("anything")
	assert.Empty(t, p.FindRegex("("))
}

func TestPrefixRange(t *testing.T) {
	lo, hi, bounded := PrefixRange("abc.*", 10)
	require.True(t, bounded)
	assert.Equal(t, "abc", lo)
	assert.Equal(t, "abd", hi)

	_, _, bounded = PrefixRange(".*", 10)
	assert.False(t, bounded, "no literal prefix means no usable range")

	lo, _, bounded = PrefixRange("^verylongliteralprefix", 4)
	require.True(t, bounded)
	assert.Equal(t, "very", lo, "prefix is clamped to maxLen")
}

func TestSnapshotRoundTrip(t *testing.T) {
	p := New()
	ids := []annis.StringId{p.Add("annis"), p.Add("tok"), p.Add("the")}

	restored := LoadSnapshot(p.Snapshot())
	require.Equal(t, p.Len(), restored.Len())
	for i, want := range []string{"annis", "tok", "the"} {
		s, ok := restored.Str(ids[i])
		require.True(t, ok)
		assert.Equal(t, want, s, "ids must survive the round trip in order")
	}
}

func TestAvgLengthAndClear(t *testing.T) {
	p := New()
	assert.Equal(t, 0.0, p.AvgLength())

	p.Add("ab")
	p.Add("abcd")
	assert.InDelta(t, 3.0, p.AvgLength(), 1e-9)

	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, annis.StringId(1), p.Add("fresh"), "ids restart after Clear")
}
