package vrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())
	assert.Equal(t, uint64(1), v.Major())
}

func TestParseVersionPreRelease(t *testing.T) {
	v, err := ParseVersion("2.0.0-beta.1")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-beta.1", v.String())
}

func TestParseVersionRejectsPartial(t *testing.T) {
	_, err := ParseVersion("1.2")
	assert.Error(t, err)
}

func TestVersionCompare(t *testing.T) {
	a := MustVersion("1.0.0")
	b := MustVersion("1.1.0")
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(MustVersion("1.0.0")))
}

func TestRangeCaret(t *testing.T) {
	r := MustRange("^1")
	assert.True(t, r.Matches(MustVersion("1.0.0")))
	assert.True(t, r.Matches(MustVersion("1.9.3")))
	assert.False(t, r.Matches(MustVersion("2.0.0")))
}

func TestRangeConjunction(t *testing.T) {
	r := MustRange(">=1.2, <2")
	assert.False(t, r.Matches(MustVersion("1.1.9")))
	assert.True(t, r.Matches(MustVersion("1.2.0")))
	assert.True(t, r.Matches(MustVersion("1.9.0")))
	assert.False(t, r.Matches(MustVersion("2.0.0")))
}

func TestRangeWildcard(t *testing.T) {
	r := MustRange("1.*")
	assert.True(t, r.Matches(MustVersion("1.4.2")))
	assert.False(t, r.Matches(MustVersion("2.0.0")))
}

func TestRangeAny(t *testing.T) {
	r := Any()
	assert.True(t, r.Matches(MustVersion("0.0.1")))
	assert.True(t, r.Matches(MustVersion("99.0.0")))
	assert.Equal(t, "*", r.String())
}

func TestRangeEmptyMeansAny(t *testing.T) {
	r, err := ParseRange("")
	require.NoError(t, err)
	assert.True(t, r.Matches(MustVersion("3.1.4")))
}

func TestRangeBad(t *testing.T) {
	_, err := ParseRange("not-a-range")
	assert.Error(t, err)
}

// =============================================================================
// Pin memo
// =============================================================================

func TestPinsFirstWins(t *testing.T) {
	pins := NewPins()
	rng := MustRange("^1")

	got := pins.Pin("example.common", rng, MustVersion("1.2.0"))
	assert.Equal(t, "1.2.0", got.String())

	// A second pin for the same key is ignored.
	got = pins.Pin("example.common", rng, MustVersion("1.3.0"))
	assert.Equal(t, "1.2.0", got.String())

	v, ok := pins.Lookup("example.common", rng)
	require.True(t, ok)
	assert.Equal(t, "1.2.0", v.String())
}

func TestPinsDistinctRanges(t *testing.T) {
	pins := NewPins()
	pins.Pin("pkg", MustRange("^1"), MustVersion("1.2.0"))
	pins.Pin("pkg", MustRange("^2"), MustVersion("2.0.0"))

	versions := pins.VersionsOf("pkg")
	assert.Len(t, versions, 2)
}

func TestPinsVersionsOfDeduplicates(t *testing.T) {
	pins := NewPins()
	pins.Pin("pkg", MustRange("^1"), MustVersion("1.2.0"))
	pins.Pin("pkg", MustRange(">=1"), MustVersion("1.2.0"))

	assert.Len(t, pins.VersionsOf("pkg"), 1)
}
