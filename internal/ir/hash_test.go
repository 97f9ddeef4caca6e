package ir

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnownVector(t *testing.T) {
	// Raw string payload, not JSON: SHA-256("hello").
	h, err := Digest("hello")
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h)
}

func TestDigestBytesMatchesString(t *testing.T) {
	assert.Equal(t, MustDigest("hello"), MustDigest([]byte("hello")))
}

func TestDigestHexEncoding(t *testing.T) {
	h := MustDigest(map[string]any{"a": 1})
	assert.Len(t, h, 64, "SHA-256 hex is 64 characters")
	assert.Regexp(t, `^[0-9a-f]{64}$`, h)
}

func TestDigestStableUnderKeyPermutation(t *testing.T) {
	a := map[string]any{"b": 2, "a": map[string]any{"d": 4, "c": 3}}
	b := map[string]any{"a": map[string]any{"c": 3, "d": 4}, "b": 2}
	assert.Equal(t, MustDigest(a), MustDigest(b))
}

func TestDigestCryptoUnavailable(t *testing.T) {
	orig := digestHash
	t.Cleanup(func() { digestHash = orig })

	// MD4 lives outside the standard library and is never registered here.
	digestHash = crypto.MD4

	_, err := Digest("hello")
	assert.ErrorIs(t, err, ErrCryptoUnavailable)

	_, err = PlanID("rec-1", "snap", "input")
	assert.ErrorIs(t, err, ErrCryptoUnavailable)
}

func TestPlanIDDeterminism(t *testing.T) {
	id1, err := PlanID("rec-1", "snap-1", "abc")
	require.NoError(t, err)
	id2, err := PlanID("rec-1", "snap-1", "abc")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	assert.Equal(t, MustDigest("plan:rec-1:snap-1:abc"), id1)
}

func TestPlanIDChangesWithInputs(t *testing.T) {
	base, _ := PlanID("rec-1", "snap-1", "abc")
	otherSnap, _ := PlanID("rec-1", "snap-2", "abc")
	otherInput, _ := PlanID("rec-1", "snap-1", "abd")
	otherRecord, _ := PlanID("rec-2", "snap-1", "abc")

	assert.NotEqual(t, base, otherSnap)
	assert.NotEqual(t, base, otherInput)
	assert.NotEqual(t, base, otherRecord)
}

func TestPlanInputHashChangesWithClassification(t *testing.T) {
	input := PlanInput{
		Record: Record{URI: "rec-1", SnapshotHash: "snap-1"},
		LineItems: []EnrichedLineItem{{
			LineItem:       LineItem{URI: "li-1", RecordURI: "rec-1", ConfigJSON: "{}"},
			Classification: Classification{Confidence: 1},
		}},
	}
	h1, err := PlanInputHash(input)
	require.NoError(t, err)

	input.LineItems[0].Classification.Flags.RequiresDesign = true
	h2, err := PlanInputHash(input)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestMustDigestPanicsOnUnsupportedValue(t *testing.T) {
	assert.Panics(t, func() {
		MustDigest(map[string]any{"f": func() {}})
	})
}
