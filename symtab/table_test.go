package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupNotFoundOnEmptyTable(t *testing.T) {
	tbl := New()
	assert.Equal(t, NotFound, tbl.Lookup("x").Kind)
	assert.False(t, tbl.Exists("x"))
}

func TestDeepestFrameShadows(t *testing.T) {
	tbl := New()
	tbl.PushFrame() // global, depth 0
	require.NoError(t, tbl.Add(Symbol{Kind: Int, Name: "x", Address: 4, Level: 0}))

	tbl.PushFrame() // function, depth 1
	require.NoError(t, tbl.Add(Symbol{Kind: Bool, Name: "x", Address: 4, Level: 1}))

	got := tbl.Lookup("x")
	assert.Equal(t, Bool, got.Kind)
	assert.Equal(t, 1, got.Level)

	tbl.PopFrame()
	got = tbl.Lookup("x")
	assert.Equal(t, Int, got.Kind)
	assert.Equal(t, 0, got.Level)
}

func TestDepthTracksFrameCount(t *testing.T) {
	tbl := New()
	assert.Equal(t, -1, tbl.Depth())
	tbl.PushFrame()
	assert.Equal(t, 0, tbl.Depth())
	tbl.PushFrame()
	assert.Equal(t, 1, tbl.Depth())
	tbl.PopFrame()
	assert.Equal(t, 0, tbl.Depth())
}

func TestPromoteToArrayChangesKindAndSize(t *testing.T) {
	tbl := New()
	tbl.PushFrame()
	require.NoError(t, tbl.Add(Symbol{Kind: Int, Name: "a", Address: 4}))
	tbl.PromoteToArray("a", 10)

	got := tbl.Lookup("a")
	assert.Equal(t, IntArray, got.Kind)
	assert.Equal(t, 10, got.Size)
	assert.Equal(t, 4, got.Address)
}

func TestPromoteToArrayLeavesOtherKindsAlone(t *testing.T) {
	tbl := New()
	tbl.PushFrame()
	require.NoError(t, tbl.Add(Symbol{Kind: Const, Name: "N", Value: 5}))
	tbl.PromoteToArray("N", 3)

	got := tbl.Lookup("N")
	assert.Equal(t, Const, got.Kind)
	assert.Equal(t, 5, got.Value)
	assert.Equal(t, 0, got.Size)
}

func TestExistsInCurrentFrameOnly(t *testing.T) {
	tbl := New()
	tbl.PushFrame()
	require.NoError(t, tbl.Add(Symbol{Kind: Int, Name: "x"}))
	tbl.PushFrame()

	assert.False(t, tbl.ExistsInCurrentFrame("x"))
	assert.True(t, tbl.Exists("x"))
}
