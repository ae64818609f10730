package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cornerMatrix builds an n by n matrix with a single dark module at (0,0).
func cornerMatrix(n int) [][]bool {
	m := make([][]bool, n)
	for i := range m {
		m[i] = make([]bool, n)
	}
	m[0][0] = true
	return m
}

func TestRenderMatrixGeometry(t *testing.T) {
	b, err := RenderMatrix(cornerMatrix(21), 4, 4, 0)
	require.NoError(t, err)

	// (21 modules + 4 margin each side) * 4 dots = 116, aligned to 120
	assert.Equal(t, 116, b.Height())
	assert.Equal(t, 120, b.Width())
	assert.Len(t, b.Data(), b.BytesPerRow()*b.Height())
}

func TestRenderMatrixDrawsModuleBlocks(t *testing.T) {
	b, err := RenderMatrix(cornerMatrix(5), 3, 2, 0)
	require.NoError(t, err)

	// dark module (0,0) maps to the 3x3 block at offset margin*size=6
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 3; dx++ {
			assert.True(t, b.Get(6+dx, 6+dy), "dot (%d,%d)", 6+dx, 6+dy)
		}
	}
	// quiet zone stays white
	assert.False(t, b.Get(0, 0))
	assert.False(t, b.Get(5, 6))
	assert.False(t, b.Get(6, 5))
	// neighbouring module stays white
	assert.False(t, b.Get(9, 6))
}

func TestRenderMatrixDegradesToFit(t *testing.T) {
	// 21+8 = 29 modules across; at size 8 that is 232 dots, too wide
	// for 200, so the size steps down until it fits: 6*29 = 174.
	b, err := RenderMatrix(cornerMatrix(21), 8, 4, 200)
	require.NoError(t, err)
	assert.Equal(t, 174, b.Height())
	assert.Equal(t, 176, b.Width())
}

func TestRenderMatrixFloorsAtTwo(t *testing.T) {
	b, err := RenderMatrix(cornerMatrix(21), 8, 4, 50)
	require.NoError(t, err)
	// floor of 2 dots per module renders even though 58 > 50
	assert.Equal(t, 58, b.Height())
	assert.Equal(t, 64, b.Width())
}

func TestRenderMatrixBumpsTinySizes(t *testing.T) {
	b, err := RenderMatrix(cornerMatrix(5), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Height())
}

func TestRenderMatrixEmpty(t *testing.T) {
	_, err := RenderMatrix(nil, 4, 4, 384)
	assert.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestRenderMatrixForPaperClampsRequest(t *testing.T) {
	b, err := RenderMatrixForPaper(cornerMatrix(10), 12, 0, 576)
	require.NoError(t, err)
	assert.Equal(t, 80, b.Height(), "12 clamps to 8")

	b, err = RenderMatrixForPaper(cornerMatrix(10), 0, 0, 576)
	require.NoError(t, err)
	assert.Equal(t, 20, b.Height(), "0 clamps to 2")
}

func TestRenderMatrixForPaperFitsNarrowRoll(t *testing.T) {
	b, err := RenderMatrixForPaper(cornerMatrix(57), 8, 4, 384)
	require.NoError(t, err)
	assert.LessOrEqual(t, b.Width(), 384)
	assert.GreaterOrEqual(t, b.Height(), (57+8)*2)
}
